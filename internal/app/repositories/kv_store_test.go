package repositories

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/faeln1/clan-notifier/pkg/storage"
)

func exerciseKeyValueStore(t *testing.T, store KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, "processedNotifications_c1"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound for missing key, got %v", err)
	}
	if err := store.Put(ctx, "processedNotifications_c1", []byte(`["a"]`)); err != nil {
		t.Fatalf("put error: %v", err)
	}
	if err := store.Put(ctx, "processedNotifications_c1", []byte(`["a","b"]`)); err != nil {
		t.Fatalf("overwrite error: %v", err)
	}
	got, err := store.Get(ctx, "processedNotifications_c1")
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if string(got) != `["a","b"]` {
		t.Fatalf("expected overwritten value, got %s", got)
	}
	if _, err := store.Get(ctx, "processedNotifications_c2"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("keys must not leak across clans, got %v", err)
	}
	if err := store.Put(ctx, "  ", nil); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
}

func TestInMemoryKeyValueStore(t *testing.T) {
	exerciseKeyValueStore(t, NewInMemoryKeyValueStore())
}

func TestInMemoryKeyValueStoreCopiesValues(t *testing.T) {
	store := NewInMemoryKeyValueStore()
	ctx := context.Background()
	value := []byte("abc")
	if err := store.Put(ctx, "k", value); err != nil {
		t.Fatalf("put error: %v", err)
	}
	value[0] = 'z'
	got, _ := store.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value was aliased: %s", got)
	}
}

func TestSQLiteKeyValueStore(t *testing.T) {
	store, err := NewSQLiteKeyValueStore(":memory:")
	if err != nil {
		t.Fatalf("creating sqlite store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("closing sqlite store: %v", err)
		}
	})
	exerciseKeyValueStore(t, store)
}

func TestPrefixedKeyValueStore(t *testing.T) {
	inner := NewInMemoryKeyValueStore()
	exerciseKeyValueStore(t, NewPrefixedKeyValueStore(inner, "viewers/u1/"))

	ctx := context.Background()
	u2 := NewPrefixedKeyValueStore(inner, "viewers/u2/")
	if _, err := u2.Get(ctx, "processedNotifications_c1"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("viewers must not share values, got %v", err)
	}
	if _, err := inner.Get(ctx, "viewers/u1/processedNotifications_c1"); err != nil {
		t.Fatalf("expected value under the viewer prefix: %v", err)
	}
}

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryObjects) PutObject(ctx context.Context, in storage.UploadInput) error {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[in.Key] = data
	return nil
}

func (m *memoryObjects) GetObject(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return bytes.Clone(data), nil
}

func (m *memoryObjects) DeleteObject(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func TestObjectKeyValueStore(t *testing.T) {
	objects := &memoryObjects{objects: make(map[string][]byte)}
	exerciseKeyValueStore(t, NewObjectKeyValueStore(objects, "/ledgers/"))

	if _, ok := objects.objects["ledgers/processedNotifications_c1.json"]; !ok {
		t.Fatalf("expected object stored under prefix, got keys %v", objects.objects)
	}
}
