package repositories

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrEmptyKey    = errors.New("empty key")
)

// KeyValueStore is the durable storage used to persist processed-id ledgers.
// Values are opaque blobs written as a whole on every mutation.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

type memoryKeyValueStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewInMemoryKeyValueStore returns a process-local store, mostly useful for development and tests.
func NewInMemoryKeyValueStore() KeyValueStore {
	return &memoryKeyValueStore{items: make(map[string][]byte)}
}

func (s *memoryKeyValueStore) Get(ctx context.Context, key string) ([]byte, error) {
	_ = ctx
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrEmptyKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *memoryKeyValueStore) Put(ctx context.Context, key string, value []byte) error {
	_ = ctx
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = append([]byte(nil), value...)
	return nil
}

type prefixedKeyValueStore struct {
	inner  KeyValueStore
	prefix string
}

// NewPrefixedKeyValueStore namespaces every key of inner under prefix, so
// separate owners can keep the same logical key without sharing the value.
func NewPrefixedKeyValueStore(inner KeyValueStore, prefix string) KeyValueStore {
	return &prefixedKeyValueStore{inner: inner, prefix: prefix}
}

func (s *prefixedKeyValueStore) Get(ctx context.Context, key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrEmptyKey
	}
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *prefixedKeyValueStore) Put(ctx context.Context, key string, value []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	return s.inner.Put(ctx, s.prefix+key, value)
}
