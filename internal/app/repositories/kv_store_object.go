package repositories

import (
	"bytes"
	"context"
	"errors"
	"path"
	"strings"

	"github.com/faeln1/clan-notifier/pkg/storage"
)

type objectKeyValueStore struct {
	objects storage.Service
	prefix  string
}

// NewObjectKeyValueStore persists each key as a JSON object under prefix in the object storage.
func NewObjectKeyValueStore(objects storage.Service, prefix string) KeyValueStore {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = "ledgers"
	}
	return &objectKeyValueStore{objects: objects, prefix: prefix}
}

func (s *objectKeyValueStore) objectKey(key string) string {
	return path.Join(s.prefix, key+".json")
}

func (s *objectKeyValueStore) Get(ctx context.Context, key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrEmptyKey
	}
	data, err := s.objects.GetObject(ctx, s.objectKey(key))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *objectKeyValueStore) Put(ctx context.Context, key string, value []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	return s.objects.PutObject(ctx, storage.UploadInput{
		Key:         s.objectKey(key),
		ContentType: "application/json",
		Body:        bytes.NewReader(value),
		Size:        int64(len(value)),
	})
}
