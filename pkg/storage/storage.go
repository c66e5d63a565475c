package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

type UploadInput struct {
	Key         string
	ContentType string
	Body        io.Reader
	Size        int64
}

type Service interface {
	PutObject(ctx context.Context, in UploadInput) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
}
