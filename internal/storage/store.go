package storage

import (
	"context"
	"io"
	"time"
)

// ObjectStore is the remote blob store uploaded videos are pushed to.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	ObjectURL(key string) string
	PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
