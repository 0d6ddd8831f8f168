package noop

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ebogdum/drivefs/backends"
)

// NoopAdapter is a no-operation storage backend that always returns errors
// This is used when storage is disabled in the configuration
type NoopAdapter struct{}

// NewNoopAdapter creates a new noop storage adapter
func NewNoopAdapter() backends.ObjectStore {
	return &NoopAdapter{}
}

// Bucket returns an empty bucket name
func (n *NoopAdapter) Bucket() string {
	return ""
}

// EnsureBucket always returns an error for noop backend
func (n *NoopAdapter) EnsureBucket(ctx context.Context) error {
	return fmt.Errorf("cannot ensure bucket: %w", backends.ErrBackendDisabled)
}

// PutObject always returns an error for noop backend
func (n *NoopAdapter) PutObject(ctx context.Context, key string, body io.ReadSeeker, contentType string) error {
	return fmt.Errorf("cannot put object %s: %w", key, backends.ErrBackendDisabled)
}

// GetObject always returns an error for noop backend
func (n *NoopAdapter) GetObject(ctx context.Context, key string) (io.ReadCloser, *backends.ObjectInfo, error) {
	return nil, nil, fmt.Errorf("cannot get object %s: %w", key, backends.ErrBackendDisabled)
}

// HeadObject always returns an error for noop backend
func (n *NoopAdapter) HeadObject(ctx context.Context, key string) (*backends.ObjectInfo, error) {
	return nil, fmt.Errorf("cannot stat object %s: %w", key, backends.ErrBackendDisabled)
}

// ListPage always returns an error for noop backend
func (n *NoopAdapter) ListPage(ctx context.Context, input backends.ListInput) (*backends.ListPage, error) {
	return nil, fmt.Errorf("cannot list prefix %s: %w", input.Prefix, backends.ErrBackendDisabled)
}

// CopyObject always returns an error for noop backend
func (n *NoopAdapter) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	return fmt.Errorf("cannot copy object %s: %w", srcKey, backends.ErrBackendDisabled)
}

// DeleteObject always returns an error for noop backend
func (n *NoopAdapter) DeleteObject(ctx context.Context, key string) error {
	return fmt.Errorf("cannot delete object %s: %w", key, backends.ErrBackendDisabled)
}

// DeleteObjects always returns an error for noop backend
func (n *NoopAdapter) DeleteObjects(ctx context.Context, keys []string) ([]backends.DeleteFailure, error) {
	return nil, fmt.Errorf("cannot delete %d objects: %w", len(keys), backends.ErrBackendDisabled)
}

// PresignGetObject always returns an error for noop backend
func (n *NoopAdapter) PresignGetObject(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", fmt.Errorf("cannot presign object %s: %w", key, backends.ErrBackendDisabled)
}

// Close does nothing for noop backend
func (n *NoopAdapter) Close() error {
	return nil
}
