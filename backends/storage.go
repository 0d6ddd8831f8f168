// Package backends provides object storage adapters and interfaces for drivefs.
// Adapters work on absolute bucket keys; user scoping happens in core.
package backends

import (
	"context"
	"errors"
	"io"
	"time"
)

// MaxDeleteBatch is the largest number of keys a single DeleteObjects call may carry.
const MaxDeleteBatch = 1000

// Common backend errors
var (
	ErrNotFound        = errors.New("object not found")
	ErrBackendDisabled = errors.New("backend not enabled")
	ErrBatchTooLarge   = errors.New("delete batch exceeds backend limit")
)

// ObjectInfo describes a single stored object
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// ListInput controls a single ListPage call
type ListInput struct {
	// Prefix restricts results to keys starting with this string
	Prefix string

	// Delimiter groups keys into common prefixes. Empty lists recursively.
	Delimiter string

	// ContinuationToken resumes a previous listing. Empty starts from the beginning.
	ContinuationToken string

	// MaxKeys caps objects plus common prefixes per page. 0 means backend default.
	MaxKeys int
}

// ListPage is one page of a listing
type ListPage struct {
	Objects        []ObjectInfo
	CommonPrefixes []string

	// NextContinuationToken is empty on the last page
	NextContinuationToken string
}

// DeleteFailure reports a key that a batch delete could not remove
type DeleteFailure struct {
	Key     string
	Code    string
	Message string
}

// ObjectStore defines the operations drivefs needs from an object storage backend.
// Every method takes the caller's context and must honor its deadline.
type ObjectStore interface {
	// Bucket returns the bucket all keys live in
	Bucket() string

	// EnsureBucket verifies the bucket exists and creates it when missing
	EnsureBucket(ctx context.Context) error

	// PutObject writes content as a single object
	PutObject(ctx context.Context, key string, body io.ReadSeeker, contentType string) error

	// GetObject opens an object for reading. The caller must close the reader.
	GetObject(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error)

	// HeadObject returns object metadata without content
	HeadObject(ctx context.Context, key string) (*ObjectInfo, error)

	// ListPage returns a single page of a listing
	ListPage(ctx context.Context, input ListInput) (*ListPage, error)

	// CopyObject copies srcKey to dstKey inside the bucket
	CopyObject(ctx context.Context, srcKey, dstKey string) error

	// DeleteObject removes a single key. Missing keys are not an error.
	DeleteObject(ctx context.Context, key string) error

	// DeleteObjects removes up to MaxDeleteBatch keys in one call and returns
	// the keys the backend reported as not deleted
	DeleteObjects(ctx context.Context, keys []string) ([]DeleteFailure, error)

	// PresignGetObject returns a time-limited download URL for key
	PresignGetObject(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Close releases any resources used by the backend
	Close() error
}

// WalkPrefix lists every object under prefix page by page and calls fn once per page.
// Only one page is held in memory at a time. Returning an error from fn stops the walk.
func WalkPrefix(ctx context.Context, store ObjectStore, prefix string, pageSize int, fn func(objects []ObjectInfo) error) error {
	input := ListInput{
		Prefix:  prefix,
		MaxKeys: pageSize,
	}

	for {
		page, err := store.ListPage(ctx, input)
		if err != nil {
			return err
		}

		if len(page.Objects) > 0 {
			if err := fn(page.Objects); err != nil {
				return err
			}
		}

		if page.NextContinuationToken == "" {
			return nil
		}
		input.ContinuationToken = page.NextContinuationToken
	}
}
