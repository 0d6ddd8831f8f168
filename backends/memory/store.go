// Package memory implements backends.ObjectStore in process memory.
// Listing follows S3 ListObjectsV2 rules for prefixes, delimiters and
// continuation tokens so it can stand in for S3 in development and tests.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/backends"
)

const defaultMaxKeys = 1000

// Continuation tokens record the last emitted entry and whether it was a key
// or a common prefix.
const (
	tokenKey    = "k:"
	tokenPrefix = "p:"
)

type object struct {
	data         []byte
	contentType  string
	etag         string
	lastModified time.Time
}

// Store is an in-memory object store for a single bucket
type Store struct {
	bucket  string
	logger  *zap.Logger
	mu      sync.RWMutex
	objects map[string]object
	created bool
	now     func() time.Time
}

// NewStore creates an empty in-memory store
func NewStore(bucket string, logger *zap.Logger) *Store {
	return &Store{
		bucket:  bucket,
		logger:  logger,
		objects: make(map[string]object),
		now:     time.Now,
	}
}

// Bucket returns the bucket name
func (s *Store) Bucket() string {
	return s.bucket
}

// EnsureBucket marks the bucket as present
func (s *Store) EnsureBucket(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.created {
		s.created = true
		s.logger.Info("Bucket created", zap.String("bucket", s.bucket), zap.String("backend", "memory"))
	}
	return nil
}

// PutObject stores the full body under key
func (s *Store) PutObject(ctx context.Context, key string, body io.ReadSeeker, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read body for %s: %w", key, err)
	}

	if contentType == "" {
		contentType = backends.ContentType(key)
	}

	sum := md5.Sum(data)

	s.mu.Lock()
	s.objects[key] = object{
		data:         data,
		contentType:  contentType,
		etag:         hex.EncodeToString(sum[:]),
		lastModified: s.now().UTC(),
	}
	s.mu.Unlock()

	return nil
}

// GetObject returns a reader over a copy of the stored bytes
func (s *Store) GetObject(ctx context.Context, key string) (io.ReadCloser, *backends.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("failed to get object %s: %w", key, backends.ErrNotFound)
	}

	info := obj.info(key)
	return io.NopCloser(bytes.NewReader(obj.data)), &info, nil
}

// HeadObject returns object metadata
func (s *Store) HeadObject(ctx context.Context, key string) (*backends.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("failed to stat object %s: %w", key, backends.ErrNotFound)
	}

	info := obj.info(key)
	return &info, nil
}

// ListPage returns one page of keys in lexicographic order
func (s *Store) ListPage(ctx context.Context, in backends.ListInput) (*backends.ListPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	maxKeys := in.MaxKeys
	if maxKeys <= 0 || maxKeys > defaultMaxKeys {
		maxKeys = defaultMaxKeys
	}

	s.mu.RLock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		if strings.HasPrefix(key, in.Prefix) {
			keys = append(keys, key)
		}
	}
	snapshot := make(map[string]object, len(keys))
	for _, key := range keys {
		snapshot[key] = s.objects[key]
	}
	s.mu.RUnlock()

	sort.Strings(keys)

	page := &backends.ListPage{}
	emitted := 0
	lastToken := ""
	lastPrefix := ""

	for _, key := range keys {
		if skipBefore(key, in.ContinuationToken) {
			continue
		}

		commonPrefix := ""
		if in.Delimiter != "" {
			rest := key[len(in.Prefix):]
			if idx := strings.Index(rest, in.Delimiter); idx >= 0 {
				commonPrefix = in.Prefix + rest[:idx+len(in.Delimiter)]
			}
		}

		if commonPrefix != "" && commonPrefix == lastPrefix {
			continue
		}

		if emitted == maxKeys {
			page.NextContinuationToken = lastToken
			break
		}

		if commonPrefix != "" {
			page.CommonPrefixes = append(page.CommonPrefixes, commonPrefix)
			lastPrefix = commonPrefix
			lastToken = tokenPrefix + commonPrefix
		} else {
			page.Objects = append(page.Objects, snapshot[key].info(key))
			lastToken = tokenKey + key
		}
		emitted++
	}

	return page, nil
}

// skipBefore reports whether key was already covered by the page that produced token
func skipBefore(key, token string) bool {
	switch {
	case token == "":
		return false
	case strings.HasPrefix(token, tokenPrefix):
		prefix := strings.TrimPrefix(token, tokenPrefix)
		return key <= prefix || strings.HasPrefix(key, prefix)
	default:
		return key <= strings.TrimPrefix(token, tokenKey)
	}
}

// CopyObject duplicates srcKey to dstKey
func (s *Store) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[srcKey]
	if !ok {
		return fmt.Errorf("failed to copy object %s: %w", srcKey, backends.ErrNotFound)
	}

	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	s.objects[dstKey] = object{
		data:         data,
		contentType:  obj.contentType,
		etag:         obj.etag,
		lastModified: s.now().UTC(),
	}
	return nil
}

// DeleteObject removes key; missing keys are ignored
func (s *Store) DeleteObject(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// DeleteObjects removes a batch of keys
func (s *Store) DeleteObjects(ctx context.Context, keys []string) ([]backends.DeleteFailure, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(keys) > backends.MaxDeleteBatch {
		return nil, fmt.Errorf("%d keys: %w", len(keys), backends.ErrBatchTooLarge)
	}

	s.mu.Lock()
	for _, key := range keys {
		delete(s.objects, key)
	}
	s.mu.Unlock()

	return nil, nil
}

// PresignGetObject returns a memory:// URL carrying the expiry time
func (s *Store) PresignGetObject(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if _, err := s.HeadObject(ctx, key); err != nil {
		return "", err
	}

	u := url.URL{
		Scheme:   "memory",
		Host:     s.bucket,
		Path:     "/" + key,
		RawQuery: url.Values{"expires": {fmt.Sprintf("%d", s.now().Add(ttl).Unix())}}.Encode(),
	}
	return u.String(), nil
}

// Close drops all objects
func (s *Store) Close() error {
	s.mu.Lock()
	s.objects = make(map[string]object)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored objects
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (o object) info(key string) backends.ObjectInfo {
	return backends.ObjectInfo{
		Key:          key,
		Size:         int64(len(o.data)),
		ContentType:  o.contentType,
		ETag:         o.etag,
		LastModified: o.lastModified,
	}
}
