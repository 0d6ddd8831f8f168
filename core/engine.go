// Package core implements the user-scoped file manager on top of a flat object store.
// Folders are emulated with "/"-delimited key prefixes and zero-byte marker objects.
package core

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/backends"
	"github.com/ebogdum/drivefs/internal/pathutil"
	"github.com/ebogdum/drivefs/locks"
	"github.com/ebogdum/drivefs/metrics"
)

// maxReportedFailures bounds BatchResult.FailedKeys; Failed still counts every key
const maxReportedFailures = 100

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.@-]+$`)

// EntryType distinguishes folders from files in listings
type EntryType string

const (
	EntryFolder EntryType = "folder"
	EntryFile   EntryType = "file"
)

// Entry is a single item of a listing or a stat result
type Entry struct {
	Type         EntryType  `json:"type"`
	Name         string     `json:"name"`
	Path         string     `json:"path"`     // relative to the user's scope
	FullKey      string     `json:"full_key"` // absolute bucket key
	Size         int64      `json:"size,omitempty"`
	LastModified *time.Time `json:"last_modified,omitempty"`
	ContentType  string     `json:"content_type,omitempty"`
	ETag         string     `json:"etag,omitempty"`
}

// BatchResult reports the outcome of a multi-object operation
type BatchResult struct {
	Matched    int      `json:"matched"`
	Succeeded  int      `json:"succeeded"`
	Failed     int      `json:"failed"`
	FailedKeys []string `json:"failed_keys,omitempty"`
}

func (r *BatchResult) addFailure(key string) {
	r.Failed++
	if len(r.FailedKeys) < maxReportedFailures {
		r.FailedKeys = append(r.FailedKeys, key)
	}
}

// Options tunes the engine's batching
type Options struct {
	DeleteBatchSize int // keys per DeleteObjects call, capped at backends.MaxDeleteBatch
	ListPageSize    int // keys per listing page
}

func (o Options) normalize() Options {
	if o.DeleteBatchSize <= 0 || o.DeleteBatchSize > backends.MaxDeleteBatch {
		o.DeleteBatchSize = backends.MaxDeleteBatch
	}
	if o.ListPageSize <= 0 || o.ListPageSize > backends.MaxDeleteBatch {
		o.ListPageSize = backends.MaxDeleteBatch
	}
	return o
}

// Engine is the object storage adapter. It holds no listing or bucket state;
// the store is the source of truth.
type Engine struct {
	store       backends.ObjectStore
	lockManager locks.Manager
	opts        Options
	logger      *zap.Logger
}

// NewEngine creates a new core engine instance
func NewEngine(store backends.ObjectStore, lockManager locks.Manager, opts Options, logger *zap.Logger) *Engine {
	if lockManager == nil {
		lockManager = locks.NewNoopManager()
	}
	return &Engine{
		store:       store,
		lockManager: lockManager,
		opts:        opts.normalize(),
		logger:      logger,
	}
}

// UserScope returns the key prefix owning all of userID's objects
func UserScope(userID string) (string, error) {
	if !userIDPattern.MatchString(userID) {
		return "", fmt.Errorf("invalid user id %q", userID)
	}
	return "user-" + userID + "-files/", nil
}

// target is a caller key resolved against its scope
type target struct {
	scope string
	rel   string // cleaned key relative to scope, "" for the scope root
	abs   string
}

// resolve validates userID and key and computes the absolute key.
// Every operation goes through here before touching the store.
func (e *Engine) resolve(op, userID, key string) (target, error) {
	scope, err := UserScope(userID)
	if err != nil {
		return target{}, &Error{Kind: KindInvalidArgument, Op: op, Key: key, Cause: err}
	}

	rel, err := pathutil.CleanKey(key)
	if err != nil {
		return target{}, classify(op, key, err)
	}

	abs := scope + rel
	if !strings.HasPrefix(abs, scope) {
		return target{}, newError(KindForbidden, op, key, "key resolves outside the user scope")
	}

	return target{scope: scope, rel: rel, abs: abs}, nil
}

// relative strips the scope from an absolute key for reporting
func (t target) relative(abs string) string {
	return strings.TrimPrefix(abs, t.scope)
}

// lock acquires the prefix locks covering rels, in sorted order. Each lock
// key is the scope plus the top-level segment of the key.
func (e *Engine) lock(ctx context.Context, op, scope string, rels ...string) (func(), error) {
	seen := make(map[string]struct{}, len(rels))
	keys := make([]string, 0, len(rels))
	for _, rel := range rels {
		key := scope + pathutil.TopSegment(rel)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	held := make([]string, 0, len(keys))
	release := func() {
		// Release even if the request context is already canceled
		releaseCtx := context.WithoutCancel(ctx)
		for i := len(held) - 1; i >= 0; i-- {
			if err := e.lockManager.Release(releaseCtx, held[i]); err != nil {
				metrics.LockOperationsTotal.WithLabelValues("release", "failure").Inc()
				e.logger.Error("Failed to release lock", zap.String("operation", op), zap.Error(err))
				continue
			}
			metrics.LockOperationsTotal.WithLabelValues("release", "success").Inc()
		}
	}

	for _, key := range keys {
		acquired, err := e.lockManager.Acquire(ctx, key)
		if err != nil {
			metrics.LockOperationsTotal.WithLabelValues("acquire", "failure").Inc()
			release()
			return nil, classify(op, "", fmt.Errorf("failed to acquire lock: %w", err))
		}
		if !acquired {
			metrics.LockOperationsTotal.WithLabelValues("acquire", "busy").Inc()
			release()
			return nil, newError(KindBusy, op, "", "another operation is modifying this folder")
		}
		metrics.LockOperationsTotal.WithLabelValues("acquire", "success").Inc()
		held = append(held, key)
	}

	return release, nil
}

// observe records duration and outcome of an engine call
func observe(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = KindOf(err).String()
	}
	metrics.StorageOpsTotal.WithLabelValues(op, status).Inc()
	metrics.StorageOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func entryFromObject(t target, info backends.ObjectInfo) Entry {
	rel := t.relative(info.Key)
	entry := Entry{
		Type:        EntryFile,
		Name:        pathutil.Base(rel),
		Path:        rel,
		FullKey:     info.Key,
		Size:        info.Size,
		ContentType: info.ContentType,
		ETag:        info.ETag,
	}
	if !info.LastModified.IsZero() {
		modified := info.LastModified
		entry.LastModified = &modified
	}
	return entry
}
