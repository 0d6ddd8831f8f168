package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/backends"
	clog "github.com/ebogdum/drivefs/core/log"
	"github.com/ebogdum/drivefs/internal/pathutil"
	"github.com/ebogdum/drivefs/metrics"
)

// folderContentType is stored on zero-byte folder markers
const folderContentType = "application/x-directory"

// List returns the immediate children of prefix: folders first, then files,
// each group sorted by name. A prefix with no objects yields an empty slice.
func (e *Engine) List(ctx context.Context, userID, prefix string) (entries []Entry, err error) {
	const op = "list"
	start := time.Now()
	defer func() { observe(op, start, err) }()

	t, err := e.resolve(op, userID, prefix)
	if err != nil {
		return nil, err
	}

	listPrefix := t.abs
	if t.rel != "" && !strings.HasSuffix(listPrefix, "/") {
		listPrefix += "/"
	}

	var folders, files []Entry
	input := backends.ListInput{
		Prefix:    listPrefix,
		Delimiter: "/",
		MaxKeys:   e.opts.ListPageSize,
	}

	for {
		page, err := e.store.ListPage(ctx, input)
		if err != nil {
			e.logger.Error("Failed to list folder",
				append(clog.LogFields{Operation: op, UserID: userID, Path: t.rel}.Fields(), zap.Error(err))...)
			return nil, classify(op, t.rel, err)
		}

		for _, commonPrefix := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(commonPrefix, listPrefix), "/")
			if name == "" {
				continue
			}
			folders = append(folders, Entry{
				Type:    EntryFolder,
				Name:    name,
				Path:    t.relative(commonPrefix),
				FullKey: commonPrefix,
			})
		}

		for _, object := range page.Objects {
			// The folder's own marker has an empty name
			if strings.TrimPrefix(object.Key, listPrefix) == "" {
				continue
			}
			files = append(files, entryFromObject(t, object))
		}

		if page.NextContinuationToken == "" {
			break
		}
		input.ContinuationToken = page.NextContinuationToken
	}

	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	entries = make([]Entry, 0, len(folders)+len(files))
	entries = append(entries, folders...)
	entries = append(entries, files...)

	e.logger.Debug("Folder listed",
		append(clog.LogFields{Operation: op, UserID: userID, Path: t.rel}.Fields(), zap.Int("count", len(entries)))...)
	return entries, nil
}

// CreateFolder writes a zero-byte folder marker. Creating an existing folder succeeds.
func (e *Engine) CreateFolder(ctx context.Context, userID, relativeKey string) (err error) {
	const op = "create_folder"
	start := time.Now()
	defer func() { observe(op, start, err) }()

	t, err := e.resolve(op, userID, relativeKey)
	if err != nil {
		return err
	}
	if t.rel == "" {
		return newError(KindInvalidArgument, op, relativeKey, "a folder name is required")
	}
	if !pathutil.IsFolder(t.rel) {
		t.rel += "/"
		t.abs += "/"
	}

	release, err := e.lock(ctx, op, t.scope, t.rel)
	if err != nil {
		return err
	}
	defer release()

	if err := e.store.PutObject(ctx, t.abs, bytes.NewReader(nil), folderContentType); err != nil {
		e.logger.Error("Failed to create folder",
			append(clog.LogFields{Operation: op, UserID: userID, Path: t.rel}.Fields(), zap.Error(err))...)
		return classify(op, t.rel, err)
	}

	e.logger.Info("Folder created", clog.LogFields{Operation: op, UserID: userID, Path: t.rel}.Fields()...)
	return nil
}

// Delete removes a file, or when relativeKey ends in "/" every object under
// that prefix. Deleting a missing file succeeds. A folder delete keeps going
// after failed batches and reports the counts.
func (e *Engine) Delete(ctx context.Context, userID, relativeKey string) (result *BatchResult, err error) {
	const op = "delete"
	start := time.Now()
	defer func() { observe(op, start, err) }()

	t, err := e.resolve(op, userID, relativeKey)
	if err != nil {
		return nil, err
	}
	if t.rel == "" {
		return nil, newError(KindInvalidArgument, op, relativeKey, "refusing to delete the whole scope")
	}

	release, err := e.lock(ctx, op, t.scope, t.rel)
	if err != nil {
		return nil, err
	}
	defer release()

	if !pathutil.IsFolder(t.rel) {
		if err := e.store.DeleteObject(ctx, t.abs); err != nil {
			e.logger.Error("Failed to delete file",
				append(clog.LogFields{Operation: op, UserID: userID, Path: t.rel}.Fields(), zap.Error(err))...)
			return nil, classify(op, t.rel, err)
		}
		metrics.ObjectsDeletedTotal.Inc()
		e.logger.Info("File deleted", clog.LogFields{Operation: op, UserID: userID, Path: t.rel}.Fields()...)
		return &BatchResult{Matched: 1, Succeeded: 1}, nil
	}

	result, err = e.deletePrefix(ctx, op, t, t.abs)
	fields := append(clog.LogFields{Operation: op, UserID: userID, Path: t.rel}.Fields(),
		zap.Int("matched", result.Matched),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))
	if err != nil {
		e.logger.Error("Folder delete incomplete", append(fields, zap.Error(err))...)
		return result, err
	}

	e.logger.Info("Folder deleted", fields...)
	return result, nil
}

// deletePrefix walks every object under prefix one listing page at a time
// and removes them in batches. The returned result is never nil.
func (e *Engine) deletePrefix(ctx context.Context, op string, t target, prefix string) (*BatchResult, error) {
	result := &BatchResult{}
	var lastErr error

	walkErr := backends.WalkPrefix(ctx, e.store, prefix, e.opts.ListPageSize, func(objects []backends.ObjectInfo) error {
		result.Matched += len(objects)

		for start := 0; start < len(objects); start += e.opts.DeleteBatchSize {
			end := min(start+e.opts.DeleteBatchSize, len(objects))

			keys := make([]string, 0, end-start)
			for _, obj := range objects[start:end] {
				keys = append(keys, obj.Key)
			}

			failures, err := e.store.DeleteObjects(ctx, keys)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				lastErr = err
				e.logger.Warn("Delete batch failed",
					zap.String("operation", op), zap.Int("keys", len(keys)), zap.Error(err))
				for _, key := range keys {
					result.addFailure(t.relative(key))
				}
				continue
			}

			for _, f := range failures {
				result.addFailure(t.relative(f.Key))
			}
			succeeded := len(keys) - len(failures)
			result.Succeeded += succeeded
			metrics.ObjectsDeletedTotal.Add(float64(succeeded))
			if len(failures) > 0 {
				lastErr = fmt.Errorf("%s: %s", failures[0].Code, failures[0].Message)
			}
		}
		return nil
	})

	if walkErr != nil {
		kind := KindBackend
		if errors.Is(walkErr, context.DeadlineExceeded) || errors.Is(walkErr, context.Canceled) {
			kind = KindTimeout
		} else if result.Succeeded > 0 {
			kind = KindPartialFailure
		}
		if kind == KindPartialFailure {
			metrics.PartialFailuresTotal.WithLabelValues(op).Inc()
		}
		return result, &Error{Kind: kind, Op: op, Key: t.relative(prefix), Message: "listing stopped before all objects were processed", Cause: walkErr, Result: result}
	}

	if result.Failed == 0 {
		return result, nil
	}

	if result.Succeeded == 0 {
		return result, &Error{
			Kind:    KindBackend,
			Op:      op,
			Key:     t.relative(prefix),
			Message: fmt.Sprintf("none of %d objects could be deleted", result.Matched),
			Cause:   lastErr,
			Result:  result,
		}
	}

	metrics.PartialFailuresTotal.WithLabelValues(op).Inc()
	return result, &Error{
		Kind:    KindPartialFailure,
		Op:      op,
		Key:     t.relative(prefix),
		Message: fmt.Sprintf("%d of %d objects could not be deleted", result.Failed, result.Matched),
		Cause:   lastErr,
		Result:  result,
	}
}
