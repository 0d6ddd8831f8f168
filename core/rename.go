package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/backends"
	clog "github.com/ebogdum/drivefs/core/log"
	"github.com/ebogdum/drivefs/internal/pathutil"
	"github.com/ebogdum/drivefs/metrics"
)

// Rename gives a file or folder a new name inside the same parent folder.
// The store has no rename primitive, so every object is copied first and the
// originals are deleted only after all copies succeeded. A failed copy phase
// removes the copies it made; a failed delete phase is reported as a partial
// failure with both keys left in place for the affected objects.
func (e *Engine) Rename(ctx context.Context, userID, relativeKey, newName string) (result *BatchResult, err error) {
	const op = "rename"
	start := time.Now()
	defer func() { observe(op, start, err) }()

	t, err := e.resolve(op, userID, relativeKey)
	if err != nil {
		return nil, err
	}
	if t.rel == "" {
		return nil, newError(KindInvalidArgument, op, relativeKey, "the scope root cannot be renamed")
	}
	if err := pathutil.ValidateName(newName); err != nil {
		return nil, &Error{Kind: KindInvalidArgument, Op: op, Key: t.rel, Message: "invalid new name", Cause: err}
	}

	if pathutil.Base(t.rel) == newName {
		return &BatchResult{}, nil
	}

	folder := pathutil.IsFolder(t.rel)
	newRel := pathutil.Parent(t.rel) + newName
	if folder {
		newRel += "/"
	}
	dst := target{scope: t.scope, rel: newRel, abs: t.scope + newRel}
	if !strings.HasPrefix(dst.abs, t.scope) {
		return nil, newError(KindForbidden, op, newRel, "target resolves outside the user scope")
	}

	release, err := e.lock(ctx, op, t.scope, t.rel, dst.rel)
	if err != nil {
		return nil, err
	}
	defer release()

	fields := clog.LogFields{Operation: op, UserID: userID, Path: t.rel}.Fields()

	if folder {
		result, err = e.renameFolder(ctx, op, t, dst)
	} else {
		result, err = e.renameFile(ctx, op, t, dst)
	}
	if err != nil {
		if result != nil {
			fields = append(fields, zap.Int("matched", result.Matched), zap.Int("failed", result.Failed))
		}
		e.logger.Error("Rename failed", append(fields, zap.Error(err))...)
		return result, err
	}

	e.logger.Info("Renamed", append(fields, zap.Int("objects", result.Succeeded))...)
	return result, nil
}

func (e *Engine) renameFile(ctx context.Context, op string, src, dst target) (*BatchResult, error) {
	if _, err := e.store.HeadObject(ctx, src.abs); err != nil {
		return nil, classify(op, src.rel, err)
	}

	_, err := e.store.HeadObject(ctx, dst.abs)
	switch {
	case err == nil:
		return nil, newError(KindAlreadyExists, op, dst.rel, "an object with the new name already exists")
	case !errors.Is(err, backends.ErrNotFound):
		return nil, classify(op, dst.rel, err)
	}

	if err := e.store.CopyObject(ctx, src.abs, dst.abs); err != nil {
		return nil, classify(op, src.rel, err)
	}
	metrics.ObjectsCopiedTotal.Inc()

	result := &BatchResult{Matched: 1}
	if err := e.store.DeleteObject(ctx, src.abs); err != nil {
		result.addFailure(src.rel)
		metrics.PartialFailuresTotal.WithLabelValues(op).Inc()
		return result, &Error{
			Kind:    KindPartialFailure,
			Op:      op,
			Key:     src.rel,
			Message: "copied to " + dst.rel + " but the original could not be removed",
			Cause:   err,
			Result:  result,
		}
	}
	metrics.ObjectsDeletedTotal.Inc()

	result.Succeeded = 1
	return result, nil
}

func (e *Engine) renameFolder(ctx context.Context, op string, src, dst target) (*BatchResult, error) {
	taken, err := e.prefixExists(ctx, dst.abs)
	if err != nil {
		return nil, classify(op, dst.rel, err)
	}
	if taken {
		return nil, newError(KindAlreadyExists, op, dst.rel, "a folder with the new name already exists")
	}

	// Phase 1: copy everything, preserving the suffix below the old prefix
	copied := 0
	var failedKey string
	copyErr := backends.WalkPrefix(ctx, e.store, src.abs, e.opts.ListPageSize, func(objects []backends.ObjectInfo) error {
		for _, obj := range objects {
			newKey := dst.abs + strings.TrimPrefix(obj.Key, src.abs)
			if err := e.store.CopyObject(ctx, obj.Key, newKey); err != nil {
				failedKey = obj.Key
				return err
			}
			copied++
		}
		return nil
	})
	metrics.ObjectsCopiedTotal.Add(float64(copied))

	if copyErr != nil {
		return e.compensate(ctx, op, src, dst, copied, failedKey, copyErr)
	}
	if copied == 0 {
		return nil, newError(KindNotFound, op, src.rel, "folder does not exist")
	}

	// Phase 2: remove the originals
	deleted, err := e.deletePrefix(ctx, op, src, src.abs)
	result := &BatchResult{
		Matched:    copied,
		Succeeded:  deleted.Succeeded,
		Failed:     deleted.Failed,
		FailedKeys: deleted.FailedKeys,
	}
	if err != nil {
		// Copies exist for every object, so any loss here is partial
		if !IsPartialFailure(err) {
			metrics.PartialFailuresTotal.WithLabelValues(op).Inc()
		}
		return result, &Error{
			Kind:    KindPartialFailure,
			Op:      op,
			Key:     src.rel,
			Message: fmt.Sprintf("copied %d objects to %s but %d originals remain", copied, dst.rel, copied-deleted.Succeeded),
			Cause:   err,
			Result:  result,
		}
	}

	return result, nil
}

// compensate removes the copies made by a failed copy phase
func (e *Engine) compensate(ctx context.Context, op string, src, dst target, copied int, failedKey string, copyErr error) (*BatchResult, error) {
	result := &BatchResult{Matched: copied}
	if failedKey != "" {
		result.Matched++
		result.addFailure(src.relative(failedKey))
	}

	kind := KindBackend
	if errors.Is(copyErr, context.DeadlineExceeded) || errors.Is(copyErr, context.Canceled) {
		kind = KindTimeout
	}

	message := fmt.Sprintf("copy failed after %d objects; copies removed", copied)
	if copied > 0 {
		// Roll back on a fresh deadline so a timed-out request still cleans up
		rollbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
		defer cancel()

		rolledBack, err := e.deletePrefix(rollbackCtx, op, dst, dst.abs)
		if err != nil {
			e.logger.Error("Rename rollback incomplete",
				zap.Int("copied", copied),
				zap.Int("removed", rolledBack.Succeeded),
				zap.Error(err))
			message = fmt.Sprintf("copy failed after %d objects; %d copies could not be removed", copied, rolledBack.Failed)
		}
	}

	if errors.Is(copyErr, backends.ErrNotFound) && copied == 0 {
		kind = KindNotFound
	}

	return result, &Error{Kind: kind, Op: op, Key: src.rel, Message: message, Cause: copyErr, Result: result}
}
