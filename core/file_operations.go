package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/backends"
	clog "github.com/ebogdum/drivefs/core/log"
	"github.com/ebogdum/drivefs/internal/pathutil"
	"github.com/ebogdum/drivefs/metrics"
)

// Upload stores content at relativePath inside the user's scope, replacing
// any existing object with the same key.
func (e *Engine) Upload(ctx context.Context, userID string, content io.Reader, relativePath string) (entry *Entry, err error) {
	const op = "upload"
	start := time.Now()
	defer func() { observe(op, start, err) }()

	t, err := e.resolve(op, userID, relativePath)
	if err != nil {
		return nil, err
	}
	if t.rel == "" || pathutil.IsFolder(t.rel) {
		return nil, newError(KindInvalidArgument, op, relativePath, "a file name is required")
	}

	body, cleanup, err := spool(content)
	if err != nil {
		return nil, classify(op, t.rel, err)
	}
	defer cleanup()

	size, err := body.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, classify(op, t.rel, fmt.Errorf("failed to measure upload: %w", err))
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return nil, classify(op, t.rel, fmt.Errorf("failed to rewind upload: %w", err))
	}

	release, err := e.lock(ctx, op, t.scope, t.rel)
	if err != nil {
		return nil, err
	}
	defer release()

	contentType := backends.ContentType(t.rel)
	if err := e.store.PutObject(ctx, t.abs, body, contentType); err != nil {
		e.logger.Error("Failed to upload file",
			append(clog.LogFields{Operation: op, UserID: userID, Path: t.rel}.Fields(), zap.Error(err))...)
		return nil, classify(op, t.rel, err)
	}

	metrics.BytesUploadedTotal.Add(float64(size))

	now := time.Now().UTC()
	e.logger.Info("File uploaded", clog.LogFields{Operation: op, UserID: userID, Path: t.rel, Size: size}.Fields()...)

	return &Entry{
		Type:         EntryFile,
		Name:         pathutil.Base(t.rel),
		Path:         t.rel,
		FullKey:      t.abs,
		Size:         size,
		LastModified: &now,
		ContentType:  contentType,
	}, nil
}

// spool returns content as an io.ReadSeeker, buffering it in a temporary
// file when the reader cannot seek
func spool(content io.Reader) (io.ReadSeeker, func(), error) {
	if rs, ok := content.(io.ReadSeeker); ok {
		return rs, func() {}, nil
	}

	tmp, err := os.CreateTemp("", "drivefs-upload-*")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create spool file: %w", err)
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	if _, err := io.Copy(tmp, content); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return tmp, cleanup, nil
}

// Download opens a file for reading. The caller must close the reader.
func (e *Engine) Download(ctx context.Context, userID, relativeKey string) (body io.ReadCloser, entry *Entry, err error) {
	const op = "download"
	start := time.Now()
	defer func() { observe(op, start, err) }()

	t, err := e.resolve(op, userID, relativeKey)
	if err != nil {
		return nil, nil, err
	}
	if t.rel == "" || pathutil.IsFolder(t.rel) {
		return nil, nil, newError(KindInvalidArgument, op, relativeKey, "folders cannot be downloaded")
	}

	reader, info, err := e.store.GetObject(ctx, t.abs)
	if err != nil {
		if !errors.Is(err, backends.ErrNotFound) {
			e.logger.Error("Failed to open file",
				append(clog.LogFields{Operation: op, UserID: userID, Path: t.rel}.Fields(), zap.Error(err))...)
		}
		return nil, nil, classify(op, t.rel, err)
	}

	result := entryFromObject(t, *info)
	return reader, &result, nil
}

// Stat returns metadata for a file, or for a folder when the key ends in "/".
// A folder exists when at least one object lives under its prefix.
func (e *Engine) Stat(ctx context.Context, userID, relativeKey string) (entry *Entry, err error) {
	const op = "stat"
	start := time.Now()
	defer func() { observe(op, start, err) }()

	t, err := e.resolve(op, userID, relativeKey)
	if err != nil {
		return nil, err
	}

	if t.rel == "" || pathutil.IsFolder(t.rel) {
		if t.rel != "" {
			exists, err := e.prefixExists(ctx, t.abs)
			if err != nil {
				return nil, classify(op, t.rel, err)
			}
			if !exists {
				return nil, newError(KindNotFound, op, t.rel, "folder does not exist")
			}
		}
		return &Entry{
			Type:    EntryFolder,
			Name:    pathutil.Base(t.rel),
			Path:    t.rel,
			FullKey: t.abs,
		}, nil
	}

	info, err := e.store.HeadObject(ctx, t.abs)
	if err != nil {
		return nil, classify(op, t.rel, err)
	}

	result := entryFromObject(t, *info)
	return &result, nil
}

// PresignDownload returns a time-limited URL that downloads a file without credentials
func (e *Engine) PresignDownload(ctx context.Context, userID, relativeKey string, ttl time.Duration) (link string, err error) {
	const op = "presign"
	start := time.Now()
	defer func() { observe(op, start, err) }()

	t, err := e.resolve(op, userID, relativeKey)
	if err != nil {
		return "", err
	}
	if t.rel == "" || pathutil.IsFolder(t.rel) {
		return "", newError(KindInvalidArgument, op, relativeKey, "links can only point to files")
	}
	if ttl <= 0 {
		return "", newError(KindInvalidArgument, op, t.rel, "link lifetime must be positive")
	}

	// A presigned URL for a missing key would only fail when used
	if _, err := e.store.HeadObject(ctx, t.abs); err != nil {
		return "", classify(op, t.rel, err)
	}

	link, err = e.store.PresignGetObject(ctx, t.abs, ttl)
	if err != nil {
		return "", classify(op, t.rel, err)
	}

	e.logger.Debug("Download link presigned",
		append(clog.LogFields{Operation: op, UserID: userID, Path: t.rel}.Fields(), zap.Duration("ttl", ttl))...)
	return link, nil
}

// prefixExists reports whether any object lives under prefix
func (e *Engine) prefixExists(ctx context.Context, prefix string) (bool, error) {
	page, err := e.store.ListPage(ctx, backends.ListInput{Prefix: prefix, MaxKeys: 1})
	if err != nil {
		return false, err
	}
	return len(page.Objects) > 0, nil
}
