package handlers

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/core"
	"github.com/ebogdum/drivefs/core/log"
	"github.com/ebogdum/drivefs/internal/pathutil"
)

// V1GetFile handles GET /v1/files/{path}. A path ending in "/" (or the empty
// path) lists the folder; anything else streams the file.
func V1GetFile(engine *core.Engine, hc HandlerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, key, ok := requestTarget(w, r, logger)
		if !ok {
			return
		}

		if key == "" || pathutil.IsFolder(key) {
			listFolder(w, r, engine, hc, userID, key, logger)
			return
		}

		ctx, cancel := hc.FileOpContext(r)
		defer cancel()

		body, entry, err := engine.Download(ctx, userID, key)
		if err != nil {
			SendErrorResponse(w, logger, err)
			return
		}
		defer body.Close()

		setEntryHeaders(w, entry)
		if disposition := mime.FormatMediaType("attachment", map[string]string{"filename": entry.Name}); disposition != "" {
			w.Header().Set("Content-Disposition", disposition)
		}
		w.WriteHeader(http.StatusOK)

		written, err := io.Copy(w, body)
		if err != nil {
			// Headers are gone; the client sees a short body
			logger.Warn("File stream interrupted",
				append(log.LogFields{Operation: "download", UserID: userID, Path: key, Size: written}.Fields(), zap.Error(err))...)
			return
		}

		logger.Debug("File served",
			log.LogFields{Operation: "download", UserID: userID, Path: key, Size: written}.Fields()...)
	}
}

// V1HeadFile handles HEAD /v1/files/{path} by reporting the entry's metadata as headers
func V1HeadFile(engine *core.Engine, hc HandlerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, key, ok := requestTarget(w, r, logger)
		if !ok {
			return
		}

		ctx, cancel := hc.FileOpContext(r)
		defer cancel()

		entry, err := engine.Stat(ctx, userID, key)
		if err != nil {
			statusCode, _ := statusFor(err)
			w.WriteHeader(statusCode)
			return
		}

		setEntryHeaders(w, entry)
		w.WriteHeader(http.StatusOK)
	}
}

func setEntryHeaders(w http.ResponseWriter, entry *core.Entry) {
	h := w.Header()
	h.Set("X-Entry-Type", string(entry.Type))
	if entry.Type == core.EntryFolder {
		return
	}

	contentType := entry.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.FormatInt(entry.Size, 10))
	if entry.LastModified != nil {
		h.Set("Last-Modified", entry.LastModified.UTC().Format(http.TimeFormat))
	}
	if entry.ETag != "" {
		h.Set("ETag", `"`+entry.ETag+`"`)
	}
}
