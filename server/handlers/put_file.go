package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/core"
	"github.com/ebogdum/drivefs/core/log"
	"github.com/ebogdum/drivefs/internal/pathutil"
)

// V1PutFile handles PUT /v1/files/{path}: the raw request body becomes the
// content of the file at path, replacing any previous version.
func V1PutFile(engine *core.Engine, hc HandlerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, key, ok := requestTarget(w, r, logger)
		if !ok {
			return
		}

		if key == "" || pathutil.IsFolder(key) {
			SendBadRequest(w, logger, "PUT requires a file path without a trailing slash")
			return
		}
		if hc.MaxUploadSize > 0 {
			if r.ContentLength > hc.MaxUploadSize {
				SendErrorResponse(w, logger, &http.MaxBytesError{Limit: hc.MaxUploadSize})
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, hc.MaxUploadSize)
		}

		ctx, cancel := hc.FileOpContext(r)
		defer cancel()

		entry, err := engine.Upload(ctx, userID, r.Body, key)
		if err != nil {
			SendErrorResponse(w, logger, err)
			return
		}

		SendJSONResponse(w, logger, http.StatusCreated, entry)
		logger.Info("File stored",
			log.LogFields{Operation: "upload", UserID: userID, Path: key, Size: entry.Size}.Fields()...)
	}
}
