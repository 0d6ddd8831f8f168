package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/core"
	"github.com/ebogdum/drivefs/core/log"
	"github.com/ebogdum/drivefs/internal/pathutil"
)

// multipartMemory is how much of a multipart body is held in memory before
// the remaining parts spill to temporary files
const multipartMemory = 32 << 20

// UploadResponse lists the files stored by a multipart upload
type UploadResponse struct {
	Count int          `json:"count"`
	Items []core.Entry `json:"items"`
}

// V1PostFile handles POST /v1/files/{folder}/: every part of the multipart
// field "files" is stored in the folder under its own file name. Uploading
// stops at the first failure; files stored before it are kept.
func V1PostFile(engine *core.Engine, hc HandlerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, folder, ok := requestTarget(w, r, logger)
		if !ok {
			return
		}

		if folder != "" && !pathutil.IsFolder(folder) {
			SendBadRequest(w, logger, "POST uploads into a folder; the path must end with a slash")
			return
		}
		if hc.MaxUploadSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, hc.MaxUploadSize)
		}

		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				SendErrorResponse(w, logger, err)
				return
			}
			SendBadRequest(w, logger, "invalid multipart form: "+err.Error())
			return
		}
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				logger.Warn("Failed to remove multipart temp files", zap.Error(err))
			}
		}()

		parts := r.MultipartForm.File["files"]
		if len(parts) == 0 {
			SendBadRequest(w, logger, `no files in multipart field "files"`)
			return
		}
		for _, part := range parts {
			if err := pathutil.ValidateName(part.Filename); err != nil {
				SendBadRequest(w, logger, "invalid file name "+part.Filename)
				return
			}
		}

		ctx, cancel := hc.FileOpContext(r)
		defer cancel()

		response := UploadResponse{Items: make([]core.Entry, 0, len(parts))}
		for _, part := range parts {
			file, err := part.Open()
			if err != nil {
				SendErrorResponse(w, logger, err)
				return
			}

			entry, err := engine.Upload(ctx, userID, file, folder+part.Filename)
			file.Close()
			if err != nil {
				SendErrorResponse(w, logger, err)
				return
			}
			response.Items = append(response.Items, *entry)
		}
		response.Count = len(response.Items)

		SendJSONResponse(w, logger, http.StatusCreated, response)
		logger.Info("Files uploaded",
			append(log.LogFields{Operation: "upload", UserID: userID, Path: folder}.Fields(),
				zap.Int("count", response.Count))...)
	}
}
