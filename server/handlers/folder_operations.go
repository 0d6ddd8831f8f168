package handlers

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/core"
	"github.com/ebogdum/drivefs/internal/pathutil"
)

// FolderResponse acknowledges a created folder
type FolderResponse struct {
	Path string `json:"path"`
}

// RenameRequest is the JSON body accepted by the rename endpoint
type RenameRequest struct {
	NewName string `json:"new_name"`
}

// RenameResponse reports the new path and how many objects moved
type RenameResponse struct {
	Path   string            `json:"path"`
	Result *core.BatchResult `json:"result"`
}

// V1CreateFolder handles POST /v1/folders/{path}. Creating an existing folder succeeds.
func V1CreateFolder(engine *core.Engine, hc HandlerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, key, ok := requestTarget(w, r, logger)
		if !ok {
			return
		}

		ctx, cancel := hc.FileOpContext(r)
		defer cancel()

		if err := engine.CreateFolder(ctx, userID, key); err != nil {
			SendErrorResponse(w, logger, err)
			return
		}

		if !pathutil.IsFolder(key) {
			key += "/"
		}
		SendJSONResponse(w, logger, http.StatusCreated, FolderResponse{Path: key})
	}
}

// V1Rename handles POST /v1/rename/{path}. The new name comes from a JSON
// body {"new_name": ...} or the form field new_name.
func V1Rename(engine *core.Engine, hc HandlerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, key, ok := requestTarget(w, r, logger)
		if !ok {
			return
		}

		newName, err := readNewName(r)
		if err != nil {
			SendBadRequest(w, logger, "invalid rename request: "+err.Error())
			return
		}
		if newName == "" {
			SendBadRequest(w, logger, "new_name is required")
			return
		}

		ctx, cancel := hc.FileOpContext(r)
		defer cancel()

		result, err := engine.Rename(ctx, userID, key, newName)
		if err != nil {
			SendErrorResponse(w, logger, err)
			return
		}

		newPath := pathutil.Parent(key) + newName
		if pathutil.IsFolder(key) {
			newPath += "/"
		}
		SendJSONResponse(w, logger, http.StatusOK, RenameResponse{Path: newPath, Result: result})
	}
}

func readNewName(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req RenameRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
			return "", err
		}
		return req.NewName, nil
	}
	return r.FormValue("new_name"), nil
}
