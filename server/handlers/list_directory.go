package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/core"
	"github.com/ebogdum/drivefs/internal/pathutil"
)

// DirectoryListingResponse represents the response for folder listings
type DirectoryListingResponse struct {
	Path        string                `json:"path"`
	Breadcrumbs []pathutil.Breadcrumb `json:"breadcrumbs"`
	Count       int                   `json:"count"`
	Items       []core.Entry          `json:"items"`
}

// listFolder writes the immediate children of key, folders first
func listFolder(w http.ResponseWriter, r *http.Request, engine *core.Engine, hc HandlerConfig, userID, key string, logger *zap.Logger) {
	ctx, cancel := hc.FileOpContext(r)
	defer cancel()

	entries, err := engine.List(ctx, userID, key)
	if err != nil {
		SendErrorResponse(w, logger, err)
		return
	}

	SendJSONResponse(w, logger, http.StatusOK, DirectoryListingResponse{
		Path:        key,
		Breadcrumbs: pathutil.Breadcrumbs(key),
		Count:       len(entries),
		Items:       entries,
	})
}
