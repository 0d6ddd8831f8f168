package links

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/auth"
	"github.com/ebogdum/drivefs/links"
	"github.com/ebogdum/drivefs/server/handlers"
	"github.com/ebogdum/drivefs/server/middleware"
)

// GenerateLinkRequest represents the request payload for generating a download link.
// A zero ExpirySeconds selects the configured default lifetime.
type GenerateLinkRequest struct {
	Path          string `json:"path"`
	ExpirySeconds int64  `json:"expiry_seconds"`
}

// V1GenerateLinkHandler creates a presigned, time-limited download link for a file
func V1GenerateLinkHandler(manager *links.Manager, hc handlers.HandlerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r.Context())
		if !ok {
			handlers.SendErrorResponse(w, logger, auth.ErrAuthenticationFailed)
			return
		}

		var req GenerateLinkRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			logger.Debug("Invalid JSON in link generation request", zap.Error(err))
			handlers.SendBadRequest(w, logger, "invalid JSON in request body")
			return
		}

		path := strings.TrimPrefix(req.Path, "/")
		if path == "" {
			handlers.SendBadRequest(w, logger, "path is required")
			return
		}
		if req.ExpirySeconds < 0 {
			handlers.SendBadRequest(w, logger, "expiry_seconds must not be negative")
			return
		}

		ctx, cancel := hc.FileOpContext(r)
		defer cancel()

		link, err := manager.Generate(ctx, userID, path, time.Duration(req.ExpirySeconds)*time.Second)
		if err != nil {
			handlers.SendErrorResponse(w, logger, err)
			return
		}

		handlers.SendJSONResponse(w, logger, http.StatusCreated, link)
	}
}
