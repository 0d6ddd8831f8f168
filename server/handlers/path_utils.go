package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/auth"
	"github.com/ebogdum/drivefs/server/middleware"
)

// RequestKey returns the key captured by a "/*" route, relative to the user's
// scope. The trailing "/" that marks a folder is preserved. Validation is left
// to the engine.
func RequestKey(r *http.Request) (string, error) {
	key := chi.URLParam(r, "*")
	// chi routes on the raw path when the URL carried escapes
	if r.URL.RawPath != "" {
		return url.PathUnescape(key)
	}
	return key, nil
}

// requestUser returns the authenticated user or writes a 401
func requestUser(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		SendErrorResponse(w, logger, auth.ErrAuthenticationFailed)
		return "", false
	}
	return userID, true
}

// requestTarget combines requestUser and RequestKey
func requestTarget(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (userID, key string, ok bool) {
	userID, ok = requestUser(w, r, logger)
	if !ok {
		return "", "", false
	}
	key, err := RequestKey(r)
	if err != nil {
		SendBadRequest(w, logger, "malformed path escape")
		return "", "", false
	}
	return userID, key, true
}
