package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/auth"
	"github.com/ebogdum/drivefs/metrics"
)

type contextKey string

const (
	userIDKey    contextKey = "userID"
	RequestIDKey contextKey = "request_id"
)

// V1AuthMiddleware resolves the bearer token to a user ID and stores it in the request context
func V1AuthMiddleware(authenticator auth.Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("Missing Authorization header")
				sendErrorResponse(w, logger, "AUTHENTICATION_FAILED", auth.ErrAuthenticationFailed.Error(), http.StatusUnauthorized)
				return
			}

			userID, err := authenticator.Authenticate(r.Context(), authHeader)
			if err != nil {
				logger.Debug("Authentication failed", zap.Error(err))
				sendErrorResponse(w, logger, "AUTHENTICATION_FAILED", auth.ErrAuthenticationFailed.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// V1RequestIDMiddleware adds a unique request ID to each request context.
// An incoming X-Request-ID header is kept.
func V1RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" || len(requestID) > 64 {
				requestID = generateRequestID()
			}

			w.Header().Set("X-Request-ID", requestID)

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// GetUserID extracts the user ID from request context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// WithUserID returns a copy of ctx carrying userID
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetRequestID extracts the request ID from request context
func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(RequestIDKey).(string)
	return requestID
}

// sendErrorResponse writes the same {code, message} body the handlers use
func sendErrorResponse(w http.ResponseWriter, logger *zap.Logger, code, message string, statusCode int) {
	metrics.ErrorsTotal.WithLabelValues("middleware", code).Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	body := map[string]string{"code": code, "message": message}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
