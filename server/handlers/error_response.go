package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/auth"
	"github.com/ebogdum/drivefs/core"
	"github.com/ebogdum/drivefs/metrics"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Result  *core.BatchResult `json:"result,omitempty"` // set for partial failures
}

// statusFor maps an engine error onto an HTTP status and error code
func statusFor(err error) (int, string) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE"
	case errors.Is(err, auth.ErrAuthenticationFailed):
		return http.StatusUnauthorized, "AUTHENTICATION_FAILED"
	}

	switch core.KindOf(err) {
	case core.KindInvalidArgument:
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case core.KindNotFound:
		return http.StatusNotFound, "NOT_FOUND"
	case core.KindAlreadyExists:
		return http.StatusConflict, "ALREADY_EXISTS"
	case core.KindForbidden:
		return http.StatusForbidden, "FORBIDDEN"
	case core.KindBusy:
		return http.StatusLocked, "BUSY"
	case core.KindPartialFailure:
		return http.StatusMultiStatus, "PARTIAL_FAILURE"
	case core.KindTimeout:
		return http.StatusGatewayTimeout, "TIMEOUT"
	case core.KindBackend:
		return http.StatusBadGateway, "BACKEND_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// SendErrorResponse sends a JSON error response with the status matching err's kind
func SendErrorResponse(w http.ResponseWriter, logger *zap.Logger, err error) {
	statusCode, errorCode := statusFor(err)

	response := ErrorResponse{
		Code:    errorCode,
		Message: err.Error(),
		Result:  core.ResultOf(err),
	}
	// Storage failures carry SDK text and absolute bucket keys; those stay in the logs
	switch statusCode {
	case http.StatusInternalServerError:
		response.Message = "internal error"
	case http.StatusBadGateway:
		response.Message = "storage backend error"
	case http.StatusGatewayTimeout:
		response.Message = "operation timed out"
	}

	writeError(w, logger, statusCode, response)

	fields := []zap.Field{
		zap.String("error_code", errorCode),
		zap.Int("status_code", statusCode),
		zap.Error(err),
	}
	if statusCode >= http.StatusInternalServerError || statusCode == http.StatusMultiStatus {
		logger.Warn("Error response sent", fields...)
		return
	}
	logger.Debug("Error response sent", fields...)
}

// SendBadRequest reports malformed request input that never reached the engine
func SendBadRequest(w http.ResponseWriter, logger *zap.Logger, message string) {
	writeError(w, logger, http.StatusBadRequest, ErrorResponse{Code: "INVALID_ARGUMENT", Message: message})
}

func writeError(w http.ResponseWriter, logger *zap.Logger, statusCode int, response ErrorResponse) {
	metrics.ErrorsTotal.WithLabelValues("http", response.Code).Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("Failed to encode error response", zap.Error(err))
	}
}

// SendJSONResponse sends data as JSON with the given status
func SendJSONResponse(w http.ResponseWriter, logger *zap.Logger, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
