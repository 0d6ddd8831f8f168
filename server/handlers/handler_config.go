package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ebogdum/drivefs/config"
)

// HandlerConfig holds the request limits shared by the file handlers
type HandlerConfig struct {
	FileOpTimeout time.Duration // deadline for the storage calls of one request
	MaxUploadSize int64         // bytes accepted per upload request body
}

// NewHandlerConfig extracts the handler limits from the server configuration
func NewHandlerConfig(cfg config.ServerConfig) HandlerConfig {
	return HandlerConfig{
		FileOpTimeout: cfg.FileOpTimeout,
		MaxUploadSize: cfg.MaxUploadSize,
	}
}

// FileOpContext derives the deadline every engine call of a request runs under
func (c HandlerConfig) FileOpContext(r *http.Request) (context.Context, context.CancelFunc) {
	if c.FileOpTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), c.FileOpTimeout)
}
