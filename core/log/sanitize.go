// Package log provides secure logging utilities with data sanitization capabilities.
package log

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// SanitizationMode controls how sensitive data is handled in logs
type SanitizationMode int

const (
	// ProductionMode hashes sensitive data for production use
	ProductionMode SanitizationMode = iota
	// DevelopmentMode shows truncated sensitive data for debugging
	DevelopmentMode
	// DebugMode shows full sensitive data (only for development)
	DebugMode
)

var currentMode = ProductionMode

func init() {
	if mode, ok := ParseMode(os.Getenv("DRIVEFS_LOG_MODE")); ok {
		currentMode = mode
	}
}

// ParseMode maps "production", "development" or "debug" to a mode
func ParseMode(s string) (SanitizationMode, bool) {
	switch strings.ToLower(s) {
	case "production":
		return ProductionMode, true
	case "development":
		return DevelopmentMode, true
	case "debug":
		return DebugMode, true
	}
	return ProductionMode, false
}

// SetMode changes the sanitization mode and returns the previous one
func SetMode(mode SanitizationMode) SanitizationMode {
	prev := currentMode
	currentMode = mode
	return prev
}

// SanitizePath sanitizes object keys for logging based on the current mode
func SanitizePath(path string) string {
	if path == "" {
		return ""
	}

	switch currentMode {
	case DevelopmentMode:
		if len(path) <= 20 {
			return path
		}
		return path[:10] + "..." + path[len(path)-7:]
	case DebugMode:
		return path
	default:
		// Hash the path to prevent leaking sensitive filenames
		hash := sha256.Sum256([]byte(path))
		return fmt.Sprintf("hash:%x", hash[:8])
	}
}

// SanitizeUserID sanitizes user IDs for logging
func SanitizeUserID(userID string) string {
	if userID == "" {
		return ""
	}

	switch currentMode {
	case DevelopmentMode:
		if len(userID) <= 8 {
			return userID
		}
		return userID[:4] + "****"
	case DebugMode:
		return userID
	default:
		hash := sha256.Sum256([]byte(userID))
		return fmt.Sprintf("user_hash:%x", hash[:6])
	}
}

// SanitizeSize rounds sizes to the nearest KiB in production mode
func SanitizeSize(size int64) int64 {
	if currentMode == ProductionMode {
		return (size + 512) / 1024 * 1024
	}
	return size
}

// LogFields provides a structured way to handle sensitive logging fields
type LogFields struct {
	Operation string
	UserID    string
	Path      string
	Size      int64
}

// Sanitize returns sanitized versions of all fields
func (lf LogFields) Sanitize() LogFields {
	return LogFields{
		Operation: lf.Operation,
		UserID:    SanitizeUserID(lf.UserID),
		Path:      SanitizePath(lf.Path),
		Size:      SanitizeSize(lf.Size),
	}
}

// Fields returns the sanitized values as zap fields. Empty values are omitted.
func (lf LogFields) Fields() []zap.Field {
	s := lf.Sanitize()
	fields := make([]zap.Field, 0, 4)
	if s.Operation != "" {
		fields = append(fields, zap.String("operation", s.Operation))
	}
	if s.UserID != "" {
		fields = append(fields, zap.String("user", s.UserID))
	}
	if s.Path != "" {
		fields = append(fields, zap.String("path", s.Path))
	}
	if lf.Size > 0 {
		fields = append(fields, zap.Int64("size", s.Size))
	}
	return fields
}
