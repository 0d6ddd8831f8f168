// Package pathutil provides secure key handling utilities for drivefs.
// Keys are "/"-delimited object keys relative to a user's scope; a trailing
// "/" marks a folder.
package pathutil

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidPath is returned for keys or names containing forbidden characters or empty segments
	ErrInvalidPath = errors.New("invalid path")

	// ErrTraversal is returned for keys containing "." or ".." segments
	ErrTraversal = errors.New("path traversal not allowed")
)

// CleanKey normalizes a relative object key. Leading slashes are removed and a
// trailing slash is kept. The result never contains "." or ".." segments,
// empty segments, backslashes, NUL or other control characters. An empty
// result means the scope root.
func CleanKey(key string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", nil
	}

	if err := checkChars(key); err != nil {
		return "", err
	}

	folder := strings.HasSuffix(key, "/")
	body := strings.TrimSuffix(key, "/")

	for _, part := range strings.Split(body, "/") {
		switch part {
		case "":
			return "", ErrInvalidPath
		case ".", "..":
			return "", ErrTraversal
		}
	}

	if folder {
		return body + "/", nil
	}
	return body, nil
}

// ValidateName checks a single path segment such as the target of a rename
func ValidateName(name string) error {
	if name == "" {
		return ErrInvalidPath
	}
	if name == "." || name == ".." {
		return ErrTraversal
	}
	if strings.Contains(name, "/") {
		return ErrInvalidPath
	}
	return checkChars(name)
}

func checkChars(s string) error {
	// Check for null bytes (can be used to bypass file extension checks)
	if strings.Contains(s, "\x00") {
		return ErrInvalidPath
	}
	if strings.Contains(s, "\\") {
		return ErrInvalidPath
	}
	for _, char := range s {
		if char < 32 || char == 127 {
			return ErrInvalidPath
		}
	}
	return nil
}

// IsFolder reports whether key names a folder
func IsFolder(key string) bool {
	return strings.HasSuffix(key, "/")
}

// Base returns the last segment of key without a trailing slash
func Base(key string) string {
	key = strings.TrimSuffix(key, "/")
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return key[idx+1:]
	}
	return key
}

// Parent returns the folder prefix containing key, with a trailing slash,
// or "" when key sits at the root
func Parent(key string) string {
	key = strings.TrimSuffix(key, "/")
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return key[:idx+1]
	}
	return ""
}

// TopSegment returns the first segment of key, or "" for the root
func TopSegment(key string) string {
	key = strings.TrimLeft(key, "/")
	if idx := strings.Index(key, "/"); idx >= 0 {
		return key[:idx]
	}
	return key
}
