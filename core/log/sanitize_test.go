package log

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeModes(t *testing.T) {
	prev := SetMode(ProductionMode)
	defer SetMode(prev)

	hashed := SanitizePath("user-1-files/taxes/2024.pdf")
	assert.True(t, strings.HasPrefix(hashed, "hash:"))
	assert.NotContains(t, hashed, "taxes")
	assert.True(t, strings.HasPrefix(SanitizeUserID("alice"), "user_hash:"))
	assert.Equal(t, int64(2048), SanitizeSize(1800))

	SetMode(DevelopmentMode)
	assert.Equal(t, "short/path", SanitizePath("short/path"))
	assert.Equal(t, "user-1-fil...024.pdf", SanitizePath("user-1-files/taxes/2024.pdf"))
	assert.Equal(t, "alic****", SanitizeUserID("alice@example.com"))
	assert.Equal(t, int64(1800), SanitizeSize(1800))

	SetMode(DebugMode)
	assert.Equal(t, "user-1-files/taxes/2024.pdf", SanitizePath("user-1-files/taxes/2024.pdf"))
	assert.Equal(t, "alice", SanitizeUserID("alice"))

	assert.Empty(t, SanitizePath(""))
	assert.Empty(t, SanitizeUserID(""))
}

func TestParseMode(t *testing.T) {
	mode, ok := ParseMode("DEBUG")
	assert.True(t, ok)
	assert.Equal(t, DebugMode, mode)

	_, ok = ParseMode("verbose")
	assert.False(t, ok)
}

func TestLogFields(t *testing.T) {
	prev := SetMode(DebugMode)
	defer SetMode(prev)

	fields := LogFields{Operation: "upload", UserID: "u1", Path: "a/b.txt", Size: 10}.Fields()
	assert.Len(t, fields, 4)
	assert.Equal(t, "operation", fields[0].Key)
	assert.Equal(t, "a/b.txt", fields[2].String)

	assert.Len(t, LogFields{Operation: "list"}.Fields(), 1)
}
