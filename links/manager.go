// Package links issues time-limited download links backed by presigned object URLs.
package links

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/config"
	"github.com/ebogdum/drivefs/core"
	clog "github.com/ebogdum/drivefs/core/log"
	"github.com/ebogdum/drivefs/metrics"
)

// ErrInvalidTTL is returned when a requested lifetime is outside the allowed range
var ErrInvalidTTL = errors.New("link lifetime out of range")

// Presigner signs download URLs for keys inside a user's scope
type Presigner interface {
	PresignDownload(ctx context.Context, userID, relativeKey string, ttl time.Duration) (string, error)
}

// Link is a generated download link
type Link struct {
	URL       string    `json:"url"`
	Path      string    `json:"path"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Manager manages creation of download links.
type Manager struct {
	presigner  Presigner
	defaultTTL time.Duration
	maxTTL     time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewManager creates a new Manager instance.
func NewManager(presigner Presigner, cfg config.LinksConfig, logger *zap.Logger) *Manager {
	return &Manager{
		presigner:  presigner,
		defaultTTL: cfg.DefaultTTL,
		maxTTL:     cfg.MaxTTL,
		now:        time.Now,
		logger:     logger,
	}
}

// Generate creates a download link for path valid for ttl. A zero ttl uses the default.
func (m *Manager) Generate(ctx context.Context, userID, path string, ttl time.Duration) (*Link, error) {
	if ttl == 0 {
		ttl = m.defaultTTL
	}
	if ttl < time.Second || ttl > m.maxTTL {
		return nil, &core.Error{
			Kind:    core.KindInvalidArgument,
			Op:      "generate_link",
			Key:     path,
			Message: fmt.Sprintf("expiry must be between 1s and %s", m.maxTTL),
			Cause:   ErrInvalidTTL,
		}
	}

	issued := m.now()
	url, err := m.presigner.PresignDownload(ctx, userID, path, ttl)
	if err != nil {
		return nil, err
	}

	metrics.DownloadLinksGeneratedTotal.Inc()
	m.logger.Info("Download link generated",
		append(clog.LogFields{Operation: "generate_link", UserID: userID, Path: path}.Fields(),
			zap.Duration("ttl", ttl))...)

	return &Link{
		URL:       url,
		Path:      path,
		ExpiresAt: issued.Add(ttl).UTC(),
	}, nil
}
