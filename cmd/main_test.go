package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/backends"
	"github.com/ebogdum/drivefs/backends/memory"
	"github.com/ebogdum/drivefs/config"
	"github.com/ebogdum/drivefs/locks"
)

func TestNewObjectStore(t *testing.T) {
	cfg := config.DefaultAppConfig().Storage

	cfg.Backend = "memory"
	store, err := newObjectStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)
	assert.Equal(t, "drivefs", store.Bucket())

	cfg.Backend = "none"
	store, err = newObjectStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.ErrorIs(t, store.EnsureBucket(context.Background()), backends.ErrBackendDisabled)

	cfg.Backend = "gcs"
	_, err = newObjectStore(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestNewLockManager(t *testing.T) {
	cfg := config.DefaultAppConfig().Locks

	manager, err := newLockManager(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &locks.LocalManager{}, manager)

	cfg.Type = "none"
	manager, err = newLockManager(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &locks.NoopManager{}, manager)

	cfg.Type = "etcd"
	_, err = newLockManager(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestInitializeLogger(t *testing.T) {
	for _, logCfg := range []config.LogConfig{
		{Level: "debug", Format: "json"},
		{Level: "warn", Format: "console"},
		{Level: "bogus", Format: ""},
	} {
		logger, err := initializeLogger(logCfg)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	}

	logger, err := initializeLogger(config.LogConfig{Level: "error", Format: "json"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.WarnLevel))
}
