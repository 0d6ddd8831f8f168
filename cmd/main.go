package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/auth"
	"github.com/ebogdum/drivefs/backends"
	"github.com/ebogdum/drivefs/backends/memory"
	"github.com/ebogdum/drivefs/backends/noop"
	"github.com/ebogdum/drivefs/backends/s3"
	"github.com/ebogdum/drivefs/config"
	"github.com/ebogdum/drivefs/core"
	"github.com/ebogdum/drivefs/links"
	"github.com/ebogdum/drivefs/locks"
	"github.com/ebogdum/drivefs/server"
)

var rootCmd = &cobra.Command{
	Use:   "drivefs",
	Short: "drivefs - per-user file manager over S3",
	Long: `drivefs serves a JSON API for browsing, uploading, renaming and
deleting files and folders. Every user is confined to their own key prefix
in a single S3 bucket.`,
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the drivefs server",
	RunE:  runServer,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  "Load and validate the drivefs configuration and display the effective settings",
	RunE:  validateConfig,
}

var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Storage bucket commands",
}

var ensureBucketCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the configured bucket if it does not exist",
	RunE:  ensureBucket,
}

var configFilePath string

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFilePath, "config", "c", "", "Path to configuration file")

	configCmd.AddCommand(validateCmd)
	bucketCmd.AddCommand(ensureBucketCmd)
	rootCmd.AddCommand(serverCmd, configCmd, bucketCmd)

	// If no command specified, default to server
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "server")
	}

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// runServer starts the drivefs server and blocks until SIGINT or SIGTERM
func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigFromFile(configFilePath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := initializeLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		// Sync fails on stderr/stdout for some terminals; nothing to do about it
		_ = logger.Sync()
	}()

	logger.Info("Starting drivefs server",
		zap.String("listen_addr", cfg.Server.ListenAddr),
		zap.String("backend", cfg.Storage.Backend),
		zap.String("bucket", cfg.Storage.Bucket))

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), time.Minute)
	defer cancelStartup()

	// A bucket that cannot be verified or created aborts startup
	store, err := newObjectStore(startupCtx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	lockManager, err := newLockManager(cfg.Locks, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize lock manager: %w", err)
	}
	defer lockManager.Close()

	engine := core.NewEngine(store, lockManager, core.Options{
		DeleteBatchSize: cfg.Storage.DeleteBatchSize,
		ListPageSize:    cfg.Storage.ListPageSize,
	}, logger)

	authenticator := auth.NewAPIKeyAuthenticator(cfg.Auth.APIKeys)
	linkManager := links.NewManager(engine, cfg.Links, logger)

	router := server.NewRouter(engine, authenticator, linkManager, &cfg, logger)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if cfg.Server.CertFile != "" && cfg.Server.KeyFile != "" {
			logger.Info("Starting HTTPS server", zap.String("addr", cfg.Server.ListenAddr))
			serveErr <- srv.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
			return
		}
		logger.Info("Starting HTTP server", zap.String("addr", cfg.Server.ListenAddr))
		serveErr <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		logger.Info("Shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server exited gracefully")
	return nil
}

// newObjectStore builds the configured storage backend
func newObjectStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (backends.ObjectStore, error) {
	switch cfg.Backend {
	case "s3":
		return s3.NewS3Adapter(ctx, cfg, logger)
	case "memory":
		logger.Warn("Using in-memory storage; all files are lost on exit")
		return memory.NewStore(cfg.Bucket, logger), nil
	case "none":
		logger.Warn("Storage backend disabled; every file operation will fail")
		return noop.NewNoopAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// newLockManager builds the configured prefix lock manager
func newLockManager(cfg config.LocksConfig, logger *zap.Logger) (locks.Manager, error) {
	switch cfg.Type {
	case "redis":
		logger.Info("Using Redis prefix locks", zap.String("addr", cfg.RedisAddr))
		return locks.NewRedisManager(cfg, logger)
	case "local":
		return locks.NewLocalManager(cfg.TTL), nil
	case "none":
		logger.Warn("Prefix locking disabled; concurrent folder operations may interleave")
		return locks.NewNoopManager(), nil
	default:
		return nil, fmt.Errorf("unknown lock type %q", cfg.Type)
	}
}

// validateConfig validates the drivefs configuration and displays settings
func validateConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Validating configuration...")

	cfg, err := config.LoadConfigFromFile(configFilePath)
	if err != nil {
		fmt.Fprintf(out, "Configuration validation failed: %v\n", err)
		return err
	}

	fmt.Fprintln(out, "Configuration is valid")
	fmt.Fprintf(out, "Listen Address: %s\n", cfg.Server.ListenAddr)
	fmt.Fprintf(out, "TLS: %t\n", cfg.Server.CertFile != "" && cfg.Server.KeyFile != "")
	fmt.Fprintf(out, "API Keys: %d\n", len(cfg.Auth.APIKeys))
	fmt.Fprintf(out, "Storage Backend: %s\n", cfg.Storage.Backend)
	if cfg.Storage.Backend == "s3" {
		endpoint := cfg.Storage.Endpoint
		if endpoint == "" {
			endpoint = "AWS"
		}
		fmt.Fprintf(out, "S3 Endpoint: %s\n", endpoint)
		fmt.Fprintf(out, "S3 Bucket: %s\n", cfg.Storage.Bucket)
		fmt.Fprintf(out, "S3 Region: %s\n", cfg.Storage.Region)
	}
	fmt.Fprintf(out, "Locks: %s\n", cfg.Locks.Type)
	if cfg.Locks.Type == "redis" {
		fmt.Fprintf(out, "Redis Address: %s\n", cfg.Locks.RedisAddr)
	}

	return nil
}

// ensureBucket verifies the configured bucket, creating it when missing
func ensureBucket(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigFromFile(configFilePath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := initializeLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	store, err := newObjectStore(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureBucket(ctx); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Bucket %s is ready\n", store.Bucket())
	return nil
}

// initializeLogger creates a zap logger based on configuration
func initializeLogger(logCfg config.LogConfig) (*zap.Logger, error) {
	var cfg zap.Config

	if logCfg.Format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	switch logCfg.Level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return cfg.Build()
}
