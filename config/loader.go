package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by the loader.
// Nesting levels are separated by a double underscore, e.g.
// DRIVEFS_STORAGE__ACCESS_KEY sets storage.access_key.
const EnvPrefix = "DRIVEFS_"

// maxPresignTTL is the longest lifetime S3 accepts for a SigV4 presigned URL
const maxPresignTTL = 7 * 24 * time.Hour

// maxBatch is the S3 DeleteObjects and ListObjectsV2 page limit
const maxBatch = 1000

// LoadConfig loads configuration from multiple sources with strict priority:
// 1. Environment variables (highest priority)
// 2. Config file (config.yaml, config.yml or config.json)
// 3. Defaults (lowest priority)
func LoadConfig() (AppConfig, error) {
	return LoadConfigFromFile("")
}

// LoadConfigFromFile loads configuration from multiple sources with a specific config file:
// 1. Environment variables (highest priority)
// 2. Specified config file or default config files
// 3. Defaults (lowest priority)
func LoadConfigFromFile(configFilePath string) (AppConfig, error) {
	k := koanf.New(".")

	// Load default configuration first
	defaultCfg := DefaultAppConfig()
	if err := k.Load(structs.Provider(defaultCfg, "koanf"), nil); err != nil {
		return AppConfig{}, fmt.Errorf("failed to load default config: %w", err)
	}

	if configFilePath != "" {
		if _, err := os.Stat(configFilePath); err != nil {
			return AppConfig{}, fmt.Errorf("specified config file %s not found: %w", configFilePath, err)
		}
		if err := loadFile(k, configFilePath); err != nil {
			return AppConfig{}, err
		}
	} else {
		// Load from default config files if they exist
		for _, configFile := range []string{"config.yaml", "config.yml", "config.json"} {
			if _, err := os.Stat(configFile); err == nil {
				if err := loadFile(k, configFile); err != nil {
					return AppConfig{}, err
				}
				break
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return AppConfig{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	var parser koanf.Parser
	switch {
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		parser = yaml.Parser()
	case strings.HasSuffix(path, ".json"):
		parser = json.Parser()
	default:
		return fmt.Errorf("unsupported config file format: %s", path)
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return nil
}

// envKey maps DRIVEFS_STORAGE__ACCESS_KEY to storage.access_key
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// validateConfig validates that required configuration fields are set
func validateConfig(cfg *AppConfig) error {
	if cfg.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if cfg.Server.FileOpTimeout <= 0 {
		return fmt.Errorf("server.file_op_timeout must be positive")
	}
	if cfg.Server.MaxUploadSize <= 0 {
		return fmt.Errorf("server.max_upload_size must be positive")
	}
	if (cfg.Server.CertFile == "") != (cfg.Server.KeyFile == "") {
		return fmt.Errorf("server.cert_file and server.key_file must be set together")
	}

	if len(cfg.Auth.APIKeys) == 0 {
		return fmt.Errorf("auth.api_keys must contain at least one key")
	}
	seen := make(map[string]struct{}, len(cfg.Auth.APIKeys))
	for i, apiKey := range cfg.Auth.APIKeys {
		if apiKey.Key == "" {
			return fmt.Errorf("auth.api_keys[%d].key is required", i)
		}
		if apiKey.UserID == "" || strings.Contains(apiKey.UserID, "/") {
			return fmt.Errorf("auth.api_keys[%d].user_id must be non-empty and must not contain '/'", i)
		}
		if _, dup := seen[apiKey.Key]; dup {
			return fmt.Errorf("auth.api_keys[%d].key is duplicated", i)
		}
		seen[apiKey.Key] = struct{}{}
	}

	switch cfg.Storage.Backend {
	case "s3":
		if cfg.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 backend")
		}
	case "memory", "none":
	default:
		return fmt.Errorf("storage.backend must be one of s3, memory, none (got %q)", cfg.Storage.Backend)
	}
	if cfg.Storage.DeleteBatchSize < 1 || cfg.Storage.DeleteBatchSize > maxBatch {
		return fmt.Errorf("storage.delete_batch_size must be between 1 and %d", maxBatch)
	}
	if cfg.Storage.ListPageSize < 1 || cfg.Storage.ListPageSize > maxBatch {
		return fmt.Errorf("storage.list_page_size must be between 1 and %d", maxBatch)
	}
	if cfg.Storage.ServerSideEncryption != "" &&
		cfg.Storage.ServerSideEncryption != "AES256" &&
		cfg.Storage.ServerSideEncryption != "aws:kms" {
		return fmt.Errorf("storage.server_side_encryption must be AES256 or aws:kms")
	}

	switch cfg.Locks.Type {
	case "redis":
		if cfg.Locks.RedisAddr == "" {
			return fmt.Errorf("locks.redis_addr is required for redis locks")
		}
	case "local", "none":
	default:
		return fmt.Errorf("locks.type must be one of local, redis, none (got %q)", cfg.Locks.Type)
	}
	if cfg.Locks.Type != "none" && cfg.Locks.TTL <= 0 {
		return fmt.Errorf("locks.ttl must be positive")
	}

	if cfg.Links.MaxTTL <= 0 || cfg.Links.MaxTTL > maxPresignTTL {
		return fmt.Errorf("links.max_ttl must be between 0 and %s", maxPresignTTL)
	}
	if cfg.Links.DefaultTTL <= 0 || cfg.Links.DefaultTTL > cfg.Links.MaxTTL {
		return fmt.Errorf("links.default_ttl must be positive and not exceed links.max_ttl")
	}
	if cfg.Links.RateLimit <= 0 || cfg.Links.Burst < 1 {
		return fmt.Errorf("links.rate_limit and links.burst must be positive")
	}

	return nil
}
