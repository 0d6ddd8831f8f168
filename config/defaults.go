package config

import "time"

// DefaultAppConfig returns an AppConfig struct with sensible default values
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			ListenAddr:    ":8080",
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  5 * time.Minute,
			FileOpTimeout: 2 * time.Minute,
			MaxUploadSize: 512 << 20,
		},
		Auth: AuthConfig{
			APIKeys: []APIKey{},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Storage: StorageConfig{
			Backend:              "s3",
			Region:               "us-east-1",
			Bucket:               "drivefs",
			UseSSL:               true,
			ForcePathStyle:       false,
			ServerSideEncryption: "AES256", // Default to AES256 for security
			DeleteBatchSize:      1000,
			ListPageSize:         1000,
		},
		Locks: LocksConfig{
			Type:      "local",
			RedisAddr: "localhost:6379",
			TTL:       30 * time.Second,
			KeyPrefix: "drivefs:lock:",
		},
		Links: LinksConfig{
			DefaultTTL: 15 * time.Minute,
			MaxTTL:     7 * 24 * time.Hour,
			RateLimit:  10,
			Burst:      20,
		},
	}
}
