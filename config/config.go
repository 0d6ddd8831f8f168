// Package config provides configuration management for drivefs.
// It handles loading and validating configuration from YAML or JSON files and environment variables.
package config

import "time"

// AppConfig represents the complete application configuration
type AppConfig struct {
	Server  ServerConfig  `koanf:"server"`
	Auth    AuthConfig    `koanf:"auth"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Storage StorageConfig `koanf:"storage"`
	Locks   LocksConfig   `koanf:"locks"`
	Links   LinksConfig   `koanf:"links"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	ListenAddr    string        `koanf:"listen_addr"`
	CertFile      string        `koanf:"cert_file"` // TLS is enabled when both cert and key are set
	KeyFile       string        `koanf:"key_file"`
	ReadTimeout   time.Duration `koanf:"read_timeout"`
	WriteTimeout  time.Duration `koanf:"write_timeout"`
	FileOpTimeout time.Duration `koanf:"file_op_timeout"` // Deadline for every storage-backed request
	MaxUploadSize int64         `koanf:"max_upload_size"` // Bytes accepted per upload request
}

// APIKey binds a bearer token to the user whose files it may access
type APIKey struct {
	Key    string `koanf:"key"`
	UserID string `koanf:"user_id"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	APIKeys []APIKey `koanf:"api_keys"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"` // Expose /metrics on the main listener
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Backend              string `koanf:"backend"`  // "s3", "memory" or "none"
	Endpoint             string `koanf:"endpoint"` // Custom S3 endpoint (e.g., for MinIO); empty uses AWS
	AccessKey            string `koanf:"access_key"`
	SecretKey            string `koanf:"secret_key"`
	Region               string `koanf:"region"`
	Bucket               string `koanf:"bucket"`
	UseSSL               bool   `koanf:"use_ssl"`
	ForcePathStyle       bool   `koanf:"force_path_style"`
	ServerSideEncryption string `koanf:"server_side_encryption"` // SSE algorithm (AES256, aws:kms)
	KMSKeyID             string `koanf:"kms_key_id"`             // KMS key ID for SSE-KMS
	DeleteBatchSize      int    `koanf:"delete_batch_size"`      // Keys per DeleteObjects call, at most 1000
	ListPageSize         int    `koanf:"list_page_size"`         // Keys per ListObjectsV2 page, at most 1000
}

// LocksConfig holds prefix lock configuration
type LocksConfig struct {
	Type          string        `koanf:"type"` // "local", "redis" or "none"
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	TTL           time.Duration `koanf:"ttl"`
	KeyPrefix     string        `koanf:"key_prefix"`
}

// LinksConfig holds download link configuration
type LinksConfig struct {
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxTTL     time.Duration `koanf:"max_ttl"`
	RateLimit  float64       `koanf:"rate_limit"` // Link generations per second, per server
	Burst      int           `koanf:"burst"`
}
