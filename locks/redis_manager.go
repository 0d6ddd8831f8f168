package locks

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/config"
)

// releaseScript deletes the lock only when it still carries our token
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisManager implements locking shared by several drivefs processes with
// SET NX PX and an owner-checked release
type RedisManager struct {
	client    *redis.Client
	logger    *zap.Logger
	ttl       time.Duration
	keyPrefix string

	mu     sync.Mutex
	tokens map[string]string // key -> token of the acquisition we hold
}

// NewRedisManager creates a new Redis-based lock manager
func NewRedisManager(cfg config.LocksConfig, logger *zap.Logger) (*RedisManager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisManager(client, cfg, logger), nil
}

func newRedisManager(client *redis.Client, cfg config.LocksConfig, logger *zap.Logger) *RedisManager {
	return &RedisManager{
		client:    client,
		logger:    logger,
		ttl:       cfg.TTL,
		keyPrefix: cfg.KeyPrefix,
		tokens:    make(map[string]string),
	}
}

// Acquire attempts to acquire a lock for the given key
func (m *RedisManager) Acquire(ctx context.Context, key string) (bool, error) {
	token, err := newToken()
	if err != nil {
		return false, err
	}

	result := m.client.SetNX(ctx, m.keyPrefix+key, token, m.ttl)
	if err := result.Err(); err != nil {
		return false, fmt.Errorf("failed to acquire lock for key %s: %w", key, err)
	}

	if !result.Val() {
		m.logger.Debug("Lock already held", zap.String("key", key))
		return false, nil
	}

	m.mu.Lock()
	m.tokens[key] = token
	m.mu.Unlock()

	m.logger.Debug("Lock acquired",
		zap.String("key", key),
		zap.Duration("ttl", m.ttl))
	return true, nil
}

// Release releases a previously acquired lock for the given key
func (m *RedisManager) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	token, ok := m.tokens[key]
	delete(m.tokens, key)
	m.mu.Unlock()

	if !ok {
		return nil
	}

	deleted, err := releaseScript.Run(ctx, m.client, []string{m.keyPrefix + key}, token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock for key %s: %w", key, err)
	}

	if deleted == 1 {
		m.logger.Debug("Lock released", zap.String("key", key))
	} else {
		m.logger.Warn("Lock expired before release", zap.String("key", key))
	}
	return nil
}

// Close closes the Redis client connection
func (m *RedisManager) Close() error {
	return m.client.Close()
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
