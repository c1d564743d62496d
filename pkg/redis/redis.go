package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Host          string
	Port          int
	Password      string
	DB            int
	PoolSize      int
	MinIdleConns  int
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxRetries    int
	RetryInterval time.Duration
}

// DefaultConfig returns default Redis configuration
func DefaultConfig() *Config {
	return &Config{
		Host:          "localhost",
		Port:          6379,
		Password:      "",
		DB:            0,
		PoolSize:      50,
		MinIdleConns:  10,
		DialTimeout:   5 * time.Second,
		ReadTimeout:   3 * time.Second,
		WriteTimeout:  3 * time.Second,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	}
}

// Addr returns the host:port address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Client wraps go-redis with script management helpers
type Client struct {
	rdb     *redis.Client
	config  *Config
	scripts map[string]string // script name -> SHA
	mu      sync.RWMutex
}

// NewClient creates a new Redis client with connection retry
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	client := &Client{
		rdb:     rdb,
		config:  cfg,
		scripts: make(map[string]string),
	}

	var lastErr error
	maxAttempts := cfg.MaxRetries + 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := rdb.Ping(ctx).Err(); err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-time.After(cfg.RetryInterval):
				case <-ctx.Done():
					rdb.Close()
					return nil, ctx.Err()
				}
			}
			continue
		}
		return client, nil
	}

	rdb.Close()
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxAttempts, lastErr)
}

// Redis returns the underlying go-redis client
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// IsConnected returns true if the connection is healthy
func (c *Client) IsConnected(ctx context.Context) bool {
	return c.Ping(ctx) == nil
}

// Get retrieves a value by key
func (c *Client) Get(ctx context.Context, key string) *redis.StringCmd {
	return c.rdb.Get(ctx, key)
}

// Set stores a value with expiration
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	return c.rdb.Set(ctx, key, value, expiration)
}

// Del deletes keys
func (c *Client) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	return c.rdb.Del(ctx, keys...)
}

// Incr increments a counter key
func (c *Client) Incr(ctx context.Context, key string) *redis.IntCmd {
	return c.rdb.Incr(ctx, key)
}

// Expire sets a key TTL
func (c *Client) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	return c.rdb.Expire(ctx, key, expiration)
}

// Eval evaluates a Lua script
func (c *Client) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	return c.rdb.Eval(ctx, script, keys, args...)
}

// LoadScript loads a Lua script into the script cache under a name
func (c *Client) LoadScript(ctx context.Context, name, script string) (string, error) {
	sha, err := c.rdb.ScriptLoad(ctx, script).Result()
	if err != nil {
		return "", fmt.Errorf("failed to load script %q: %w", name, err)
	}

	c.mu.Lock()
	c.scripts[name] = sha
	c.mu.Unlock()

	return sha, nil
}

// EvalShaByName evaluates a previously loaded script by name
func (c *Client) EvalShaByName(ctx context.Context, name string, keys []string, args ...interface{}) *redis.Cmd {
	c.mu.RLock()
	sha, ok := c.scripts[name]
	c.mu.RUnlock()

	if !ok {
		cmd := redis.NewCmd(ctx)
		cmd.SetErr(fmt.Errorf("script %q not loaded", name))
		return cmd
	}

	return c.rdb.EvalSha(ctx, sha, keys, args...)
}

// HealthCheck verifies the connection is usable
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.Ping(ctx); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
