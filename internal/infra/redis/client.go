// Package redis caches schema introspection results so repeated
// list-tables and table-schema calls skip the cluster round trip.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kustomcp/kustomcp/internal/core/domain"
)

// Client wraps Redis operations for the schema cache.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	TTL      time.Duration `yaml:"ttl"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks connectivity, used by the health monitor.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Key helpers
func tablesKey(database string) string {
	return fmt.Sprintf("schema:tables:%s", database)
}

func schemaKey(database, table string) string {
	return fmt.Sprintf("schema:table:%s:%s", database, table)
}

func functionsKey(database string) string {
	return fmt.Sprintf("schema:functions:%s", database)
}

func databasesKey() string {
	return "schema:databases"
}

// GetTables returns the cached table listing, if present.
func (c *Client) GetTables(ctx context.Context, database string) (*domain.ResultSet, bool) {
	return c.get(ctx, tablesKey(database))
}

// SetTables caches a table listing.
func (c *Client) SetTables(ctx context.Context, database string, rs *domain.ResultSet) {
	c.set(ctx, tablesKey(database), rs)
}

// GetTableSchema returns the cached schema for one table, if present.
func (c *Client) GetTableSchema(ctx context.Context, database, table string) (*domain.ResultSet, bool) {
	return c.get(ctx, schemaKey(database, table))
}

// SetTableSchema caches one table's schema.
func (c *Client) SetTableSchema(ctx context.Context, database, table string, rs *domain.ResultSet) {
	c.set(ctx, schemaKey(database, table), rs)
}

// GetFunctions returns the cached function listing, if present.
func (c *Client) GetFunctions(ctx context.Context, database string) (*domain.ResultSet, bool) {
	return c.get(ctx, functionsKey(database))
}

// SetFunctions caches a function listing.
func (c *Client) SetFunctions(ctx context.Context, database string, rs *domain.ResultSet) {
	c.set(ctx, functionsKey(database), rs)
}

// GetDatabases returns the cached database listing, if present.
func (c *Client) GetDatabases(ctx context.Context) (*domain.ResultSet, bool) {
	return c.get(ctx, databasesKey())
}

// SetDatabases caches the database listing.
func (c *Client) SetDatabases(ctx context.Context, rs *domain.ResultSet) {
	c.set(ctx, databasesKey(), rs)
}

func (c *Client) get(ctx context.Context, key string) (*domain.ResultSet, bool) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var rs domain.ResultSet
	if err := json.Unmarshal(data, &rs); err != nil {
		slog.Debug("dropping unreadable cache entry", "key", key, "error", err)
		c.rdb.Del(ctx, key)
		return nil, false
	}
	return &rs, true
}

// set is best-effort: cache failures only cost a future round trip.
func (c *Client) set(ctx context.Context, key string, rs *domain.ResultSet) {
	data, err := json.Marshal(rs)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Debug("failed to cache schema result", "key", key, "error", err)
	}
}
