package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"home-services-server/models"
)

// Client caches pro-matching results per (zip, category) for a short TTL.
// A nil *Client is valid; every lookup misses and matching runs directly.
type Client struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New connects to Redis. Returns an error when the server is unreachable so
// the caller can decide to run without the cache.
func New(addr, password string, db int, ttl time.Duration, logger *zap.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Client{rdb: rdb, ttl: ttl, logger: logger}, nil
}

func matchKey(zip, category string) string {
	return fmt.Sprintf("match:%s:%s", zip, strings.ToLower(category))
}

// GetMatches returns a cached match result, or ok=false on miss.
func (c *Client) GetMatches(ctx context.Context, zip, category string) ([]models.Worker, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, matchKey(zip, category)).Bytes()
	if err != nil {
		return nil, false
	}
	var workers []models.Worker
	if err := json.Unmarshal(data, &workers); err != nil {
		c.logger.Warn("dropping corrupt match cache entry", zap.Error(err))
		return nil, false
	}
	return workers, true
}

// SetMatches stores a match result under the configured TTL.
func (c *Client) SetMatches(ctx context.Context, zip, category string, workers []models.Worker) {
	if c == nil {
		return
	}
	data, err := json.Marshal(workers)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, matchKey(zip, category), data, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to cache match result", zap.Error(err))
	}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
