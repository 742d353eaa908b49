package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"glyke/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	categoriesKey      = "cache:categories"
	revokedTokenPrefix = "revoked:"
)

// ErrCacheMiss is returned by GetTempData when the key does not exist.
var ErrCacheMiss = errors.New("cache miss")

type Client struct {
	rdb      *redis.Client
	cacheTTL time.Duration
}

func Initialize(redisURL string, cacheTTL time.Duration) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Test connection
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb, cacheTTL: cacheTTL}, nil
}

// Category listing cache

func (c *Client) GetCategories() ([]models.Category, bool, error) {
	var categories []models.Category
	err := c.GetTempData(categoriesKey, &categories)
	if errors.Is(err, ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return categories, true, nil
}

func (c *Client) SetCategories(categories []models.Category) error {
	return c.SetTempData(categoriesKey, categories, c.cacheTTL)
}

func (c *Client) InvalidateCategories() error {
	return c.DeleteTempData(categoriesKey)
}

// Token revocation

// RevokeToken remembers a token id until the token would have expired anyway.
func (c *Client) RevokeToken(jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ctx := context.Background()
	return c.rdb.Set(ctx, revokedTokenPrefix+jti, 1, ttl).Err()
}

func (c *Client) IsTokenRevoked(jti string) (bool, error) {
	ctx := context.Background()
	n, err := c.rdb.Exists(ctx, revokedTokenPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token: %w", err)
	}
	return n > 0, nil
}

// Temporary data management
func (c *Client) SetTempData(key string, value interface{}, ttl time.Duration) error {
	ctx := context.Background()
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal temp data: %w", err)
	}

	return c.rdb.Set(ctx, key, jsonData, ttl).Err()
}

func (c *Client) GetTempData(key string, dest interface{}) error {
	ctx := context.Background()
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get temp data: %w", err)
	}

	return json.Unmarshal([]byte(val), dest)
}

func (c *Client) DeleteTempData(key string) error {
	ctx := context.Background()
	return c.rdb.Del(ctx, key).Err()
}

// Close Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
