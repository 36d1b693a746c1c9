// Package redisclient builds the go-redis client shared by the sweep lock.
// This is part of the platform layer and contains no business logic.
package redisclient

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Config provides redis connection settings.
type Config interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// New returns nil when no redis URL is configured.
func New(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.GetRedisURL() == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if opts.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		clone := opts.TLSConfig.Clone()
		clone.InsecureSkipVerify = true
		opts.TLSConfig = clone
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
