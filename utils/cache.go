// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"meetwise/config"

	"github.com/go-redis/redis/v8"
)

var (
	// CacheClient is the generic cache client (calendar token probes, etc).
	CacheClient *redis.Client
	// DedupClient is the dedicated client for webhook event deduplication.
	DedupClient *redis.Client
)

// InitCache initializes the generic Redis cache client.
func InitCache() {
	CacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisCacheDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := CacheClient.Ping(ctx).Result(); err != nil {
		log.Printf("Failed to connect to Redis (Cache): %v", err)
		ExitDependencyUnreachable()
	}
}

// GetCacheClient returns the generic cache client.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		InitCache()
	}
	return CacheClient
}

// InitDedupCache initializes the Redis client used for provider event-id
// deduplication. Keys live for the dedup window (at least 24h).
func InitDedupCache() {
	DedupClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDedupDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := DedupClient.Ping(ctx).Result(); err != nil {
		log.Printf("Failed to connect to Redis (Dedup): %v", err)
		ExitDependencyUnreachable()
	}
}

// GetDedupClient returns the Redis client for event deduplication.
func GetDedupClient() *redis.Client {
	if DedupClient == nil {
		InitDedupCache()
	}
	return DedupClient
}
