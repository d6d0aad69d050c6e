// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"schedly/config"

	"github.com/go-redis/redis/v8"
)

// StateClient is the Redis client holding short-lived OAuth state nonces.
var StateClient *redis.Client

// InitStateCache initializes the Redis client for OAuth state storage.
func InitStateCache() {
	StateClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisStateDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := StateClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (OAuth state): %v", err)
	}
}

// GetStateClient returns the OAuth state client.
func GetStateClient() *redis.Client {
	if StateClient == nil {
		InitStateCache()
	}
	return StateClient
}
