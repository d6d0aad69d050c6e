package utils

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// HealthStatus is the last observed reachability of the backing stores.
type HealthStatus struct {
	Mongo     bool      `json:"mongo"`
	Redis     []bool    `json:"redis"`
	CheckedAt time.Time `json:"checkedAt"`
}

var (
	healthMu      sync.RWMutex
	currentHealth HealthStatus
)

func (h HealthStatus) healthy() bool {
	if !h.Mongo {
		return false
	}
	for _, ok := range h.Redis {
		if !ok {
			return false
		}
	}
	return true
}

// GetHealthStatus returns the latest snapshot taken by the monitor.
func GetHealthStatus() HealthStatus {
	healthMu.RLock()
	defer healthMu.RUnlock()
	return currentHealth
}

// StartHealthMonitor probes the stores once immediately and then every
// minute, keeping the snapshot served by /healthz current. Transitions in
// and out of a degraded state are logged.
func StartHealthMonitor(redisClients []*redis.Client, mongoClient *mongo.Client) {
	probe := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		next := HealthStatus{CheckedAt: time.Now().UTC()}
		next.Mongo = mongoClient.Ping(ctx, nil) == nil
		for _, client := range redisClients {
			next.Redis = append(next.Redis, client.Ping(ctx).Err() == nil)
		}

		healthMu.Lock()
		prev := currentHealth
		currentHealth = next
		healthMu.Unlock()

		if !prev.CheckedAt.IsZero() && next.healthy() != prev.healthy() {
			if next.healthy() {
				GetLogger().Info("backing stores recovered")
			} else {
				GetLogger().Warn("backing store degraded",
					zap.Bool("mongo", next.Mongo), zap.Bools("redis", next.Redis))
			}
		}
	}

	go func() {
		probe()
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			probe()
		}
	}()
}
