package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"kada-backend/internal/config"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

// Connect sets the shared client. An empty address or a failed ping leaves
// caching and locking disabled; every helper is a no-op on a nil client.
func Connect(ctx context.Context, addr string) {
	logger := config.GetLogger()
	if addr == "" {
		logger.Warn("REDIS_ADDRESS not set, cache and locks disabled")
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		PoolSize: 50,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		config.LogError(logger, "cache", "Connect", "redis ping failed, cache disabled", addr, err)
		_ = client.Close()
		return
	}

	rdb = client
	locker = redislock.New(rdb)
	logger.WithField("addr", addr).Info("connected to redis")
}

func GetClient() *redis.Client {
	return rdb
}

func GetLocker() *redislock.Client {
	return locker
}

func Close() error {
	if rdb == nil {
		return nil
	}
	return rdb.Close()
}

// GetObject decodes key into dest; found is false on a miss or without redis.
func GetObject(ctx context.Context, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil
	}
	val, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

func SetObject(ctx context.Context, key string, obj any, exp time.Duration) error {
	if rdb == nil {
		return nil
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, b, exp).Err()
}

func Delete(ctx context.Context, keys ...string) error {
	if rdb == nil || len(keys) == 0 {
		return nil
	}
	return rdb.Del(ctx, keys...).Err()
}
