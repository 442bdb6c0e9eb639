package database

import (
	"context"
	"fmt"
	"time"

	"nmt_prep_backend/internal/config"
	"nmt_prep_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// InitRedis connects the cache used for the test catalog, save status
// and lesson reminders. The backend stays functional without it, so
// callers may keep running with a nil client when the ping fails.
func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 2,
		DialTimeout:  3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, err
	}

	logger.Log.Info("redis connection established",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)), zap.Int("db", cfg.DB))
	return rdb, nil
}
