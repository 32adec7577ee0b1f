// Package cache 预测结果缓存
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"monsterlab/config"
	"monsterlab/ml"
)

// LRU 进程内缓存
type LRU struct {
	entries *lru.Cache[string, ml.Prediction]
}

func NewLRU(size int) (*LRU, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid cache size: %d", size)
	}
	entries, err := lru.New[string, ml.Prediction](size)
	if err != nil {
		return nil, err
	}
	return &LRU{entries: entries}, nil
}

func (c *LRU) Get(_ context.Context, key string) (ml.Prediction, bool) {
	return c.entries.Get(key)
}

func (c *LRU) Set(_ context.Context, key string, p ml.Prediction) {
	c.entries.Add(key, p)
}

func (c *LRU) Purge(context.Context) {
	c.entries.Purge()
}

func (c *LRU) Len() int {
	return c.entries.Len()
}

const redisPrefix = "monsterlab:prediction:"

// Redis 多实例共享缓存。Redis故障只记录日志，不影响预测。
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, ttl: ttl, logger: logger}
}

func (c *Redis) Get(ctx context.Context, key string) (ml.Prediction, bool) {
	data, err := c.client.Get(ctx, redisPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Redis get failed", zap.Error(err))
		}
		return ml.Prediction{}, false
	}
	var p ml.Prediction
	if err := json.Unmarshal(data, &p); err != nil {
		c.logger.Warn("Discarding malformed cache entry", zap.String("key", key), zap.Error(err))
		return ml.Prediction{}, false
	}
	return p, true
}

func (c *Redis) Set(ctx context.Context, key string, p ml.Prediction) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Redis set failed", zap.Error(err))
	}
}

// Purge 删除本应用写入的全部键
func (c *Redis) Purge(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, redisPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("Redis scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Redis purge failed", zap.Error(err))
	}
}

func (c *Redis) Close() error {
	return c.client.Close()
}

// Noop 不缓存
type Noop struct{}

func (Noop) Get(context.Context, string) (ml.Prediction, bool) { return ml.Prediction{}, false }
func (Noop) Set(context.Context, string, ml.Prediction)         {}
func (Noop) Purge(context.Context)                              {}

// New 按cache.type创建缓存
func New(cfg config.CacheConfig, logger *zap.Logger) (ml.PredictionCache, error) {
	switch cfg.Type {
	case "lru":
		return NewLRU(cfg.Size)
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		return NewRedis(client, cfg.TTL, logger), nil
	case "none", "":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}
