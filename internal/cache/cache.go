package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/capacity"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/config"
)

const summaryKey = "sa_signup:capacity_summary"

// SummaryCache 缓存班次容量汇总，任何一次写入或删除之后都必须调用 Invalidate。
// 缓存出错时只记录日志，调用方会退回到直接读取存储
type SummaryCache interface {
	Get(ctx context.Context) (*capacity.Summary, bool)
	Set(ctx context.Context, summary *capacity.Summary)
	Invalidate(ctx context.Context)
}

type Redis struct {
	rdb        *redis.Client
	opTimeout  time.Duration
	expiration time.Duration
}

// NewRedis 连接 redis 并执行一次 Ping
func NewRedis(ctx context.Context, cfg *config.Config) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Redis.ConnectTimeout)*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis 连接失败: %w", err)
	}

	return &Redis{
		rdb:        rdb,
		opTimeout:  time.Duration(cfg.Redis.OperationTimeout) * time.Second,
		expiration: time.Duration(cfg.Redis.SummaryExpiration) * time.Second,
	}, nil
}

func (c *Redis) Get(ctx context.Context) (*capacity.Summary, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	data, err := c.rdb.Get(ctx, summaryKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("读取容量缓存失败", "error", err)
		}
		return nil, false
	}

	var summary capacity.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		slog.Warn("容量缓存格式错误", "error", err)
		return nil, false
	}

	return &summary, true
}

func (c *Redis) Set(ctx context.Context, summary *capacity.Summary) {
	data, err := json.Marshal(summary)
	if err != nil {
		slog.Warn("无法序列化容量汇总", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.rdb.Set(ctx, summaryKey, data, c.expiration).Err(); err != nil {
		slog.Warn("写入容量缓存失败", "error", err)
	}
}

func (c *Redis) Invalidate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.rdb.Del(ctx, summaryKey).Err(); err != nil {
		// 删除失败时缓存最多在过期时间内保持旧值
		slog.Error("清除容量缓存失败", "error", err)
	}
}

func (c *Redis) Close() error {
	return c.rdb.Close()
}

// Nop 在没有配置 redis 时使用，每次都未命中
type Nop struct{}

func (Nop) Get(context.Context) (*capacity.Summary, bool) { return nil, false }
func (Nop) Set(context.Context, *capacity.Summary)        {}
func (Nop) Invalidate(context.Context)                    {}
