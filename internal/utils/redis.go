package utils

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"townmap/internal/logger"

	"github.com/redis/go-redis/v9"
)

// 文档注释：按环境变量组装 Redis 连接参数
// 背景：Redis 承载跨实例的反查缓存与叠加数值哈希，不可用时服务仍可运行。
// 约束：REDIS_HOST/REDIS_PORT 缺省 127.0.0.1:6379；REDIS_DB 解析失败或为负时回退 0。
func RedisOptions(get func(string) string) *redis.Options {
	host := get("REDIS_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := get("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	db := 0
	if n, err := strconv.Atoi(get("REDIS_DB")); err == nil && n >= 0 {
		db = n
	}
	return &redis.Options{
		Addr:        host + ":" + port,
		Password:    get("REDIS_PASS"),
		DB:          db,
		DialTimeout: 2 * time.Second,
		ReadTimeout: time.Second,
	}
}

// OpenRedis：按参数打开客户端并探活；探活失败关闭客户端并返回错误
func OpenRedis(ctx context.Context, opts *redis.Options) (*redis.Client, error) {
	logger.L().Debug("redis_env", "addr", opts.Addr, "db", opts.DB)
	rc := redis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return rc, nil
}

// OpenRedisFromEnv：从进程环境打开 Redis
func OpenRedisFromEnv(ctx context.Context) (*redis.Client, error) {
	return OpenRedis(ctx, RedisOptions(os.Getenv))
}
