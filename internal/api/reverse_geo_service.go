package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"townmap/internal/logger"
	"townmap/internal/metrics"
	"townmap/internal/revgeo"

	"github.com/redis/go-redis/v9"
)

type cachedLookup struct {
	Found bool         `json:"found"`
	Match revgeo.Match `json:"match"`
}

// 文档注释：反查服务（本地缓存 → Redis 共享缓存 → 面命中计算）
// 背景：多实例部署时 Redis 让热点坐标只计算一次；Redis 命中后回填本地缓存。
// 约束：rc 为 nil 或 Redis 出错时直接计算，不影响结果；未命中结果同样缓存。
func ReverseGeoQuery(ctx context.Context, rc *redis.Client, loc *revgeo.Locator, lat, lon float64, ttl time.Duration) (revgeo.Match, bool) {
	t0 := time.Now()
	metrics.ReverseGeoRequestsTotal.Inc()
	defer func() {
		metrics.ReverseGeoDurationMs.Observe(float64(time.Since(t0).Microseconds()) / 1000)
	}()

	if m, found, hit := loc.Cached(lon, lat); hit {
		return m, found
	}
	key := "revgeo:" + revgeo.CacheKey(lon, lat)
	if rc != nil {
		s, err := rc.Get(ctx, key).Result()
		switch {
		case err == nil:
			var c cachedLookup
			if json.Unmarshal([]byte(s), &c) == nil {
				metrics.RedisCacheTotal.WithLabelValues("hit").Inc()
				loc.Remember(lon, lat, c.Match, c.Found)
				return c.Match, c.Found
			}
			metrics.RedisCacheTotal.WithLabelValues("error").Inc()
		case errors.Is(err, redis.Nil):
			metrics.RedisCacheTotal.WithLabelValues("miss").Inc()
		default:
			metrics.RedisCacheTotal.WithLabelValues("error").Inc()
			logger.L().Warn("redis_get_error", "key", key, "err", err)
		}
	}

	m, found := loc.Resolve(lon, lat)
	if rc != nil {
		if ttl <= 0 {
			ttl = time.Hour
		}
		b, _ := json.Marshal(cachedLookup{Found: found, Match: m})
		if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
			logger.L().Warn("redis_set_error", "key", key, "err", err)
		}
	}
	logger.L().Debug("reverse_geo_query", "lat", lat, "lon", lon, "found", found, "id", m.ID)
	return m, found
}
