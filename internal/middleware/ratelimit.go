package middleware

import (
	"net/http"

	"townmap/internal/logger"
	"townmap/internal/metrics"

	"golang.org/x/time/rate"
)

// RateLimitOptions：入口限流参数；QPS <= 0 视为不限流
type RateLimitOptions struct {
	Enabled bool
	QPS     float64
	Burst   int
}

// 文档注释：令牌桶限流中间件
// 背景：峰值流量下保护反查缓存与数据库；全局一个令牌桶，超限直接返回 429，不排队。
// 约束：Burst < 1 时按 1 处理；未开启时原样返回 next。
func RateLimit(next http.Handler, opts RateLimitOptions) http.Handler {
	if !opts.Enabled || opts.QPS <= 0 {
		return next
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(opts.QPS), burst)
	logger.L().Info("rate_limit_on", "qps", opts.QPS, "burst", burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !lim.Allow() {
			metrics.RateLimitedTotal.Inc()
			w.Header().Set("retry-after", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
