// 包 logger：HTTP 访问日志中间件
package logger

import (
	"log/slog"
	"net/http"
	"time"
)

// statusWriter：记录状态码与写出字节数
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// 文档注释：访问日志中间件
// 背景：统一记录方法、路径、状态、耗时、字节数与远端地址；5xx 以 warn 输出，429 为 info，其余为 debug。
// 约束：不读取请求体；查询串中的坐标不写入日志，只记录路径。
func AccessMiddleware(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r)
			lvl := slog.LevelDebug
			switch {
			case sw.status >= 500:
				lvl = slog.LevelWarn
			case sw.status == http.StatusTooManyRequests:
				lvl = slog.LevelInfo
			}
			l.Log(r.Context(), lvl, "http_access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"bytes", sw.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"ip", r.RemoteAddr,
			)
		})
	}
}
