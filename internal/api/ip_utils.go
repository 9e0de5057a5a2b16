package api

import (
	"net"
	"net/http"
	"strings"
)

// 文档注释：获取客户端 IP
// 背景：多层代理环境下，优先显式参数，其次常见反向代理头，最后回退远端地址。
// 约束：代理头存在伪造风险，仅用于粗略定位与统计去重，不用于鉴权。
func getClientIP(r *http.Request) string {
	if q := strings.TrimSpace(r.URL.Query().Get("ip")); q != "" {
		return q
	}
	return getVisitorIP(r)
}

// getVisitorIP：访问者 IP（忽略 ip 参数），用于统计去重
func getVisitorIP(r *http.Request) string {
	h := r.Header
	if x := h.Get("x-forwarded-for"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	for _, k := range []string{"cf-connecting-ip", "x-real-ip", "x-client-ip"} {
		if x := strings.TrimSpace(h.Get(k)); x != "" {
			return x
		}
	}
	if x := h.Get("forwarded"); x != "" {
		if i := strings.Index(strings.ToLower(x), "for="); i >= 0 {
			y := x[i+4:]
			if p := strings.IndexAny(y, ";,"); p >= 0 {
				y = y[:p]
			}
			y = strings.Trim(y, "\" []")
			return y
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
