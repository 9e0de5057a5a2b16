// 包 middleware：HTTP 入口中间件（限流、来源白名单）
package middleware

import (
	"net"
	"net/http"
	"strings"

	"townmap/internal/logger"
)

// 文档注释：来源 IP 白名单
// 背景：指标等运维端点只对内网与监控网段开放；条目为单 IP 或 CIDR（v4/v6 均可）。
// 约束：未配置任何条目时不拦截；realIPHeader 非空时取该头首个有效 IP，否则以 RemoteAddr 为准。
type Allowlist struct {
	ips          map[string]struct{}
	cidrs        []*net.IPNet
	realIPHeader string
}

// NewAllowlist：解析条目；无法解析的条目记日志后忽略
func NewAllowlist(entries []string, allowLocal bool, realIPHeader string) *Allowlist {
	a := &Allowlist{ips: map[string]struct{}{}, realIPHeader: strings.TrimSpace(realIPHeader)}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			if _, n, err := net.ParseCIDR(e); err == nil {
				a.cidrs = append(a.cidrs, n)
				continue
			}
		} else if ip := net.ParseIP(e); ip != nil {
			a.ips[ip.String()] = struct{}{}
			continue
		}
		logger.L().Warn("allowlist_entry_invalid", "entry", e)
	}
	if allowLocal && a.Active() {
		a.ips["127.0.0.1"] = struct{}{}
		a.ips["::1"] = struct{}{}
	}
	return a
}

// Active：是否配置了至少一个条目
func (a *Allowlist) Active() bool { return len(a.ips) > 0 || len(a.cidrs) > 0 }

func (a *Allowlist) Allowed(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if _, ok := a.ips[ip.String()]; ok {
		return true
	}
	for _, n := range a.cidrs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func (a *Allowlist) Wrap(next http.Handler) http.Handler {
	if !a.Active() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := a.sourceIP(r)
		if !a.Allowed(ip) {
			logger.L().Debug("allowlist_block", "ip", ip, "path", r.URL.Path)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Allowlist) sourceIP(r *http.Request) net.IP {
	if a.realIPHeader != "" {
		if raw := r.Header.Get(a.realIPHeader); raw != "" {
			if ip := net.ParseIP(strings.TrimSpace(strings.Split(raw, ",")[0])); ip != nil {
				return ip
			}
		}
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return net.ParseIP(host)
}
