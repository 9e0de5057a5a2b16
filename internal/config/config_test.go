package config

import (
	"testing"
	"time"
)

func lookup(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	t.Parallel()
	c := FromEnv(lookup(nil))
	if c.Addr != ":8080" || c.APIBase != "/api" || c.TopoObject != "layer1" {
		t.Errorf("server defaults = %+v", c)
	}
	if c.DisplayWidth != 100 || c.DisplayHeight != 100 {
		t.Errorf("display = %vx%v", c.DisplayWidth, c.DisplayHeight)
	}
	if c.CacheSize != 4096 || c.CacheTTL != time.Hour || c.NearestKm != 20 {
		t.Errorf("cache defaults = %+v", c)
	}
	if !c.PGEnable || !c.RedisEnable || c.RateLimitEnabled || c.TLSEnable {
		t.Errorf("toggles = pg:%v redis:%v rl:%v tls:%v", c.PGEnable, c.RedisEnable, c.RateLimitEnabled, c.TLSEnable)
	}
	if c.RateLimitBurst != 200 {
		t.Errorf("burst = %d, want qps fallback 200", c.RateLimitBurst)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Parallel()
	c := FromEnv(lookup(map[string]string{
		"API_BASE":           "/v2/",
		"REVGEO_CACHE_SIZE":  "0",
		"REVGEO_CACHE_TTL_S": "60",
		"DISPLAY_WIDTH":      "-5",
		"PG_ENABLE":          "false",
		"RATE_LIMIT_ENABLED": "true",
		"RATE_LIMIT_QPS":     "0.5",
		"OVERLAY_KEY":        " overlay:wind ",
		"REDIS_ENABLE":       "maybe",
		"METRICS_ALLOW":      "10.0.0.0/8, ,192.168.1.5",
	}))
	if len(c.MetricsAllow) != 2 || c.MetricsAllow[1] != "192.168.1.5" {
		t.Errorf("MetricsAllow = %q", c.MetricsAllow)
	}
	if c.APIBase != "/v2" {
		t.Errorf("APIBase = %q", c.APIBase)
	}
	if c.CacheSize != 0 || c.CacheTTL != time.Minute {
		t.Errorf("cache = %d/%v", c.CacheSize, c.CacheTTL)
	}
	if c.DisplayWidth != 100 {
		t.Errorf("negative width should fall back, got %v", c.DisplayWidth)
	}
	if c.PGEnable || !c.RedisEnable || !c.RateLimitEnabled {
		t.Errorf("toggles = pg:%v redis:%v rl:%v", c.PGEnable, c.RedisEnable, c.RateLimitEnabled)
	}
	if c.RateLimitQPS != 0.5 || c.RateLimitBurst != 1 {
		t.Errorf("rate = %v burst %d", c.RateLimitQPS, c.RateLimitBurst)
	}
	if c.OverlayKey != "overlay:wind" {
		t.Errorf("OverlayKey = %q", c.OverlayKey)
	}
}
