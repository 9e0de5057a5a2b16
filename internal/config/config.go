// 包 config：集中读取运行配置；先加载 .env 文件，再从环境变量取值并补默认值
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr    string
	APIBase string

	TopoPath      string
	TopoObject    string
	DisplayWidth  float64
	DisplayHeight float64

	CacheSize int
	CacheTTL  time.Duration
	NearestKm float64
	RedisTTL  time.Duration

	OverlayKey string
	GeoIPPath  string

	PGEnable    bool
	RedisEnable bool

	RateLimitEnabled bool
	RateLimitQPS     float64
	RateLimitBurst   int

	MetricsAllow      []string
	MetricsAllowLocal bool
	RealIPHeader      string

	TLSEnable   bool
	TLSCertPath string
	TLSKeyPath  string

	LogLevel  string
	LogFormat string
}

// Load：加载 .env 与 data/env/.env（已存在的环境变量不被覆盖），再解析环境变量
func Load() Config {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	return FromEnv(os.Getenv)
}

// 文档注释：按取值函数构建配置
// 背景：与进程环境解耦，测试可传入 map 查找。
// 约束：数值解析失败或越界时回退默认值，不报错。
func FromEnv(get func(string) string) Config {
	e := env{get: get}
	c := Config{
		Addr:    e.str("ADDR", ":8080"),
		APIBase: strings.TrimRight(e.str("API_BASE", "/api"), "/"),

		TopoPath:      e.str("TOPO_PATH", filepath.Join("data", "topo", "towns.topo.json")),
		TopoObject:    e.str("TOPO_OBJECT", "layer1"),
		DisplayWidth:  e.float("DISPLAY_WIDTH", 100),
		DisplayHeight: e.float("DISPLAY_HEIGHT", 100),

		CacheSize: e.int("REVGEO_CACHE_SIZE", 4096),
		CacheTTL:  time.Duration(e.int("REVGEO_CACHE_TTL_S", 3600)) * time.Second,
		NearestKm: e.float("REVGEO_NEAREST_KM", 20),
		RedisTTL:  time.Duration(e.int("REVGEO_REDIS_TTL_S", 3600)) * time.Second,

		OverlayKey: e.str("OVERLAY_KEY", "overlay:rain"),
		GeoIPPath:  e.get("GEOIP_PATH"),

		PGEnable:    e.bool("PG_ENABLE", true),
		RedisEnable: e.bool("REDIS_ENABLE", true),

		RateLimitEnabled: e.bool("RATE_LIMIT_ENABLED", false),
		RateLimitQPS:     e.float("RATE_LIMIT_QPS", 200),
		RateLimitBurst:   e.int("RATE_LIMIT_BURST", 0),

		MetricsAllow:      e.list("METRICS_ALLOW"),
		MetricsAllowLocal: e.bool("METRICS_ALLOW_LOCAL", true),
		RealIPHeader:      e.get("REAL_IP_HEADER"),

		TLSEnable:   e.bool("TLS_ENABLE", false),
		TLSCertPath: e.str("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt")),
		TLSKeyPath:  e.str("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key")),

		LogLevel:  e.str("LOG_LEVEL", "info"),
		LogFormat: e.str("LOG_FORMAT", "text"),
	}
	if c.APIBase == "" {
		c.APIBase = "/api"
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = int(c.RateLimitQPS)
		if c.RateLimitBurst < 1 {
			c.RateLimitBurst = 1
		}
	}
	return c
}

type env struct {
	get func(string) string
}

func (e env) str(key, def string) string {
	if v := strings.TrimSpace(e.get(key)); v != "" {
		return v
	}
	return def
}

func (e env) int(key string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(e.get(key))); err == nil && n >= 0 {
		return n
	}
	return def
}

func (e env) float(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(strings.TrimSpace(e.get(key)), 64); err == nil && f > 0 {
		return f
	}
	return def
}

func (e env) list(key string) []string {
	var out []string
	for _, p := range strings.Split(e.get(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (e env) bool(key string, def bool) bool {
	if b, err := strconv.ParseBool(strings.TrimSpace(e.get(key))); err == nil {
		return b
	}
	return def
}
