// 程序入口：读取配置、初始化依赖并启动服务；API 注册在 internal/api
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"townmap/internal/api"
	"townmap/internal/config"
	"townmap/internal/ipgeo"
	"townmap/internal/logger"
	"townmap/internal/metrics"
	"townmap/internal/middleware"
	"townmap/internal/migrate"
	"townmap/internal/overlay"
	"townmap/internal/revgeo"
	"townmap/internal/store"
	"townmap/internal/topo"
	"townmap/internal/utils"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	l := logger.SetupWith(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	l.Debug("log_init_ok")
	l.Debug("config_api_base", "base", cfg.APIBase)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 行政区边界是服务的核心数据，缺失即退出
	tp, err := topo.LoadFile(cfg.TopoPath)
	if err != nil {
		l.Error("topo_load_error", "path", cfg.TopoPath, "err", err)
		os.Exit(1)
	}
	loc := revgeo.NewLocator(tp, revgeo.Options{
		Layer:     cfg.TopoObject,
		Width:     cfg.DisplayWidth,
		Height:    cfg.DisplayHeight,
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
	})
	// 启动时预构建，避免首个请求承担解码耗时；图层缺失时以空数据集继续运行
	_ = loc.Build()

	st := store.AttachDB(nil)
	if cfg.PGEnable {
		if db, err := utils.OpenPostgresFromEnv(ctx); err != nil {
			l.Error("db_open_error", "err", err)
		} else if err := migrate.EnsureSchema(ctx, db); err != nil {
			l.Error("schema_error", "err", err)
			_ = db.Close()
		} else {
			st = store.AttachDB(db)
			l.Info("db_open_ok")
		}
	} else {
		l.Info("db_disabled")
	}
	defer st.Close()

	var rc *redis.Client
	if cfg.RedisEnable {
		if rc, err = utils.OpenRedisFromEnv(ctx); err != nil {
			l.Error("redis_ping_error", "err", err)
			rc = nil
		} else {
			l.Info("redis_ping_ok")
			defer rc.Close()
		}
	} else {
		l.Info("redis_disabled")
	}

	var geo *ipgeo.Resolver
	if cfg.GeoIPPath != "" {
		if geo, err = ipgeo.Open(cfg.GeoIPPath, ""); err != nil {
			l.Error("geoip_open_error", "path", cfg.GeoIPPath, "err", err)
			geo = nil
		} else {
			defer geo.Close()
		}
	}

	apiMux := api.BuildRoutes(api.Deps{
		Locator:   loc,
		Store:     st,
		Redis:     rc,
		Overlay:   overlay.New(rc, cfg.OverlayKey),
		GeoIP:     geo,
		NearestKm: cfg.NearestKm,
		RedisTTL:  cfg.RedisTTL,
	})
	mux := http.NewServeMux()
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, apiMux))
	allow := middleware.NewAllowlist(cfg.MetricsAllow, cfg.MetricsAllowLocal, cfg.RealIPHeader)
	mux.Handle(cfg.APIBase+"/metrics", allow.Wrap(metrics.Handler()))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/plain; charset=utf-8")
		if loc.Stats().Regions == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("no regions\n"))
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	})

	ui := os.Getenv("UI_DIST")
	if ui == "" {
		ui = filepath.Join("ui", "dist")
	}
	l.Debug("config_ui_dir", "dir", ui)
	mux.Handle("/", http.FileServer(http.Dir(ui)))
	// NOTE: 向前端暴露 API 基础路径，避免硬编码
	mux.HandleFunc("/config.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/javascript; charset=utf-8")
		w.Header().Set("cache-control", "no-store")
		_, _ = w.Write([]byte("window.__API_BASE__='" + cfg.APIBase + "'\n"))
	})

	handler := withMiddleware(l, mux, middleware.RateLimitOptions{
		Enabled: cfg.RateLimitEnabled,
		QPS:     cfg.RateLimitQPS,
		Burst:   cfg.RateLimitBurst,
	})
	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		l.Info("shutdown_begin")
		_ = s.Shutdown(sctx)
	}()

	if cfg.TLSEnable {
		if err := utils.EnsureSelfSignedCert(cfg.TLSCertPath, cfg.TLSKeyPath, "townmap.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLSCertPath)
		err = s.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
	} else {
		l.Info("listening", "addr", cfg.Addr)
		err = s.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
	l.Info("shutdown_done")
}

// withMiddleware：访问日志在最外层，被限流拒绝的 429 同样写入 http_access
func withMiddleware(l *slog.Logger, h http.Handler, rl middleware.RateLimitOptions) http.Handler {
	return logger.AccessMiddleware(l)(middleware.RateLimit(h, rl))
}
