// 包 utils：外部连接工具（PostgreSQL / Redis / TLS 证书），统一环境变量读取
package utils

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"townmap/internal/logger"

	_ "github.com/lib/pq"
)

// 文档注释：由取值函数拼装 PostgreSQL DSN
// 背景：PG_HOST/PG_PORT/PG_USER/PG_PASSWORD/PG_DB/PG_SSLMODE 分项配置，便于容器环境注入。
// 约束：缺省连接本机 townmap 库；密码做 URL 转义。
func BuildPostgresDSN(get func(string) string) string {
	or := func(k, def string) string {
		if v := get(k); v != "" {
			return v
		}
		return def
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     or("PG_HOST", "localhost") + ":" + or("PG_PORT", "5432"),
		Path:     "/" + or("PG_DB", "townmap"),
		RawQuery: "sslmode=" + url.QueryEscape(or("PG_SSLMODE", "disable")),
	}
	user := or("PG_USER", "postgres")
	if pass := get("PG_PASSWORD"); pass != "" {
		u.User = url.UserPassword(user, pass)
	} else {
		u.User = url.User(user)
	}
	return u.String()
}

func BuildPostgresDSNFromEnv() string { return BuildPostgresDSN(os.Getenv) }

// 文档注释：按环境变量打开连接池并探活
// 背景：服务只做读与少量计数写入，连接池按 PG_MAX_OPEN_CONNS/PG_MAX_IDLE_CONNS 调整。
// 约束：探活失败时关闭连接池并返回错误，调用方降级为无库运行。
func OpenPostgresFromEnv(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("postgres", BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	maxOpen, maxIdle := 20, 10
	if n, e := strconv.Atoi(os.Getenv("PG_MAX_OPEN_CONNS")); e == nil && n > 0 {
		maxOpen = n
	}
	if n, e := strconv.Atoi(os.Getenv("PG_MAX_IDLE_CONNS")); e == nil && n >= 0 {
		maxIdle = n
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	logger.L().Debug("db_pool", "max_open", maxOpen, "max_idle", maxIdle)
	return db, nil
}
