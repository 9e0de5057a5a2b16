// 包 migrate：首次运行自动建表
package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"townmap/internal/logger"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS _town_incidents (
        id TEXT PRIMARY KEY,
        category TEXT NOT NULL,
        severity TEXT NOT NULL,
        lon DOUBLE PRECISION NOT NULL,
        lat DOUBLE PRECISION NOT NULL,
        active BOOLEAN NOT NULL DEFAULT TRUE,
        reported_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_town_incidents_active ON _town_incidents(active, reported_at DESC)`,
	`CREATE TABLE IF NOT EXISTS _town_lookup_stats_total (
        id INT PRIMARY KEY,
        total_queries BIGINT NOT NULL DEFAULT 0,
        found_queries BIGINT NOT NULL DEFAULT 0
    )`,
	`CREATE TABLE IF NOT EXISTS _town_lookup_stats_daily (
        day DATE PRIMARY KEY,
        queries BIGINT NOT NULL DEFAULT 0,
        found BIGINT NOT NULL DEFAULT 0
    )`,
	`CREATE TABLE IF NOT EXISTS _town_lookup_regions (
        region_id TEXT PRIMARY KEY,
        hits BIGINT NOT NULL DEFAULT 0,
        last_seen TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`INSERT INTO _town_lookup_stats_total(id, total_queries, found_queries)
     VALUES(1, 0, 0)
     ON CONFLICT (id) DO NOTHING`,
}

// 背景：使用 IF NOT EXISTS，重复执行无副作用；服务与命令行工具启动时都会调用
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, s := range statements {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("schema stmt %d: %w", i, err)
		}
	}
	logger.L().Debug("schema_done", "statements", len(statements))
	return nil
}
