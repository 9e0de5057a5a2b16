// 包 store：PostgreSQL 数据访问层，提供事件标记读写与反查统计
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"townmap/internal/logger"

	_ "github.com/lib/pq"
)

// ErrNoDB：未配置数据库（PG_ENABLE=false 或连接失败后降级）
var ErrNoDB = errors.New("store: database not configured")

// Store：数据库访问入口；db 为 nil 时所有操作返回 ErrNoDB
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Enabled() bool { return s != nil && s.db != nil }

func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.db.Close()
}

// Incident：一条地图事件（事故、施工）的原始记录，坐标为经纬度
type Incident struct {
	ID         string
	Category   string
	Severity   string
	Lon        float64
	Lat        float64
	Active     bool
	ReportedAt time.Time
}

// 文档注释：读取进行中的事件
// 背景：事件列表供聚合接口投影与合并，按上报时间倒序取前 limit 条。
// 约束：limit <= 0 时取 500。
func (s *Store) ListActiveIncidents(ctx context.Context, limit int) ([]Incident, error) {
	if !s.Enabled() {
		return nil, ErrNoDB
	}
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, category, severity, lon, lat, active, reported_at
        FROM _town_incidents WHERE active=TRUE ORDER BY reported_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()
	var out []Incident
	for rows.Next() {
		var in Incident
		if err := rows.Scan(&in.ID, &in.Category, &in.Severity, &in.Lon, &in.Lat, &in.Active, &in.ReportedAt); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	logger.L().Debug("db_incidents", "count", len(out), "limit", limit)
	return out, rows.Err()
}

// UpsertIncident：新增或更新事件并置为进行中
func (s *Store) UpsertIncident(ctx context.Context, in Incident) error {
	if !s.Enabled() {
		return ErrNoDB
	}
	if err := ValidateIncident(in); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO _town_incidents(id, category, severity, lon, lat, active)
        VALUES($1,$2,$3,$4,$5,TRUE)
        ON CONFLICT (id) DO UPDATE SET category=EXCLUDED.category, severity=EXCLUDED.severity,
            lon=EXCLUDED.lon, lat=EXCLUDED.lat, active=TRUE, updated_at=now()`,
		in.ID, in.Category, in.Severity, in.Lon, in.Lat)
	return err
}

// ResolveIncident：将事件标记为已结束；返回是否存在该事件
func (s *Store) ResolveIncident(ctx context.Context, id string) (bool, error) {
	if !s.Enabled() {
		return false, ErrNoDB
	}
	res, err := s.db.ExecContext(ctx, `UPDATE _town_incidents SET active=FALSE, updated_at=now() WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ValidateIncident：写库前的字段校验
func ValidateIncident(in Incident) error {
	switch {
	case in.ID == "":
		return errors.New("incident: empty id")
	case in.Category == "":
		return errors.New("incident: empty category")
	case in.Lon < -180 || in.Lon > 180 || in.Lat < -90 || in.Lat > 90:
		return fmt.Errorf("incident %s: coordinates out of range (%v, %v)", in.ID, in.Lon, in.Lat)
	}
	return nil
}

// 文档注释：记录一次反查
// 背景：累计总数、当日数与命中区域计数，供 /stats 展示；统计失败不影响查询结果。
// 约束：regionID 为空表示未命中，仅计入总数。
func (s *Store) RecordLookup(ctx context.Context, regionID string) error {
	if !s.Enabled() {
		return ErrNoDB
	}
	found := 0
	if regionID != "" {
		found = 1
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE _town_lookup_stats_total
        SET total_queries=total_queries+1, found_queries=found_queries+$1 WHERE id=1`, found); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO _town_lookup_stats_daily(day, queries, found) VALUES(current_date, 1, $1)
        ON CONFLICT (day) DO UPDATE SET queries=_town_lookup_stats_daily.queries+1, found=_town_lookup_stats_daily.found+EXCLUDED.found`, found); err != nil {
		return err
	}
	if regionID != "" {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO _town_lookup_regions(region_id, hits) VALUES($1, 1)
            ON CONFLICT (region_id) DO UPDATE SET hits=_town_lookup_regions.hits+1, last_seen=now()`, regionID); err != nil {
			return err
		}
	}
	logger.L().Debug("stats_incr", "region", regionID)
	return nil
}

// Totals：累计与当日反查次数
type Totals struct {
	Total int64 `json:"total"`
	Found int64 `json:"found"`
	Today int64 `json:"today"`
}

// GetTotals：读取累计与当日次数；当日尚无记录时为 0
func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	if !s.Enabled() {
		return nil, ErrNoDB
	}
	var t Totals
	if err := s.db.QueryRowContext(ctx, "SELECT total_queries, found_queries FROM _town_lookup_stats_total WHERE id=1").Scan(&t.Total, &t.Found); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT queries FROM _town_lookup_stats_daily WHERE day=current_date").Scan(&t.Today); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	logger.L().Debug("stats_totals", "total", t.Total, "today", t.Today)
	return &t, nil
}

type RegionHits struct {
	RegionID string `json:"id"`
	Hits     int64  `json:"hits"`
}

// TopRegions：命中次数最多的 n 个区域
func (s *Store) TopRegions(ctx context.Context, n int) ([]RegionHits, error) {
	if !s.Enabled() {
		return nil, ErrNoDB
	}
	if n <= 0 {
		n = 10
	}
	rows, err := s.db.QueryContext(ctx, `SELECT region_id, hits FROM _town_lookup_regions ORDER BY hits DESC, region_id LIMIT $1`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RegionHits
	for rows.Next() {
		var h RegionHits
		if err := rows.Scan(&h.RegionID, &h.Hits); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
