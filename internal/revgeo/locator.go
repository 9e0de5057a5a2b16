package revgeo

import (
	"strconv"
	"sync"
	"time"

	"townmap/internal/logger"
	"townmap/internal/metrics"
	"townmap/internal/topo"

	"github.com/paulmach/orb"
)

// Options：定位器参数；零值字段使用默认值
type Options struct {
	Layer            string
	Width            float64
	Height           float64
	CacheSize        int
	CacheTTL         time.Duration
	GeohashPrecision int
}

func (o Options) withDefaults() Options {
	if o.Layer == "" {
		o.Layer = "layer1"
	}
	if o.Width <= 0 {
		o.Width = 100
	}
	if o.Height <= 0 {
		o.Height = 100
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = time.Hour
	}
	if o.GeohashPrecision <= 0 {
		o.GeohashPrecision = 9
	}
	return o
}

// 文档注释：乡镇定位器
// 背景：首次使用时解码拓扑并分组（sync.Once），之后数据只读，多协程并发查询无需加锁；命中结果写入本地 LRU。
// 约束：线性扫描全部面（数百个乡镇量级），不建空间索引；数据规模显著增长时应在相同接口后替换为网格或 R-Tree。
type Locator struct {
	topo  *topo.Topology
	opts  Options
	cache *LRU

	once sync.Once
	snap *snapshot
	err  error
}

func NewLocator(t *topo.Topology, opts Options) *Locator {
	opts = opts.withDefaults()
	return &Locator{topo: t, opts: opts, cache: NewLRU(opts.CacheSize, opts.CacheTTL)}
}

// 文档注释：构建行政区快照（仅执行一次）
// 返回：图层缺失等结构性错误；此时定位器退化为空数据集（查询均未命中），不会 panic。
func (l *Locator) Build() error {
	l.once.Do(func() {
		t0 := time.Now()
		var geoms []topo.Geometry
		var b orb.Bound
		if l.topo != nil {
			geoms, l.err = l.topo.Layer(l.opts.Layer)
			b = l.topo.Bound()
		}
		if l.err != nil {
			logger.L().Error("region_build_error", "layer", l.opts.Layer, "err", l.err)
		}
		proj := topo.NewProjection(b, l.opts.Width, l.opts.Height)
		l.snap = buildSnapshot(l.topo, geoms, proj)
		logger.L().Info("region_build_done",
			"regions", l.snap.stats.Regions,
			"polygons", l.snap.stats.Polygons,
			"skipped", l.snap.stats.Skipped,
			"ms", time.Since(t0).Milliseconds(),
		)
	})
	return l.err
}

func (l *Locator) snapshot() *snapshot {
	_ = l.Build()
	return l.snap
}

// 文档注释：坐标所在乡镇
// 背景：按数据集枚举顺序扫描，包围盒预过滤后做外环命中与洞排除；首个命中者胜出（合法行政区划不应重叠）。
// 返回：found=false 表示点在已知边界之外（海上或覆盖范围外），属于正常分支而非错误。
func (l *Locator) FindRegion(lon, lat float64) (Match, bool) {
	if m, found, hit := l.Cached(lon, lat); hit {
		return m, found
	}
	return l.Resolve(lon, lat)
}

// Resolve：跳过缓存读取直接计算，结果写入本地缓存
func (l *Locator) Resolve(lon, lat float64) (Match, bool) {
	m, found := l.locate(orb.Point{lon, lat})
	l.Remember(lon, lat, m, found)
	if !found {
		logger.L().Debug("reverse_geo_miss", "lon", lon, "lat", lat)
	}
	return m, found
}

func (l *Locator) locate(pt orb.Point) (Match, bool) {
	s := l.snapshot()
	for _, e := range s.index {
		if !e.poly.BBox.Contains(pt) {
			continue
		}
		if pointInPoly(pt, e.poly.Rings) {
			return s.regions[e.region].match(), true
		}
	}
	return Match{}, false
}

// CellKey：坐标所在 geohash 格，仅用于统计去重；不同坐标可能同格，不能作为结果缓存键
func (l *Locator) CellKey(lon, lat float64) string {
	return geohash(orb.Point{lon, lat}, l.opts.GeohashPrecision)
}

// 文档注释：结果缓存键（精确坐标）
// 背景：同一格内的两点可能分属不同乡镇或一内一外，按格缓存会让结果依赖查询先后。
// 约束：浮点最短往返表示，本地 LRU 与 Redis 共享缓存使用同一键。
func CacheKey(lon, lat float64) string {
	return strconv.FormatFloat(lon, 'g', -1, 64) + "," + strconv.FormatFloat(lat, 'g', -1, 64)
}

// Cached：仅查本地缓存；hit=false 时 m/found 无意义
func (l *Locator) Cached(lon, lat float64) (m Match, found, hit bool) {
	v, ok := l.cache.Get(CacheKey(lon, lat))
	if !ok {
		metrics.LocalCacheTotal.WithLabelValues("miss").Inc()
		return Match{}, false, false
	}
	metrics.LocalCacheTotal.WithLabelValues("hit").Inc()
	return v.m, v.found, true
}

// Remember：写入本地缓存（含未命中结果），供共享缓存命中后回填
func (l *Locator) Remember(lon, lat float64, m Match, found bool) {
	l.cache.Set(CacheKey(lon, lat), lookup{m: m, found: found})
}

// 文档注释：全部乡镇及叠加值
// 背景：叠加值按 ID → 县市+乡镇 → 乡镇名 依次查找，兼容按不同键组织的上游数据；reference 为空时不标记当前区。
// 返回：与构建顺序一致的新切片，调用方可自由修改。
func (l *Locator) ListRegions(reference string, overlay map[string]float64) []RegionView {
	s := l.snapshot()
	out := make([]RegionView, 0, len(s.regions))
	for i := range s.regions {
		r := &s.regions[i]
		v := RegionView{
			ID:       r.ID,
			County:   r.County,
			Town:     r.Town,
			Name:     r.Name,
			Path:     r.Path,
			Centroid: r.Centroid,
			Current:  reference != "" && NameMatches(reference, *r),
		}
		if val, ok := overlayValue(overlay, r); ok {
			v.Overlay = &val
		}
		out = append(out, v)
	}
	return out
}

func overlayValue(overlay map[string]float64, r *Region) (float64, bool) {
	if overlay == nil {
		return 0, false
	}
	for _, k := range []string{r.ID, r.Name, r.Town} {
		if v, ok := overlay[k]; ok {
			return v, true
		}
	}
	return 0, false
}

// 文档注释：最近乡镇（质心距离）
// 背景：仅作为未命中时的提示信息，不改变 FindRegion 的未命中语义。
// 约束：maxKm <= 0 表示不限距离；无数据时返回 false。
func (l *Locator) Nearest(lon, lat, maxKm float64) (Match, float64, bool) {
	s := l.snapshot()
	idx, d := nearest(s.kd, orb.Point{lon, lat})
	if idx < 0 || (maxKm > 0 && d > maxKm) {
		return Match{}, 0, false
	}
	return s.regions[idx].match(), d, true
}

// Regions：构建后的行政区（只读，调用方不得修改）
func (l *Locator) Regions() []Region { return l.snapshot().regions }

func (l *Locator) Stats() Stats { return l.snapshot().stats }

// Projection：与区域路径一致的显示投影，供事件标记换算显示坐标
func (l *Locator) Projection() topo.Projection { return l.snapshot().proj }
