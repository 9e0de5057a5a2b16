package revgeo

import (
	"townmap/internal/logger"
	"townmap/internal/metrics"
	"townmap/internal/topo"

	"github.com/paulmach/orb"
)

// indexEntry：按数据集枚举顺序排列的 (面, 行政区) 对，查询时线性扫描
type indexEntry struct {
	poly   Polygon
	region int
}

type snapshot struct {
	regions []Region
	index   []indexEntry
	kd      *kdNode
	proj    topo.Projection
	stats   Stats
}

// 文档注释：解码并按县市+乡镇分组
// 背景：一次性完成全部几何解码，派生路径、质心与包围盒；同组多几何的路径以空格拼接，质心取各几何质心的均值。
// 约束：缺少名称或无可解码面的几何跳过并计数，不中断整体构建；分组顺序为首次出现顺序。
func buildSnapshot(t *topo.Topology, geoms []topo.Geometry, proj topo.Projection) *snapshot {
	s := &snapshot{proj: proj}
	s.stats.Geometries = len(geoms)
	byKey := map[string]int{}
	centroids := map[int][]orb.Point{}
	for gi, g := range geoms {
		if !g.Properties.Valid() {
			s.stats.Skipped++
			logger.L().Debug("region_geometry_skip", "idx", gi, "reason", "missing_properties")
			continue
		}
		mp := topo.GeometryPolygons(t, g)
		if len(mp) == 0 {
			s.stats.Skipped++
			logger.L().Debug("region_geometry_skip", "idx", gi, "reason", "empty_geometry", "type", g.Type)
			continue
		}
		id := regionID(g.Properties.CountyName, g.Properties.TownName)
		ri, ok := byKey[id]
		if !ok {
			ri = len(s.regions)
			byKey[id] = ri
			s.regions = append(s.regions, Region{
				ID:     id,
				County: g.Properties.CountyName,
				Town:   g.Properties.TownName,
				Name:   g.Properties.CountyName + g.Properties.TownName,
			})
		}
		r := &s.regions[ri]
		if p := topo.PathOf(mp, proj); p != "" {
			if r.Path != "" {
				r.Path += " "
			}
			r.Path += p
		}
		centroids[ri] = append(centroids[ri], topo.CentroidOf(mp))
		for _, poly := range mp {
			pp := Polygon{Rings: poly, BBox: boundOf(poly)}
			if len(r.Polys) == 0 {
				r.BBox = pp.BBox
			} else {
				r.BBox = r.BBox.Union(pp.BBox)
			}
			r.Polys = append(r.Polys, pp)
			s.index = append(s.index, indexEntry{poly: pp, region: ri})
		}
	}
	items := make([]kdItem, 0, len(s.regions))
	for i := range s.regions {
		s.regions[i].Centroid = meanPoint(centroids[i])
		items = append(items, kdItem{c: s.regions[i].Centroid, idx: i})
	}
	s.kd = buildKD(items, 0)
	s.stats.Regions = len(s.regions)
	s.stats.Polygons = len(s.index)
	metrics.RegionsLoaded.Set(float64(s.stats.Regions))
	metrics.GeometriesSkippedTotal.Add(float64(s.stats.Skipped))
	return s
}

func meanPoint(ps []orb.Point) orb.Point {
	if len(ps) == 0 {
		return topo.DefaultCentroid
	}
	var sx, sy float64
	for _, p := range ps {
		sx += p[0]
		sy += p[1]
	}
	return orb.Point{sx / float64(len(ps)), sy / float64(len(ps))}
}
