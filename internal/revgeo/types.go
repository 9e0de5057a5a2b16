package revgeo

import (
	"github.com/paulmach/orb"
)

// 文档注释：乡镇行政区（派生、只读）
// 背景：同一县市+乡镇可能由多个不相连的几何组成（离岛），按组合键合并为一个逻辑行政区。
// 约束：ID 为 "县市/乡镇"，仅乡镇名在不同县市间会重名；Polys 按数据集枚举顺序排列，第一环为外环，其余为洞。
type Region struct {
	ID       string    `json:"id"`
	County   string    `json:"county"`
	Town     string    `json:"town"`
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Centroid orb.Point `json:"centroid"`
	BBox     orb.Bound `json:"-"`
	Polys    []Polygon `json:"-"`
}

// Polygon：带包围盒的单面，用于快速过滤
type Polygon struct {
	Rings orb.Polygon
	BBox  orb.Bound
}

// Match：坐标命中的行政区
type Match struct {
	ID     string `json:"id"`
	County string `json:"county"`
	Town   string `json:"town"`
	Name   string `json:"name"`
}

// 文档注释：列表视图
// 背景：地图渲染层绘制全部乡镇轮廓，附带叠加值（如降雨机率）与“当前所在区”标记。
// 约束：Overlay 为空表示无数据，与 0 区分。
type RegionView struct {
	ID       string    `json:"id"`
	County   string    `json:"county"`
	Town     string    `json:"town"`
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Centroid orb.Point `json:"centroid"`
	Overlay  *float64  `json:"overlay,omitempty"`
	Current  bool      `json:"current"`
}

// Stats：构建阶段统计
type Stats struct {
	Geometries int `json:"geometries"`
	Skipped    int `json:"skipped"`
	Regions    int `json:"regions"`
	Polygons   int `json:"polygons"`
}

func (r *Region) match() Match {
	return Match{ID: r.ID, County: r.County, Town: r.Town, Name: r.Name}
}

func regionID(county, town string) string { return county + "/" + town }
