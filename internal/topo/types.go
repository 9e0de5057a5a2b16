// 包 topo：TopoJSON 行政区拓扑的解码层，将共享弧段还原为经纬度环、显示路径与质心
package topo

import (
	"encoding/json"
	"errors"

	"github.com/paulmach/orb"
)

var (
	ErrArcIndex = errors.New("topo: arc index out of range")
	ErrNoLayer  = errors.New("topo: layer not found")
)

// DefaultCentroid：几何为空时的兜底质心（台湾本岛中心附近），仅用于标签定位
var DefaultCentroid = orb.Point{120.9605, 23.6978}

// 文档注释：量化变换
// 背景：TopoJSON 将坐标量化为整数并差分编码，还原公式为 translate + scale*(x,y)。
// 约束：缺省时弧段为绝对坐标，不做差分累加。
type Transform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

// 文档注释：拓扑数据（只读）
// 背景：启动时加载一次，之后不再修改；多个请求协程可并发读取。
// 约束：Arcs 每项保留原始编码值（有 Transform 时为差分整数，否则为绝对经纬度）。
type Topology struct {
	Type      string            `json:"type"`
	BBox      []float64         `json:"bbox,omitempty"`
	Transform *Transform        `json:"transform,omitempty"`
	Arcs      [][][2]float64    `json:"-"`
	Objects   map[string]Object `json:"objects"`
}

type Object struct {
	Type       string     `json:"type"`
	Geometries []Geometry `json:"geometries"`
}

// Geometry：单个几何对象；Arcs 按类型延迟解析（Polygon 为 [][]int，MultiPolygon 为 [][][]int）
type Geometry struct {
	Type       string          `json:"type"`
	Arcs       json.RawMessage `json:"arcs,omitempty"`
	Properties Properties      `json:"properties"`
}

// 文档注释：几何属性
// 背景：上游数据字段命名不统一（countyName/COUNTYNAME），在加载边界统一为显式结构，避免使用处反复判断。
type Properties struct {
	CountyName string `json:"countyName"`
	TownName   string `json:"townName"`
	TownID     string `json:"townId,omitempty"`
}

func (p *Properties) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.CountyName = firstStr(raw, "countyName", "COUNTYNAME", "county")
	p.TownName = firstStr(raw, "townName", "TOWNNAME", "town")
	p.TownID = firstStr(raw, "townId", "TOWNID", "TOWNCODE")
	return nil
}

// Valid：县市与乡镇名称均存在
func (p Properties) Valid() bool { return p.CountyName != "" && p.TownName != "" }

func firstStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Parts：返回多面结构下每个面的环引用列表；类型未知或解析失败时返回 nil
func (g Geometry) Parts() [][][]int {
	if len(g.Arcs) == 0 {
		return nil
	}
	switch g.Type {
	case "Polygon":
		var rings [][]int
		if err := json.Unmarshal(g.Arcs, &rings); err != nil || len(rings) == 0 {
			return nil
		}
		return [][][]int{rings}
	case "MultiPolygon":
		var parts [][][]int
		if err := json.Unmarshal(g.Arcs, &parts); err != nil {
			return nil
		}
		return parts
	}
	return nil
}
