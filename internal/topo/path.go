package topo

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// 文档注释：线性显示投影
// 背景：地图在固定宽高的平面画布上绘制，经纬度按数据集包围盒线性映射；纬度向上增大而屏幕 y 向下增大，需翻转。
// 约束：平面近似，不做墨卡托或大地修正；包围盒某一轴跨度为 0 时该轴投影为 0。
type Projection struct {
	Bound  orb.Bound
	Width  float64
	Height float64
}

func NewProjection(b orb.Bound, width, height float64) Projection {
	return Projection{Bound: b, Width: width, Height: height}
}

// Project：经纬度 → 显示坐标
func (p Projection) Project(pt orb.Point) (float64, float64) {
	var x, y float64
	if dx := p.Bound.Max[0] - p.Bound.Min[0]; dx != 0 {
		x = (pt[0] - p.Bound.Min[0]) / dx * p.Width
	}
	if dy := p.Bound.Max[1] - p.Bound.Min[1]; dy != 0 {
		y = (p.Bound.Max[1] - pt[1]) / dy * p.Height
	}
	return x, y
}

// GeometryToPath：几何 → "M x y L x y … Z" 路径，多环以空格连接；空几何返回空串
func GeometryToPath(t *Topology, g Geometry, proj Projection) string {
	return PathOf(GeometryPolygons(t, g), proj)
}

// PathOf：对已还原的多面生成显示路径
func PathOf(mp orb.MultiPolygon, proj Projection) string {
	var sb strings.Builder
	for _, poly := range mp {
		for _, ring := range poly {
			if len(ring) == 0 {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			for i, pt := range ring {
				if i == 0 {
					sb.WriteString("M ")
				} else {
					sb.WriteString(" L ")
				}
				x, y := proj.Project(pt)
				sb.WriteString(fmtCoord(x))
				sb.WriteByte(' ')
				sb.WriteString(fmtCoord(y))
			}
			sb.WriteString(" Z")
		}
	}
	return sb.String()
}

func fmtCoord(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// 文档注释：几何质心（顶点算术平均）
// 背景：仅用于标签定位；按所有环所有顶点取均值，非面积加权，下游标签位置依赖该近似，不要改为面积质心。
// 约束：几何为空时返回 DefaultCentroid。
func GeometryCentroid(t *Topology, g Geometry) orb.Point {
	return CentroidOf(GeometryPolygons(t, g))
}

// CentroidOf：对已还原的多面取顶点均值
func CentroidOf(mp orb.MultiPolygon) orb.Point {
	var sx, sy float64
	n := 0
	for _, poly := range mp {
		for _, ring := range poly {
			for _, pt := range ring {
				sx += pt[0]
				sy += pt[1]
				n++
			}
		}
	}
	if n == 0 {
		return DefaultCentroid
	}
	return orb.Point{sx / float64(n), sy / float64(n)}
}
