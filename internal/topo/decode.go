package topo

import (
	"fmt"

	"github.com/paulmach/orb"
)

// 文档注释：解码单条弧段
// 背景：量化弧段为差分编码，从 (0,0) 累加 dx/dy 后套用 translate + scale 还原经纬度。
// 约束：arcIndex 必须为非负有效下标；负下标（反向引用）由 ArcPoints 处理。
// 返回：与弧段条目数等长的点序列。
func DecodeArc(t *Topology, arcIndex int) ([]orb.Point, error) {
	if arcIndex < 0 || arcIndex >= len(t.Arcs) {
		return nil, fmt.Errorf("%w: %d (arcs=%d)", ErrArcIndex, arcIndex, len(t.Arcs))
	}
	arc := t.Arcs[arcIndex]
	out := make([]orb.Point, len(arc))
	if t.Transform == nil {
		for i, p := range arc {
			out[i] = orb.Point{p[0], p[1]}
		}
		return out, nil
	}
	sx, sy := t.Transform.Scale[0], t.Transform.Scale[1]
	tx, ty := t.Transform.Translate[0], t.Transform.Translate[1]
	var x, y float64
	for i, d := range arc {
		x += d[0]
		y += d[1]
		out[i] = orb.Point{tx + sx*x, ty + sy*y}
	}
	return out, nil
}

// ArcPoints：支持带符号引用，负值按 ~i 取弧段并反转
func ArcPoints(t *Topology, ref int) ([]orb.Point, error) {
	if ref >= 0 {
		return DecodeArc(t, ref)
	}
	pts, err := DecodeArc(t, ^ref)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
	return pts, nil
}

// 文档注释：拼接闭合环
// 背景：相邻弧段共享端点，拼接时去掉前一段的末点再追加下一段，避免重复顶点。
// 约束：结果首尾不重合时补上首点，保证环闭合；任一弧段引用非法即返回错误。
func ResolveRing(t *Topology, refs []int) (orb.Ring, error) {
	var ring orb.Ring
	for _, ref := range refs {
		pts, err := ArcPoints(t, ref)
		if err != nil {
			return nil, err
		}
		if len(ring) > 0 {
			ring = ring[:len(ring)-1]
		}
		ring = append(ring, pts...)
	}
	if len(ring) > 0 && !ring[0].Equal(ring[len(ring)-1]) {
		ring = append(ring, ring[0])
	}
	return ring, nil
}

// 文档注释：几何还原为多面
// 背景：Polygon 视为单面；MultiPolygon 逐面还原（岛屿等不相连部分）。
// 约束：类型未知或无弧段时返回空；非法环被跳过，外环非法时整个面被跳过（洞的归属无从判断）。
func GeometryPolygons(t *Topology, g Geometry) orb.MultiPolygon {
	var mp orb.MultiPolygon
	for _, part := range g.Parts() {
		var poly orb.Polygon
		for i, refs := range part {
			ring, err := ResolveRing(t, refs)
			if err != nil || len(ring) == 0 {
				if i == 0 {
					break
				}
				continue
			}
			poly = append(poly, ring)
		}
		if len(poly) > 0 {
			mp = append(mp, poly)
		}
	}
	return mp
}
