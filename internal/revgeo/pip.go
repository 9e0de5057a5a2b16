package revgeo

import "github.com/paulmach/orb"

// 文档注释：点入多边形判定（Even-Odd）
// 背景：外环命中且不在任一洞内视为命中；支持多面与洞。
// 约束：经纬度按平面坐标处理，不做大地修正；点恰在边上时结果由浮点比较决定，不作保证。
func pointInPoly(pt orb.Point, poly orb.Polygon) bool {
	if len(poly) == 0 {
		return false
	}
	if !pointInRing(pt, poly[0]) {
		return false
	}
	for i := 1; i < len(poly); i++ {
		if pointInRing(pt, poly[i]) {
			return false
		}
	}
	return true
}

// 射线法：自点向 +经度方向发射射线，统计跨越的边数
func pointInRing(pt orb.Point, ring orb.Ring) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	x, y := pt[0], pt[1]
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

func boundOf(poly orb.Polygon) orb.Bound {
	if len(poly) == 0 {
		return orb.Bound{}
	}
	return poly[0].Bound()
}
