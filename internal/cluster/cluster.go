package cluster

import (
	"math"
	"sort"
)

// 文档注释：标记聚合
// 背景：缩放较小时相邻标记互相遮挡，按显示半径贪心合并；种子按 (x, y, id) 排序选取，同一输入结果稳定。
// 约束：radius <= 0 或 NaN 时按输入顺序原样返回；不修改入参切片，调用之间无共享状态。
// 注意：贪心认领不保证落入簇的标记数随半径单调不减，例如 x=0,1,2,3 在 r=1 时全部成簇，r=2 时 x=3 落单。
// 返回：按形成顺序排列的标记与簇。
func Markers(markers []Marker, radius float64) []Item {
	out := make([]Item, 0, len(markers))
	if radius <= 0 || math.IsNaN(radius) || len(markers) < 2 {
		for i := range markers {
			m := markers[i]
			out = append(out, Item{Kind: KindMarker, Marker: &m})
		}
		return out
	}

	sorted := make([]Marker, len(markers))
	copy(sorted, markers)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Position, sorted[j].Position
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return sorted[i].ID < sorted[j].ID
	})

	claimed := make([]bool, len(sorted))
	r2 := radius * radius
	for i := range sorted {
		if claimed[i] {
			continue
		}
		seed := sorted[i].Position
		group := []int{i}
		for j := range sorted {
			if j == i || claimed[j] {
				continue
			}
			dx := sorted[j].Position.X - seed.X
			dy := sorted[j].Position.Y - seed.Y
			if dx*dx+dy*dy <= r2 {
				group = append(group, j)
			}
		}
		for _, k := range group {
			claimed[k] = true
		}
		if len(group) == 1 {
			m := sorted[i]
			out = append(out, Item{Kind: KindMarker, Marker: &m})
			continue
		}
		out = append(out, Item{Kind: KindCluster, Cluster: newCluster(sorted, group)})
	}
	return out
}

func newCluster(sorted []Marker, group []int) *Cluster {
	c := &Cluster{Members: make([]Marker, 0, len(group))}
	var sx, sy float64
	for _, k := range group {
		m := sorted[k]
		c.Members = append(c.Members, m)
		sx += m.Position.X
		sy += m.Position.Y
		if m.Severity > c.MaxSeverity {
			c.MaxSeverity = m.Severity
		}
		switch m.Category {
		case CategoryAccident:
			c.HasAccident = true
		case CategoryConstruction:
			c.HasConstruction = true
		}
	}
	n := float64(len(group))
	c.Count = len(group)
	c.Position = Position{X: sx / n, Y: sy / n}
	c.ID = "cluster:" + c.Members[0].ID
	return c
}

// RadiusForZoom：缩放倍数 → 聚合半径（百分比显示单位），放大时半径不增；zoom >= 3 不聚合
func RadiusForZoom(zoom float64) float64 {
	switch {
	case zoom >= 3:
		return 0
	case zoom >= 2:
		return 2
	case zoom >= 1.5:
		return 3.5
	case zoom >= 1:
		return 5
	}
	return 8
}

// ClusteredCount：落入簇中的标记数
func ClusteredCount(items []Item) int {
	n := 0
	for _, it := range items {
		if it.Cluster != nil {
			n += len(it.Cluster.Members)
		}
	}
	return n
}
