package revgeo

import (
	"math"

	"github.com/paulmach/orb"
)

// 文档注释：行政区质心 KD-Tree
// 背景：点落在所有边界之外（近海、边界缝隙）时，为 404 响应提供“最近的已知乡镇”提示；不作为命中结果。
// 约束：经度/纬度交替分割；仅支持最近一个点查询。
type kdNode struct {
	c   orb.Point
	idx int
	ax  int // 0:lon,1:lat
	l   *kdNode
	r   *kdNode
}

type kdItem struct {
	c   orb.Point
	idx int
}

func buildKD(items []kdItem, depth int) *kdNode {
	if len(items) == 0 {
		return nil
	}
	ax := depth % 2
	mid := len(items) / 2
	selectNth(items, mid, ax)
	node := &kdNode{c: items[mid].c, idx: items[mid].idx, ax: ax}
	node.l = buildKD(items[:mid], depth+1)
	node.r = buildKD(items[mid+1:], depth+1)
	return node
}

// 原地第 n 小元素选择
func selectNth(a []kdItem, n int, ax int) {
	lo, hi := 0, len(a)-1
	for lo < hi {
		p := partition(a, lo, hi, (lo+hi)/2, ax)
		if p == n {
			return
		}
		if n < p {
			hi = p - 1
		} else {
			lo = p + 1
		}
	}
}

func partition(a []kdItem, lo, hi, pivot, ax int) int {
	pv := a[pivot].c[ax]
	a[pivot], a[hi] = a[hi], a[pivot]
	i := lo
	for j := lo; j < hi; j++ {
		if a[j].c[ax] < pv {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[hi] = a[hi], a[i]
	return i
}

// nearest：返回最近质心所属行政区下标与距离（千米）；空树返回 -1
func nearest(node *kdNode, pt orb.Point) (int, float64) {
	best := -1
	bestD := math.MaxFloat64
	var dfs func(n *kdNode)
	dfs = func(n *kdNode) {
		if n == nil {
			return
		}
		if d := haversine(pt, n.c); d < bestD {
			bestD = d
			best = n.idx
		}
		key, q := pt[n.ax], n.c[n.ax]
		first, second := n.l, n.r
		if key > q {
			first, second = n.r, n.l
		}
		dfs(first)
		// 分割面距离小于当前最优距离时才需要检查另一侧；经度方向按纬度余弦缩放
		kmPerDeg := 111.0
		if n.ax == 0 {
			kmPerDeg *= math.Cos(pt[1] * math.Pi / 180)
		}
		if math.Abs(key-q)*kmPerDeg < bestD {
			dfs(second)
		}
	}
	dfs(node)
	return best, bestD
}

// 球面距离（Haversine），返回千米
func haversine(a, b orb.Point) float64 {
	const R = 6371.0
	lat1 := a[1] * math.Pi / 180
	lat2 := b[1] * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b[0] - a[0]) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return R * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
