package revgeo

import (
	"strings"
	"sync"
	"testing"
	"time"

	"townmap/internal/topo"

	"github.com/paulmach/orb"
)

// arc0：外框 (0,0)-(10,10)；arc1：洞 (4,4)-(6,6)；arc2：右侧离岛 (20,0)-(22,2)；arc3：相邻县另一个正方形
const fixtureTopo = `{
  "type": "Topology",
  "transform": {"scale": [1, 1], "translate": [0, 0]},
  "arcs": [
    [[0, 0], [0, 10], [10, 0], [0, -10], [-10, 0]],
    [[4, 4], [0, 2], [2, 0], [0, -2], [-2, 0]],
    [[20, 0], [0, 2], [2, 0], [0, -2], [-2, 0]],
    [[30, 0], [0, 5], [5, 0], [0, -5], [-5, 0]]
  ],
  "objects": {
    "layer1": {
      "type": "GeometryCollection",
      "geometries": [
        {"type": "Polygon", "arcs": [[0], [1]], "properties": {"countyName": "臺北市", "townName": "中正區"}},
        {"type": "Polygon", "arcs": [[2]], "properties": {"countyName": "臺北市", "townName": "中正區"}},
        {"type": "Polygon", "arcs": [[3]], "properties": {"countyName": "基隆市", "townName": "中正區"}},
        {"type": "Polygon", "arcs": [[3]], "properties": {"countyName": "基隆市"}},
        {"type": null, "properties": {"countyName": "新竹市", "townName": "東區"}}
      ]
    }
  }
}`

const squareTopo = `{
  "type": "Topology",
  "arcs": [[[0, 0], [0, 10], [10, 10], [10, 0], [0, 0]]],
  "objects": {"layer1": {"type": "GeometryCollection", "geometries": [
    {"type": "Polygon", "arcs": [[0]], "properties": {"countyName": "測試縣", "townName": "方形鄉"}}
  ]}}
}`

func newLocator(t *testing.T, src string, opts Options) *Locator {
	t.Helper()
	tp, err := topo.Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("topo.Load() error = %v", err)
	}
	l := NewLocator(tp, opts)
	if err := l.Build(); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return l
}

func TestPointInRing_Rectangle(t *testing.T) {
	t.Parallel()
	ring := orb.Ring{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}}
	tests := []struct {
		name string
		pt   orb.Point
		want bool
	}{
		{"center", orb.Point{5, 5}, true},
		{"near corner inside", orb.Point{0.01, 9.99}, true},
		{"left", orb.Point{-1, 5}, false},
		{"above", orb.Point{5, 11}, false},
		{"far", orb.Point{100, 100}, false},
	}
	for _, tt := range tests {
		if got := pointInRing(tt.pt, ring); got != tt.want {
			t.Errorf("%s: pointInRing(%v) = %v, want %v", tt.name, tt.pt, got, tt.want)
		}
	}
	if pointInRing(orb.Point{0, 0}, orb.Ring{{0, 0}, {1, 1}}) {
		t.Error("degenerate ring should never contain")
	}
}

func TestPointInPoly_HoleSubtraction(t *testing.T) {
	t.Parallel()
	poly := orb.Polygon{
		{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}},
		{{4, 4}, {4, 6}, {6, 6}, {6, 4}, {4, 4}},
	}
	if !pointInPoly(orb.Point{2, 2}, poly) {
		t.Error("point in outer ring outside hole should be contained")
	}
	if pointInPoly(orb.Point{5, 5}, poly) {
		t.Error("point inside hole should not be contained")
	}
	if pointInPoly(orb.Point{1, 1}, nil) {
		t.Error("empty polygon should not contain")
	}
}

func TestFindRegion_Square(t *testing.T) {
	t.Parallel()
	l := newLocator(t, squareTopo, Options{})
	m, ok := l.FindRegion(5, 5)
	if !ok {
		t.Fatal("FindRegion(5,5) not found")
	}
	if m.County != "測試縣" || m.Town != "方形鄉" || m.ID != "測試縣/方形鄉" {
		t.Errorf("FindRegion(5,5) = %+v", m)
	}
	if _, ok := l.FindRegion(15, 15); ok {
		t.Error("FindRegion(15,15) should be not found")
	}
}

func TestFindRegion_HolesIslandsAndCollisions(t *testing.T) {
	t.Parallel()
	l := newLocator(t, fixtureTopo, Options{CacheSize: 16})
	tests := []struct {
		name   string
		lon    float64
		lat    float64
		wantID string
		found  bool
	}{
		{"main body", 1, 1, "臺北市/中正區", true},
		{"inside hole", 5, 5, "", false},
		{"island part", 21, 1, "臺北市/中正區", true},
		{"same town name other county", 32, 2, "基隆市/中正區", true},
		{"ocean", 15, 5, "", false},
	}
	for _, tt := range tests {
		for pass := 0; pass < 2; pass++ { // 第二次走缓存
			m, ok := l.FindRegion(tt.lon, tt.lat)
			if ok != tt.found || m.ID != tt.wantID {
				t.Errorf("%s pass %d: FindRegion() = (%+v, %v), want (%q, %v)", tt.name, pass, m, ok, tt.wantID, tt.found)
			}
		}
	}
	if l.cache.Len() != len(tests) {
		t.Errorf("cache len = %d, want %d", l.cache.Len(), len(tests))
	}
}

func TestBuild_GroupsAndSkips(t *testing.T) {
	t.Parallel()
	l := newLocator(t, fixtureTopo, Options{})
	st := l.Stats()
	if st.Geometries != 5 || st.Skipped != 2 || st.Regions != 2 || st.Polygons != 3 {
		t.Errorf("Stats() = %+v", st)
	}
	regions := l.Regions()
	if regions[0].ID != "臺北市/中正區" || regions[1].ID != "基隆市/中正區" {
		t.Fatalf("region order = %q, %q", regions[0].ID, regions[1].ID)
	}
	main := regions[0]
	if len(main.Polys) != 2 {
		t.Errorf("main region polys = %d, want 2", len(main.Polys))
	}
	if strings.Count(main.Path, "M ") != 3 {
		t.Errorf("main path should hold outer, hole and island rings: %q", main.Path)
	}
	// 各几何质心：外框+洞 = 顶点均值 (4.4, 4.4)；离岛 = (20.8, 0.8)；两者再取均值
	want := orb.Point{12.6, 2.6}
	if dx, dy := main.Centroid[0]-want[0], main.Centroid[1]-want[1]; dx*dx+dy*dy > 1e-12 {
		t.Errorf("centroid = %v, want %v", main.Centroid, want)
	}
}

func TestListRegions_DeterministicWithOverlay(t *testing.T) {
	t.Parallel()
	l := newLocator(t, fixtureTopo, Options{})
	overlay := map[string]float64{"基隆市中正區": 70, "中正區": 10}

	a := l.ListRegions("台北市 中正區", overlay)
	b := l.ListRegions("台北市 中正區", overlay)
	if len(a) != 2 || len(b) != 2 {
		t.Fatalf("ListRegions() len = %d/%d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || !a[i].Centroid.Equal(b[i].Centroid) {
			t.Errorf("region %d differs between calls: %+v vs %+v", i, a[i], b[i])
		}
	}
	if !a[0].Current || a[1].Current {
		t.Errorf("current flags = %v, %v; want true, false", a[0].Current, a[1].Current)
	}
	if a[0].Overlay == nil || *a[0].Overlay != 10 {
		t.Errorf("taipei overlay = %v, want town fallback 10", a[0].Overlay)
	}
	if a[1].Overlay == nil || *a[1].Overlay != 70 {
		t.Errorf("keelung overlay = %v, want 70", a[1].Overlay)
	}

	none := l.ListRegions("", nil)
	for _, v := range none {
		if v.Current || v.Overlay != nil {
			t.Errorf("ListRegions(\"\", nil) = %+v", v)
		}
	}
}

func TestNameMatches(t *testing.T) {
	t.Parallel()
	r := Region{County: "臺北市", Town: "中正區"}
	tests := []struct {
		ref  string
		want bool
	}{
		{"臺北市中正區", true},
		{"台北市中正區", true},
		{" 台北市　中正區 ", true},
		{"中正區", true},
		{"臺北市", false},
		{"基隆市中正區", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := NameMatches(tt.ref, r); got != tt.want {
			t.Errorf("NameMatches(%q) = %v, want %v", tt.ref, got, tt.want)
		}
	}
	if NormalizeName("ＡＢＣ") != "abc" {
		t.Errorf("NormalizeName fullwidth = %q", NormalizeName("ＡＢＣ"))
	}
}

func TestNearest(t *testing.T) {
	t.Parallel()
	l := newLocator(t, fixtureTopo, Options{})
	m, d, ok := l.Nearest(31, 3, 0)
	if !ok || m.ID != "基隆市/中正區" {
		t.Errorf("Nearest() = (%+v, %v, %v)", m, d, ok)
	}
	if _, _, ok := l.Nearest(31, 3, 1); ok {
		t.Error("Nearest() beyond maxKm should be false")
	}
}

func TestLocator_MissingLayerDegrades(t *testing.T) {
	t.Parallel()
	tp, err := topo.Load(strings.NewReader(`{"type":"Topology","arcs":[],"objects":{"a":{},"b":{}}}`))
	if err != nil {
		t.Fatal(err)
	}
	l := NewLocator(tp, Options{})
	if err := l.Build(); err == nil {
		t.Error("Build() should report missing layer")
	}
	if _, ok := l.FindRegion(1, 1); ok {
		t.Error("FindRegion on empty locator should be not found")
	}
	if got := l.ListRegions("x", nil); len(got) != 0 {
		t.Errorf("ListRegions() = %v, want empty", got)
	}
}

func TestLocator_ConcurrentFirstUse(t *testing.T) {
	t.Parallel()
	tp, err := topo.Load(strings.NewReader(squareTopo))
	if err != nil {
		t.Fatal(err)
	}
	l := NewLocator(tp, Options{CacheSize: 8})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := l.FindRegion(5, 5); !ok {
				t.Error("FindRegion(5,5) not found")
			}
		}()
	}
	wg.Wait()
	if l.Stats().Regions != 1 {
		t.Errorf("regions = %d, want 1", l.Stats().Regions)
	}
}

func TestLRU_EvictAndExpire(t *testing.T) {
	t.Parallel()
	c := NewLRU(2, time.Hour)
	c.Set("a", lookup{found: true})
	c.Set("b", lookup{})
	c.Set("c", lookup{})
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should be evicted")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}

	short := NewLRU(2, time.Nanosecond)
	short.Set("a", lookup{found: true})
	time.Sleep(time.Millisecond)
	if _, ok := short.Get("a"); ok {
		t.Error("expired entry should miss")
	}

	var disabled *LRU
	disabled.Set("a", lookup{})
	if _, ok := disabled.Get("a"); ok {
		t.Error("nil cache should always miss")
	}
}

func TestGeohash(t *testing.T) {
	t.Parallel()
	// 参考值：(lat 57.64911, lon 10.40744) → u4pruydqqvj
	if got := geohash(orb.Point{10.40744, 57.64911}, 11); got != "u4pruydqqvj" {
		t.Errorf("geohash() = %q", got)
	}
	if a, b := geohash(orb.Point{121.5, 25.0}, 9), geohash(orb.Point{121.6, 25.0}, 9); a == b {
		t.Error("distinct points share a precision-9 cell")
	}
}

func TestLocator_CachedAndRemember(t *testing.T) {
	t.Parallel()
	l := newLocator(t, squareTopo, Options{CacheSize: 4})
	if _, _, hit := l.Cached(5, 5); hit {
		t.Fatal("cold cache should miss")
	}
	l.Remember(50, 50, Match{ID: "remote/hit"}, true)
	if m, found, hit := l.Cached(50, 50); !hit || !found || m.ID != "remote/hit" {
		t.Errorf("Cached() after Remember = (%+v, %v, %v)", m, found, hit)
	}
	if m, ok := l.FindRegion(50, 50); !ok || m.ID != "remote/hit" {
		t.Errorf("FindRegion() should be served from cache, got (%+v, %v)", m, ok)
	}
	if l.CellKey(5, 5) == l.CellKey(50, 50) {
		t.Error("distinct points share a cell key")
	}
}

func TestFindRegion_CacheDoesNotLeakAcrossCell(t *testing.T) {
	t.Parallel()
	l := newLocator(t, squareTopo, Options{CacheSize: 16})
	outside, inside := 10.000001, 9.999999
	if l.CellKey(outside, 5) != l.CellKey(inside, 5) {
		t.Fatalf("fixture points should share a geohash cell: %s vs %s", l.CellKey(outside, 5), l.CellKey(inside, 5))
	}
	if _, ok := l.FindRegion(outside, 5); ok {
		t.Fatal("point right of the square should miss")
	}
	m, ok := l.FindRegion(inside, 5)
	if !ok || m.ID != "測試縣/方形鄉" {
		t.Errorf("FindRegion(inside) after cached miss = (%+v, %v), want 測試縣/方形鄉", m, ok)
	}
	if _, ok := l.FindRegion(outside, 5); ok {
		t.Error("cached hit leaked to the outside point")
	}
}

func TestCacheKey(t *testing.T) {
	t.Parallel()
	if got := CacheKey(121.5, 25.04); got != "121.5,25.04" {
		t.Errorf("CacheKey() = %q", got)
	}
	if CacheKey(10.000001, 5) == CacheKey(9.999999, 5) {
		t.Error("distinct coordinates share a cache key")
	}
}

func TestFeatureCollection(t *testing.T) {
	t.Parallel()
	l := newLocator(t, fixtureTopo, Options{})
	fc := FeatureCollection(l.Regions())
	if len(fc.Features) != 2 {
		t.Fatalf("features = %d, want 2", len(fc.Features))
	}
	f := fc.Features[0]
	mp, ok := f.Geometry.(orb.MultiPolygon)
	if !ok || len(mp) != 2 || len(mp[0]) != 2 {
		t.Errorf("geometry = %T %v", f.Geometry, f.Geometry)
	}
	if f.Properties.MustString("id") != "臺北市/中正區" {
		t.Errorf("id property = %v", f.Properties["id"])
	}
	if _, err := fc.MarshalJSON(); err != nil {
		t.Errorf("MarshalJSON() error = %v", err)
	}
}
