package topo

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

// 左右两个正方形共享 x=5 边界；arc0 为共享边，右侧以 ~0 反向引用
const sharedEdgeTopo = `{
  "type": "Topology",
  "transform": {"scale": [1, 1], "translate": [0, 0]},
  "arcs": [
    [[5, 0], [0, 10]],
    [[5, 10], [-5, 0], [0, -10], [5, 0]],
    [[5, 0], [5, 0], [0, 10], [-5, 0]]
  ],
  "objects": {
    "layer1": {
      "type": "GeometryCollection",
      "geometries": [
        {"type": "Polygon", "arcs": [[0, 1]], "properties": {"countyName": "臺北市", "townName": "中正區"}},
        {"type": "Polygon", "arcs": [[-1, 2]], "properties": {"COUNTYNAME": "臺北市", "TOWNNAME": "大安區", "TOWNID": "A05"}},
        {"type": null, "arcs": [], "properties": {"countyName": "臺北市", "townName": "空區"}}
      ]
    }
  }
}`

const scaledTopo = `{
  "type": "Topology",
  "transform": {"scale": [0.5, 0.25], "translate": [120, 22]},
  "arcs": [[[0, 0], [2, 0], [0, 4], [-2, 0], [0, -4]]],
  "objects": {"towns": {"type": "GeometryCollection", "geometries": [
    {"type": "MultiPolygon", "arcs": [[[0]]], "properties": {"countyName": "A", "townName": "B"}}
  ]}}
}`

func mustLoad(t *testing.T, s string) *Topology {
	t.Helper()
	topo, err := Load(strings.NewReader(s))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return topo
}

func TestDecodeArc_DeltaAndTransform(t *testing.T) {
	t.Parallel()
	topo := mustLoad(t, scaledTopo)
	pts, err := DecodeArc(topo, 0)
	if err != nil {
		t.Fatalf("DecodeArc() error = %v", err)
	}
	want := []orb.Point{{120, 22}, {121, 22}, {121, 23}, {120, 23}, {120, 22}}
	if len(pts) != len(want) {
		t.Fatalf("len = %d, want %d", len(pts), len(want))
	}
	for i := range want {
		if !pts[i].Equal(want[i]) {
			t.Errorf("pts[%d] = %v, want %v", i, pts[i], want[i])
		}
	}
}

func TestDecodeArc_OutOfRange(t *testing.T) {
	t.Parallel()
	topo := mustLoad(t, scaledTopo)
	for _, idx := range []int{-1, 1, 99} {
		if _, err := DecodeArc(topo, idx); !errors.Is(err, ErrArcIndex) {
			t.Errorf("DecodeArc(%d) error = %v, want ErrArcIndex", idx, err)
		}
	}
}

func TestArcPoints_ComplementIsReverse(t *testing.T) {
	t.Parallel()
	topo := mustLoad(t, sharedEdgeTopo)
	for i := range topo.Arcs {
		fwd, err := ArcPoints(topo, i)
		if err != nil {
			t.Fatal(err)
		}
		rev, err := ArcPoints(topo, ^i)
		if err != nil {
			t.Fatal(err)
		}
		if len(fwd) != len(rev) {
			t.Fatalf("arc %d: len %d vs %d", i, len(fwd), len(rev))
		}
		for k := range fwd {
			if !fwd[k].Equal(rev[len(rev)-1-k]) {
				t.Errorf("arc %d: fwd[%d]=%v rev[%d]=%v", i, k, fwd[k], len(rev)-1-k, rev[len(rev)-1-k])
			}
		}
	}
}

func TestResolveRing_SharedEdgeClosed(t *testing.T) {
	t.Parallel()
	topo := mustLoad(t, sharedEdgeTopo)
	tests := []struct {
		name string
		refs []int
		want orb.Ring
	}{
		{"left", []int{0, 1}, orb.Ring{{5, 0}, {5, 10}, {0, 10}, {0, 0}, {5, 0}}},
		{"right", []int{-1, 2}, orb.Ring{{5, 10}, {5, 0}, {10, 0}, {10, 10}, {5, 10}}},
		{"open arc gets closed", []int{0}, orb.Ring{{5, 0}, {5, 10}, {5, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ring, err := ResolveRing(topo, tt.refs)
			if err != nil {
				t.Fatalf("ResolveRing() error = %v", err)
			}
			if !ring[0].Equal(ring[len(ring)-1]) {
				t.Errorf("ring not closed: %v", ring)
			}
			if !ring.Equal(tt.want) {
				t.Errorf("ResolveRing() = %v, want %v", ring, tt.want)
			}
		})
	}
}

func TestGeometryPolygons_EmptyAndMulti(t *testing.T) {
	t.Parallel()
	topo := mustLoad(t, sharedEdgeTopo)
	geoms, err := topo.Layer("layer1")
	if err != nil {
		t.Fatal(err)
	}
	if mp := GeometryPolygons(topo, geoms[2]); len(mp) != 0 {
		t.Errorf("null geometry decoded to %d polygons", len(mp))
	}
	bad := Geometry{Type: "Polygon", Arcs: []byte(`[[7]]`)}
	if mp := GeometryPolygons(topo, bad); len(mp) != 0 {
		t.Errorf("bad arc ref decoded to %d polygons", len(mp))
	}

	scaled := mustLoad(t, scaledTopo)
	sg, err := scaled.Layer("layer1")
	if err != nil {
		t.Fatalf("Layer fallback error = %v", err)
	}
	if mp := GeometryPolygons(scaled, sg[0]); len(mp) != 1 || len(mp[0]) != 1 {
		t.Errorf("multipolygon decode = %v", mp)
	}
}

func TestLayer_Missing(t *testing.T) {
	t.Parallel()
	topo := mustLoad(t, `{"type":"Topology","arcs":[],"objects":{"a":{},"b":{}}}`)
	if _, err := topo.Layer("layer1"); !errors.Is(err, ErrNoLayer) {
		t.Errorf("Layer() error = %v, want ErrNoLayer", err)
	}
}

func TestProperties_Aliases(t *testing.T) {
	t.Parallel()
	topo := mustLoad(t, sharedEdgeTopo)
	geoms, _ := topo.Layer("layer1")
	p := geoms[1].Properties
	if p.CountyName != "臺北市" || p.TownName != "大安區" || p.TownID != "A05" {
		t.Errorf("Properties = %+v", p)
	}
	if !geoms[0].Properties.Valid() {
		t.Error("camelCase properties should be valid")
	}
}

func TestGeometryToPath(t *testing.T) {
	t.Parallel()
	topo := mustLoad(t, sharedEdgeTopo)
	geoms, _ := topo.Layer("layer1")
	proj := NewProjection(topo.Bound(), 100, 100)

	got := GeometryToPath(topo, geoms[0], proj)
	want := "M 50.00 100.00 L 50.00 0.00 L 0.00 0.00 L 0.00 100.00 L 50.00 100.00 Z"
	if got != want {
		t.Errorf("GeometryToPath() = %q, want %q", got, want)
	}
	if p := GeometryToPath(topo, geoms[2], proj); p != "" {
		t.Errorf("empty geometry path = %q, want empty", p)
	}
}

func TestPathOf_MultipleRingsSeparated(t *testing.T) {
	t.Parallel()
	proj := NewProjection(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}, 10, 10)
	mp := orb.MultiPolygon{
		{{{0, 0}, {0, 10}, {10, 10}, {0, 0}}},
		{{{1, 1}, {1, 2}, {2, 2}, {1, 1}}},
	}
	got := PathOf(mp, proj)
	if strings.Count(got, "M ") != 2 || strings.Count(got, " Z") != 2 {
		t.Errorf("PathOf() = %q", got)
	}
	if !strings.Contains(got, "Z M ") {
		t.Errorf("rings not joined by a space: %q", got)
	}
}

func TestProjection_FlipsY(t *testing.T) {
	t.Parallel()
	proj := NewProjection(orb.Bound{Min: orb.Point{120, 22}, Max: orb.Point{122, 26}}, 200, 400)
	x, y := proj.Project(orb.Point{121, 25})
	if x != 100 || y != 100 {
		t.Errorf("Project() = (%v, %v), want (100, 100)", x, y)
	}
	flat := NewProjection(orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{1, 1}}, 10, 10)
	if x, y := flat.Project(orb.Point{1, 1}); x != 0 || y != 0 {
		t.Errorf("degenerate Project() = (%v, %v)", x, y)
	}
}

func TestGeometryCentroid(t *testing.T) {
	t.Parallel()
	topo := mustLoad(t, sharedEdgeTopo)
	geoms, _ := topo.Layer("layer1")

	// 顶点均值（含闭合重复点）：(5+5+0+0+5)/5, (0+10+10+0+0)/5
	c := GeometryCentroid(topo, geoms[0])
	if math.Abs(c[0]-3) > 1e-9 || math.Abs(c[1]-4) > 1e-9 {
		t.Errorf("GeometryCentroid() = %v, want [3 4]", c)
	}
	if c := GeometryCentroid(topo, geoms[2]); !c.Equal(DefaultCentroid) {
		t.Errorf("empty centroid = %v, want DefaultCentroid", c)
	}
}

func TestBound_ComputedAndDeclared(t *testing.T) {
	t.Parallel()
	topo := mustLoad(t, sharedEdgeTopo)
	b := topo.Bound()
	if !b.Min.Equal(orb.Point{0, 0}) || !b.Max.Equal(orb.Point{10, 10}) {
		t.Errorf("Bound() = %v", b)
	}
	declared := mustLoad(t, `{"type":"Topology","bbox":[1,2,3,4],"arcs":[],"objects":{}}`)
	if b := declared.Bound(); !b.Max.Equal(orb.Point{3, 4}) {
		t.Errorf("declared Bound() = %v", b)
	}
}

func TestDecodeArc_AbsoluteWithoutTransform(t *testing.T) {
	t.Parallel()
	topo := mustLoad(t, `{"type":"Topology","arcs":[[[121.5,25.0],[121.6,25.1]]],"objects":{}}`)
	pts, err := DecodeArc(topo, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !pts[1].Equal(orb.Point{121.6, 25.1}) {
		t.Errorf("absolute arc decoded to %v", pts)
	}
}
