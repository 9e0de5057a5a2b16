package revgeo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// 文档注释：行政区导出为 GeoJSON
// 背景：供外部 GIS 工具与前端叠图直接使用；每个乡镇一个 MultiPolygon 要素，坐标为经纬度。
// 约束：要素顺序与 Regions() 一致；properties 含 id/county/town/name/centroid。
func FeatureCollection(regions []Region) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range regions {
		r := &regions[i]
		mp := make(orb.MultiPolygon, 0, len(r.Polys))
		for _, p := range r.Polys {
			mp = append(mp, p.Rings)
		}
		f := geojson.NewFeature(mp)
		f.ID = r.ID
		f.Properties["id"] = r.ID
		f.Properties["county"] = r.County
		f.Properties["town"] = r.Town
		f.Properties["name"] = r.Name
		f.Properties["centroid"] = []float64{r.Centroid[0], r.Centroid[1]}
		fc.Append(f)
	}
	return fc
}
