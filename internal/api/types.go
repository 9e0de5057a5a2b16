package api

import (
	"townmap/internal/cluster"
	"townmap/internal/revgeo"
	"townmap/internal/store"
)

// 文档注释：对外返回结构
// 约束：字段稳定；新增字段需评估前端依赖。
type errorBody struct {
	Error   string        `json:"error"`
	Nearest *nearestHint  `json:"nearest,omitempty"`
	Geo     *locateResult `json:"geo,omitempty"`
}

type nearestHint struct {
	revgeo.Match
	DistanceKm float64 `json:"distanceKm"`
}

type locateResult struct {
	IP         string  `json:"ip"`
	Lon        float64 `json:"lon"`
	Lat        float64 `json:"lat"`
	Country    string  `json:"country,omitempty"`
	City       string  `json:"city,omitempty"`
	AccuracyKm uint16  `json:"accuracyKm,omitempty"`
}

type locateResponse struct {
	Geo    locateResult `json:"geo"`
	Region revgeo.Match `json:"region"`
}

type clusterRequest struct {
	Markers []cluster.Marker `json:"markers"`
	Radius  *float64         `json:"radius,omitempty"`
	Zoom    *float64         `json:"zoom,omitempty"`
}

type clusterResponse struct {
	Radius    float64        `json:"radius"`
	Count     int            `json:"count"`
	Clustered int            `json:"clustered"`
	Items     []cluster.Item `json:"items"`
}

type statsResponse struct {
	Regions revgeo.Stats       `json:"regions"`
	Lookups *store.Totals      `json:"lookups,omitempty"`
	Top     []store.RegionHits `json:"top,omitempty"`
}
