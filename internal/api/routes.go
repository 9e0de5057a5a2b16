// 包 api：集中注册 HTTP API 路由，主入口只负责挂载到 API_BASE 前缀
package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"townmap/internal/cluster"
	"townmap/internal/ipgeo"
	"townmap/internal/logger"
	"townmap/internal/metrics"
	"townmap/internal/overlay"
	"townmap/internal/revgeo"
	"townmap/internal/store"

	"github.com/paulmach/orb"
	"github.com/redis/go-redis/v9"
)

const maxClusterBody = 1 << 20

// Deps：路由依赖；除 Locator 外均可为 nil，对应接口降级或返回 503
type Deps struct {
	Locator   *revgeo.Locator
	Store     *store.Store
	Redis     *redis.Client
	Overlay   *overlay.Source
	GeoIP     *ipgeo.Resolver
	NearestKm float64
	RedisTTL  time.Duration
}

// 构建并返回 API 路由：独立 ServeMux，挂载时需 StripPrefix
func BuildRoutes(d Deps) *http.ServeMux {
	h := &handlers{Deps: d}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /reverse_geo", h.reverseGeo)
	mux.HandleFunc("GET /locate", h.locate)
	mux.HandleFunc("GET /regions", h.regions)
	mux.HandleFunc("GET /regions.geojson", h.regionsGeoJSON)
	mux.HandleFunc("POST /cluster", h.clusterMarkers)
	mux.HandleFunc("GET /incidents/clusters", h.incidentClusters)
	mux.HandleFunc("GET /stats", h.stats)
	return mux
}

type handlers struct {
	Deps
}

// writeJSON：先编码再写状态码；编码失败（如 NaN）返回 500 而非空的 200
func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.L().Error("json_encode_error", "status", status, "err", err)
		status = http.StatusInternalServerError
		b = []byte(`{"error":"response encode failed"}`)
	}
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// parseCoord：解析有限数值并校验范围
func parseCoord(s string, limit float64) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < -limit || v > limit {
		return 0, false
	}
	return v, true
}

// optionalFinite：参数缺省返回 nil；存在但非有限数值时 ok=false
func optionalFinite(s string) (*float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, false
	}
	return &v, true
}

func (h *handlers) reverseGeo(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, okLat := parseCoord(q.Get("lat"), 90)
	lon, okLon := parseCoord(q.Get("lon"), 180)
	if !okLat || !okLon {
		writeError(w, http.StatusBadRequest, "lat and lon are required numbers")
		return
	}
	ctx := r.Context()
	m, found := ReverseGeoQuery(ctx, h.Redis, h.Locator, lat, lon, h.RedisTTL)
	h.recordLookup(r, lon, lat, m, found)
	if !found {
		metrics.ReverseGeoNotFoundTotal.Inc()
		body := errorBody{Error: "location outside supported area"}
		if nm, d, ok := h.Locator.Nearest(lon, lat, h.NearestKm); ok {
			body.Nearest = &nearestHint{Match: nm, DistanceKm: math.Round(d*100) / 100}
		}
		writeJSON(w, http.StatusNotFound, body)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// recordLookup：写入查询统计；同一访客同一小时同一格只计一次，失败仅记日志
func (h *handlers) recordLookup(r *http.Request, lon, lat float64, m revgeo.Match, found bool) {
	if !h.Store.Enabled() {
		return
	}
	ctx := r.Context()
	if !firstLookupThisHour(ctx, h.Redis, getVisitorIP(r), h.Locator.CellKey(lon, lat), time.Now()) {
		return
	}
	id := ""
	if found {
		id = m.ID
	}
	if err := h.Store.RecordLookup(ctx, id); err != nil {
		logger.L().Warn("stats_record_error", "err", err)
	}
}

func (h *handlers) locate(w http.ResponseWriter, r *http.Request) {
	ip := getClientIP(r)
	g, found, err := h.GeoIP.Lookup(ip)
	switch {
	case errors.Is(err, ipgeo.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, "ip geolocation not configured")
		return
	case errors.Is(err, ipgeo.ErrBadIP):
		writeError(w, http.StatusBadRequest, "invalid ip")
		return
	case err != nil:
		logger.L().Error("geoip_lookup_error", "ip", ip, "err", err)
		writeError(w, http.StatusInternalServerError, "ip lookup failed")
		return
	}
	geo := locateResult(g)
	if !found {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "ip has no known location", Geo: &geo})
		return
	}
	m, ok := ReverseGeoQuery(r.Context(), h.Redis, h.Locator, g.Lat, g.Lon, h.RedisTTL)
	if !ok {
		metrics.ReverseGeoNotFoundTotal.Inc()
		writeJSON(w, http.StatusNotFound, errorBody{Error: "location outside supported area", Geo: &geo})
		return
	}
	writeJSON(w, http.StatusOK, locateResponse{Geo: geo, Region: m})
}

func (h *handlers) regions(w http.ResponseWriter, r *http.Request) {
	ov, err := h.Overlay.Values(r.Context())
	if err != nil {
		logger.L().Warn("overlay_read_error", "key", h.Overlay.Key(), "err", err)
		ov = nil
	}
	writeJSON(w, http.StatusOK, h.Locator.ListRegions(r.URL.Query().Get("current"), ov))
}

func (h *handlers) regionsGeoJSON(w http.ResponseWriter, r *http.Request) {
	b, err := revgeo.FeatureCollection(h.Locator.Regions()).MarshalJSON()
	if err != nil {
		logger.L().Error("geojson_marshal_error", "err", err)
		writeError(w, http.StatusInternalServerError, "geojson encode failed")
		return
	}
	w.Header().Set("content-type", "application/geo+json")
	w.Header().Set("cache-control", "public, max-age=3600")
	_, _ = w.Write(b)
}

// radiusFrom：radius 优先于 zoom；都缺省时不聚合
func radiusFrom(radius, zoom *float64) float64 {
	switch {
	case radius != nil:
		return *radius
	case zoom != nil:
		return cluster.RadiusForZoom(*zoom)
	}
	return 0
}

func (h *handlers) clusterMarkers(w http.ResponseWriter, r *http.Request) {
	var req clusterRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxClusterBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid cluster request: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runCluster(req.Markers, radiusFrom(req.Radius, req.Zoom)))
}

func runCluster(markers []cluster.Marker, radius float64) clusterResponse {
	t0 := time.Now()
	items := cluster.Markers(markers, radius)
	metrics.ClusterRequestsTotal.Inc()
	metrics.ClusterDurationMs.Observe(float64(time.Since(t0).Microseconds()) / 1000)
	for _, it := range items {
		metrics.ClusterOutputTotal.WithLabelValues(string(it.Kind)).Inc()
	}
	return clusterResponse{
		Radius:    radius,
		Count:     len(markers),
		Clustered: cluster.ClusteredCount(items),
		Items:     items,
	}
}

func (h *handlers) incidentClusters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	radius, okRadius := optionalFinite(q.Get("radius"))
	zoom, okZoom := optionalFinite(q.Get("zoom"))
	if !okRadius || !okZoom {
		writeError(w, http.StatusBadRequest, "radius and zoom must be finite numbers")
		return
	}
	incidents, err := h.Store.ListActiveIncidents(r.Context(), 0)
	if errors.Is(err, store.ErrNoDB) {
		writeError(w, http.StatusServiceUnavailable, "incident store not configured")
		return
	}
	if err != nil {
		logger.L().Error("incidents_read_error", "err", err)
		writeError(w, http.StatusInternalServerError, "incident read failed")
		return
	}
	writeJSON(w, http.StatusOK, runCluster(incidentMarkers(h.Locator, incidents), radiusFrom(radius, zoom)))
}

// incidentMarkers：事件经纬度按区域路径同一投影换算为显示坐标
func incidentMarkers(loc *revgeo.Locator, incidents []store.Incident) []cluster.Marker {
	proj := loc.Projection()
	out := make([]cluster.Marker, 0, len(incidents))
	for _, in := range incidents {
		sev, err := cluster.ParseSeverity(in.Severity)
		if err != nil {
			logger.L().Debug("incident_severity_unknown", "id", in.ID, "severity", in.Severity)
		}
		x, y := proj.Project(orb.Point{in.Lon, in.Lat})
		out = append(out, cluster.Marker{
			ID:       in.ID,
			Category: cluster.Category(in.Category),
			Severity: sev,
			Position: cluster.Position{X: x, Y: y},
		})
	}
	return out
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{Regions: h.Locator.Stats()}
	if h.Store.Enabled() {
		ctx := r.Context()
		if t, err := h.Store.GetTotals(ctx); err == nil {
			resp.Lookups = t
		} else {
			logger.L().Warn("stats_totals_error", "err", err)
		}
		if top, err := h.Store.TopRegions(ctx, 10); err == nil {
			resp.Top = top
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
