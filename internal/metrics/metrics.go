package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{0.1, 0.5, 1, 5, 10, 20, 50, 100, 200, 500}

var (
	ReverseGeoRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "townmap_reverse_geo_requests_total",
		Help: "Total number of reverse geocoding lookups",
	})
	ReverseGeoNotFoundTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "townmap_reverse_geo_not_found_total",
		Help: "Lookups whose point fell outside every known township",
	})
	ReverseGeoDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "townmap_reverse_geo_duration_ms",
		Help:    "Reverse geocoding duration in milliseconds",
		Buckets: durationBuckets,
	})
	LocalCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "townmap_local_cache_total",
		Help: "In-process lookup cache results by outcome",
	}, []string{"result"})
	RedisCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "townmap_redis_cache_total",
		Help: "Redis lookup cache results by outcome",
	}, []string{"result"})
	RegionsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "townmap_regions_loaded",
		Help: "Number of township regions built from the topology",
	})
	GeometriesSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "townmap_geometries_skipped_total",
		Help: "Topology geometries skipped for missing properties or arcs",
	})
	ClusterRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "townmap_cluster_requests_total",
		Help: "Total number of marker clustering calls",
	})
	ClusterDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "townmap_cluster_duration_ms",
		Help:    "Marker clustering duration in milliseconds",
		Buckets: durationBuckets,
	})
	ClusterOutputTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "townmap_cluster_output_total",
		Help: "Clustering output items by kind",
	}, []string{"kind"})
	GeoIPLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "townmap_geoip_lookups_total",
		Help: "GeoIP coordinate lookups by outcome",
	}, []string{"result"})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "townmap_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})
)

func init() {
	prometheus.MustRegister(ReverseGeoRequestsTotal)
	prometheus.MustRegister(ReverseGeoNotFoundTotal)
	prometheus.MustRegister(ReverseGeoDurationMs)
	prometheus.MustRegister(LocalCacheTotal)
	prometheus.MustRegister(RedisCacheTotal)
	prometheus.MustRegister(RegionsLoaded)
	prometheus.MustRegister(GeometriesSkippedTotal)
	prometheus.MustRegister(ClusterRequestsTotal)
	prometheus.MustRegister(ClusterDurationMs)
	prometheus.MustRegister(ClusterOutputTotal)
	prometheus.MustRegister(GeoIPLookupsTotal)
	prometheus.MustRegister(RateLimitedTotal)
}

// 文档注释：返回 Prometheus 指标处理器
// 背景：在主入口挂载到 {API_BASE}/metrics 供抓取。
func Handler() http.Handler { return promhttp.Handler() }
