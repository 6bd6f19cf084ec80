// 包 metrics：进程级 Prometheus 指标；在 init 中注册，由 /metrics 暴露
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ResolveRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placestd_resolve_requests_total",
		Help: "Total number of resolve calls by mode",
	}, []string{"mode"})
	ResolveDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "placestd_resolve_duration_ms",
		Help:    "Resolve duration in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 50, 100, 200, 500},
	})
	EmptyResultsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "placestd_empty_results_total",
		Help: "Total number of resolve calls returning no place",
	})
	DiagnosticsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placestd_diagnostics_total",
		Help: "Resolution diagnostics by kind",
	}, []string{"kind"})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placestd_cache_hits_total",
		Help: "Cache hits by cache (place|word) and tier (memory|redis)",
	}, []string{"cache", "tier"})
	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placestd_cache_misses_total",
		Help: "Cache misses by cache (place|word) and tier (memory|redis)",
	}, []string{"cache", "tier"})
	BackendFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placestd_backend_fetches_total",
		Help: "Backend fetches issued after a cache miss, by kind",
	}, []string{"kind"})
	BackendErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placestd_backend_errors_total",
		Help: "Backend fetch failures by kind",
	}, []string{"kind"})
	GeoIPLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placestd_geoip_lookups_total",
		Help: "GeoIP default-country lookups by status (hit|miss|error)",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(ResolveRequestsTotal)
	prometheus.MustRegister(ResolveDurationMs)
	prometheus.MustRegister(EmptyResultsTotal)
	prometheus.MustRegister(DiagnosticsTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(BackendFetchesTotal)
	prometheus.MustRegister(BackendErrorsTotal)
	prometheus.MustRegister(GeoIPLookupsTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
