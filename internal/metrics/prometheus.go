package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
)

const (
	// 默认的Prometheus指标前缀
	defaultMetricPrefix = "poitrack"
)

// PrometheusExporter 将跟踪引擎指标导出为Prometheus文本格式
type PrometheusExporter struct {
	metrics *Metrics
	prefix  string
	// 引擎实例名称，用于标签
	engine string
	mu     sync.Mutex
}

// NewPrometheusExporter 创建一个新的Prometheus导出器
func NewPrometheusExporter(metrics *Metrics, engine string) *PrometheusExporter {
	return &PrometheusExporter{
		metrics: metrics,
		prefix:  defaultMetricPrefix,
		engine:  engine,
	}
}

// SetPrefix 设置指标前缀
func (p *PrometheusExporter) SetPrefix(prefix string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prefix != "" {
		p.prefix = prefix
	}
}

// Export 导出Prometheus格式的指标
func (p *PrometheusExporter) Export() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.metrics.GetSnapshot()
	var buf bytes.Buffer

	p.addCounter(&buf, "ticks_total", "Total number of engine ticks", s.Ticks, "")
	p.addCounter(&buf, "resamples_total", "Ticks that decoded the picking buffer", s.Resamples, "")
	p.addCounter(&buf, "throttled_total", "Ticks served from the candidate snapshot", s.Throttled, "")

	for _, r := range []EvictReason{EvictOffScreen, EvictDecayed, EvictMiss, EvictReset} {
		p.addCounter(&buf, "evictions_total", "Label slot evictions by reason", s.Evictions[r.String()],
			fmt.Sprintf(`reason="%s"`, r))
	}
	p.addCounter(&buf, "overplotted_total", "Labels kept alive by the overplot rule", s.Overplotted, "")
	p.addCounter(&buf, "assignments_total", "Slot rebinds to a new entity", s.Assignments, "")
	p.addCounter(&buf, "coalesced_total", "Rebinds superseded inside the debounce window", s.Coalesced, "")
	p.addCounter(&buf, "renders_total", "Labels rendered", s.Renders, "")
	p.addCounter(&buf, "hides_total", "Labels hidden on empty content", s.Hides, "")
	p.addCounter(&buf, "stale_drops_total", "Content completions dropped as stale", s.StaleDrops, "")

	p.addCounter(&buf, "content_hits_total", "Content cache hits", s.Hits, "")
	p.addCounter(&buf, "content_misses_total", "Content cache misses", s.Misses, "")
	p.addGauge(&buf, "content_hit_ratio", "Content cache hit ratio", s.HitRatio)
	p.addCounter(&buf, "content_fetches_total", "Completed content fetches", s.Fetches, "")
	p.addCounter(&buf, "content_empty_total", "Content resolved as definitely empty", s.Empties, "")
	p.addCounter(&buf, "content_failures_total", "Content fetches that failed", s.Failures, "")
	p.addCounter(&buf, "content_resets_total", "Content cache resets", s.Resets, "")

	p.addGauge(&buf, "active_slots", "Label slots bound to an entity", float64(s.ActiveSlots))
	p.addGauge(&buf, "inactive_slots", "Label slots available for reuse", float64(s.InactiveSlots))
	p.addGauge(&buf, "content_entries", "Entries held by the content cache", float64(s.CacheEntries))

	if s.FetchLatency != nil {
		p.addHistogram(&buf, "content_fetch_latency_ns", "Content fetch latency in nanoseconds", s.FetchLatency)
	}
	return buf.String()
}

func (p *PrometheusExporter) labels(extra string) string {
	if extra == "" {
		return fmt.Sprintf(`engine="%s"`, p.engine)
	}
	return fmt.Sprintf(`engine="%s",%s`, p.engine, extra)
}

// addCounter 添加计数器类型指标
func (p *PrometheusExporter) addCounter(buf *bytes.Buffer, name, help string, value uint64, extra string) {
	metricName := p.prefix + "_" + name
	fmt.Fprintf(buf, "# HELP %s %s\n", metricName, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", metricName)
	fmt.Fprintf(buf, "%s{%s} %d\n\n", metricName, p.labels(extra), value)
}

// addGauge 添加仪表类型指标
func (p *PrometheusExporter) addGauge(buf *bytes.Buffer, name, help string, value float64) {
	metricName := p.prefix + "_" + name
	fmt.Fprintf(buf, "# HELP %s %s\n", metricName, help)
	fmt.Fprintf(buf, "# TYPE %s gauge\n", metricName)
	fmt.Fprintf(buf, "%s{%s} %g\n\n", metricName, p.labels(""), value)
}

// addHistogram 添加直方图类型指标
func (p *PrometheusExporter) addHistogram(buf *bytes.Buffer, name, help string, h *HistogramSnapshot) {
	metricName := p.prefix + "_" + name
	fmt.Fprintf(buf, "# HELP %s %s\n", metricName, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", metricName)

	var cum uint64
	for i, c := range h.BucketCounts {
		cum += c
		fmt.Fprintf(buf, "%s_bucket{%s} %d\n", metricName,
			p.labels(fmt.Sprintf(`le="%d"`, h.BucketBounds[i])), cum)
	}
	fmt.Fprintf(buf, "%s_bucket{%s} %d\n", metricName, p.labels(`le="+Inf"`), h.Count)
	fmt.Fprintf(buf, "%s_sum{%s} %d\n", metricName, p.labels(""), h.Sum)
	fmt.Fprintf(buf, "%s_count{%s} %d\n\n", metricName, p.labels(""), h.Count)
}

// ServeHTTP 实现 http.Handler 接口
func (p *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = w.Write([]byte(p.Export()))
}
