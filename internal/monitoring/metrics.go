package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for a run.
type Metrics struct {
	RowsTotal      prometheus.Counter
	ResultsTotal   prometheus.Counter
	DownloadsTotal *prometheus.CounterVec
	SkipsTotal     *prometheus.CounterVec
	ErrorsTotal    *prometheus.CounterVec
}

// NewMetrics registers the counters on reg. Passing a fresh registry keeps
// tests independent of each other.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RowsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sitewatch_rows_processed_total",
			Help: "The total number of manifest rows processed",
		}),
		ResultsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sitewatch_results_found_total",
			Help: "The total number of search results considered",
		}),
		DownloadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sitewatch_downloads_total",
			Help: "The total number of artifacts written, by kind",
		}, []string{"kind"}),
		SkipsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sitewatch_skips_total",
			Help: "The total number of downloads skipped, by reason",
		}, []string{"reason"}), // 'url_seen', 'hash_seen', 'empty_markdown'
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sitewatch_errors_total",
			Help: "The total number of errors encountered",
		}, []string{"type"}), // 'search_failed', 'download_failed', 'attachment_failed'
	}
}

func (m *Metrics) IncRows()                 { m.RowsTotal.Inc() }
func (m *Metrics) IncResults()              { m.ResultsTotal.Inc() }
func (m *Metrics) IncDownloads(kind string) { m.DownloadsTotal.WithLabelValues(kind).Inc() }
func (m *Metrics) IncSkips(reason string)   { m.SkipsTotal.WithLabelValues(reason).Inc() }
func (m *Metrics) IncErrors(errType string) { m.ErrorsTotal.WithLabelValues(errType).Inc() }
