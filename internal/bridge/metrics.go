package bridge

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	submissions   *prometheus.CounterVec
	engineStart   prometheus.Histogram
	statusQueries *prometheus.CounterVec
	results       *prometheus.CounterVec
}

// NewMetrics registers the bridge collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tfbridge_submissions_total",
				Help: "number of run submissions, sorted by outcome",
			},
			[]string{"outcome"},
		),
		engineStart: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tfbridge_engine_start_seconds",
			Help:    "duration of pipeline engine start calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		statusQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tfbridge_status_queries_total",
				Help: "number of status queries, sorted by reported state and result",
			},
			[]string{"state", "result", "degraded"},
		),
		results: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tfbridge_results_total",
				Help: "number of aggregated result documents, sorted by overall result",
			},
			[]string{"overall"},
		),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.submissions, m.engineStart, m.statusQueries, m.results} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) submission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) engineStartDuration(seconds float64) {
	if m == nil {
		return
	}
	m.engineStart.Observe(seconds)
}

func (m *Metrics) statusQuery(state, result string, degraded bool) {
	if m == nil {
		return
	}
	m.statusQueries.WithLabelValues(state, result, strconv.FormatBool(degraded)).Inc()
}

func (m *Metrics) result(overall string) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(overall).Inc()
}
