package gitdict

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for store and quiz activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	StoreOps      *prometheus.CounterVec
	StoreLatency  *prometheus.HistogramVec
	NotesCache    *prometheus.CounterVec
	QuizzesGraded prometheus.Counter
	QuizScore     prometheus.Histogram
}

// NewMetrics registers the collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StoreOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gitdict",
			Name:      "store_operations_total",
			Help:      "Store round trips by operation and outcome",
		}, []string{"op", "outcome"}),
		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gitdict",
			Name:      "store_operation_seconds",
			Help:      "Store round trip latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		NotesCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gitdict",
			Name:      "notes_cache_lookups_total",
			Help:      "Notes list cache lookups by result",
		}, []string{"result"}),
		QuizzesGraded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gitdict",
			Name:      "quizzes_graded_total",
			Help:      "Quiz sessions that reached the scored state",
		}),
		QuizScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gitdict",
			Name:      "quiz_score_ratio",
			Help:      "Fraction of correct answers per graded quiz",
			Buckets:   prometheus.LinearBuckets(0, 0.2, 6),
		}),
	}
}

func (m *Metrics) observeStore(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.StoreOps.WithLabelValues(op, outcome).Inc()
	m.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.NotesCache.WithLabelValues("hit").Inc()
		return
	}
	m.NotesCache.WithLabelValues("miss").Inc()
}

func (m *Metrics) observeGrade(score, total int) {
	if m == nil {
		return
	}
	m.QuizzesGraded.Inc()
	if total > 0 {
		m.QuizScore.Observe(float64(score) / float64(total))
	}
}
