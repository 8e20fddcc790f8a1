package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	judgeVerdictsTotal   *prometheus.CounterVec
	judgeDurationSeconds *prometheus.HistogramVec
	judgeQueueDepth      prometheus.Gauge
	judgeRejectedTotal   prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the judging pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		judgeVerdictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "judge_verdicts_total",
			Help: "Total number of judged submissions by terminal verdict.",
		}, []string{"verdict"})

		judgeDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "judge_duration_seconds",
			Help:    "Wall clock duration of judging one submission.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"language"})

		judgeQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "judge_queue_depth",
			Help: "Number of submissions waiting in the judge queue.",
		})

		judgeRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "judge_rejected_total",
			Help: "Number of submissions rejected because the judge queue was saturated.",
		})

		prometheus.MustRegister(judgeVerdictsTotal, judgeDurationSeconds, judgeQueueDepth, judgeRejectedTotal)
	})
}

// JudgeVerdicts exposes the counter for terminal verdicts.
func JudgeVerdicts() *prometheus.CounterVec {
	RegisterMetrics()
	return judgeVerdictsTotal
}

// JudgeDuration exposes the judging duration histogram.
func JudgeDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return judgeDurationSeconds
}

// JudgeQueueDepth exposes the queue depth gauge.
func JudgeQueueDepth() prometheus.Gauge {
	RegisterMetrics()
	return judgeQueueDepth
}

// JudgeRejected exposes the saturation rejection counter.
func JudgeRejected() prometheus.Counter {
	RegisterMetrics()
	return judgeRejectedTotal
}
