package library

import "github.com/prometheus/client_golang/prometheus"

var feedbackAppended = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "aimu_feedback_appended_total", Help: "Feedback events recorded, by rating"},
	[]string{"rating"},
)

func RegisterMetrics() {
	prometheus.MustRegister(feedbackAppended)
}
