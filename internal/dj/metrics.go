package dj

import "github.com/prometheus/client_golang/prometheus"

var (
	picksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "aimu_station_picks_total", Help: "Tracks chosen, by selector"},
		[]string{"mode"},
	)
	selectionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aimu_station_selection_duration_seconds",
			Help:    "Time to score and sample the full library",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)
	zeroWeightFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "aimu_station_uniform_fallbacks_total", Help: "Draws where every weight was zero"},
	)
)

func RegisterMetrics() {
	prometheus.MustRegister(picksTotal, selectionDuration, zeroWeightFallbacks)
}
