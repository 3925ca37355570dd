package audio

import "github.com/prometheus/client_golang/prometheus"

var (
	playsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aimu_player_plays_total",
		Help: "Tracks started by the player",
	})
	playerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aimu_player_start_errors_total",
		Help: "Player processes that failed to start",
	})
)

func RegisterMetrics() {
	prometheus.MustRegister(playsTotal, playerErrors)
}
