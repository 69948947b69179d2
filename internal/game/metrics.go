package game

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	gamesStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "game_started_total",
			Help: "Games started",
		},
	)
	gamesCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "game_completed_total",
			Help: "Games that reached GAME_END",
		},
	)
	phaseTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_phase_transitions_total",
			Help: "Phase transitions by target phase",
		},
		[]string{"phase"},
	)
	imageJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_image_jobs_total",
			Help: "Image generation jobs by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(gamesStartedTotal)
	prometheus.MustRegister(gamesCompletedTotal)
	prometheus.MustRegister(phaseTransitionsTotal)
	prometheus.MustRegister(imageJobsTotal)
}
