package motion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts loop activity. A nil Registerer yields unregistered
// collectors, which is what tests use.
type Metrics struct {
	Ticks      prometheus.Counter
	GatedTicks prometheus.Counter
	Faults     *prometheus.CounterVec
	Moves      prometheus.Counter
	Scrolls    prometheus.Counter
	Restarts   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "wootrat", Name: "ticks_total",
			Help: "Poll ticks started.",
		}),
		GatedTicks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "wootrat", Name: "gated_ticks_total",
			Help: "Ticks skipped because the activation key was not held.",
		}),
		Faults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wootrat", Name: "tick_faults_total",
			Help: "Ticks aborted by a transient fault, by operation.",
		}, []string{"op"}),
		Moves: f.NewCounter(prometheus.CounterOpts{
			Namespace: "wootrat", Name: "pointer_moves_total",
			Help: "Pointer move calls dispatched.",
		}),
		Scrolls: f.NewCounter(prometheus.CounterOpts{
			Namespace: "wootrat", Name: "pointer_scrolls_total",
			Help: "Scroll calls dispatched.",
		}),
		Restarts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "wootrat", Name: "loop_restarts_total",
			Help: "Cooperative loop restarts.",
		}),
	}
}
