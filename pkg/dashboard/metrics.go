package dashboard

import (
	"github.com/prometheus/client_golang/prometheus"
)

type serverMetrics struct {
	forcedLogouts prometheus.Counter
	viewErrors    *prometheus.CounterVec
}

// newServerMetrics builds the dashboard collectors and registers them with
// reg when it is non-nil.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	m := &serverMetrics{
		forcedLogouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modeldash_dashboard_forced_logouts_total",
			Help: "Sessions ended because the API answered 401",
		}),
		viewErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modeldash_dashboard_view_errors_total",
			Help: "Client errors surfaced by dashboard views, by error kind",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.forcedLogouts, m.viewErrors)
	}
	return m
}
