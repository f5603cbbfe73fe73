package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RegistrationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "volunteerhub", Name: "registrations_total", Help: "Accepted event registrations",
	})
	RegistrationsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "volunteerhub", Name: "registrations_rejected_total", Help: "Rejected registration attempts",
	}, []string{"reason"})
	CaptainSuccessions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "volunteerhub", Name: "captain_successions_total", Help: "Captain succession runs",
	})
	NotificationsPushed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "volunteerhub", Name: "notifications_pushed_total", Help: "Notifications pushed over websocket",
	})
	SchedulerRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "volunteerhub", Name: "scheduler_runs_total", Help: "Event status scheduler runs",
	})
	DegradedProfileReads = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "volunteerhub", Name: "degraded_profile_reads_total", Help: "Profile reads served by the degraded fallback",
	})
)

func init() {
	prometheus.MustRegister(
		RegistrationsTotal,
		RegistrationsRejected,
		CaptainSuccessions,
		NotificationsPushed,
		SchedulerRuns,
		DegradedProfileReads,
	)
}

func Handler() http.Handler { return promhttp.Handler() }
