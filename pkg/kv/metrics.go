package kv

import "github.com/prometheus/client_golang/prometheus"

var (
	readsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ironwall_kv_reads_total",
		Help: "Number of key-value reads.",
	})
	writesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ironwall_kv_writes_total",
		Help: "Number of key-value writes by operation.",
	}, []string{"op"})
	eventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ironwall_kv_change_events_total",
		Help: "Number of change notifications delivered by origin.",
	}, []string{"origin"})
)

func init() {
	prometheus.MustRegister(readsTotal, writesTotal, eventsTotal)
}
