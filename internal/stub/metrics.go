package stub

import "github.com/prometheus/client_golang/prometheus"

var loginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "ironwall_stub_logins_total",
	Help: "Number of login attempts by outcome.",
}, []string{"outcome"})

func init() {
	prometheus.MustRegister(loginsTotal)
}
