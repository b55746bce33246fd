package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	sendsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ironwall_chat_sends_total",
		Help: "Number of reply requests issued to the chat service.",
	})
	replyFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ironwall_chat_reply_failures_total",
		Help: "Number of reply requests that ended in an apology message.",
	})
)

func init() {
	prometheus.MustRegister(sendsTotal, replyFailures)
}
