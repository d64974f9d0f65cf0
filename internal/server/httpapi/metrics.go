package httpapi

import "github.com/prometheus/client_golang/prometheus"

var (
	manifestRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "manifest_requests",
		Subsystem: "sharelink",
		Help:      "Number of public manifest requests per outcome",
	}, []string{"outcome"})

	linksIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name:      "links_issued",
		Subsystem: "sharelink",
		Help:      "Number of share links issued",
	})

	linksRevoked = prometheus.NewCounter(prometheus.CounterOpts{
		Name:      "links_revoked",
		Subsystem: "sharelink",
		Help:      "Number of share links revoked",
	})
)

func init() {
	prometheus.MustRegister(manifestRequests)
	prometheus.MustRegister(linksIssued)
	prometheus.MustRegister(linksRevoked)
}
