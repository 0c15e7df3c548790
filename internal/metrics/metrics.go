package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	PublishTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cliprelay_publish_total",
		Help: "Publish attempts by outcome error code (success on completion).",
	}, []string{"outcome"})

	TokenRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cliprelay_token_refresh_total",
		Help: "Access token refreshes by outcome.",
	}, []string{"outcome"})

	PairingTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cliprelay_pairing_total",
		Help: "Pairing validations by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(PublishTotal, TokenRefreshTotal, PairingTotal)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
