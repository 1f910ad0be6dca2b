// Package metrics exposes Prometheus collectors for the acquisition pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	queriesTotal         *prometheus.CounterVec
	scrapesTotal         *prometheus.CounterVec
	classificationsTotal *prometheus.CounterVec
	filterRejections     *prometheus.CounterVec
	leadsTotal           *prometheus.CounterVec
	credentialRotations  prometheus.Counter
	roundsTotal          *prometheus.CounterVec
	pacingDelaySeconds   *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry. It is safe to
// call more than once; every Observe helper calls it.
func Init() {
	once.Do(func() {
		queriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadscout_queries_total",
				Help: "Discovery queries issued, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		scrapesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadscout_scrapes_total",
				Help: "Scrape provider calls, labeled by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		)

		classificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadscout_classifications_total",
				Help: "Records classified, labeled by the strategy that produced the verdict.",
			},
			[]string{"strategy"},
		)

		filterRejections = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadscout_filter_rejections_total",
				Help: "Records rejected by the hard filter cascade, labeled by predicate.",
			},
			[]string{"predicate"},
		)

		leadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadscout_leads_total",
				Help: "Accepted leads, labeled by tier.",
			},
			[]string{"tier"},
		)

		credentialRotations = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "leadscout_credential_rotations_total",
				Help: "Scraper credentials retired after quota or auth failures.",
			},
		)

		roundsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadscout_rounds_total",
				Help: "Deep-loop rounds, labeled by whether they found new identifiers.",
			},
			[]string{"result"},
		)

		pacingDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leadscout_pacing_delay_seconds",
				Help:    "Time spent waiting on pacers before external calls.",
				Buckets: []float64{0.1, 0.5, 1, 2, 4, 8, 30},
			},
			[]string{"pacer"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveQuery counts one discovery query by outcome (ok, auth, quota, transient).
func ObserveQuery(outcome string) {
	Init()
	queriesTotal.WithLabelValues(outcome).Inc()
}

// ObserveScrape counts one provider call.
func ObserveScrape(provider, outcome string) {
	Init()
	scrapesTotal.WithLabelValues(provider, outcome).Inc()
}

// ObserveClassification counts one classification verdict.
func ObserveClassification(strategy string) {
	Init()
	classificationsTotal.WithLabelValues(strategy).Inc()
}

// ObserveRejection counts one filter rejection.
func ObserveRejection(predicate string) {
	Init()
	filterRejections.WithLabelValues(predicate).Inc()
}

// ObserveLead counts one accepted lead.
func ObserveLead(tier string) {
	Init()
	leadsTotal.WithLabelValues(tier).Inc()
}

// ObserveRotation counts one retired credential.
func ObserveRotation() {
	Init()
	credentialRotations.Inc()
}

// ObserveRound counts one loop round.
func ObserveRound(foundNew bool) {
	Init()
	result := "empty"
	if foundNew {
		result = "new"
	}
	roundsTotal.WithLabelValues(result).Inc()
}

// ObservePacingDelay records how long a pacer held a call back.
func ObservePacingDelay(pacer string, d time.Duration) {
	Init()
	pacingDelaySeconds.WithLabelValues(pacer).Observe(d.Seconds())
}
