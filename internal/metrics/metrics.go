// Package metrics exposes evolution counters through Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder groups the collectors of one run. All methods accept a nil
// receiver so callers need not check whether metrics are enabled.
type Recorder struct {
	registry *prometheus.Registry

	offspring   *prometheus.CounterVec
	evaluations prometheus.Counter
	migrants    *prometheus.CounterVec
	adaptations prometheus.Counter
	lambda      *prometheus.GaugeVec
	demeSize    *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		offspring: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vivarium_offspring_total",
			Help: "Offspring bred by replacement strategies.",
		}, []string{"strategy"}),
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vivarium_evaluations_total",
			Help: "Fitness evaluations performed.",
		}),
		migrants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vivarium_migrants_total",
			Help: "Individuals moved between demes.",
		}, []string{"from", "to"}),
		adaptations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vivarium_breeding_proba_adaptations_total",
			Help: "Breeding probability adaptation events.",
		}),
		lambda: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vivarium_lambda",
			Help: "Current offspring count of self-adaptive strategies.",
		}, []string{"deme"}),
		demeSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vivarium_deme_size",
			Help: "Individuals resident in a deme.",
		}, []string{"deme"}),
	}
	r.registry.MustRegister(r.offspring, r.evaluations, r.migrants, r.adaptations, r.lambda, r.demeSize)
	return r
}

// Registry is the gatherer to expose or scrape.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) Offspring(strategy string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.offspring.With(prometheus.Labels{"strategy": strategy}).Add(float64(n))
}

func (r *Recorder) Evaluations(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.evaluations.Add(float64(n))
}

func (r *Recorder) Migrants(from, to, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.migrants.With(prometheus.Labels{"from": strconv.Itoa(from), "to": strconv.Itoa(to)}).Add(float64(n))
}

func (r *Recorder) Adaptation() {
	if r == nil {
		return
	}
	r.adaptations.Inc()
}

func (r *Recorder) Lambda(deme, lambda int) {
	if r == nil {
		return
	}
	r.lambda.With(prometheus.Labels{"deme": strconv.Itoa(deme)}).Set(float64(lambda))
}

func (r *Recorder) DemeSize(deme, size int) {
	if r == nil {
		return
	}
	r.demeSize.With(prometheus.Labels{"deme": strconv.Itoa(deme)}).Set(float64(size))
}
