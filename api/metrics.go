package api

import (
	"strconv"

	"github.com/BOCK-CHAIN/BallotChain/gov"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts processed instructions for operators and dashboards.
type Metrics struct {
	registry     *prometheus.Registry
	instructions *prometheus.CounterVec
	failures     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	instructions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ballotchain",
		Name:      "instructions_total",
		Help:      "Governance instructions processed, by instruction kind.",
	}, []string{"instruction"})

	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ballotchain",
		Name:      "instruction_failures_total",
		Help:      "Rejected governance instructions, by instruction kind and error code.",
	}, []string{"instruction", "code"})

	registry.MustRegister(instructions, failures)

	return &Metrics{
		registry:     registry,
		instructions: instructions,
		failures:     failures,
	}
}

func (m *Metrics) observe(instruction string, err error) {
	m.instructions.WithLabelValues(instruction).Inc()
	if err == nil {
		return
	}

	code := "internal"
	if govErr, ok := err.(*gov.GovError); ok {
		code = strconv.Itoa(int(govErr.Code))
	}
	m.failures.WithLabelValues(instruction, code).Inc()
}
