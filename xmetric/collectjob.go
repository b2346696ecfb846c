package xmetric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricJob is collected on every scrape: Pull takes a snapshot, Push turns
// it into metrics through the gather's helpers.
type MetricJob interface {
	Pull()
	Push(g *Gather, ch chan<- prometheus.Metric)
}

// MetricJobFunc adapts a single emit function to MetricJob.
type MetricJobFunc func(g *Gather, ch chan<- prometheus.Metric)

func (f MetricJobFunc) Pull() {}

func (f MetricJobFunc) Push(g *Gather, ch chan<- prometheus.Metric) {
	f(g, ch)
}
