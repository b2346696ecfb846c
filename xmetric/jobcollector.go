package xmetric

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// jobCollector is unchecked: job metrics are built on the fly, so Describe
// sends nothing. Overlapping scrapes call Collect concurrently; mu keeps each
// job's Pull and Push paired, so jobs may keep their snapshot in fields.
type jobCollector struct {
	mu     sync.Mutex
	gather *Gather
}

func newJobCollector(g *Gather) *jobCollector {
	return &jobCollector{gather: g}
}

func (c *jobCollector) Describe(ch chan<- *prometheus.Desc) {}

func (c *jobCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, job := range c.gather.snapshotJobs() {
		job.Pull()
		job.Push(c.gather, ch)
	}
}
