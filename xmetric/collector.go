package xmetric

import (
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"xframe/xlog"
)

const unknown = "unknown"

type labelConfig struct {
	host    string
	alias   string
	program string
}

// Gather owns a registry, the Go runtime collector and any number of
// MetricJobs, all labelled with host/alias/program.
type Gather struct {
	labelConfig
	registry   *prometheus.Registry
	mu         sync.Mutex
	jobs       []MetricJob
	dummyDescs map[string]*prometheus.Desc
}

func NewGather() *Gather {
	g := &Gather{
		registry:   prometheus.NewRegistry(),
		dummyDescs: make(map[string]*prometheus.Desc),
	}
	g.defaultLabels()
	return g
}

// Init registers the runtime and job collectors.
func (g *Gather) Init() error {
	if err := g.registry.Register(collectors.NewGoCollector()); err != nil {
		return err
	}
	return g.registry.Register(newJobCollector(g))
}

func (g *Gather) Destroy() {}

// AddJob adds a job collected on every scrape.
func (g *Gather) AddJob(job MetricJob) {
	g.mu.Lock()
	g.jobs = append(g.jobs, job)
	g.mu.Unlock()
}

func (g *Gather) snapshotJobs() []MetricJob {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]MetricJob(nil), g.jobs...)
}

func (g *Gather) Registry() *prometheus.Registry {
	return g.registry
}

func (g *Gather) Handler() http.Handler {
	return promhttp.HandlerFor(g.registry, promhttp.HandlerOpts{})
}

func (g *Gather) modGetDesc(name string, labels []string) *prometheus.Desc {
	namekey := name
	for _, v := range labels {
		namekey += "_" + v
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	desc, ok := g.dummyDescs[namekey]
	if ok {
		return desc
	}
	desc = prometheus.NewDesc(name, name, labels, g.defaultLabels())
	g.dummyDescs[namekey] = desc
	return desc
}

func (g *Gather) PushGaugeMetric(ch chan<- prometheus.Metric, name string, value float64, labels []string, labelValues ...string) {
	desc := g.modGetDesc(name, labels)
	mertic, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, value, labelValues...)
	if err != nil {
		xlog.Errorf("PushGaugeMetric, NewConstMetric err=%v", err)
		return
	}
	ch <- mertic
}

func (g *Gather) PushCounterMetric(ch chan<- prometheus.Metric, name string, value float64, labels []string, labelValues ...string) {
	desc := g.modGetDesc(name, labels)
	mertic, err := prometheus.NewConstMetric(desc, prometheus.CounterValue, value, labelValues...)
	if err != nil {
		xlog.Errorf("PushCounterMetric, NewConstMetric err=%v", err)
		return
	}
	ch <- mertic
}

func (g *Gather) Host(host string) *Gather {
	g.host = host
	return g
}

func (g *Gather) Alias(alias string) *Gather {
	g.alias = alias
	return g
}

func (g *Gather) Program(program string) *Gather {
	g.program = program
	return g
}

func (g *Gather) defaultLabels() map[string]string {
	if len(g.program) == 0 {
		g.program = filepath.Base(os.Args[0])
	}
	if len(g.host) == 0 {
		g.host = GetLocalAddr()
		if g.host == unknown {
			g.host = getHostName()
		}
	}
	if len(g.alias) == 0 {
		g.alias = unknown
	}
	return map[string]string{"host": g.host, "alias": g.alias, "program": g.program}
}

// GetLocalAddr returns the first non-loopback IPv4 address, or "unknown".
func GetLocalAddr() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return unknown
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok {
			if ipnet.IP.IsLoopback() {
				continue
			}
			if ipnet.IP.To4() == nil {
				continue
			}
			return ipnet.IP.String()
		}
	}
	return unknown
}

func getHostName() string {
	host, err := os.Hostname()
	if err != nil {
		return unknown
	}
	return host
}
