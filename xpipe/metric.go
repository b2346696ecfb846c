package xpipe

import (
	"github.com/prometheus/client_golang/prometheus"

	"xframe/xbuffer"
	"xframe/xmetric"
)

// Metric snapshots the pool and the pipeline for xmetric.Gather. Gather
// serializes Pull and Push, so the snapshot fields need no lock.
type Metric struct {
	pipe *Pipeline
	pool xbuffer.PoolStats
	run  Stats
}

func NewMetric(p *Pipeline) *Metric {
	return &Metric{pipe: p}
}

func (m *Metric) Pull() {
	m.pool = m.pipe.pool.Stats()
	m.run = m.pipe.Stats()
}

func (m *Metric) Push(g *xmetric.Gather, ch chan<- prometheus.Metric) {
	queue := []string{"queue"}
	g.PushGaugeMetric(ch, "framepipe_packet_queue_size", float64(m.pool.PacketSize), nil)
	g.PushGaugeMetric(ch, "framepipe_scale_queue_size", float64(m.pool.ScaleSize), nil)
	g.PushCounterMetric(ch, "framepipe_queue_push_total", float64(m.pool.PacketPushes), queue, "packet")
	g.PushCounterMetric(ch, "framepipe_queue_push_total", float64(m.pool.ScalePushes), queue, "scale")
	g.PushCounterMetric(ch, "framepipe_queue_pop_total", float64(m.pool.PacketPops), queue, "packet")
	g.PushCounterMetric(ch, "framepipe_queue_pop_total", float64(m.pool.ScalePops), queue, "scale")
	g.PushCounterMetric(ch, "framepipe_buffers_allocated_total", float64(m.pool.Allocated), nil)
	g.PushCounterMetric(ch, "framepipe_buffers_released_total", float64(m.pool.Released), nil)
	g.PushGaugeMetric(ch, "framepipe_buffer_size_bytes", float64(m.pool.BufferSize), nil)

	g.PushCounterMetric(ch, "framepipe_frames_produced_total", float64(m.run.Produced), nil)
	g.PushCounterMetric(ch, "framepipe_frames_consumed_total", float64(m.run.Consumed), nil)
	g.PushCounterMetric(ch, "framepipe_frames_failed_total", float64(m.run.Failed), nil)
	g.PushCounterMetric(ch, "framepipe_stage_stalls_total", float64(m.run.Stalls), nil)
	g.PushCounterMetric(ch, "framepipe_latency_ms_total", float64(m.run.LatencyTotalMs), nil)
	g.PushGaugeMetric(ch, "framepipe_latency_max_ms", float64(m.run.LatencyMaxMs), nil)
}
