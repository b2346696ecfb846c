package xpipe

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"xframe/averror"
	"xframe/xbuffer"
	"xframe/xlog"
	"xframe/xutil"
)

var ErrConfig = errors.New("xpipe: invalid pipeline config")

type Config struct {
	Frames     int64 // 0: run until the context ends
	Producers  int
	Consumers  int
	FrameSize  int           // bytes used per buffer, 0: whole buffer
	PopTimeout time.Duration // a stage waiting longer logs a stall warning
}

// Pipeline circulates the pool's buffers: producers take empty buffers from
// the packet channel, fill them and push them to scale; consumers take them
// from scale, process them and hand them back to packet.
type Pipeline struct {
	// 64-bit counters first, see BufferQueue.
	seq      atomic.Uint64
	produced atomic.Uint64
	consumed atomic.Uint64
	failed   atomic.Uint64
	stalls   atomic.Uint64
	latTotal atomic.Int64
	latMax   atomic.Int64

	cfg       Config
	pool      *xbuffer.PacketScaleQueue
	fill      FillFunc
	process   ProcessFunc
	errWriter io.Writer

	doneOnce sync.Once
	done     chan struct{}
}

type Option func(*Pipeline)

func WithFill(f FillFunc) Option {
	return func(p *Pipeline) { p.fill = f }
}

func WithProcess(f ProcessFunc) Option {
	return func(p *Pipeline) { p.process = f }
}

// WithErrorWriter sets where failing codes are printed, stderr by default.
func WithErrorWriter(w io.Writer) Option {
	return func(p *Pipeline) { p.errWriter = w }
}

// New builds a pipeline over an initialized pool.
func New(pool *xbuffer.PacketScaleQueue, cfg Config, opts ...Option) (*Pipeline, error) {
	bufSize := pool.BufferSize()
	if bufSize == 0 {
		return nil, errors.Wrap(ErrConfig, "pool not initialized")
	}
	if cfg.FrameSize == 0 {
		cfg.FrameSize = bufSize
	}
	if cfg.FrameSize < MinFrameSize || cfg.FrameSize > bufSize {
		return nil, errors.Wrapf(ErrConfig, "frame size %d outside [%d, %d]", cfg.FrameSize, MinFrameSize, bufSize)
	}
	if cfg.Producers <= 0 || cfg.Consumers <= 0 {
		return nil, errors.Wrapf(ErrConfig, "producers %d, consumers %d", cfg.Producers, cfg.Consumers)
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = time.Second
	}
	p := &Pipeline{
		cfg:       cfg,
		pool:      pool,
		fill:      SyntheticFill,
		process:   VerifyFrame,
		errWriter: os.Stderr,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run starts the stages and blocks until Frames frames have been consumed
// or ctx ends. Either way the pool is closed on return, so every stage is
// unblocked; the caller still owns the pool and must Destroy it.
func (p *Pipeline) Run(ctx context.Context) error {
	start := xutil.NowMillis()
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Producers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			p.produce(idx)
		}(i)
	}
	for i := 0; i < p.cfg.Consumers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			p.consume(idx)
		}(i)
	}

	var err error
	select {
	case <-p.done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	p.pool.Close()
	wg.Wait()

	st := p.Stats()
	xlog.InfoF("pipeline finished: produced=%d consumed=%d failed=%d in %dms",
		st.Produced, st.Consumed, st.Failed, xutil.SinceMillis(start))
	xlog.GetZapLogger().Info("pipeline finished",
		zap.Uint64("produced", st.Produced),
		zap.Uint64("consumed", st.Consumed),
		zap.Uint64("failed", st.Failed),
		zap.Uint64("stalls", st.Stalls),
		zap.Int64("latency_max_ms", st.LatencyMaxMs),
		zap.Int64("elapsed_ms", xutil.SinceMillis(start)),
	)
	return err
}

// pop waits on one channel, logging a stall each time the timeout passes.
// It returns false once the pool is closed.
func (p *Pipeline) pop(stage string, idx int, popFn func(time.Duration) (xbuffer.Buffer, error)) (xbuffer.Buffer, bool) {
	for {
		b, err := popFn(p.cfg.PopTimeout)
		switch err {
		case nil:
			return b, true
		case xbuffer.ErrTimeout:
			p.stalls.Inc()
			xlog.Warnf("%s[%d] waited %v for a buffer", stage, idx, p.cfg.PopTimeout)
		default:
			return b, false
		}
	}
}

func (p *Pipeline) produce(idx int) {
	for {
		seq := p.seq.Inc()
		if p.cfg.Frames > 0 && seq > uint64(p.cfg.Frames) {
			return
		}
		b, ok := p.pop("producer", idx, p.pool.PopPacketTimeout)
		if !ok {
			return
		}
		if code := p.fill(seq, b.Bytes()[:p.cfg.FrameSize]); code.IsError() {
			p.reportFailure("producer", idx, seq, code)
			_ = p.pool.PushPacket(&b)
			// a dropped frame still counts toward the target
			p.finish()
			continue
		}
		p.produced.Inc()
		_ = p.pool.PushScale(&b)
	}
}

func (p *Pipeline) consume(idx int) {
	for {
		b, ok := p.pop("consumer", idx, p.pool.PopScaleTimeout)
		if !ok {
			return
		}
		frame := b.Bytes()[:p.cfg.FrameSize]
		if code := p.process(frame); code.IsError() {
			p.reportFailure("consumer", idx, frameSeq(frame), code)
		} else {
			p.consumed.Inc()
			p.recordLatency(xutil.NowMillis() - frameStamp(frame))
		}
		_ = p.pool.PushPacket(&b)
		p.finish()
	}
}

func (p *Pipeline) reportFailure(stage string, idx int, seq uint64, code averror.Code) {
	p.failed.Inc()
	averror.PrintError(p.errWriter, code)
	xlog.Errorf("%s[%d] frame %d: %s", stage, idx, seq, averror.ErrorString(code))
}

func (p *Pipeline) recordLatency(ms int64) {
	if ms < 0 {
		ms = 0
	}
	p.latTotal.Add(ms)
	for {
		cur := p.latMax.Load()
		if ms <= cur || p.latMax.CAS(cur, ms) {
			return
		}
	}
}

// finish closes done once every frame has been accounted for.
func (p *Pipeline) finish() {
	if p.cfg.Frames <= 0 {
		return
	}
	total := p.consumed.Load() + p.failed.Load()
	if total >= uint64(p.cfg.Frames) {
		p.doneOnce.Do(func() { close(p.done) })
	}
}

// Done is closed when the frame target has been reached.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

type Stats struct {
	Produced       uint64
	Consumed       uint64
	Failed         uint64
	Stalls         uint64
	LatencyTotalMs int64
	LatencyMaxMs   int64
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		Produced:       p.produced.Load(),
		Consumed:       p.consumed.Load(),
		Failed:         p.failed.Load(),
		Stalls:         p.stalls.Load(),
		LatencyTotalMs: p.latTotal.Load(),
		LatencyMaxMs:   p.latMax.Load(),
	}
}
