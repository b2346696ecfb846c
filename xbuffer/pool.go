package xbuffer

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"xframe/xlog"
	"xframe/xmemory"
)

const (
	DefaultBufferCount = 16
	DefaultBufferSize  = 4 * 1024 * 1024

	// buffers are carved from slabs of at most this size
	maxChunkSize = 64 * 1024 * 1024
)

// PacketScaleQueue owns a fixed pool of buffers and two independent
// channels, "packet" and "scale", for circulating them. The channels have
// separate locks and never contend with each other.
//
// Init seeds every buffer into the packet channel. Callers recycle buffers
// by pushing them back into either channel instead of allocating new ones.
// Destroy is the only place buffers are released; it must not race with
// pushes or pops. Only buffers carved by Init count as allocated or
// released; foreign buffers pushed in are dropped without being counted.
type PacketScaleQueue struct {
	allocated atomic.Int64
	released  atomic.Int64

	packet *BufferQueue
	scale  *BufferQueue

	mu         sync.Mutex
	inited     bool
	destroyed  bool
	bufferSize int
	alloc      *xmemory.BlockAllocator
}

// PoolStats is a point-in-time view of the pool, consistent per field only.
type PoolStats struct {
	BufferSize   int
	Allocated    int64
	Released     int64
	PacketSize   int
	ScaleSize    int
	PacketPushes uint64
	PacketPops   uint64
	ScalePushes  uint64
	ScalePops    uint64
	Chunks       int
}

func NewPacketScaleQueue() *PacketScaleQueue {
	return &PacketScaleQueue{
		packet: NewBufferQueue(),
		scale:  NewBufferQueue(),
	}
}

// InitDefault seeds 16 buffers of 4MB each.
func (p *PacketScaleQueue) InitDefault() error {
	return p.Init(DefaultBufferCount, DefaultBufferSize)
}

// Init allocates bufferCount buffers of bufferSize bytes and pushes all of
// them into the packet channel. Each buffer's length is bufferSize.
func (p *PacketScaleQueue) Init(bufferCount, bufferSize int) error {
	if bufferCount <= 0 || bufferSize <= 0 {
		return errors.Wrapf(ErrInvalidArgument, "buffer count %d, size %d", bufferCount, bufferSize)
	}
	if bufferCount > math.MaxInt/bufferSize {
		return errors.Wrapf(ErrInvalidArgument, "pool of %d x %d bytes overflows", bufferCount, bufferSize)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inited || p.destroyed {
		return ErrAlreadyInitialized
	}

	chunk := bufferCount * bufferSize
	if chunk > maxChunkSize {
		chunk = maxChunkSize
	}
	alloc, err := xmemory.NewBlockAllocator(bufferSize, chunk)
	if err != nil {
		return errors.Wrap(err, "PacketScaleQueue.Init")
	}
	for i := 0; i < bufferCount; i++ {
		b := NewBuffer(alloc.Alloc())
		b.pooled = true
		if err := p.packet.Push(&b); err != nil {
			return errors.Wrap(err, "PacketScaleQueue.Init")
		}
		p.allocated.Inc()
	}
	p.alloc = alloc
	p.bufferSize = bufferSize
	p.inited = true
	xlog.InfoF("PacketScaleQueue init %d buffers x %d bytes in %d chunks",
		bufferCount, bufferSize, alloc.Stats().Chunks)
	return nil
}

func (p *PacketScaleQueue) PushPacket(b *Buffer) error {
	return p.packet.Push(b)
}

func (p *PacketScaleQueue) PopPacket() (Buffer, bool) {
	return p.packet.Pop()
}

func (p *PacketScaleQueue) TryPopPacket() (Buffer, bool) {
	return p.packet.TryPop()
}

func (p *PacketScaleQueue) PopPacketContext(ctx context.Context) (Buffer, error) {
	return p.packet.PopContext(ctx)
}

func (p *PacketScaleQueue) PopPacketTimeout(d time.Duration) (Buffer, error) {
	return p.packet.PopTimeout(d)
}

func (p *PacketScaleQueue) PacketSize() int {
	return p.packet.Size()
}

func (p *PacketScaleQueue) PushScale(b *Buffer) error {
	return p.scale.Push(b)
}

func (p *PacketScaleQueue) PopScale() (Buffer, bool) {
	return p.scale.Pop()
}

func (p *PacketScaleQueue) TryPopScale() (Buffer, bool) {
	return p.scale.TryPop()
}

func (p *PacketScaleQueue) PopScaleContext(ctx context.Context) (Buffer, error) {
	return p.scale.PopContext(ctx)
}

func (p *PacketScaleQueue) PopScaleTimeout(d time.Duration) (Buffer, error) {
	return p.scale.PopTimeout(d)
}

func (p *PacketScaleQueue) ScaleSize() int {
	return p.scale.Size()
}

// BufferSize is the capacity of every pooled buffer, 0 before Init.
func (p *PacketScaleQueue) BufferSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bufferSize
}

// Close unblocks every goroutine waiting on either channel.
func (p *PacketScaleQueue) Close() {
	p.packet.Close()
	p.scale.Close()
}

// Destroy closes both channels, drains them and releases every buffer they
// held. It returns the number of pool buffers released by this call.
func (p *PacketScaleQueue) Destroy() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Close()

	n, foreign := 0, 0
	for _, q := range []*BufferQueue{p.packet, p.scale} {
		for _, b := range q.Drain() {
			pooled := b.pooled
			if !b.Release() {
				continue
			}
			if pooled {
				n++
			} else {
				foreign++
			}
		}
	}
	p.released.Add(int64(n))
	if foreign > 0 {
		xlog.Warnf("PacketScaleQueue destroy dropped %d buffers not allocated by the pool", foreign)
	}
	if !p.destroyed {
		allocated := p.allocated.Load()
		released := p.released.Load()
		if released < allocated {
			xlog.Warnf("PacketScaleQueue destroy released %d of %d buffers, %d still held by callers",
				released, allocated, allocated-released)
		} else {
			xlog.InfoF("PacketScaleQueue destroy released %d buffers", released)
		}
	}
	p.destroyed = true
	p.alloc = nil
	return n
}

func (p *PacketScaleQueue) Stats() PoolStats {
	p.mu.Lock()
	bufferSize := p.bufferSize
	chunks := 0
	if p.alloc != nil {
		chunks = p.alloc.Stats().Chunks
	}
	p.mu.Unlock()
	return PoolStats{
		BufferSize:   bufferSize,
		Allocated:    p.allocated.Load(),
		Released:     p.released.Load(),
		PacketSize:   p.packet.Size(),
		ScaleSize:    p.scale.Size(),
		PacketPushes: p.packet.Pushes(),
		PacketPops:   p.packet.Pops(),
		ScalePushes:  p.scale.Pushes(),
		ScalePops:    p.scale.Pops(),
		Chunks:       chunks,
	}
}
