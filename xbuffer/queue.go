package xbuffer

import (
	"context"
	"time"

	"go.uber.org/atomic"

	"xframe/xcontainer/channel"
)

const initQueueLen = 16

// BufferQueue is a FIFO of Buffers safe for any number of producers and
// consumers. Push never blocks; Pop waits until a buffer arrives or the
// queue is closed.
type BufferQueue struct {
	// 64-bit counters stay first so they are 8-byte aligned on 32-bit platforms.
	pushes atomic.Uint64
	pops   atomic.Uint64
	ch     channel.SliceChan[Buffer]
}

func NewBufferQueue() *BufferQueue {
	q := &BufferQueue{}
	q.ch.Init(initQueueLen)
	return q
}

// Push moves b to the tail and wakes every blocked Pop. b is left invalid.
// Pushing after Close still enqueues, so teardown can reclaim the block.
func (q *BufferQueue) Push(b *Buffer) error {
	if b == nil || !b.Valid() {
		return ErrInvalidBuffer
	}
	q.pushes.Inc()
	q.ch.Write(b.take())
	return nil
}

// Pop blocks until the queue is non-empty and returns its head. ok is false
// once the queue is closed.
func (q *BufferQueue) Pop() (b Buffer, ok bool) {
	b, ok = q.ch.Read()
	if ok {
		q.pops.Inc()
	}
	return b, ok
}

// TryPop returns the head without waiting.
func (q *BufferQueue) TryPop() (b Buffer, ok bool) {
	b, ok = q.ch.TryRead()
	if ok {
		q.pops.Inc()
	}
	return b, ok
}

// PopContext is Pop bounded by ctx. It returns ctx.Err() when ctx ends
// first and ErrClosed when the queue is closed.
func (q *BufferQueue) PopContext(ctx context.Context) (Buffer, error) {
	b, err := q.ch.ReadContext(ctx)
	return q.popResult(b, err)
}

// PopTimeout is Pop bounded by d; it returns ErrTimeout when d elapses.
func (q *BufferQueue) PopTimeout(d time.Duration) (Buffer, error) {
	b, err := q.ch.ReadTimeout(d)
	return q.popResult(b, err)
}

func (q *BufferQueue) popResult(b Buffer, err error) (Buffer, error) {
	switch err {
	case nil:
		q.pops.Inc()
		return b, nil
	case channel.ErrClosed:
		return Buffer{}, ErrClosed
	case channel.ErrTimeout:
		return Buffer{}, ErrTimeout
	}
	return Buffer{}, err
}

// Size is an advisory snapshot; do not base correctness decisions on it.
func (q *BufferQueue) Size() int {
	return q.ch.Len()
}

// Close wakes every waiter; later Pops fail. Queued buffers stay for Drain.
func (q *BufferQueue) Close() {
	q.ch.Close()
}

func (q *BufferQueue) Closed() bool {
	return q.ch.Closed()
}

// Drain removes and returns every queued buffer in FIFO order.
func (q *BufferQueue) Drain() []Buffer {
	return q.ch.Drain()
}

func (q *BufferQueue) Pushes() uint64 {
	return q.pushes.Load()
}

func (q *BufferQueue) Pops() uint64 {
	return q.pops.Load()
}
