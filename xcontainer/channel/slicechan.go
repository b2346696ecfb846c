package channel

import (
	"context"
	"sync"
	"time"

	"xframe/xcontainer/queue"
)

// mpmc channel

var _ Channel[int] = (*SliceChan[int])(nil)

type SliceChan[T any] struct {
	queue    *queue.Queue[T]
	mu       sync.Mutex
	nonEmpty *sync.Cond
	closed   bool
}

func NewSliceChan[T any](bufLen int) *SliceChan[T] {
	s := &SliceChan[T]{}
	s.Init(bufLen)
	return s
}

func (s *SliceChan[T]) Init(bufLen int) {
	s.queue = queue.NewWithSize[T](bufLen)
	s.nonEmpty = sync.NewCond(&s.mu)
}

// Write never blocks. Elements written after Close stay queued until Drain.
func (s *SliceChan[T]) Write(ele T) {
	s.mu.Lock()
	s.queue.Push(ele)
	s.mu.Unlock()
	s.nonEmpty.Broadcast()
}

func (s *SliceChan[T]) TryRead() (ret T, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ret, false
	}
	return s.queue.Pop()
}

// Read blocks until an element is available or the channel is closed.
func (s *SliceChan[T]) Read() (ret T, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.queue.Length() < 1 && !s.closed {
		s.nonEmpty.Wait()
	}
	if s.closed {
		return ret, false
	}
	return s.queue.Pop()
}

func (s *SliceChan[T]) ReadContext(ctx context.Context) (ret T, err error) {
	if err = ctx.Err(); err != nil {
		return ret, err
	}
	// cond.Wait can't select on ctx, so a watcher broadcasts when it fires
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.nonEmpty.Broadcast()
			s.mu.Unlock()
		case <-stop:
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	for s.queue.Length() < 1 && !s.closed {
		if err = ctx.Err(); err != nil {
			return ret, err
		}
		s.nonEmpty.Wait()
	}
	if s.closed {
		return ret, ErrClosed
	}
	ret, _ = s.queue.Pop()
	return ret, nil
}

func (s *SliceChan[T]) ReadTimeout(d time.Duration) (ret T, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	ret, err = s.ReadContext(ctx)
	if err == context.DeadlineExceeded {
		return ret, ErrTimeout
	}
	return ret, err
}

// Drain removes every queued element in FIFO order, closed or not.
func (s *SliceChan[T]) Drain() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, 0, s.queue.Length())
	s.queue.Clear(func(ele T) {
		out = append(out, ele)
	})
	return out
}

func (s *SliceChan[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Length()
}

func (s *SliceChan[T]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *SliceChan[T]) Close() {
	s.mu.Lock()
	s.closed = true
	s.nonEmpty.Broadcast()
	s.mu.Unlock()
}
