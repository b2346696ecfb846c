package channel

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrClosed  = errors.New("channel: closed")
	ErrTimeout = errors.New("channel: read timeout")
)

type Channel[T any] interface {
	Write(T)
	TryRead() (T, bool)
	Read() (T, bool)
	ReadContext(ctx context.Context) (T, error)
	ReadTimeout(d time.Duration) (T, error)
	Drain() []T
	Close()
	Closed() bool
	Len() int
}
