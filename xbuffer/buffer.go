// Package xbuffer hands raw frame buffers between pipeline goroutines.
//
// A Buffer is owned by exactly one holder at a time. Pushing a Buffer into a
// queue moves it: the caller's copy is zeroed and reports Valid() == false,
// so a buffer cannot be handed off twice or touched after the hand-off.
package xbuffer

import "github.com/pkg/errors"

var (
	ErrInvalidBuffer      = errors.New("xbuffer: invalid or moved-from buffer")
	ErrInvalidArgument    = errors.New("xbuffer: invalid argument")
	ErrAlreadyInitialized = errors.New("xbuffer: pool already initialized")
	ErrClosed             = errors.New("xbuffer: queue closed")
	ErrTimeout            = errors.New("xbuffer: pop timeout")
)

// Buffer pairs a memory block with its length. For pooled buffers Length is
// the allocated capacity, not the number of valid bytes.
type Buffer struct {
	data   []byte
	length int
	pooled bool // carved by PacketScaleQueue.Init
}

// NewBuffer wraps data; the returned Buffer owns it. It is not counted
// against any pool.
func NewBuffer(data []byte) Buffer {
	return Buffer{data: data, length: len(data)}
}

// Valid reports whether b still owns a block.
func (b *Buffer) Valid() bool {
	return b.data != nil
}

// Bytes returns the whole block, nil once moved or released.
func (b *Buffer) Bytes() []byte {
	return b.data
}

func (b *Buffer) Len() int {
	return b.length
}

// take moves the value out of b and leaves b invalid.
func (b *Buffer) take() Buffer {
	v := *b
	*b = Buffer{}
	return v
}

// Release drops the block and invalidates b. It reports whether b owned
// anything, so a second Release is a no-op returning false.
func (b *Buffer) Release() bool {
	if b.data == nil {
		return false
	}
	*b = Buffer{}
	return true
}
