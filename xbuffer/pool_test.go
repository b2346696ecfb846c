package xbuffer

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"
	"unsafe"
)

func TestPoolInitSeedsPacketChannel(t *testing.T) {
	p := NewPacketScaleQueue()
	defer p.Destroy()
	if err := p.Init(8, 512); err != nil {
		t.Fatal(err)
	}
	if p.PacketSize() != 8 || p.ScaleSize() != 0 {
		t.Fatalf("sizes packet=%d scale=%d", p.PacketSize(), p.ScaleSize())
	}
	if p.BufferSize() != 512 {
		t.Fatalf("BufferSize = %d", p.BufferSize())
	}
	for i := 0; i < 8; i++ {
		b, ok := p.PopPacket()
		if !ok {
			t.Fatal("pop failed")
		}
		// length records the capacity, not the buffer count
		if b.Len() != 512 || len(b.Bytes()) != 512 || cap(b.Bytes()) != 512 {
			t.Fatalf("buffer %d: Len=%d len=%d cap=%d", i, b.Len(), len(b.Bytes()), cap(b.Bytes()))
		}
		_ = p.PushPacket(&b)
	}
}

func TestPoolExampleScenario(t *testing.T) {
	p := NewPacketScaleQueue()
	defer p.Destroy()
	if err := p.Init(4, 1024); err != nil {
		t.Fatal(err)
	}
	if p.PacketSize() != 4 {
		t.Fatalf("PacketSize = %d, want 4", p.PacketSize())
	}

	bufs := make([]Buffer, 4)
	for i := range bufs {
		bufs[i], _ = p.PopPacket()
	}
	for i := range bufs {
		if err := p.PushScale(&bufs[i]); err != nil {
			t.Fatal(err)
		}
	}
	if p.PacketSize() != 0 || p.ScaleSize() != 4 {
		t.Fatalf("after move: packet=%d scale=%d", p.PacketSize(), p.ScaleSize())
	}
	if _, ok := p.PopScale(); !ok {
		t.Fatal("PopScale failed")
	}
	if p.ScaleSize() != 3 {
		t.Fatalf("ScaleSize = %d, want 3", p.ScaleSize())
	}
}

func TestPoolChannelsIndependent(t *testing.T) {
	p := NewPacketScaleQueue()
	defer p.Destroy()

	for i := 0; i < 3; i++ {
		b := tagged(byte(i))
		_ = p.PushPacket(&b)
	}
	if p.ScaleSize() != 0 {
		t.Fatalf("packet pushes changed scale size to %d", p.ScaleSize())
	}
	b := tagged(9)
	_ = p.PushScale(&b)
	if p.PacketSize() != 3 {
		t.Fatalf("scale push changed packet size to %d", p.PacketSize())
	}

	// a consumer blocked on scale is not woken by packet traffic
	got := make(chan Buffer, 1)
	_, _ = p.PopScale()
	go func() {
		b, _ := p.PopScale()
		got <- b
	}()
	c := tagged(7)
	_ = p.PushPacket(&c)
	select {
	case <-got:
		t.Fatal("scale pop returned after a packet push")
	case <-time.After(50 * time.Millisecond):
	}
	d := tagged(8)
	_ = p.PushScale(&d)
	select {
	case b := <-got:
		if b.Bytes()[0] != 8 {
			t.Fatalf("scale pop returned %v", b.Bytes())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scale pop not woken")
	}
}

func TestPoolInitErrors(t *testing.T) {
	tests := []struct {
		name        string
		count, size int
	}{
		{"zero count", 0, 1024},
		{"negative size", 4, -1},
		{"overflow", math.MaxInt / 2, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPacketScaleQueue()
			if err := p.Init(tt.count, tt.size); !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("Init err = %v, want ErrInvalidArgument", err)
			}
			if p.PacketSize() != 0 {
				t.Fatal("failed Init left buffers behind")
			}
		})
	}

	p := NewPacketScaleQueue()
	defer p.Destroy()
	if err := p.Init(1, 16); err != nil {
		t.Fatal(err)
	}
	if err := p.Init(1, 16); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second Init err = %v", err)
	}
}

func TestPoolDestroyReleasesExactlyOnce(t *testing.T) {
	p := NewPacketScaleQueue()
	if err := p.Init(6, 64); err != nil {
		t.Fatal(err)
	}
	a, _ := p.PopPacket()
	b, _ := p.PopPacket()
	c, _ := p.PopPacket()
	_ = p.PushScale(&a)
	_ = p.PushScale(&b)
	// c stays with the caller

	if n := p.Destroy(); n != 5 {
		t.Fatalf("Destroy released %d, want 5", n)
	}
	st := p.Stats()
	if st.Allocated != 6 || st.Released != 5 || st.PacketSize != 0 || st.ScaleSize != 0 {
		t.Fatalf("stats after destroy = %+v", st)
	}
	if _, ok := p.PopPacket(); ok {
		t.Fatal("pop succeeded on destroyed pool")
	}

	// a late push is still reclaimed, and nothing is released twice
	_ = p.PushPacket(&c)
	if n := p.Destroy(); n != 1 {
		t.Fatalf("second Destroy released %d, want 1", n)
	}
	if n := p.Destroy(); n != 0 {
		t.Fatalf("third Destroy released %d, want 0", n)
	}
	st = p.Stats()
	if st.Released != st.Allocated {
		t.Fatalf("released %d of %d", st.Released, st.Allocated)
	}
	if err := p.Init(1, 1); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("Init after Destroy err = %v", err)
	}
}

func TestPoolCloseUnblocksWaiters(t *testing.T) {
	p := NewPacketScaleQueue()
	defer p.Destroy()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, ok := p.PopPacket(); ok {
			t.Error("PopPacket succeeded after close")
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := p.PopScaleContext(context.Background()); !errors.Is(err, ErrClosed) {
			t.Errorf("PopScaleContext err = %v", err)
		}
	}()
	time.Sleep(20 * time.Millisecond)
	p.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not unblock waiters")
	}
}

func TestPoolCirculation(t *testing.T) {
	const n, rounds = 4, 200
	p := NewPacketScaleQueue()
	if err := p.Init(n, 32); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { // producer
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			b, err := p.PopPacketTimeout(2 * time.Second)
			if err != nil {
				t.Errorf("producer: %v", err)
				return
			}
			b.Bytes()[0] = byte(i)
			_ = p.PushScale(&b)
		}
	}()
	go func() { // consumer
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			b, err := p.PopScaleTimeout(2 * time.Second)
			if err != nil {
				t.Errorf("consumer: %v", err)
				return
			}
			if b.Bytes()[0] != byte(i) {
				t.Errorf("consumer got frame %d, want %d", b.Bytes()[0], i)
			}
			_ = p.PushPacket(&b)
		}
	}()
	wg.Wait()

	st := p.Stats()
	if st.PacketSize+st.ScaleSize != n {
		t.Fatalf("pool holds %d buffers, want %d", st.PacketSize+st.ScaleSize, n)
	}
	if st.ScalePops != rounds || st.ScalePushes != rounds {
		t.Fatalf("scale counters = %d/%d", st.ScalePushes, st.ScalePops)
	}
	if released := p.Destroy(); released != n {
		t.Fatalf("Destroy released %d, want %d", released, n)
	}
}

func TestPoolInitDefault(t *testing.T) {
	p := NewPacketScaleQueue()
	defer p.Destroy()
	if err := p.InitDefault(); err != nil {
		t.Fatal(err)
	}
	st := p.Stats()
	if st.Allocated != DefaultBufferCount || st.BufferSize != DefaultBufferSize || st.PacketSize != DefaultBufferCount {
		t.Fatalf("stats = %+v", st)
	}
	// 16 x 4MB fits one 64MB chunk
	if st.Chunks != 1 {
		t.Fatalf("chunks = %d, want 1", st.Chunks)
	}

	b, ok := p.TryPopPacket()
	if !ok || b.Len() != DefaultBufferSize {
		t.Fatalf("TryPopPacket = %d %v", b.Len(), ok)
	}
	if _, ok := p.TryPopScale(); ok {
		t.Fatal("TryPopScale succeeded on an empty channel")
	}
	_ = p.PushScale(&b)
	if b, ok = p.TryPopScale(); !ok || b.Len() != DefaultBufferSize {
		t.Fatalf("TryPopScale = %d %v", b.Len(), ok)
	}
	_ = p.PushPacket(&b)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < DefaultBufferCount; i++ {
		b, err := p.PopPacketContext(ctx)
		if err != nil {
			t.Fatalf("PopPacketContext %d: %v", i, err)
		}
		_ = p.PushScale(&b)
	}
	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	if _, err := p.PopPacketContext(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("PopPacketContext on empty channel err = %v", err)
	}
}

func TestPoolDestroyIgnoresForeignBuffers(t *testing.T) {
	p := NewPacketScaleQueue()
	f := NewBuffer([]byte{1})
	_ = p.PushPacket(&f)
	if n := p.Destroy(); n != 0 {
		t.Fatalf("Destroy counted %d foreign buffers", n)
	}
	if st := p.Stats(); st.Allocated != 0 || st.Released != 0 || st.PacketSize != 0 {
		t.Fatalf("stats = %+v", st)
	}

	// a foreign buffer cannot stand in for a leaked pool buffer
	p = NewPacketScaleQueue()
	if err := p.Init(2, 16); err != nil {
		t.Fatal(err)
	}
	held, _ := p.PopPacket()
	g := NewBuffer(make([]byte, 16))
	_ = p.PushPacket(&g)
	if n := p.Destroy(); n != 1 {
		t.Fatalf("Destroy released %d, want 1", n)
	}
	if st := p.Stats(); st.Allocated != 2 || st.Released != 1 {
		t.Fatalf("stats = %+v", st)
	}
	_ = p.PushPacket(&held)
	if n := p.Destroy(); n != 1 {
		t.Fatalf("late Destroy released %d, want 1", n)
	}
}

// 64-bit atomics must sit on 8-byte boundaries on 386 and arm.
func TestCounterAlignment(t *testing.T) {
	var q BufferQueue
	var p PacketScaleQueue
	offsets := map[string]uintptr{
		"BufferQueue.pushes":         unsafe.Offsetof(q.pushes),
		"BufferQueue.pops":           unsafe.Offsetof(q.pops),
		"PacketScaleQueue.allocated": unsafe.Offsetof(p.allocated),
		"PacketScaleQueue.released":  unsafe.Offsetof(p.released),
	}
	for name, off := range offsets {
		if off%8 != 0 {
			t.Errorf("%s at offset %d", name, off)
		}
	}
}
