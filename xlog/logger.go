package xlog

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	blockCount uint64
	logCount   uint64
	logBytes   uint64
)

var errLogChanFull = errors.New("log chan Full")

// Logger is an asynchronous rotating file writer. Writes are copied onto a
// bounded channel and dropped (and counted) when the channel is full.
type Logger struct {
	inputQ chan []byte
	closeQ chan int
	flushQ chan chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
	l      *lumberjack.Logger
}

func (l *Logger) Write(p []byte) (n int, err error) {
	slice := make([]byte, len(p))
	copy(slice, p)
	select {
	case l.inputQ <- slice:
		return len(slice), nil
	default:
		atomic.AddUint64(&blockCount, 1)
		return 0, errLogChanFull
	}
}

func (l *Logger) Close() error {
	l.once.Do(func() {
		l.wg.Add(1)
		close(l.closeQ)
		l.wg.Wait()
	})
	return nil
}

// Sync blocks until everything queued before the call has been written.
func (l *Logger) Sync() error {
	done := make(chan struct{})
	select {
	case l.flushQ <- done:
		<-done
	case <-l.closeQ:
	}
	return nil
}

func NewLogger(fname string, msize, mage, mbackups, qsize, flushInterval int) *Logger {
	realLogger := &lumberjack.Logger{
		Filename:   fname,
		MaxSize:    msize,
		MaxAge:     mage,
		MaxBackups: mbackups,
	}
	if flushInterval <= 0 {
		flushInterval = 1
	}

	l := &Logger{
		inputQ: make(chan []byte, qsize),
		closeQ: make(chan int),
		flushQ: make(chan chan struct{}),
		l:      realLogger,
	}

	drain := func() {
		for {
			select {
			case p := <-l.inputQ:
				atomic.AddUint64(&logCount, 1)
				atomic.AddUint64(&logBytes, uint64(len(p)))
				_, _ = realLogger.Write(p)
			default:
				return
			}
		}
	}

	go func() {
		ticker := time.NewTicker(time.Second * time.Duration(flushInterval))
		defer ticker.Stop()
		for {
			select {
			case p := <-l.inputQ:
				atomic.AddUint64(&logCount, 1)
				atomic.AddUint64(&logBytes, uint64(len(p)))
				_, _ = realLogger.Write(p)
			case <-ticker.C:
				// 刷新
			case done := <-l.flushQ:
				drain()
				close(done)
			case <-l.closeQ:
				drain()
				_ = realLogger.Close()
				l.wg.Done()
				return
			}
		}
	}()

	return l
}

func BlockCount() uint64 {
	return atomic.LoadUint64(&blockCount)
}

func LogCount() uint64 {
	return atomic.LoadUint64(&logCount)
}

func LogBytes() uint64 {
	return atomic.LoadUint64(&logBytes)
}
