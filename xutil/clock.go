package xutil

import "time"

// NowMillis returns the wall clock in milliseconds since the Unix epoch.
func NowMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// SinceMillis returns how many milliseconds have passed since start, a value
// previously returned by NowMillis.
func SinceMillis(start int64) int64 {
	return NowMillis() - start
}
