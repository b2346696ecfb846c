package xutil

import (
	"bytes"
	"fmt"
	"net/http"
	"runtime"
	"runtime/pprof"
	"time"
)

/*
	调试命令
*/

var units = []string{"bytes", "KB", "MB", "GB", "TB", "PB"}

func FormatBytes(val uint64) string {
	var i int
	var target uint64
	for i = range units {
		target = 1 << uint(10*(i+1))
		if val < target {
			break
		}
	}
	if i > 0 {
		return fmt.Sprintf("%0.2f%s (%d bytes)",
			float64(val)/(float64(target)/1024), units[i], val)
	}
	return fmt.Sprintf("%d bytes", val)
}

func defaultCmd(app *Application) {
	app.HandleHttpCmd("/help", func(args []string) string {
		buffer := new(bytes.Buffer)
		for _, cmd := range app.Commands() {
			buffer.WriteString(cmd)
			buffer.WriteString("\n")
		}
		return buffer.String()
	})

	app.serveMux.HandleFunc("/debug/stack", func(w http.ResponseWriter, r *http.Request) {
		err := pprof.Lookup("goroutine").WriteTo(w, 2)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(err.Error()))
		}
	})

	app.serveMux.HandleFunc("/debug/mem", func(w http.ResponseWriter, r *http.Request) {
		var s runtime.MemStats
		runtime.ReadMemStats(&s)
		_, _ = fmt.Fprintf(w, "alloc: %v\n", FormatBytes(s.Alloc))
		_, _ = fmt.Fprintf(w, "total-alloc: %v\n", FormatBytes(s.TotalAlloc))
		_, _ = fmt.Fprintf(w, "sys: %v\n", FormatBytes(s.Sys))
		_, _ = fmt.Fprintf(w, "heap-alloc: %v\n", FormatBytes(s.HeapAlloc))
		_, _ = fmt.Fprintf(w, "heap-in-use: %v\n", FormatBytes(s.HeapInuse))
		_, _ = fmt.Fprintf(w, "heap-released: %v\n", FormatBytes(s.HeapReleased))
		_, _ = fmt.Fprintf(w, "heap-object: %v\n", s.HeapObjects)
		_, _ = fmt.Fprintf(w, "next-gc: when heap-alloc >= %v\n", FormatBytes(s.NextGC))
		lastGC := "-"
		if s.LastGC != 0 {
			lastGC = fmt.Sprint(time.Unix(0, int64(s.LastGC)))
		}
		_, _ = fmt.Fprintf(w, "last-gc: %v\n", lastGC)
		_, _ = fmt.Fprintf(w, "gc-pause-total: %v\n", time.Duration(s.PauseTotalNs))
		_, _ = fmt.Fprintf(w, "num-gc: %v\n", s.NumGC)
	})

	app.serveMux.HandleFunc("/debug/stat", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, "goroutines: %v\n", runtime.NumGoroutine())
		_, _ = fmt.Fprintf(w, "OS Threads: %v\n", pprof.Lookup("threadcreate").Count())
		_, _ = fmt.Fprintf(w, "GOMAXPROCS: %v\n", runtime.GOMAXPROCS(0))
		_, _ = fmt.Fprintf(w, "num CPU: %v\n", runtime.NumCPU())
		_, _ = fmt.Fprintf(w, "go version: %v\n", runtime.Version())
	})
}
