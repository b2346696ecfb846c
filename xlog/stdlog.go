package xlog

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"
)

var (
	logLevel     = atomic.NewInt32(int32(infoLog))
	mu           sync.Mutex
	std          *log.Logger
	stdWriter    io.WriteCloser
	console      = log.New(os.Stderr, "", log.Lshortfile)
	logToConsole = true
)

const (
	offLog   int = iota // 0
	debugLog            // 1
	infoLog             // 2
	warnLog             // 3
	errorLog            // 4
	fatalLog            // 5

	stdTimeFormat = "2006-01-02T15:04:05.99999Z07:00 " // RFC3339Nano
)

var logName = []string{
	debugLog: "[DEBUG] ",
	infoLog:  "[INFO] ",
	warnLog:  "[WARN] ",
	errorLog: "[ERROR] ",
	fatalLog: "[FATAL] ",
}

// Config describes where logs go. Zero MaxSize/MaxAge/MaxBackups fall back
// to 100MB / 30 days / 200 files.
type Config struct {
	Dir        string `toml:"dir" yaml:"dir" json:"dir"`
	Name       string `toml:"name" yaml:"name" json:"name"`
	Level      string `toml:"level" yaml:"level" json:"level"`
	Console    bool   `toml:"console" yaml:"console" json:"console"`
	MaxSize    int    `toml:"max_size_mb" yaml:"max_size_mb" json:"max_size_mb"`
	MaxAge     int    `toml:"max_age_days" yaml:"max_age_days" json:"max_age_days"`
	MaxBackups int    `toml:"max_backups" yaml:"max_backups" json:"max_backups"`
	QueueSize  int    `toml:"queue_size" yaml:"queue_size" json:"queue_size"`
	Flush      int    `toml:"flush_seconds" yaml:"flush_seconds" json:"flush_seconds"`
}

// ParseLevel maps debug/info/warn/error/fatal (or "" for info) to a level.
func ParseLevel(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all":
		return offLog, nil
	case "debug":
		return debugLog, nil
	case "", "info":
		return infoLog, nil
	case "warn", "warning":
		return warnLog, nil
	case "error":
		return errorLog, nil
	case "fatal":
		return fatalLog, nil
	}
	return infoLog, fmt.Errorf("xlog: unknown level %q", s)
}

// Setup installs the file writer described by cfg. An empty Dir keeps
// logging on the console only.
func Setup(cfg Config) error {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	logLevel.Store(int32(lvl))
	logToConsole = cfg.Console
	if cfg.Dir == "" {
		logToConsole = true
		return nil
	}

	if err := os.MkdirAll(cfg.Dir, 0744); err != nil {
		return fmt.Errorf("xlog: make logs dir %s: %w", cfg.Dir, err)
	}
	name := cfg.Name
	if name == "" {
		name = filepath.Base(os.Args[0])
	}
	msize, mage, mbackups := cfg.MaxSize, cfg.MaxAge, cfg.MaxBackups
	if msize <= 0 {
		msize = 100
	}
	if mage <= 0 {
		mage = 30
	}
	if mbackups <= 0 {
		mbackups = 200
	}
	qsize := cfg.QueueSize
	if qsize <= 0 {
		qsize = 1024
	}
	if stdWriter != nil {
		_ = stdWriter.Close()
	}
	stdWriter = NewLogger(filepath.Join(cfg.Dir, name+".log"), msize, mage, mbackups, qsize, cfg.Flush)
	std = log.New(stdWriter, "", log.Lshortfile)
	return nil
}

func output(lvl int, skip int, format string, v ...interface{}) {
	preFix := logName[lvl]
	var str string
	if format == "" {
		str = fmt.Sprint(v...)
	} else {
		str = fmt.Sprintf(format, v...)
	}

	preFix += time.Now().Format(stdTimeFormat)
	mu.Lock()
	defer mu.Unlock()
	if std != nil {
		std.SetPrefix(preFix)
		_ = std.Output(skip+3, str)
	}
	if logToConsole {
		console.SetPrefix(preFix)
		_ = console.Output(skip+3, str)
	}
}

func enabled(lvl int) bool {
	return int(logLevel.Load()) <= lvl
}

func Debug(v ...interface{}) {
	if !enabled(debugLog) {
		return
	}
	output(debugLog, 0, "", v...)
}

func Debugf(format string, v ...interface{}) {
	if !enabled(debugLog) {
		return
	}
	output(debugLog, 0, format, v...)
}

func Info(v ...interface{}) {
	if !enabled(infoLog) {
		return
	}
	output(infoLog, 0, "", v...)
}

func InfoF(format string, v ...interface{}) {
	if !enabled(infoLog) {
		return
	}
	output(infoLog, 0, format, v...)
}

func Warn(v ...interface{}) {
	if !enabled(warnLog) {
		return
	}
	output(warnLog, 0, "", v...)
}

func Warnf(format string, v ...interface{}) {
	if !enabled(warnLog) {
		return
	}
	output(warnLog, 0, format, v...)
}

func Error(v ...interface{}) {
	if !enabled(errorLog) {
		return
	}
	output(errorLog, 0, "", v...)
}

func Errorf(format string, v ...interface{}) {
	if !enabled(errorLog) {
		return
	}
	output(errorLog, 0, format, v...)
}

// Fatal logs at the highest level. It does not exit the process.
func Fatal(v ...interface{}) {
	output(fatalLog, 0, "", v...)
}

func Fatalf(format string, v ...interface{}) {
	output(fatalLog, 0, format, v...)
}

// SetOutput redirects console output, mostly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	console.SetOutput(w)
	mu.Unlock()
}

func Sync() error {
	mu.Lock()
	w := stdWriter
	mu.Unlock()
	if reallogger, ok := w.(*Logger); ok {
		return reallogger.Sync()
	}
	return nil
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	if std != nil {
		if reallogger, ok := stdWriter.(*Logger); ok {
			_ = reallogger.Sync()
		}
		_ = stdWriter.Close()
		stdWriter = nil
		std = nil
	}
}
