package xlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var zapLogger = zap.NewNop() // logger

// NewZapLogger installs a JSON logger writing to file. An empty file name
// writes to stderr instead.
func NewZapLogger(file string) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "@timestamp",
		LevelKey:       "loglevel",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,  // 小写编码器
		EncodeTime:     zapcore.RFC3339TimeEncoder,     // RFC3339 UTC 时间格式
		EncodeDuration: zapcore.SecondsDurationEncoder, //
		EncodeName:     zapcore.FullNameEncoder,
	}
	var ws zapcore.WriteSyncer
	if file == "" {
		ws = zapcore.Lock(zapcore.AddSync(consoleWriter{}))
	} else {
		ws = zapcore.AddSync(&lumberjack.Logger{
			Filename:   file, // 日志文件路径
			MaxSize:    64,   // 每个日志文件保存的最大尺寸 单位：M
			MaxBackups: 2,    // 日志文件最多保存多少个备份
			MaxAge:     14,   // 文件最多保存多少天
		})
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		ws,
		zap.NewAtomicLevel(), // 日志级别.默认INFO
	)

	zapLogger = zap.New(core)
	return zapLogger
}

// SetZapLogger replaces the structured logger, mostly for tests.
func SetZapLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	zapLogger = l
}

func GetZapLogger() *zap.Logger {
	return zapLogger
}

func ZapSync() error {
	if zapLogger != nil {
		_ = zapLogger.Sync()
	}
	return nil
}

// consoleWriter follows whatever SetOutput points the console logger at.
type consoleWriter struct{}

func (consoleWriter) Write(p []byte) (int, error) {
	mu.Lock()
	w := console.Writer()
	mu.Unlock()
	return w.Write(p)
}
