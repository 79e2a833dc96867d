package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	*zap.Logger
}

// New writes to stderr so command output on stdout stays machine readable.
func New(debug bool) *Logger {
	return NewWithWriter(os.Stderr, debug)
}

func NewWithWriter(w io.Writer, debug bool) *Logger {
	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.ISO8601TimeEncoder

	encoder := zapcore.NewConsoleEncoder(config)
	level := zapcore.DebugLevel

	if !debug {
		level = zapcore.InfoLevel
		encoder = zapcore.NewJSONEncoder(config)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)

	return &Logger{
		Logger: zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)),
	}
}
