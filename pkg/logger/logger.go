package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu          sync.Mutex
	base        *zap.Logger
	serviceName = "coinpilot"
)

func SetServiceName(newName string) string {
	mu.Lock()
	defer mu.Unlock()

	oldName := serviceName
	serviceName = newName

	return oldName
}

func get() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()

	if base == nil {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		l, err := cfg.Build(zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
		base = l
	}
	return base.With(zap.String("service", serviceName))
}

// Replace swaps the underlying zap logger (tests pass zap.NewNop()).
func Replace(l *zap.Logger) {
	mu.Lock()
	base = l
	mu.Unlock()
}

func Sync() {
	_ = get().Sync()
}

func Info(format string, args ...interface{}) {
	get().Info(fmt.Sprintf(format, args...))
}

func Warn(format string, args ...interface{}) {
	get().Warn(fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	get().Error(fmt.Sprintf(format, args...))
}

func Fatal(format string, args ...interface{}) {
	get().Fatal(fmt.Sprintf(format, args...))
}
