package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Structured JSON logging on top of zap. The package-level functions keep the
// map-of-fields call shape used across the service.

const serviceName = "shoppingmart"

var (
	mu   sync.RWMutex
	base = newJSONLogger(zapcore.AddSync(os.Stdout))
)

func newJSONLogger(out zapcore.WriteSyncer) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), out, zap.DebugLevel)
	return zap.New(core).With(zap.String("service", serviceName))
}

// SetOutput redirects all log output; used by tests to capture entries.
func SetOutput(out zapcore.WriteSyncer) {
	mu.Lock()
	defer mu.Unlock()
	base = newJSONLogger(out)
}

// Sync flushes buffered entries. Call on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

func Info(message string, fields map[string]interface{}) {
	current().Info(message, toZap(fields)...)
}

func Warn(message string, fields map[string]interface{}) {
	current().Warn(message, toZap(fields)...)
}

func Error(message string, fields map[string]interface{}) {
	current().Error(message, toZap(fields)...)
}

func Fatal(message string, fields map[string]interface{}) {
	l := current()
	l.Error(message, toZap(fields)...)
	_ = l.Sync()
	os.Exit(1)
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func toZap(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
