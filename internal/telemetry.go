package internal

import (
	"context"
	"strconv"
	"sync"
)

// TelemetryEmitter receives named measures with their labels. The default emitter
// drops everything; service wiring registers a metrics backend or a test recorder.
type TelemetryEmitter func(ctx context.Context, name string, labels map[string]string, value any)

var (
	teleMu   sync.Mutex
	teleImpl TelemetryEmitter = func(ctx context.Context, name string, labels map[string]string, value any) {}
)

// RegisterTelemetryEmitter installs fn as the process-wide emitter; nil restores the no-op.
func RegisterTelemetryEmitter(fn TelemetryEmitter) {
	teleMu.Lock()
	defer teleMu.Unlock()
	if fn == nil {
		teleImpl = func(ctx context.Context, name string, labels map[string]string, value any) {}
		return
	}
	teleImpl = fn
}

func emitter() TelemetryEmitter {
	teleMu.Lock()
	defer teleMu.Unlock()
	return teleImpl
}

// EmitLatency records the latency of one resource request in milliseconds.
// name: "resource_request_latency" with labels {"method", "type", "status"}.
// A status of 0 means the request never got a response.
func EmitLatency(ctx context.Context, method, typeName string, status int, ms int64) {
	labels := map[string]string{
		"method": method,
		"type":   typeName,
		"status": strconv.Itoa(status),
	}
	emitter()(ctx, "resource_request_latency", labels, ms)
}

// EmitValidationFailures records how many field errors a save was rejected with.
// name: "resource_validation_failures" with label {"type"}.
func EmitValidationFailures(ctx context.Context, typeName string, count int) {
	emitter()(ctx, "resource_validation_failures", map[string]string{"type": typeName}, int64(count))
}
