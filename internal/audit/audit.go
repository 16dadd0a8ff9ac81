// Package audit records who attempted which gated operation and how it
// ended. Records are append-only and write-and-forget: a failing sink is
// logged and never changes the outcome of the audited call.
package audit

import (
	"context"
	"time"

	"shoppingmart/internal/logger"
)

const (
	ActorUnauthorized = "UNAUTHORIZED"
	ActorError        = "ERROR"
)

// Record is one audit entry.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Operation string    `json:"operation"`
	Outcome   string    `json:"outcome"`
}

// Sink accepts records. Emit must not block the caller for long and must not
// report errors back.
type Sink interface {
	Emit(ctx context.Context, r Record)
}

// New stamps a record with the current UTC time.
func New(actor, operation, outcome string) Record {
	return Record{
		Timestamp: time.Now().UTC(),
		Actor:     actor,
		Operation: operation,
		Outcome:   outcome,
	}
}

// LogSink writes records to the structured log.
type LogSink struct{}

func (LogSink) Emit(_ context.Context, r Record) {
	logger.Info("audit", map[string]interface{}{
		"audit_time": r.Timestamp.Format(time.RFC3339Nano),
		"actor":      r.Actor,
		"operation":  r.Operation,
		"outcome":    r.Outcome,
	})
}

// Multi fans a record out to every sink.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, r Record) {
	for _, s := range m {
		s.Emit(ctx, r)
	}
}

// Discard drops records.
type Discard struct{}

func (Discard) Emit(context.Context, Record) {}

func reportFailure(sink string, r Record, err error) {
	logger.Error("audit sink write failed", map[string]interface{}{
		"sink":      sink,
		"operation": r.Operation,
		"actor":     r.Actor,
		"error":     err.Error(),
	})
}
