// Package telemetry centralizes structured logging and metrics for
// both roles. A single raw *zap.Logger is built once at start-up and
// passed down to the reactor, dispatcher, and admin HTTP router — there is no
// separate sugared logger for setup messages; the reactor's hot path
// is the only place per-event logging happens at all, so one logger
// discipline covers both.
package telemetry

import (
	"go.uber.org/zap"
)

// NewLogger builds a production zap logger. Role is attached as a
// static field so gateway and worker logs interleave cleanly when both
// run under the same process supervisor.
func NewLogger(role string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("role", role)), nil
}
