package events

import (
	"context"

	"github.com/platinummonkey/hubcap/pkg/observability"
)

// LogEmitter records events to the structured log. Used when no webhook
// consumer is configured.
type LogEmitter struct {
	logger *observability.Logger
}

// NewLogEmitter creates a log-backed emitter
func NewLogEmitter(logger *observability.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit logs the event
func (e *LogEmitter) Emit(ctx context.Context, event Event) {
	e.logger.WithFields(map[string]interface{}{
		"event_id":     event.ID,
		"kind":         string(event.Kind),
		"extension_id": event.ExtensionID,
		"version_id":   event.VersionID,
		"actor":        event.Actor,
	}).Info("lifecycle event")
}
