package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a lifecycle event
type Kind string

const (
	KindSubmitted Kind = "version.submitted"
	KindPublished Kind = "version.published"
	KindRejected  Kind = "version.rejected"
	KindDeleted   Kind = "entity.deleted"
)

// Event is one lifecycle transition, emitted after commit
type Event struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	ExtensionID int64     `json:"extension_id"`
	VersionID   int64     `json:"version_id,omitempty"`
	Actor       int64     `json:"actor,omitempty"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// New builds an event with a fresh id and timestamp
func New(kind Kind, extensionID, versionID, actor int64, message string) Event {
	return Event{
		ID:          uuid.NewString(),
		Kind:        kind,
		ExtensionID: extensionID,
		VersionID:   versionID,
		Actor:       actor,
		Message:     message,
		Timestamp:   time.Now().UTC(),
	}
}

// Emitter delivers lifecycle events
type Emitter interface {
	// Emit delivers the event best-effort. Implementations log failures
	// instead of returning them; a lost event never fails the operation
	// that produced it.
	Emit(ctx context.Context, event Event)
}
