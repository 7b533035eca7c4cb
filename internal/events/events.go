package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/hierconf/internal/domain"
)

// Event types.
const (
	TypeValueSet     = "config.value_set"
	TypeValueDeleted = "config.value_deleted"
)

// ConfigChangedEvent describes one committed value mutation.
type ConfigChangedEvent struct {
	ID        uuid.UUID     `json:"id"`
	Type      string        `json:"type"`
	Key       string        `json:"key"`
	Scope     domain.Scope  `json:"scope"`
	OldValue  *string       `json:"old_value"`
	NewValue  *string       `json:"new_value"`
	Version   int           `json:"version"`
	Source    domain.Source `json:"source,omitempty"`
	Actor     string        `json:"actor"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewConfigChangedEvent builds an event from the history entry written for
// the mutation.
func NewConfigChangedEvent(entry domain.HistoryEntry, source domain.Source) *ConfigChangedEvent {
	eventType := TypeValueSet
	if entry.NewValue == nil {
		eventType = TypeValueDeleted
	}
	return &ConfigChangedEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Key:       entry.Key,
		Scope:     entry.Scope,
		OldValue:  entry.OldValue,
		NewValue:  entry.NewValue,
		Version:   entry.Version,
		Source:    source,
		Actor:     entry.ChangedBy,
		CreatedAt: entry.ChangedAt,
	}
}

// Operation names the mutation for metrics labels: "set" or "delete".
func (e *ConfigChangedEvent) Operation() string {
	if e.Type == TypeValueDeleted {
		return "delete"
	}
	return "set"
}

// EventHandler processes committed changes.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *ConfigChangedEvent) error
}

// EventEmitter publishes committed changes to handlers.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *ConfigChangedEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *ConfigChangedEvent) error

// HandleEvent implements EventHandler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *ConfigChangedEvent) error {
	return f(ctx, event)
}
