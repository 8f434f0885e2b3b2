// Package events publishes content lifecycle notifications to a message broker.
package events

import (
	"context"
	"time"

	"github.com/hongminglow/community-site/internal/models"
)

// Routing keys.
const (
	ContentCreated = "content.created"
	ContentDeleted = "content.deleted"
	// AssetOrphaned is published when a remote asset outlives its record and
	// needs out-of-band cleanup.
	AssetOrphaned = "asset.orphaned"
)

// ContentEvent is the JSON body of every published message.
type ContentEvent struct {
	Event      string      `json:"event"`
	Version    int         `json:"version"`
	OccurredAt time.Time   `json:"occurred_at"`
	Kind       models.Kind `json:"kind"`
	RecordID   string      `json:"record_id"`
	PublicID   string      `json:"public_id,omitempty"`
	Actor      string      `json:"actor,omitempty"`
}

// NewContentEvent stamps an event with the current time.
func NewContentEvent(key string, rec models.Record, actor string) ContentEvent {
	ev := ContentEvent{
		Event:      key,
		Version:    1,
		OccurredAt: time.Now().UTC(),
		Kind:       rec.Kind,
		RecordID:   rec.ID,
		Actor:      actor,
	}
	if rec.Photo != nil {
		ev.PublicID = rec.Photo.PublicID
	}
	return ev
}

// Publisher delivers JSON events under a routing key.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
	Close() error
}

// Noop discards events. Used when no broker is configured.
type Noop struct{}

func (Noop) PublishJSON(context.Context, string, any) error { return nil }
func (Noop) Close() error                                   { return nil }
