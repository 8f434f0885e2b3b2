package models

import "time"

// Kind names one of the content collections served by the site.
type Kind string

const (
	KindAnnouncement Kind = "announcements"
	KindEvent        Kind = "events"
	KindMedia        Kind = "media"
	KindCoordinator  Kind = "coordinators"
)

// Kinds lists every content collection in display order.
var Kinds = []Kind{KindAnnouncement, KindEvent, KindMedia, KindCoordinator}

// Valid reports whether k names a known collection.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Photo is a reference to an asset held by the external media host.
// PublicID and URL are always populated together.
type Photo struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
	Alt      string `json:"alt,omitempty"`
}

// Complete reports whether both halves of the reference are present.
func (p Photo) Complete() bool {
	return p.PublicID != "" && p.URL != ""
}

// Record is a persisted announcement, event, media item, or coordinator entry.
type Record struct {
	ID          string     `json:"_id"`
	Kind        Kind       `json:"kind"`
	Title       string     `json:"title,omitempty"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	TimeAndDate *time.Time `json:"timeAndDate,omitempty"`
	Photo       *Photo     `json:"photo,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
