// Package model defines the data structures used throughout the application.
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is a listed happening that users can join.
//
// Time is kept as an ISO-8601 UTC string (see service.NormalizeTime) so that
// range filters are plain string comparisons in every store.
// CreatedBy is always the sub of the admin who created the event; it is set
// by the service from the resolved identity, never from request input.
type Event struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Place       string     `json:"place"`
	Time        string     `json:"time"`
	Category    string     `json:"category"`
	ImgURL      string     `json:"img_url"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	Attendees   []Attendee `json:"attendees"`
}

// Attendee is one user's participation in an event. The profile fields are a
// snapshot taken at join time; later profile changes do not touch them.
type Attendee struct {
	UserSub  string    `json:"userSub"`
	Name     string    `json:"name,omitempty"`
	Email    string    `json:"email,omitempty"`
	Picture  string    `json:"picture,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`
}

// EventFilter narrows a listing. Zero-valued fields are ignored.
//
// Title and Place are case-insensitive substring matches, Category is exact.
// TimeFrom and TimeTo are already-normalized ISO strings, both inclusive.
type EventFilter struct {
	Title    string
	Place    string
	Category string
	TimeFrom string
	TimeTo   string
}

// EventPatch carries the fields of a partial update. A nil pointer means
// "leave unchanged".
type EventPatch struct {
	Title       *string
	Description *string
	Place       *string
	Time        *string
	Category    *string
	ImgURL      *string
}

// IsEmpty reports whether the patch would change nothing.
func (p EventPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Place == nil &&
		p.Time == nil && p.Category == nil && p.ImgURL == nil
}

// Apply copies the set fields of p onto e.
func (p EventPatch) Apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Place != nil {
		e.Place = *p.Place
	}
	if p.Time != nil {
		e.Time = *p.Time
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.ImgURL != nil {
		e.ImgURL = *p.ImgURL
	}
}

// NewEventID returns a fresh 24-character hex id. Both stores use this format
// so clients see the same ids regardless of backend.
func NewEventID() string {
	return primitive.NewObjectID().Hex()
}

// ValidEventID reports whether id has the external event id format.
func ValidEventID(id string) bool {
	return primitive.IsValidObjectID(id)
}
