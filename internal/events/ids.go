// Package events defines the shared identifiers, enumerations and message
// payloads exchanged between the render QA service and the failure monitor.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"
)

// Identifiers are XIDs: 20 characters, base32-hex encoded, 12 bytes.
// Sortable by creation time, URL-safe, no coordination required.

// RenderID identifies a render produced by the generation pipeline.
type RenderID struct {
	id xid.ID
}

// NewRenderID generates a new render ID.
func NewRenderID() RenderID {
	return RenderID{id: xid.New()}
}

// ParseRenderID parses a render ID from string.
func ParseRenderID(s string) (RenderID, error) {
	id, err := xid.FromString(s)
	if err != nil {
		return RenderID{}, fmt.Errorf("invalid render ID %q: %w", s, err)
	}
	return RenderID{id: id}, nil
}

// String returns the string representation.
func (r RenderID) String() string {
	return r.id.String()
}

// Short returns the first 8 characters for human-readable contexts.
func (r RenderID) Short() string {
	s := r.id.String()
	if len(s) >= 8 {
		return s[:8]
	}
	return s
}

// Time returns the timestamp embedded in the ID.
func (r RenderID) Time() time.Time {
	return r.id.Time()
}

// IsZero returns true if this is the zero value.
func (r RenderID) IsZero() bool {
	return r.id.IsNil()
}

// MarshalJSON implements json.Marshaler.
func (r RenderID) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.id.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *RenderID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := xid.FromString(s)
	if err != nil {
		return err
	}
	r.id = id
	return nil
}

// ReviewID identifies a quality review record.
type ReviewID struct {
	id xid.ID
}

// NewReviewID generates a new review ID.
func NewReviewID() ReviewID {
	return ReviewID{id: xid.New()}
}

// ParseReviewID parses a review ID from string.
func ParseReviewID(s string) (ReviewID, error) {
	id, err := xid.FromString(s)
	if err != nil {
		return ReviewID{}, fmt.Errorf("invalid review ID %q: %w", s, err)
	}
	return ReviewID{id: id}, nil
}

// String returns the string representation.
func (r ReviewID) String() string {
	return r.id.String()
}

// IsZero returns true if this is the zero value.
func (r ReviewID) IsZero() bool {
	return r.id.IsNil()
}

// MarshalJSON implements json.Marshaler.
func (r ReviewID) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.id.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *ReviewID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := xid.FromString(s)
	if err != nil {
		return err
	}
	r.id = id
	return nil
}

// AlertID identifies a failure alert.
type AlertID struct {
	id xid.ID
}

// NewAlertID generates a new alert ID.
func NewAlertID() AlertID {
	return AlertID{id: xid.New()}
}

// ParseAlertID parses an alert ID from string.
func ParseAlertID(s string) (AlertID, error) {
	id, err := xid.FromString(s)
	if err != nil {
		return AlertID{}, fmt.Errorf("invalid alert ID %q: %w", s, err)
	}
	return AlertID{id: id}, nil
}

// String returns the string representation.
func (a AlertID) String() string {
	return a.id.String()
}

// IsZero returns true if this is the zero value.
func (a AlertID) IsZero() bool {
	return a.id.IsNil()
}

// MarshalJSON implements json.Marshaler.
func (a AlertID) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.id.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *AlertID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := xid.FromString(s)
	if err != nil {
		return err
	}
	a.id = id
	return nil
}
