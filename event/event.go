// Package event defines the immutable Event value exchanged over the
// engine's bus: a closed type tag, a logical timestamp used for
// ordering, a free-form attribute map, and an opaque typed payload.
package event

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Type is the closed set of event tags recognized at the engine
// boundary. UserCustom escapes the closed set via Payload's discriminator.
type Type string

const (
	System     Type = "System"
	MarketData Type = "MarketData"
	News       Type = "News"
	Signal     Type = "Signal"
	Alert      Type = "Alert"
	Warning    Type = "Warning"
	UserCustom Type = "UserCustom"
)

// Payload is an opaque, typed value carried by an Event. Implementations
// provide a discriminator string so subscribers can switch on payload
// kind without reflection, and a Clone that returns an independent deep
// copy (required for per-subscriber isolation).
type Payload interface {
	// PayloadType is the discriminator string for this payload kind.
	PayloadType() string
	// Clone returns a deep, independent copy of the payload.
	Clone() Payload
}

// Event is an immutable message: once constructed it is never mutated;
// every subscriber gets its own Clone.
type Event struct {
	ID         string
	Type       Type
	Timestamp  time.Time
	Source     string
	Attributes map[string]string
	Payload    Payload
}

// New constructs an Event with a fresh ID. attrs may be nil.
func New(typ Type, ts time.Time, source string, attrs map[string]string, payload Payload) Event {
	a := make(map[string]string, len(attrs))
	maps.Copy(a, attrs)
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Timestamp:  ts,
		Source:     source,
		Attributes: a,
		Payload:    payload,
	}
}

// HasAttribute reports whether key is present in the attribute map.
func (e Event) HasAttribute(key string) bool {
	_, ok := e.Attributes[key]
	return ok
}

// GetAttribute returns the value for key and whether it was present.
func (e Event) GetAttribute(key string) (string, bool) {
	v, ok := e.Attributes[key]
	return v, ok
}

// Clone returns a deep, independent copy: a fresh attribute map and a
// cloned payload, so a subscriber mutating its copy cannot affect any
// other subscriber or the bus.
func (e Event) Clone() Event {
	attrs := make(map[string]string, len(e.Attributes))
	maps.Copy(attrs, e.Attributes)

	var p Payload
	if e.Payload != nil {
		p = e.Payload.Clone()
	}

	return Event{
		ID:         e.ID,
		Type:       e.Type,
		Timestamp:  e.Timestamp,
		Source:     e.Source,
		Attributes: attrs,
		Payload:    p,
	}
}

// PayloadType returns the payload's discriminator, or "" if there is no
// payload.
func (e Event) PayloadType() string {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.PayloadType()
}
