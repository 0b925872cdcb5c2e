// Package render wraps the external rendering engine. Chart proxies own the
// event subscriptions of one chart target and keep them attached exactly once
// across redraws.
package render

import (
	"errors"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/chart"
)

// ErrUnknownTarget is returned for operations on a target the engine lacks.
var ErrUnknownTarget = errors.New("unknown render target")

// EventKind is an interaction event delivered by the engine.
type EventKind string

// Interaction events.
const (
	Hover    EventKind = "hover"
	Unhover  EventKind = "unhover"
	Click    EventKind = "click"
	Select   EventKind = "select"
	Deselect EventKind = "deselect"
)

// EventKinds lists every interaction event.
var EventKinds = []EventKind{Hover, Unhover, Click, Select, Deselect}

// ParseEventKind accepts the names above.
func ParseEventKind(s string) (EventKind, bool) {
	for _, k := range EventKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Point is one plotted point an event refers to.
type Point struct {
	Trace int `json:"trace"`
	Index int `json:"index"`
	// Location is set on choropleth points.
	Location string `json:"location,omitempty"`
	// Label is the categorical axis value of bar points.
	Label string `json:"label,omitempty"`
	X     any    `json:"x,omitempty"`
	Y     any    `json:"y,omitempty"`
	// CustomerID comes from the point's customdata on the similarity scatter.
	CustomerID string `json:"customer_id,omitempty"`
}

// Event is an interaction with zero or more points.
type Event struct {
	Kind   EventKind `json:"event"`
	Points []Point   `json:"points"`
}

// Handler receives events for one subscription.
type Handler func(Event)

// View is the geographic viewport of a map target.
type View struct {
	CenterLon float64 `json:"center_lon"`
	CenterLat float64 `json:"center_lat"`
	Scale     float64 `json:"scale"`
}

// Cursor values.
const (
	CursorDefault    = "default"
	CursorPointer    = "pointer"
	CursorNotAllowed = "not-allowed"
)

// Engine is the rendering engine contract. Like DOM listeners, Bind adds a
// listener without removing earlier ones; callers that want replacement
// semantics must Unbind first.
type Engine interface {
	// Has reports whether target exists.
	Has(target string) bool
	// Draw replaces the target's data and layout.
	Draw(target string, spec chart.Spec) error
	// Restyle patches visual attributes of one trace.
	Restyle(target string, r chart.Restyle) error
	// Relayout moves the viewport of a geographic target.
	Relayout(target string, v View) error
	Bind(target string, kind EventKind, h Handler)
	Unbind(target string, kind EventKind)
	SetCursor(target, cursor string)
	// Notice replaces the target's content with a message.
	Notice(target, text string)
}
