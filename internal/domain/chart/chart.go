// Package chart models the chart specifications passed between the backend
// and the rendering engine. Specs are opaque except for the categorical axis
// labels and the marker attributes used for selection highlighting.
package chart

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSpec marks a payload that is not a chart specification.
var ErrInvalidSpec = errors.New("invalid chart spec")

// Trace is one series of a spec, kept as the engine's attribute tree.
type Trace = map[string]any

// Spec is a chart's data and layout.
type Spec struct {
	Data   []Trace        `json:"data"`
	Layout map[string]any `json:"layout"`
}

// ParseGraph decodes a "graph" field. The backend serializes the figure as a
// JSON string; an inline object is accepted too.
func ParseGraph(raw json.RawMessage) (Spec, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Spec{}, fmt.Errorf("%w: missing graph", ErrInvalidSpec)
	}
	if raw[0] == '"' {
		var embedded string
		if err := json.Unmarshal(raw, &embedded); err != nil {
			return Spec{}, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
		}
		raw = []byte(embedded)
	}
	var s Spec
	if err := json.Unmarshal(raw, &s); err != nil {
		return Spec{}, fmt.Errorf("%w: embedded figure: %w", ErrInvalidSpec, err)
	}
	if s.Data == nil {
		return Spec{}, fmt.Errorf("%w: figure has no data", ErrInvalidSpec)
	}
	return s, nil
}

// Clone returns a copy whose traces and layout can be patched independently.
func (s Spec) Clone() Spec {
	out := Spec{Layout: deepCopyMap(s.Layout)}
	if s.Data != nil {
		out.Data = make([]Trace, len(s.Data))
		for i, tr := range s.Data {
			out.Data[i] = deepCopyMap(tr)
		}
	}
	return out
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = deepCopy(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []float64:
		return append([]float64(nil), t...)
	default:
		return v
	}
}

// dataKeys are the trace attributes that carry points.
var dataKeys = []string{"x", "y", "locations", "z", "values", "labels"}

// IsEmpty reports whether no trace carries a single point.
func (s Spec) IsEmpty() bool {
	for _, tr := range s.Data {
		for _, k := range dataKeys {
			if length(tr[k]) > 0 {
				return false
			}
		}
	}
	return true
}

func length(v any) int {
	switch t := v.(type) {
	case []any:
		return len(t)
	case []string:
		return len(t)
	case []float64:
		return len(t)
	case map[string]any:
		// plotly typed arrays: {"dtype": ..., "bdata": ...}
		if b, ok := t["bdata"].(string); ok {
			return len(b)
		}
	}
	return 0
}

// Categories returns the categorical labels of the first trace: x when it is
// all strings, otherwise y, otherwise locations.
func (s Spec) Categories() []string {
	if len(s.Data) == 0 {
		return nil
	}
	tr := s.Data[0]
	for _, k := range []string{"x", "y", "locations"} {
		if labels, ok := stringList(tr[k]); ok && len(labels) > 0 {
			return labels
		}
	}
	return nil
}

// Contains reports whether label is one of the categories.
func (s Spec) Contains(label string) bool {
	for _, c := range s.Categories() {
		if c == label {
			return true
		}
	}
	return false
}

func stringList(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, len(t))
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// Notice builds a placeholder spec that shows text instead of data.
func Notice(text string) Spec {
	return Spec{
		Data: []Trace{},
		Layout: map[string]any{
			"xaxis": map[string]any{"visible": false},
			"yaxis": map[string]any{"visible": false},
			"annotations": []any{map[string]any{
				"text":      text,
				"xref":      "paper",
				"yref":      "paper",
				"x":         0.5,
				"y":         0.5,
				"showarrow": false,
				"font":      map[string]any{"size": 16},
			}},
		},
	}
}

// Apply patches trace attributes addressed by dotted paths such as
// "marker.line.color". Missing intermediate objects are created.
func (s Spec) Apply(r Restyle) error {
	if r.Trace < 0 || r.Trace >= len(s.Data) {
		return fmt.Errorf("%w: trace %d out of range", ErrInvalidSpec, r.Trace)
	}
	tr := s.Data[r.Trace]
	for path, v := range r.Attrs {
		setPath(tr, path, v)
	}
	return nil
}

func setPath(m map[string]any, path string, v any) {
	for {
		i := strings.IndexByte(path, '.')
		if i < 0 {
			m[path] = v
			return
		}
		head := path[:i]
		next, ok := m[head].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[head] = next
		}
		m, path = next, path[i+1:]
	}
}

// Restyle is a visual-only patch for one trace.
type Restyle struct {
	Trace int            `json:"trace"`
	Attrs map[string]any `json:"attrs"`
}

// Equal compares two patches attribute by attribute.
func (r Restyle) Equal(o Restyle) bool {
	if r.Trace != o.Trace || len(r.Attrs) != len(o.Attrs) {
		return false
	}
	a, _ := json.Marshal(r.Attrs)
	b, _ := json.Marshal(o.Attrs)
	return bytes.Equal(a, b)
}
