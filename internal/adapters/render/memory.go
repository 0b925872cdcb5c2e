package render

import (
	"fmt"
	"sync"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/chart"
)

// MemoryEngine is a headless Engine that records what would be on screen and
// lets callers emit interaction events into it.
type MemoryEngine struct {
	mu      sync.RWMutex
	targets map[string]*surface
}

type surface struct {
	spec      chart.Spec
	drawn     bool
	draws     int
	restyles  []chart.Restyle
	view      View
	cursor    string
	notice    string
	listeners map[EventKind][]Handler
}

// NewMemoryEngine creates an engine with the given targets.
func NewMemoryEngine(targets ...string) *MemoryEngine {
	e := &MemoryEngine{targets: make(map[string]*surface, len(targets))}
	for _, t := range targets {
		e.targets[t] = &surface{cursor: CursorDefault, listeners: map[EventKind][]Handler{}}
	}
	return e
}

func (e *MemoryEngine) Has(target string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.targets[target]
	return ok
}

func (e *MemoryEngine) get(target string) (*surface, error) {
	s, ok := e.targets[target]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	return s, nil
}

func (e *MemoryEngine) Draw(target string, spec chart.Spec) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.get(target)
	if err != nil {
		return err
	}
	s.spec = spec.Clone()
	s.drawn = true
	s.draws++
	s.restyles = nil
	s.notice = ""
	return nil
}

func (e *MemoryEngine) Restyle(target string, r chart.Restyle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.get(target)
	if err != nil {
		return err
	}
	if !s.drawn {
		return fmt.Errorf("%w: %s not drawn", ErrUnknownTarget, target)
	}
	if err := s.spec.Apply(r); err != nil {
		return err
	}
	s.restyles = append(s.restyles, r)
	return nil
}

func (e *MemoryEngine) Relayout(target string, v View) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.get(target)
	if err != nil {
		return err
	}
	s.view = v
	return nil
}

func (e *MemoryEngine) Bind(target string, kind EventKind, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, err := e.get(target); err == nil {
		s.listeners[kind] = append(s.listeners[kind], h)
	}
}

func (e *MemoryEngine) Unbind(target string, kind EventKind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, err := e.get(target); err == nil {
		delete(s.listeners, kind)
	}
}

func (e *MemoryEngine) SetCursor(target, cursor string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, err := e.get(target); err == nil {
		s.cursor = cursor
	}
}

func (e *MemoryEngine) Notice(target, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, err := e.get(target); err == nil {
		s.notice = text
	}
}

// Emit delivers ev to every listener bound for its kind on target and
// returns how many were called.
func (e *MemoryEngine) Emit(target string, ev Event) (int, error) {
	e.mu.RLock()
	s, err := e.get(target)
	var hs []Handler
	if err == nil {
		hs = append(hs, s.listeners[ev.Kind]...)
	}
	e.mu.RUnlock()
	if err != nil {
		return 0, err
	}
	for _, h := range hs {
		h(ev)
	}
	return len(hs), nil
}

// Frame is what a target currently shows.
type Frame struct {
	Spec      chart.Spec      `json:"spec"`
	Drawn     bool            `json:"drawn"`
	Draws     int             `json:"draws"`
	Restyles  []chart.Restyle `json:"restyles,omitempty"`
	View      View            `json:"view"`
	Cursor    string          `json:"cursor"`
	Notice    string          `json:"notice,omitempty"`
	Listeners map[string]int  `json:"listeners"`
}

// Frame returns a copy of the target's state.
func (e *MemoryEngine) Frame(target string) (Frame, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, err := e.get(target)
	if err != nil {
		return Frame{}, err
	}
	f := Frame{
		Spec:      s.spec.Clone(),
		Drawn:     s.drawn,
		Draws:     s.draws,
		Restyles:  append([]chart.Restyle(nil), s.restyles...),
		View:      s.view,
		Cursor:    s.cursor,
		Notice:    s.notice,
		Listeners: make(map[string]int, len(s.listeners)),
	}
	for k, hs := range s.listeners {
		f.Listeners[string(k)] = len(hs)
	}
	return f, nil
}
