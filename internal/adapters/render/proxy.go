package render

import (
	"fmt"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/chart"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/query"
)

// Proxy owns one chart target. It remembers the handler registered per event
// kind and re-attaches exactly those after every redraw, so a handler never
// fires twice for one interaction.
type Proxy struct {
	kind     query.ChartKind
	target   string
	engine   Engine
	handlers map[EventKind]Handler
	spec     chart.Spec
	drawn    bool
}

// NewProxy creates a proxy for the chart kind drawn on target.
func NewProxy(engine Engine, kind query.ChartKind, target string) *Proxy {
	return &Proxy{
		kind:     kind,
		target:   target,
		engine:   engine,
		handlers: make(map[EventKind]Handler),
	}
}

// Kind reports which chart the proxy draws.
func (p *Proxy) Kind() query.ChartKind { return p.kind }

// Target is the engine element the proxy draws into.
func (p *Proxy) Target() string { return p.target }

// Spec returns the last drawn spec.
func (p *Proxy) Spec() (chart.Spec, bool) { return p.spec, p.drawn }

// Render draws spec and re-attaches the proxy's subscriptions.
func (p *Proxy) Render(spec chart.Spec) error {
	if err := p.engine.Draw(p.target, spec); err != nil {
		return fmt.Errorf("render %s: %w", p.kind, err)
	}
	p.spec, p.drawn = spec.Clone(), true
	for kind, h := range p.handlers {
		p.engine.Unbind(p.target, kind)
		p.engine.Bind(p.target, kind, h)
	}
	return nil
}

// RestyleHighlight applies a visual-only patch without touching data.
func (p *Proxy) RestyleHighlight(r chart.Restyle) error {
	if !p.drawn {
		return nil
	}
	next := p.spec.Clone()
	if err := next.Apply(r); err != nil {
		return fmt.Errorf("restyle %s: %w", p.kind, err)
	}
	if err := p.engine.Restyle(p.target, r); err != nil {
		return fmt.Errorf("restyle %s: %w", p.kind, err)
	}
	p.spec = next
	return nil
}

// On registers h for kind, replacing any earlier handler.
func (p *Proxy) On(kind EventKind, h Handler) {
	p.handlers[kind] = h
	p.engine.Unbind(p.target, kind)
	p.engine.Bind(p.target, kind, h)
}

// Off removes the handler for kind.
func (p *Proxy) Off(kind EventKind) {
	delete(p.handlers, kind)
	p.engine.Unbind(p.target, kind)
}

// ShowNotice replaces the chart with a message.
func (p *Proxy) ShowNotice(text string) {
	p.engine.Notice(p.target, text)
}

// SetCursor changes the pointer shown over the chart.
func (p *Proxy) SetCursor(cursor string) {
	p.engine.SetCursor(p.target, cursor)
}

// MapProxy is the world map proxy. It adds constrained navigation.
type MapProxy struct {
	*Proxy
	nav *Navigator
}

// NewMapProxy creates the map proxy.
func NewMapProxy(engine Engine, target string) *MapProxy {
	return &MapProxy{Proxy: NewProxy(engine, query.Map, target)}
}

// Render draws the map. The first draw fixes the initial view.
func (m *MapProxy) Render(spec chart.Spec) error {
	if err := m.Proxy.Render(spec); err != nil {
		return err
	}
	if m.nav == nil {
		m.nav = NewNavigator(InitialView(spec))
	}
	return m.engine.Relayout(m.target, m.nav.View())
}

// Pan moves the map center.
func (m *MapProxy) Pan(dLon, dLat float64) (View, error) {
	if m.nav == nil {
		return View{}, fmt.Errorf("pan %s: %w", m.kind, ErrUnknownTarget)
	}
	v := m.nav.Pan(dLon, dLat)
	return v, m.engine.Relayout(m.target, v)
}

// Zoom applies wheel ticks.
func (m *MapProxy) Zoom(ticks int) (View, error) {
	if m.nav == nil {
		return View{}, fmt.Errorf("zoom %s: %w", m.kind, ErrUnknownTarget)
	}
	v := m.nav.Zoom(ticks)
	return v, m.engine.Relayout(m.target, v)
}

// ResetView returns the map to the view of its first draw. It is a no-op
// before the map has been drawn.
func (m *MapProxy) ResetView() (View, error) {
	if m.nav == nil {
		return View{}, nil
	}
	v := m.nav.Reset()
	return v, m.engine.Relayout(m.target, v)
}
