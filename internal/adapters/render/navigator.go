package render

import (
	"math"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/chart"
)

// Map navigation limits.
const (
	// MaxLatOffset bounds vertical panning around the initial center while
	// the map is fully zoomed out.
	MaxLatOffset = 60.0
	// ZoomStep is the scale factor of one wheel tick.
	ZoomStep = 1.1
)

// Navigator applies the pan and zoom rules of the world map.
type Navigator struct {
	initial View
	lon     float64
	lat     float64
	level   int
}

// NewNavigator starts at the initial view.
func NewNavigator(initial View) *Navigator {
	if initial.Scale <= 0 {
		initial.Scale = 1
	}
	return &Navigator{initial: initial, lon: initial.CenterLon, lat: initial.CenterLat}
}

// InitialView reads geo.center and geo.projection.scale from a map layout.
func InitialView(spec chart.Spec) View {
	v := View{Scale: 1}
	geo, _ := spec.Layout["geo"].(map[string]any)
	if c, ok := geo["center"].(map[string]any); ok {
		v.CenterLon, _ = c["lon"].(float64)
		v.CenterLat, _ = c["lat"].(float64)
	}
	if p, ok := geo["projection"].(map[string]any); ok {
		if s, ok := p["scale"].(float64); ok && s > 0 {
			v.Scale = s
		}
	}
	return v
}

// View returns the current viewport.
func (n *Navigator) View() View {
	return View{
		CenterLon: n.lon,
		CenterLat: n.lat,
		Scale:     n.initial.Scale * math.Pow(ZoomStep, float64(n.level)),
	}
}

// Reset returns to the initial view.
func (n *Navigator) Reset() View {
	n.lon, n.lat, n.level = n.initial.CenterLon, n.initial.CenterLat, 0
	return n.View()
}

// Pan moves the center by the given degrees.
func (n *Navigator) Pan(dLon, dLat float64) View {
	n.lon = normalizeLon(n.lon + dLon)
	n.lat += dLat
	n.clampLat()
	return n.View()
}

// Zoom applies wheel ticks; positive zooms in. The scale never drops below
// the initial scale.
func (n *Navigator) Zoom(ticks int) View {
	n.level += ticks
	if n.level < 0 {
		n.level = 0
	}
	n.clampLat()
	return n.View()
}

func (n *Navigator) clampLat() {
	if n.level == 0 {
		n.lat = clamp(n.lat, n.initial.CenterLat-MaxLatOffset, n.initial.CenterLat+MaxLatOffset)
	}
	n.lat = clamp(n.lat, -90, 90)
}

func normalizeLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
