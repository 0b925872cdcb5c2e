package api

import (
	"context"
	"net/http"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/render"
)

// MapDependencies navigates the world map.
type MapDependencies interface {
	Pan(ctx context.Context, dLon, dLat float64) (render.View, error)
	Zoom(ctx context.Context, ticks int) (render.View, error)
}

// MapHandler handles map navigation requests.
type MapHandler struct {
	deps MapDependencies
}

// NewMapHandler creates a new map handler.
func NewMapHandler(deps MapDependencies) *MapHandler {
	return &MapHandler{deps: deps}
}

type panRequest struct {
	Lon float64 `json:"lon" validate:"min=-360,max=360"`
	Lat float64 `json:"lat" validate:"min=-180,max=180"`
}

type zoomRequest struct {
	Ticks int `json:"ticks" validate:"min=-100,max=100"`
}

// HandlePan handles POST /map/pan and returns the resulting view.
func (h *MapHandler) HandlePan(w http.ResponseWriter, r *http.Request) {
	var req panRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	v, err := h.deps.Pan(r.Context(), req.Lon, req.Lat)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleZoom handles POST /map/zoom and returns the resulting view.
func (h *MapHandler) HandleZoom(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	v, err := h.deps.Zoom(r.Context(), req.Ticks)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
