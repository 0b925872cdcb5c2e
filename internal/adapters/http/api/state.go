package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/render"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/app"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/query"
)

// StateDependencies reads the session state.
type StateDependencies interface {
	Snapshot(ctx context.Context) (app.Snapshot, error)
	Frame(kind query.ChartKind) (render.Frame, error)
	Settle(ctx context.Context) error
}

// StateHandler serves the session snapshot and chart frames.
type StateHandler struct {
	deps StateDependencies
}

// NewStateHandler creates a new state handler.
func NewStateHandler(deps StateDependencies) *StateHandler {
	return &StateHandler{deps: deps}
}

// HandleState handles GET /state.
func (h *StateHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	snap, err := h.deps.Snapshot(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleNotices handles GET /notices.
func (h *StateHandler) HandleNotices(w http.ResponseWriter, r *http.Request) {
	snap, err := h.deps.Snapshot(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	notices := snap.Notices
	if notices == nil {
		notices = []app.Notice{}
	}
	writeJSON(w, http.StatusOK, notices)
}

// HandleChart handles GET /charts/{chart}: what the chart currently shows.
func (h *StateHandler) HandleChart(w http.ResponseWriter, r *http.Request) {
	kind, err := parseChart(chi.URLParam(r, "chart"))
	if err != nil {
		badRequest(w, err)
		return
	}
	frame, err := h.deps.Frame(kind)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, frame)
}
