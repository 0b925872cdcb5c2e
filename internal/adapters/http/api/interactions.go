package api

import (
	"context"
	"net/http"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/render"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/query"
)

// InteractionDependencies emits user interactions into the session.
type InteractionDependencies interface {
	StateDependencies
	Interact(ctx context.Context, kind query.ChartKind, ev render.Event) error
}

// InteractionHandler handles interaction requests.
type InteractionHandler struct {
	deps InteractionDependencies
}

// NewInteractionHandler creates a new interaction handler.
func NewInteractionHandler(deps InteractionDependencies) *InteractionHandler {
	return &InteractionHandler{deps: deps}
}

// interactionRequest mirrors the OpenAPI schema for POST /interactions.
type interactionRequest struct {
	Chart  string         `json:"chart" validate:"required"`
	Event  string         `json:"event" validate:"required,oneof=hover unhover click select deselect"`
	Points []render.Point `json:"points" validate:"max=10000"`
}

// HandleInteraction handles POST /interactions as if the user had acted on
// the chart.
func (h *InteractionHandler) HandleInteraction(w http.ResponseWriter, r *http.Request) {
	var req interactionRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	kind, err := parseChart(req.Chart)
	if err != nil {
		badRequest(w, err)
		return
	}
	ev, _ := render.ParseEventKind(req.Event)
	if err := h.deps.Interact(r.Context(), kind, render.Event{Kind: ev, Points: req.Points}); err != nil {
		fail(w, err)
		return
	}
	accepted(w, r, h.deps)
}
