package api

import (
	"context"
	"net/http"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/analysis"
)

// SimilarityDependencies drives the similarity panel.
type SimilarityDependencies interface {
	StateDependencies
	OpenSimilarity(ctx context.Context) error
	CloseSimilarity(ctx context.Context) error
	SubmitSimilarity(ctx context.Context, opts analysis.Options) error
	Reset(ctx context.Context) error
}

// SimilarityHandler handles similarity panel requests.
type SimilarityHandler struct {
	deps SimilarityDependencies
}

// NewSimilarityHandler creates a new similarity handler.
func NewSimilarityHandler(deps SimilarityDependencies) *SimilarityHandler {
	return &SimilarityHandler{deps: deps}
}

// HandleOpen handles POST /similarity/open.
func (h *SimilarityHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.OpenSimilarity(r.Context()); err != nil {
		fail(w, err)
		return
	}
	accepted(w, r, h.deps)
}

// HandleClose handles POST /similarity/close.
func (h *SimilarityHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.CloseSimilarity(r.Context()); err != nil {
		fail(w, err)
		return
	}
	accepted(w, r, h.deps)
}

// HandleOptions handles POST /similarity/options. The body is validated by
// the session so that rejections are reported like any other input error.
func (h *SimilarityHandler) HandleOptions(w http.ResponseWriter, r *http.Request) {
	var opts analysis.Options
	if err := decodeJSON(r, &opts); err != nil {
		badRequest(w, err)
		return
	}
	if err := h.deps.SubmitSimilarity(r.Context(), opts); err != nil {
		fail(w, err)
		return
	}
	accepted(w, r, h.deps)
}

// HandleReset handles POST /reset.
func (h *SimilarityHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Reset(r.Context()); err != nil {
		fail(w, err)
		return
	}
	accepted(w, r, h.deps)
}
