package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/filter"
)

// FilterDependencies changes the filters that have no chart interaction.
type FilterDependencies interface {
	StateDependencies
	SetDateRange(ctx context.Context, start, end filter.YearMonth) error
	SelectCategory(ctx context.Context, category string) error
	SelectSubcategory(ctx context.Context, subcategory string) error
}

// FilterHandler handles filter requests.
type FilterHandler struct {
	deps FilterDependencies
}

// NewFilterHandler creates a new filter handler.
func NewFilterHandler(deps FilterDependencies) *FilterHandler {
	return &FilterHandler{deps: deps}
}

type dateRangeRequest struct {
	Start string `json:"start" validate:"required,datetime=2006-01"`
	End   string `json:"end" validate:"required,datetime=2006-01"`
}

type categoryRequest struct {
	Category string `json:"category" validate:"max=200"`
}

type subcategoryRequest struct {
	Subcategory string `json:"subcategory" validate:"max=200"`
}

// HandleDateRange handles POST /filters/date-range. The value goes through
// the slider debounce.
func (h *FilterHandler) HandleDateRange(w http.ResponseWriter, r *http.Request) {
	var req dateRangeRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	start, err := filter.ParseYearMonth(req.Start)
	if err != nil {
		fail(w, err)
		return
	}
	end, err := filter.ParseYearMonth(req.End)
	if err != nil {
		fail(w, err)
		return
	}
	if end.Before(start) {
		fail(w, fmt.Errorf("%w: end %s before start %s", filter.ErrInvalidYearMonth, end, start))
		return
	}
	if err := h.deps.SetDateRange(r.Context(), start, end); err != nil {
		fail(w, err)
		return
	}
	accepted(w, r, h.deps)
}

// HandleCategory handles POST /filters/category; an empty value clears it.
func (h *FilterHandler) HandleCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := h.deps.SelectCategory(r.Context(), req.Category); err != nil {
		fail(w, err)
		return
	}
	accepted(w, r, h.deps)
}

// HandleSubcategory handles POST /filters/subcategory.
func (h *FilterHandler) HandleSubcategory(w http.ResponseWriter, r *http.Request) {
	var req subcategoryRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := h.deps.SelectSubcategory(r.Context(), req.Subcategory); err != nil {
		fail(w, err)
		return
	}
	accepted(w, r, h.deps)
}
