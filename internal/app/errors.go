package app

import (
	"errors"
	"fmt"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/backend"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/analysis"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/filter"
)

var (
	// ErrMissingPrerequisite is fatal: a target, the engine or the initial
	// dataset is absent and nothing is drawn.
	ErrMissingPrerequisite = errors.New("missing prerequisite")
	// ErrNotStarted is returned by calls made before Start.
	ErrNotStarted = errors.New("controller not started")
	// ErrStopped is returned by calls made after Stop.
	ErrStopped = errors.New("controller stopped")
	// ErrBackpressure is returned when the event or fetch queue is full.
	ErrBackpressure = errors.New("too many pending operations")
	// ErrNoHandler is returned when an interaction has no subscriber.
	ErrNoHandler = errors.New("no handler for interaction")
	// ErrUnknownCategory rejects a category or subcategory absent from the taxonomy.
	ErrUnknownCategory = errors.New("unknown category")
)

// Category classifies an error for display.
type Category string

// Error categories.
const (
	CategoryPrerequisite Category = "prerequisite"
	CategoryNetwork      Category = "network"
	CategoryParse        Category = "parse"
	CategoryPayload      Category = "payload"
	CategoryValidation   Category = "validation"
	CategoryEmpty        Category = "empty"
)

// Describe classifies err and returns the message shown to the user.
func Describe(err error) (Category, string) {
	var (
		ve *analysis.ValidationError
		pe *backend.PayloadError
		he *backend.HTTPError
	)
	switch {
	case err == nil:
		return "", ""
	case errors.Is(err, ErrMissingPrerequisite):
		return CategoryPrerequisite, err.Error()
	case errors.As(err, &ve):
		return CategoryValidation, fmt.Sprintf("%s %s", ve.Field, ve.Reason)
	case errors.Is(err, analysis.ErrValidation),
		errors.Is(err, filter.ErrSubcategoryWithoutCategory),
		errors.Is(err, filter.ErrInvalidYearMonth),
		errors.Is(err, ErrUnknownCategory):
		return CategoryValidation, err.Error()
	case errors.As(err, &pe):
		if pe.NoData() {
			return CategoryEmpty, pe.Message
		}
		return CategoryPayload, pe.Message
	case errors.Is(err, backend.ErrMalformed):
		return CategoryParse, err.Error()
	case errors.As(err, &he):
		return CategoryNetwork, he.Error()
	default:
		return CategoryNetwork, err.Error()
	}
}

func validationField(err error) string {
	var ve *analysis.ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	return "other"
}
