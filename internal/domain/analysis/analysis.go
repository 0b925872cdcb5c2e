// Package analysis holds the similarity analysis options that travel next to
// the filter state but are not part of it.
package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Bounds for the similarity request parameters.
const (
	MinK         = 1
	MaxK         = 500
	FeatureCount = 7 // RFM-derived features the backend can project on manual axes
)

// Defaults applied at startup and on reset.
const (
	DefaultK             = 10
	DefaultMetric        = "euclidean"
	DefaultNormalization = "zscore"
	DefaultEmbedding     = "pca"
)

var (
	// ErrValidation marks options rejected before any request is sent.
	ErrValidation = errors.New("invalid analysis options")

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		o, _ := sl.Current().Interface().(Options)
		if (o.XAxis == nil) != (o.YAxis == nil) {
			sl.ReportError(o.XAxis, "XAxis", "XAxis", "axes_pair", "")
		}
	}, Options{})
	return v
}

// Options configures the similarity computation.
type Options struct {
	// CustomerID is the single customer whose neighbors are requested; empty for none.
	CustomerID    string `json:"customer_id,omitempty"`
	K             int    `json:"k" validate:"min=1,max=500"`
	Metric        string `json:"metric" validate:"oneof=euclidean cosine pearson"`
	Normalization string `json:"normalization" validate:"oneof=zscore minmax_01"`
	Embedding     string `json:"dimred" validate:"oneof=pca"`
	// XAxis and YAxis select raw feature indices instead of the embedding; both or neither.
	XAxis *int `json:"x_axis,omitempty" validate:"omitempty,min=0,max=6"`
	YAxis *int `json:"y_axis,omitempty" validate:"omitempty,min=0,max=6"`
}

// Defaults returns the options a fresh session starts with.
func Defaults() Options {
	return Options{
		K:             DefaultK,
		Metric:        DefaultMetric,
		Normalization: DefaultNormalization,
		Embedding:     DefaultEmbedding,
	}
}

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets callers match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validate checks every field; the first failure is returned as *ValidationError.
func (o Options) Validate() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	fe := verrs[0]
	return &ValidationError{Field: fieldName(fe.Field()), Reason: reason(fe)}
}

// HasManualAxes reports whether explicit feature axes replace the embedding.
func (o Options) HasManualAxes() bool {
	return o.XAxis != nil && o.YAxis != nil
}

// WithCustomer toggles id as the focused customer. Clearing the customer
// resets K to def, since K only applies while a customer is focused.
func (o Options) WithCustomer(id string, def int) Options {
	if id == "" || o.CustomerID == id {
		o.CustomerID = ""
		o.K = def
		return o
	}
	o.CustomerID = id
	return o
}

// KEnabled reports whether the k-neighbors control is active.
func (o Options) KEnabled() bool {
	return o.CustomerID != ""
}

func fieldName(f string) string {
	switch f {
	case "K":
		return "k"
	case "Embedding":
		return "dimred"
	case "XAxis":
		return "x_axis"
	case "YAxis":
		return "y_axis"
	default:
		return strings.ToLower(f)
	}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min", "max":
		if fe.Field() == "K" {
			return fmt.Sprintf("must be between %d and %d", MinK, MaxK)
		}
		return fmt.Sprintf("must be between 0 and %d", FeatureCount-1)
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "axes_pair":
		return "x_axis and y_axis must be set together"
	default:
		return fmt.Sprintf("failed %q", fe.Tag())
	}
}
