package scenario

import (
	"errors"
	"fmt"
	"slices"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/app"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/query"
)

// Expect lists conditions checked against the session after a step. Nil
// fields are not checked.
type Expect struct {
	Country           *string           `yaml:"country,omitempty"`
	Profile           *string           `yaml:"profile,omitempty"`
	Category          *string           `yaml:"category,omitempty"`
	Subcategory       *string           `yaml:"subcategory,omitempty"`
	DateStart         *string           `yaml:"date_start,omitempty"`
	DateEnd           *string           `yaml:"date_end,omitempty"`
	SelectedCustomers []string          `yaml:"selected_customers,omitempty"`
	LassoCountries    []string          `yaml:"lasso_countries,omitempty"`
	Charts            map[string]string `yaml:"charts,omitempty"`
	Empty             []string          `yaml:"empty,omitempty"`
	SimilarityOpen    *bool             `yaml:"similarity_open,omitempty"`
	K                 *int              `yaml:"k,omitempty"`
}

// Verify reports every unmet condition.
func (e *Expect) Verify(s app.Snapshot) error {
	var errs []error
	check := func(name string, want *string, got string) {
		if want != nil && *want != got {
			errs = append(errs, fmt.Errorf("%s: want %q, got %q", name, *want, got))
		}
	}
	check("country", e.Country, s.Filters.Country)
	check("profile", e.Profile, s.Filters.Profile)
	check("category", e.Category, s.Filters.Category)
	check("subcategory", e.Subcategory, s.Filters.Subcategory)
	check("date_start", e.DateStart, s.Filters.DateStart.String())
	check("date_end", e.DateEnd, s.Filters.DateEnd.String())

	if e.SelectedCustomers != nil && !slices.Equal(e.SelectedCustomers, s.Filters.SelectedCustomers) {
		errs = append(errs, fmt.Errorf("selected_customers: want %v, got %v", e.SelectedCustomers, s.Filters.SelectedCustomers))
	}
	if e.LassoCountries != nil && !slices.Equal(e.LassoCountries, s.Lasso.Countries) {
		errs = append(errs, fmt.Errorf("lasso_countries: want %v, got %v", e.LassoCountries, s.Lasso.Countries))
	}
	for chart, want := range e.Charts {
		got := s.Charts[query.ChartKind(chart)].State
		if string(got) != want {
			errs = append(errs, fmt.Errorf("chart %s: want %s, got %s", chart, want, got))
		}
	}
	for _, chart := range e.Empty {
		if !s.Charts[query.ChartKind(chart)].Empty {
			errs = append(errs, fmt.Errorf("chart %s: want the no-data indication", chart))
		}
	}
	if e.SimilarityOpen != nil && *e.SimilarityOpen != s.SimilarityOpen {
		errs = append(errs, fmt.Errorf("similarity_open: want %t, got %t", *e.SimilarityOpen, s.SimilarityOpen))
	}
	if e.K != nil && *e.K != s.Analysis.K {
		errs = append(errs, fmt.Errorf("k: want %d, got %d", *e.K, s.Analysis.K))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrExpectation, errors.Join(errs...))
	}
	return nil
}
