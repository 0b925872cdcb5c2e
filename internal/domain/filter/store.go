// Package filter holds the dashboard's filter state, the single source of
// truth for every chart query. Setters enforce the state invariants and never
// trigger refreshes.
package filter

import (
	"slices"
	"strings"
)

// State is an immutable snapshot of the active filters.
type State struct {
	Country           string    `json:"country,omitempty"`
	Profile           string    `json:"profile,omitempty"`
	DateStart         YearMonth `json:"date_start"`
	DateEnd           YearMonth `json:"date_end"`
	Category          string    `json:"category,omitempty"`
	Subcategory       string    `json:"subcategory,omitempty"`
	SelectedCustomers []string  `json:"selected_customer_ids,omitempty"`
}

// HasDateRange reports whether an explicit date bound is active.
func (s State) HasDateRange() bool {
	return !s.DateStart.IsZero() || !s.DateEnd.IsZero()
}

// Store owns the mutable filter state. It is not safe for concurrent use;
// the controller's event loop is its only writer.
type Store struct {
	state State
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	out := s.state
	out.SelectedCustomers = slices.Clone(s.state.SelectedCustomers)
	return out
}

// Country returns the selected country.
func (s *Store) Country() string { return s.state.Country }

// Profile returns the selected customer profile.
func (s *Store) Profile() string { return s.state.Profile }

// Category returns the selected product category.
func (s *Store) Category() string { return s.state.Category }

// Subcategory returns the selected subcategory of Category.
func (s *Store) Subcategory() string { return s.state.Subcategory }

// DateStart returns the lower date bound, zero when unbounded.
func (s *Store) DateStart() YearMonth { return s.state.DateStart }

// DateEnd returns the upper date bound, zero when unbounded.
func (s *Store) DateEnd() YearMonth { return s.state.DateEnd }

// SelectedCustomers returns a copy of the lasso-selected customer IDs.
func (s *Store) SelectedCustomers() []string {
	return slices.Clone(s.state.SelectedCustomers)
}

// SetCountry sets or, with "", clears the country.
func (s *Store) SetCountry(country string) {
	s.state.Country = strings.TrimSpace(country)
}

// SetProfile sets or, with "", clears the customer profile.
func (s *Store) SetProfile(profile string) {
	s.state.Profile = strings.TrimSpace(profile)
}

// SetCategory sets the category and always clears the subcategory.
func (s *Store) SetCategory(category string) {
	s.state.Category = strings.TrimSpace(category)
	s.state.Subcategory = ""
}

// SetSubcategory sets the subcategory; a non-empty value needs a category.
func (s *Store) SetSubcategory(subcategory string) error {
	subcategory = strings.TrimSpace(subcategory)
	if subcategory != "" && s.state.Category == "" {
		return ErrSubcategoryWithoutCategory
	}
	s.state.Subcategory = subcategory
	return nil
}

// SetDateRange stores the bounds in ascending order. Zero values clear a bound.
func (s *Store) SetDateRange(start, end YearMonth) {
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		start, end = end, start
	}
	s.state.DateStart = start
	s.state.DateEnd = end
}

// ClearDateRange drops both bounds.
func (s *Store) ClearDateRange() {
	s.state.DateStart = YearMonth{}
	s.state.DateEnd = YearMonth{}
}

// SetSelectedCustomers replaces the lasso selection, dropping blanks and duplicates.
func (s *Store) SetSelectedCustomers(ids []string) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		out = nil
	}
	s.state.SelectedCustomers = out
}

// ClearSelectedCustomers drops the lasso selection.
func (s *Store) ClearSelectedCustomers() {
	s.state.SelectedCustomers = nil
}

// Reset empties the store.
func (s *Store) Reset() {
	s.state = State{}
}
