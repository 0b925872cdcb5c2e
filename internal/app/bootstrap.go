package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/chart"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/filter"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/query"
)

// InitialData is what the page ships with before any interaction: the world
// map, the countries that have data, the date span and optionally the three
// global charts. Charts may be figure objects or JSON strings.
type InitialData struct {
	WorldMap         json.RawMessage `json:"world_map"`
	CustomerProfiles json.RawMessage `json:"customer_profiles,omitempty"`
	SalesTrend       json.RawMessage `json:"sales_trend,omitempty"`
	TopProducts      json.RawMessage `json:"top_products,omitempty"`
	DatasetCountries []string        `json:"dataset_countries"`
	DateRange        filter.Span     `json:"date_range"`
}

// LoadInitialData reads InitialData from a JSON file.
func LoadInitialData(path string) (InitialData, error) {
	var d InitialData
	if path == "" {
		return d, fmt.Errorf("%w: no initial data file", ErrMissingPrerequisite)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("%w: read initial data: %w", ErrMissingPrerequisite, err)
	}
	if err := json.Unmarshal(b, &d); err != nil {
		return d, fmt.Errorf("%w: decode initial data: %w", ErrMissingPrerequisite, err)
	}
	return d, nil
}

type bootstrap struct {
	worldMap  chart.Spec
	initial   map[query.ChartKind]chart.Spec
	countries map[string]bool
	span      filter.Span
}

// prepare checks the dataset and parses the embedded charts.
func (d InitialData) prepare() (bootstrap, error) {
	b := bootstrap{initial: map[query.ChartKind]chart.Spec{}, countries: map[string]bool{}}

	m, err := chart.ParseGraph(d.WorldMap)
	if err != nil {
		return b, fmt.Errorf("%w: world map: %w", ErrMissingPrerequisite, err)
	}
	if m.IsEmpty() {
		return b, fmt.Errorf("%w: world map has no locations", ErrMissingPrerequisite)
	}
	b.worldMap = m

	for _, c := range d.DatasetCountries {
		if c != "" {
			b.countries[c] = true
		}
	}
	if len(b.countries) == 0 {
		return b, fmt.Errorf("%w: no dataset countries", ErrMissingPrerequisite)
	}

	if d.DateRange.Min.IsZero() || d.DateRange.Max.IsZero() || d.DateRange.Max.Before(d.DateRange.Min) {
		return b, fmt.Errorf("%w: invalid date range", ErrMissingPrerequisite)
	}
	b.span = d.DateRange

	for kind, raw := range map[query.ChartKind]json.RawMessage{
		query.Profiles: d.CustomerProfiles,
		query.Sales:    d.SalesTrend,
		query.Products: d.TopProducts,
	} {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		spec, err := chart.ParseGraph(raw)
		if err != nil {
			return b, fmt.Errorf("%w: initial %s chart: %w", ErrMissingPrerequisite, kind, err)
		}
		b.initial[kind] = spec
	}
	return b, nil
}
