package app

import "github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/query"

// Targets are the engine target names of the dashboard.
type Targets struct {
	Dashboard  string `json:"dashboard"`
	Map        string `json:"map"`
	Profiles   string `json:"profiles"`
	Sales      string `json:"sales"`
	Products   string `json:"products"`
	Similarity string `json:"similarity"`
}

// DefaultTargets returns the element ids of the dashboard page.
func DefaultTargets() Targets {
	return Targets{
		Dashboard:  "dashboard",
		Map:        "world-map",
		Profiles:   "customer-profiles-chart",
		Sales:      "sales-trend-chart",
		Products:   "top-products-chart",
		Similarity: "similarity-chart",
	}
}

// All lists every target.
func (t Targets) All() []string {
	return []string{t.Dashboard, t.Map, t.Profiles, t.Sales, t.Products, t.Similarity}
}

// For returns the target of a rendered chart.
func (t Targets) For(kind query.ChartKind) (string, bool) {
	switch kind {
	case query.Map:
		return t.Map, true
	case query.Profiles:
		return t.Profiles, true
	case query.Sales:
		return t.Sales, true
	case query.Products, query.CustomerProducts:
		return t.Products, true
	case query.Similarity:
		return t.Similarity, true
	}
	return "", false
}
