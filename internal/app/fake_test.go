package app_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/backend"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/app"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/chart"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/filter"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/query"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/similarity"
)

var allProfiles = []string{"Minorista Estándar", "Mayorista Estándar", "Minorista Lujo", "Mayorista Lujo"}

var mapLocations = []string{"Germany", "France", "United Kingdom", "Atlantis"}

// fakeBackend answers every endpoint from memory and records the requests.
type fakeBackend struct {
	mu             sync.Mutex
	requests       []query.Request
	gates          map[string]chan struct{}
	salesErr       error
	productsErr    error
	emptyProducts  bool
	customersErr   error
	similarityErr  error
	similarityData similarity.Result
}

func newFakeBackend() *fakeBackend {
	points := []similarity.Point{
		{ID: "1", X: 0.1, Y: 0.2, Cluster: 0, CustomerType: "Minorista Estándar", Country: "Germany"},
		{ID: "2", X: 0.3, Y: 0.1, Cluster: 0, CustomerType: "Minorista Estándar", Country: "Germany"},
		{ID: "3", X: 0.5, Y: 0.4, Cluster: 1, CustomerType: "Minorista Estándar", Country: "France"},
		{ID: "4", X: 0.7, Y: 0.9, Cluster: 1, CustomerType: "Minorista Estándar", Country: "France"},
		{ID: "5", X: 0.2, Y: 0.8, Cluster: 0, CustomerType: "Minorista Estándar", Country: "Germany"},
		{ID: "6", X: 0.9, Y: 0.1, Cluster: 2, CustomerType: "Mayorista Lujo", Country: "United Kingdom"},
	}
	return &fakeBackend{
		gates:          map[string]chan struct{}{},
		similarityData: similarity.Result{Embedding: points, TotalCustomers: len(points)},
	}
}

func (f *fakeBackend) record(req query.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	gate := f.gates[req.Path]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (f *fakeBackend) gate(path string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[path] = ch
	return ch
}

func (f *fakeBackend) set(fn func(f *fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// count returns how many requests hit path.
func (f *fakeBackend) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

func (f *fakeBackend) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// last returns the most recent request to path.
func (f *fakeBackend) last(path string) query.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].Path == path {
			return f.requests[i]
		}
	}
	return query.Request{}
}

// matched reports whether some request to path matches fn.
func (f *fakeBackend) matched(path string, fn func(query.Request) bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.Path == path && fn(r) {
			return true
		}
	}
	return false
}

func bars(title string, labels ...string) chart.Spec {
	x := make([]any, len(labels))
	y := make([]any, len(labels))
	for i, l := range labels {
		x[i], y[i] = l, float64(i+1)
	}
	return chart.Spec{
		Data:   []chart.Trace{{"type": "bar", "x": x, "y": y}},
		Layout: map[string]any{"title": title},
	}
}

func (f *fakeBackend) Chart(_ context.Context, req query.Request) (chart.Spec, error) {
	f.record(req)
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case strings.HasPrefix(req.Path, "/api/customer-profiles"):
		labels := allProfiles
		if strings.Contains(req.Path, "France") {
			labels = allProfiles[:3]
		}
		return bars(req.Path, labels...), nil
	case req.Path == "/api/sales-trend/":
		if f.salesErr != nil {
			return chart.Spec{}, f.salesErr
		}
		return bars(req.Path, "2011-01-01", "2011-02-01", "2011-03-01"), nil
	case req.Path == "/api/top-products/":
		if f.emptyProducts {
			return bars(req.Path), nil
		}
		return bars(req.Path, "Vela", "Cojín"), nil
	case req.Path == "/api/products-by-customers/":
		if f.productsErr != nil {
			return chart.Spec{}, f.productsErr
		}
		return bars(req.Path, "Taza"), nil
	}
	return chart.Spec{}, &backend.HTTPError{Endpoint: req.Path, Status: 404}
}

func (f *fakeBackend) Categories(context.Context) (backend.Taxonomy, error) {
	f.record(query.Request{Kind: query.Categories, Path: "/api/categories/"})
	return backend.Taxonomy{
		Categories: []string{"Hogar", "Juguetes"},
		Subcategories: map[string][]string{
			"Hogar":    {"Velas", "Cojines"},
			"Juguetes": {"Peluches"},
		},
	}, nil
}

func (f *fakeBackend) CustomerIDs(_ context.Context, req query.Request) (backend.CustomerIDs, error) {
	f.record(req)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.customersErr != nil {
		return backend.CustomerIDs{}, f.customersErr
	}
	return backend.CustomerIDs{IDs: []similarity.CustomerID{"1", "2", "3", "4", "5", "6"}, Total: 6}, nil
}

func (f *fakeBackend) Similarity(_ context.Context, req query.Request) (similarity.Result, error) {
	f.record(req)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.similarityErr != nil {
		return similarity.Result{}, f.similarityErr
	}
	return f.similarityData, nil
}

func (f *fakeBackend) SalesDetail(_ context.Context, req query.Request) (backend.SalesDetail, error) {
	f.record(req)
	day := strings.TrimSuffix(strings.TrimPrefix(req.Path, "/api/sales-detail/"), "/")
	return backend.SalesDetail{Date: day, Summary: map[string]any{"total_sales": 120.5}}, nil
}

func initialData() app.InitialData {
	locs := make([]any, len(mapLocations))
	for i, l := range mapLocations {
		locs[i] = l
	}
	worldMap, _ := json.Marshal(chart.Spec{
		Data: []chart.Trace{{"type": "choropleth", "locations": locs, "z": []any{1.0, 2.0, 3.0, 0.0}}},
		Layout: map[string]any{"geo": map[string]any{
			"center":     map[string]any{"lon": 0.0, "lat": 20.0},
			"projection": map[string]any{"scale": 1.0},
		}},
	})
	profilesFigure, _ := json.Marshal(bars("/api/customer-profiles-global/", allProfiles...))
	profiles, _ := json.Marshal(string(profilesFigure))
	return app.InitialData{
		WorldMap:         worldMap,
		CustomerProfiles: profiles,
		DatasetCountries: []string{"Germany", "France", "United Kingdom"},
		DateRange:        filter.Span{Min: filter.MustYearMonth("2010-12"), Max: filter.MustYearMonth("2011-12")},
	}
}
