// Package query derives backend requests from the filter state. Everything
// here is pure: the same state and options always yield the same request and
// the same cache key.
package query

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/analysis"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/filter"
)

// ChartKind names a chart or auxiliary dataset the dashboard requests.
type ChartKind string

// Known chart kinds.
const (
	Map              ChartKind = "map"
	Profiles         ChartKind = "profiles"
	Sales            ChartKind = "sales"
	Products         ChartKind = "products"
	Similarity       ChartKind = "similarity"
	CustomerIDs      ChartKind = "customer_ids"
	Categories       ChartKind = "categories"
	CustomerProducts ChartKind = "products_by_customers"
	SalesDetail      ChartKind = "sales_detail"
)

// Charts lists the rendered charts in display order.
var Charts = []ChartKind{Map, Profiles, Sales, Products, Similarity}

// ParseChartKind accepts the names above.
func ParseChartKind(s string) (ChartKind, bool) {
	switch k := ChartKind(strings.ToLower(strings.TrimSpace(s))); k {
	case Map, Profiles, Sales, Products, Similarity, CustomerIDs, Categories, CustomerProducts, SalesDetail:
		return k, true
	}
	return "", false
}

// Param is one query-string pair.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered parameter list; unset filters are never present.
type Params []Param

func (p Params) add(key, value string) Params {
	if value == "" {
		return p
	}
	return append(p, Param{Key: key, Value: value})
}

// Get returns the value for key and whether it is present.
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Encode renders the pairs in order as a query string.
func (p Params) Encode() string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}

// Request is a fully derived backend call.
type Request struct {
	Kind   ChartKind
	Method string
	Path   string
	Params Params
	// Body is JSON-encoded for POST requests.
	Body any
}

// Key is the canonical cache key: method, path, ordered params and body fields.
func (r Request) Key() string {
	var b strings.Builder
	b.WriteString(string(r.Kind))
	b.WriteByte(' ')
	b.WriteString(r.Method)
	b.WriteByte(' ')
	b.WriteString(r.Path)
	if len(r.Params) > 0 {
		b.WriteByte('?')
		b.WriteString(r.Params.Encode())
	}
	if kb, ok := r.Body.(keyer); ok {
		b.WriteString(" body:")
		b.WriteString(kb.key())
	}
	return b.String()
}

type keyer interface{ key() string }

// Endpoint paths.
const (
	profilesCountryPath  = "/api/customer-profiles/"
	profilesGlobalPath   = "/api/customer-profiles-global/"
	salesTrendPath       = "/api/sales-trend/"
	topProductsPath      = "/api/top-products/"
	categoriesPath       = "/api/categories/"
	customerIDsPath      = "/api/client-similarity/customer-ids/"
	similarityPath       = "/api/client-similarity/compute/"
	customerProductsPath = "/api/products-by-customers/"
	salesDetailPath      = "/api/sales-detail/"
)

func dateParams(p Params, s filter.State) Params {
	p = p.add("start_date", s.DateStart.String())
	return p.add("end_date", s.DateEnd.String())
}

// Build derives the ordinary request for a filter-driven chart. The second
// result is false for kinds that are not derived from filters alone.
func Build(s filter.State, kind ChartKind) (Request, bool) {
	switch kind {
	case Profiles:
		path := profilesGlobalPath
		if s.Country != "" {
			path = profilesCountryPath + url.PathEscape(s.Country) + "/"
		}
		return Request{Kind: kind, Method: http.MethodGet, Path: path, Params: dateParams(nil, s)}, true
	case Sales:
		p := Params(nil).add("country", s.Country).add("profile", s.Profile)
		return Request{Kind: kind, Method: http.MethodGet, Path: salesTrendPath, Params: dateParams(p, s)}, true
	case Products:
		p := Params(nil).add("country", s.Country).add("profile", s.Profile)
		p = dateParams(p, s).add("category", s.Category).add("subcategory", s.Subcategory)
		return Request{Kind: kind, Method: http.MethodGet, Path: topProductsPath, Params: p}, true
	case CustomerIDs:
		p := Params(nil).add("country", s.Country)
		return Request{Kind: kind, Method: http.MethodGet, Path: customerIDsPath, Params: dateParams(p, s)}, true
	case Categories:
		return Request{Kind: kind, Method: http.MethodGet, Path: categoriesPath}, true
	case Map, Similarity, CustomerProducts, SalesDetail:
		return Request{}, false
	}
	return Request{}, false
}

// SimilarityBody is the JSON body of the compute endpoint.
type SimilarityBody struct {
	CustomerID    *string `json:"customer_id"`
	K             int     `json:"k"`
	Metric        string  `json:"metric"`
	Normalization string  `json:"normalization"`
	Dimred        string  `json:"dimred"`
	XAxis         *int    `json:"x_axis,omitempty"`
	YAxis         *int    `json:"y_axis,omitempty"`
	Country       *string `json:"country"`
	StartDate     *string `json:"start_date"`
	EndDate       *string `json:"end_date"`
}

func (b SimilarityBody) key() string {
	p := Params(nil).
		add("customer_id", deref(b.CustomerID)).
		add("k", strconv.Itoa(b.K)).
		add("metric", b.Metric).
		add("normalization", b.Normalization).
		add("dimred", b.Dimred).
		add("country", deref(b.Country)).
		add("start_date", deref(b.StartDate)).
		add("end_date", deref(b.EndDate))
	if b.XAxis != nil && b.YAxis != nil {
		p = p.add("x_axis", strconv.Itoa(*b.XAxis)).add("y_axis", strconv.Itoa(*b.YAxis))
	}
	return p.Encode()
}

// BuildSimilarity validates opts and derives the compute request. No request
// is produced when validation fails.
func BuildSimilarity(s filter.State, opts analysis.Options) (Request, error) {
	if err := opts.Validate(); err != nil {
		return Request{}, err
	}
	body := SimilarityBody{
		CustomerID:    optional(opts.CustomerID),
		K:             opts.K,
		Metric:        opts.Metric,
		Normalization: opts.Normalization,
		Dimred:        opts.Embedding,
		Country:       optional(s.Country),
		StartDate:     optional(s.DateStart.String()),
		EndDate:       optional(s.DateEnd.String()),
	}
	if opts.HasManualAxes() {
		x, y := *opts.XAxis, *opts.YAxis
		body.XAxis, body.YAxis = &x, &y
	}
	return Request{Kind: Similarity, Method: http.MethodPost, Path: similarityPath, Body: body}, nil
}

// CustomerProductsBody is the JSON body of the products-by-customers endpoint.
type CustomerProductsBody struct {
	CustomerIDs []string `json:"customer_ids"`
	Category    *string  `json:"category"`
	Subcategory *string  `json:"subcategory"`
}

func (b CustomerProductsBody) key() string {
	return Params(nil).
		add("customer_ids", strings.Join(b.CustomerIDs, ",")).
		add("category", deref(b.Category)).
		add("subcategory", deref(b.Subcategory)).
		Encode()
}

// BuildCustomerProducts derives the top-products override for the lasso
// selection. Country, profile and dates are deliberately not part of it.
func BuildCustomerProducts(s filter.State) (Request, bool) {
	if len(s.SelectedCustomers) == 0 {
		return Request{}, false
	}
	ids := make([]string, len(s.SelectedCustomers))
	copy(ids, s.SelectedCustomers)
	body := CustomerProductsBody{
		CustomerIDs: ids,
		Category:    optional(s.Category),
		Subcategory: optional(s.Subcategory),
	}
	return Request{Kind: CustomerProducts, Method: http.MethodPost, Path: customerProductsPath, Body: body}, true
}

// BuildProductsView returns the request the products chart should show: the
// customer override while a lasso selection exists, the ordinary one otherwise.
func BuildProductsView(s filter.State) Request {
	if r, ok := BuildCustomerProducts(s); ok {
		return r
	}
	r, _ := Build(s, Products)
	return r
}

// BuildSalesDetail derives the drill-down request for one day of the trend.
func BuildSalesDetail(s filter.State, day string) Request {
	p := Params(nil).add("country", s.Country).add("profile", s.Profile)
	p = dateParams(p, s)
	return Request{
		Kind:   SalesDetail,
		Method: http.MethodGet,
		Path:   salesDetailPath + url.PathEscape(day) + "/",
		Params: p,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
