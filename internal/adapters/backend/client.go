// Package backend is the HTTP client of the aggregation backend. Every call
// goes through a circuit breaker and is traced; nothing is retried.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/chart"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/filter"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/query"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/similarity"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/logger"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/metrics"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxFailures = 5
	defaultOpenFor     = 30 * time.Second
	maxErrorBody       = 512
	requestIDHeader    = "X-Request-ID"
)

// Client calls the backend endpoints.
type Client struct {
	base        *url.URL
	http        *http.Client
	timeout     time.Duration
	csrfCookie  string
	csrfHeader  string
	maxFailures uint32
	openFor     time.Duration
	breaker     *gobreaker.CircuitBreaker
	tracer      trace.Tracer
	logger      logger.Logger
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parse backend url: %q is not absolute", baseURL)
	}
	c := &Client{
		base:        u,
		http:        &http.Client{},
		timeout:     defaultTimeout,
		csrfCookie:  "csrftoken",
		csrfHeader:  "X-CSRFToken",
		maxFailures: defaultMaxFailures,
		openFor:     defaultOpenFor,
		tracer:      otel.Tracer("retailviz/backend"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("backend")
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 1,
		Timeout:     c.openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerStateChange(name, to.String())
			c.logger.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			var he *HTTPError
			if errors.As(err, &he) {
				return he.Status < http.StatusInternalServerError
			}
			return err == nil
		},
	})
	return c, nil
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string { return c.base.String() }

// Chart fetches a {"graph": ...} endpoint and parses the figure.
func (c *Client) Chart(ctx context.Context, req query.Request) (chart.Spec, error) {
	var out struct {
		Graph json.RawMessage `json:"graph"`
	}
	if err := c.Do(ctx, req, &out); err != nil {
		return chart.Spec{}, err
	}
	spec, err := chart.ParseGraph(out.Graph)
	if err != nil {
		return chart.Spec{}, fmt.Errorf("%w: %s: %w", ErrMalformed, req.Path, err)
	}
	return spec, nil
}

// Taxonomy is the category list with subcategories per category.
type Taxonomy struct {
	Categories    []string            `json:"categories"`
	Subcategories map[string][]string `json:"subcategories_by_category"`
}

// Categories fetches the product taxonomy.
func (c *Client) Categories(ctx context.Context) (Taxonomy, error) {
	req, _ := query.Build(filter.State{}, query.Categories)
	var t Taxonomy
	err := c.Do(ctx, req, &t)
	return t, err
}

// CustomerIDs is the list of customers that can be analyzed.
type CustomerIDs struct {
	IDs   []similarity.CustomerID `json:"customer_ids"`
	Total int                     `json:"total"`
}

// CustomerIDs fetches the analyzable customers for req.
func (c *Client) CustomerIDs(ctx context.Context, req query.Request) (CustomerIDs, error) {
	var out CustomerIDs
	err := c.Do(ctx, req, &out)
	return out, err
}

// Similarity runs the compute endpoint.
func (c *Client) Similarity(ctx context.Context, req query.Request) (similarity.Result, error) {
	var out similarity.Result
	err := c.Do(ctx, req, &out)
	return out, err
}

// SalesDetail is the drill-down of one day of the sales trend.
type SalesDetail struct {
	Date         string           `json:"date"`
	Summary      map[string]any   `json:"summary"`
	Comparisons  map[string]any   `json:"comparisons"`
	TopProducts  []map[string]any `json:"top_products"`
	TopCustomers []map[string]any `json:"top_customers"`
	Insights     []any            `json:"insights"`
}

// SalesDetail fetches the day drill-down.
func (c *Client) SalesDetail(ctx context.Context, req query.Request) (SalesDetail, error) {
	var out SalesDetail
	err := c.Do(ctx, req, &out)
	return out, err
}

type reply struct {
	status int
	body   []byte
}

// Do sends req and decodes a 2xx JSON reply into out.
func (c *Client) Do(ctx context.Context, req query.Request, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "backend.Do", trace.WithAttributes(
		attribute.String("backend.kind", string(req.Kind)),
		attribute.String("http.method", req.Method),
		attribute.String("http.path", req.Path),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	hreq, err := c.newRequest(ctx, req)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := c.breaker.Execute(func() (any, error) {
		return c.send(hreq)
	})
	metrics.RecordBackendLatency(string(req.Kind), float64(time.Since(start).Milliseconds()))
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordBackendRequest(string(req.Kind), "circuit_open")
			return fmt.Errorf("%w: %s", ErrCircuitOpen, req.Path)
		}
		var he *HTTPError
		if !errors.As(err, &he) {
			metrics.RecordBackendRequest(string(req.Kind), "transport_error")
			c.logger.Warn(ctx, "backend request failed",
				logger.String("path", req.Path), logger.Error(err))
			return fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
		}
		res = reply{status: he.Status, body: []byte(he.Body)}
	}
	rep := res.(reply)
	metrics.RecordBackendRequest(string(req.Kind), strconv.Itoa(rep.status))
	span.SetAttributes(attribute.Int("http.status_code", rep.status))
	return decode(req.Path, rep, out)
}

func (c *Client) newRequest(ctx context.Context, req query.Request) (*http.Request, error) {
	u := *c.base
	u.Path = c.base.Path + req.Path
	u.RawQuery = req.Params.Encode()

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", req.Path, err)
		}
		body = bytes.NewReader(b)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	hreq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", req.Path, err)
	}
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set(requestIDHeader, uuid.NewString())
	if method != http.MethodGet {
		token, err := c.csrfToken(ctx)
		if err != nil {
			return nil, err
		}
		hreq.Header.Set("Content-Type", "application/json")
		hreq.Header.Set(c.csrfHeader, token)
		hreq.Header.Set("Referer", c.base.String()+"/")
	}
	return hreq, nil
}

// send performs the round trip. 5xx replies are returned as errors so the
// breaker counts them.
func (c *Client) send(hreq *http.Request) (any, error) {
	resp, err := c.http.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &HTTPError{Endpoint: hreq.URL.Path, Status: resp.StatusCode, Body: string(b)}
	}
	return reply{status: resp.StatusCode, body: b}, nil
}

func decode(path string, rep reply, out any) error {
	if rep.status < 200 || rep.status > 299 {
		var payload struct {
			Error *string `json:"error"`
		}
		if json.Unmarshal(rep.body, &payload) == nil && payload.Error != nil {
			return &PayloadError{Endpoint: path, Status: rep.status, Message: *payload.Error}
		}
		body := string(rep.body)
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return &HTTPError{Endpoint: path, Status: rep.status, Body: body}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rep.body, out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformed, path, err)
	}
	return nil
}

// csrfToken reads the token cookie, priming it with a page load when the
// jar does not hold one yet.
func (c *Client) csrfToken(ctx context.Context) (string, error) {
	if t := c.cookie(); t != "" {
		return t, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.String()+"/", nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMissingCSRFToken, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMissingCSRFToken, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if t := c.cookie(); t != "" {
		return t, nil
	}
	return "", ErrMissingCSRFToken
}

func (c *Client) cookie() string {
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == c.csrfCookie {
			return ck.Value
		}
	}
	return ""
}
