// Package api exposes a headless dashboard session over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/http/swagger"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/render"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/app"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/analysis"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/filter"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/query"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/logger"
)

// Dependencies required by HTTP handlers. app.Service satisfies it.
type Dependencies interface {
	StateDependencies
	InteractionDependencies
	FilterDependencies
	SimilarityDependencies
	MapDependencies
}

// Server wires HTTP routes for the session API.
type Server struct {
	healthHandler      *HealthHandler
	stateHandler       *StateHandler
	interactionHandler *InteractionHandler
	filterHandler      *FilterHandler
	similarityHandler  *SimilarityHandler
	mapHandler         *MapHandler

	corsOrigins []string
	logger      logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithCORSOrigins sets the origins allowed to call the API.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(),
		stateHandler:       NewStateHandler(deps),
		interactionHandler: NewInteractionHandler(deps),
		filterHandler:      NewFilterHandler(deps),
		similarityHandler:  NewSimilarityHandler(deps),
		mapHandler:         NewMapHandler(deps),
		corsOrigins:        []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Handler builds the route tree.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestSize(MaxBodyBytes))
	r.Use(RequestLogger(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/state", MetricsMiddleware(s.stateHandler.HandleState, "state"))
	r.Get("/notices", MetricsMiddleware(s.stateHandler.HandleNotices, "notices"))
	r.Get("/charts/{chart}", MetricsMiddleware(s.stateHandler.HandleChart, "charts"))
	r.Post("/interactions", MetricsMiddleware(s.interactionHandler.HandleInteraction, "interactions"))

	r.Route("/filters", func(fr chi.Router) {
		fr.Post("/date-range", MetricsMiddleware(s.filterHandler.HandleDateRange, "filters_date_range"))
		fr.Post("/category", MetricsMiddleware(s.filterHandler.HandleCategory, "filters_category"))
		fr.Post("/subcategory", MetricsMiddleware(s.filterHandler.HandleSubcategory, "filters_subcategory"))
	})
	r.Route("/similarity", func(sr chi.Router) {
		sr.Post("/open", MetricsMiddleware(s.similarityHandler.HandleOpen, "similarity_open"))
		sr.Post("/close", MetricsMiddleware(s.similarityHandler.HandleClose, "similarity_close"))
		sr.Post("/options", MetricsMiddleware(s.similarityHandler.HandleOptions, "similarity_options"))
	})
	r.Post("/reset", MetricsMiddleware(s.similarityHandler.HandleReset, "reset"))
	r.Route("/map", func(mr chi.Router) {
		mr.Post("/pan", MetricsMiddleware(s.mapHandler.HandlePan, "map_pan"))
		mr.Post("/zoom", MetricsMiddleware(s.mapHandler.HandleZoom, "map_zoom"))
	})

	swagger.Register(ctx, r)
	return r
}

// MaxBodyBytes bounds request bodies; a full lasso of 10000 points fits.
const MaxBodyBytes = 2 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	resp := errorResponse{Code: code, Message: msg}
	var ve *analysis.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	writeJSON(w, status, resp)
}

// fail translates a session error into a status code.
func fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrNotStarted), errors.Is(err, app.ErrStopped), errors.Is(err, app.ErrMissingPrerequisite):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, app.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, render.ErrUnknownTarget):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, app.ErrNoHandler):
		writeError(w, http.StatusUnprocessableEntity, "no_handler", err)
	case errors.Is(err, analysis.ErrValidation),
		errors.Is(err, filter.ErrInvalidYearMonth),
		errors.Is(err, filter.ErrSubcategoryWithoutCategory),
		errors.Is(err, app.ErrUnknownCategory):
		writeError(w, http.StatusBadRequest, "validation_error", err)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// decode reads a JSON body into v and validates it.
func decode(r *http.Request, v any) error {
	if err := decodeJSON(r, v); err != nil {
		return err
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: %w", ErrBodyTooLarge, err)
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

// badRequest answers a body or path that could not be read.
func badRequest(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", err)
		return
	}
	writeError(w, http.StatusBadRequest, "bad_request", err)
}

// accepted answers a mutating call. With ?wait=true the session is settled
// first and the resulting snapshot is returned.
func accepted(w http.ResponseWriter, r *http.Request, deps StateDependencies) {
	if r.URL.Query().Get("wait") != "true" {
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
		return
	}
	if err := deps.Settle(r.Context()); err != nil {
		fail(w, err)
		return
	}
	snap, err := deps.Snapshot(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func parseChart(s string) (query.ChartKind, error) {
	kind, ok := query.ParseChartKind(s)
	if !ok {
		return "", fmt.Errorf("%w: unknown chart %q", ErrBadRequest, s)
	}
	return kind, nil
}
