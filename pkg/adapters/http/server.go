// Package http exposes a machine over a small REST surface: current state,
// transition graph, entity access and health. It is read-mostly; the only
// write path is setting an entity value, which feeds the bus like any other
// host event.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arborhq/arbor/internal/logging"
	"github.com/arborhq/arbor/internal/presentation/graph"
	"github.com/arborhq/arbor/pkg/domain"
	"github.com/arborhq/arbor/pkg/ports"
)

// Machine is the read surface the server exposes.
type Machine interface {
	Current() domain.State
	States() []domain.State
	Edges() []domain.Edge
}

// Server serves the REST surface for one machine.
type Server struct {
	machine Machine
	bus     ports.EntityBus
	post    func(func())
	logger  *slog.Logger
	metrics prometheus.Gatherer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a structured logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDelivery routes entity writes through post instead of calling the bus
// on the request goroutine. Pass a run loop's Post to serialize writes with
// the engine.
func WithDelivery(post func(func())) Option {
	return func(s *Server) { s.post = post }
}

// WithMetrics mounts a Prometheus /metrics endpoint for g.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.metrics = g }
}

// NewServer creates a server for machine, writing entities through bus.
func NewServer(machine Machine, bus ports.EntityBus, opts ...Option) *Server {
	s := &Server{
		machine: machine,
		bus:     bus,
		post:    func(task func()) { task() },
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/state", s.handleState)
	r.Get("/graph", s.handleGraph)
	r.Get("/entities/{id}", s.handleReadEntity)
	r.Put("/entities/{id}", s.handleWriteEntity)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"state":  s.machine.Current(),
		"states": s.machine.States(),
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	edges := s.machine.Edges()

	var body string
	switch format := r.URL.Query().Get("format"); format {
	case "", "dot":
		body = graph.DOT(edges)
	case "mermaid":
		body = graph.Mermaid(edges, s.machine.Current())
	case "link":
		body = graph.Link(edges)
	default:
		s.respondJSON(w, http.StatusBadRequest,
			map[string]string{"error": "unknown graph format " + format})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

func (s *Server) handleReadEntity(w http.ResponseWriter, r *http.Request) {
	entity := domain.Entity(chi.URLParam(r, "id"))
	value, ok := s.bus.Read(entity)
	if !ok {
		s.respondJSON(w, http.StatusNotFound,
			map[string]string{"error": "entity has no value"})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"entity": string(entity),
		"value":  value,
	})
}

func (s *Server) handleWriteEntity(w http.ResponseWriter, r *http.Request) {
	entity := domain.Entity(chi.URLParam(r, "id"))

	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondJSON(w, http.StatusBadRequest,
			map[string]string{"error": "invalid request body"})
		return
	}

	s.post(func() { s.bus.Write(entity, body.Value) })
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}
