package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/bridge"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Dispatcher is the part of bridge.Dispatcher the HTTP surface drives.
type Dispatcher interface {
	HandleInbound(ctx context.Context, id string, in domain.Inbound) ([]domain.Effect, error)
	HandleExternalTrigger(ctx context.Context, event, id string, payload map[string]any) ([]domain.Effect, error)
	Send(ctx context.Context, to string, msg domain.Message) error
	Latest(ctx context.Context, id string) (*domain.HistoryRecord, error)
	AddToBlacklist(ctx context.Context, id string) error
	RemoveFromBlacklist(ctx context.Context, id string) error
}

// HealthFunc reports whether a dependency is usable.
type HealthFunc func(ctx context.Context) error

// Server serves the parley HTTP API.
type Server struct {
	Dispatcher Dispatcher
	Streams    *StreamManager

	graph   *domain.Graph
	metrics http.Handler
	health  map[string]HealthFunc
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithGraph exposes the graph structure on GET /v1/graph.
func WithGraph(g *domain.Graph) Option {
	return func(s *Server) {
		s.graph = g
	}
}

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithHealthCheck adds a named check to GET /health.
func WithHealthCheck(name string, fn HealthFunc) Option {
	return func(s *Server) {
		s.health[name] = fn
	}
}

// WithStreams shares a StreamManager, typically the one fed by a StreamProvider.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for d.
func NewHandler(d Dispatcher, opts ...Option) http.Handler {
	s := &Server{
		Dispatcher: d,
		health:     make(map[string]HealthFunc),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/messages", s.PostMessage)
		r.Post("/register", s.trigger(domain.EventRegister))
		r.Post("/samples", s.trigger(domain.EventSamples))
		r.Post("/blacklist", s.PostBlacklist)
		r.Post("/inbound", s.PostInbound)
		r.Get("/history/{number}", s.GetHistory)
		r.Get("/graph", s.GetGraph)
		r.Get("/events", s.SubscribeEvents)
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MessageRequest is the body of /v1/messages and /v1/inbound.
type MessageRequest struct {
	Number   string `json:"number"`
	Message  string `json:"message"`
	URLMedia string `json:"urlMedia,omitempty"`
}

// TriggerRequest is the body of /v1/register and /v1/samples.
type TriggerRequest struct {
	Number string `json:"number"`
	Name   string `json:"name"`
}

// BlacklistRequest is the body and response of /v1/blacklist.
type BlacklistRequest struct {
	Status string `json:"status,omitempty"`
	Number string `json:"number"`
	Intent string `json:"intent"`
}

// EffectResponse is one outbound message in a /v1/inbound response.
type EffectResponse struct {
	To    string `json:"to"`
	Text  string `json:"text,omitempty"`
	Media string `json:"media,omitempty"`
}

// PostMessage handles POST /v1/messages: direct delivery outside the graph.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	var body MessageRequest
	if !s.decode(w, r, &body) {
		return
	}
	msg := domain.Message{Text: body.Message, Media: body.URLMedia}
	if err := s.Dispatcher.Send(r.Context(), body.Number, msg); err != nil {
		s.fail(w, "PostMessage", err)
		return
	}
	writeText(w, "sended")
}

// trigger handles the event endpoints. The name is seeded into the
// conversation state before the node starts.
func (s *Server) trigger(event string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body TriggerRequest
		if !s.decode(w, r, &body) {
			return
		}
		var payload map[string]any
		if body.Name != "" {
			payload = map[string]any{"name": body.Name}
		}
		if _, err := s.Dispatcher.HandleExternalTrigger(r.Context(), event, body.Number, payload); err != nil {
			s.fail(w, "Trigger "+event, err)
			return
		}
		writeText(w, "trigger")
	}
}

// PostBlacklist handles POST /v1/blacklist.
func (s *Server) PostBlacklist(w http.ResponseWriter, r *http.Request) {
	var body BlacklistRequest
	if !s.decode(w, r, &body) {
		return
	}

	var err error
	switch body.Intent {
	case "add":
		err = s.Dispatcher.AddToBlacklist(r.Context(), body.Number)
	case "remove":
		err = s.Dispatcher.RemoveFromBlacklist(r.Context(), body.Number)
	default:
		http.Error(w, fmt.Sprintf("Invalid intent %q: expected add or remove", body.Intent), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.fail(w, "PostBlacklist", err)
		return
	}

	writeJSON(w, s.logger, http.StatusOK, BlacklistRequest{Status: "ok", Number: body.Number, Intent: body.Intent})
}

// PostInbound handles POST /v1/inbound, the provider webhook. It responds
// with the effects the turn produced.
func (s *Server) PostInbound(w http.ResponseWriter, r *http.Request) {
	var body MessageRequest
	if !s.decode(w, r, &body) {
		return
	}
	effects, err := s.Dispatcher.HandleInbound(r.Context(), body.Number, domain.Inbound{Body: body.Message, Media: body.URLMedia})
	if err != nil {
		s.fail(w, "PostInbound", err)
		return
	}

	resp := make([]EffectResponse, 0, len(effects))
	for _, e := range effects {
		resp = append(resp, EffectResponse{To: e.To, Text: e.Message.Text, Media: e.Message.Media})
	}
	writeJSON(w, s.logger, http.StatusOK, resp)
}

// GetHistory handles GET /v1/history/{number}.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Dispatcher.Latest(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		s.fail(w, "GetHistory", err)
		return
	}
	if rec == nil {
		http.Error(w, "No history", http.StatusNotFound)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, rec)
}

// GetGraph handles GET /v1/graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	if s.graph == nil {
		http.Error(w, "Graph not exposed", http.StatusNotFound)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, s.graph.Describe())
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	resp := map[string]string{"status": "ok"}
	for name, check := range s.health {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			resp["status"] = "degraded"
			resp[name] = err.Error()
			continue
		}
		resp[name] = "ok"
	}
	writeJSON(w, s.logger, status, resp)
}

// -- Helpers --

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
		return false
	}
	return true
}

// fail maps dispatcher errors to HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	var engineErr *domain.EngineError
	switch {
	case errors.Is(err, bridge.ErrMissingID),
		errors.Is(err, bridge.ErrEmptyMessage),
		errors.Is(err, bridge.ErrInputTooLarge),
		errors.Is(err, bridge.ErrInvalidUTF8):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownTrigger):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnavailable):
		status = http.StatusServiceUnavailable
	case errors.As(err, &engineErr):
		status = http.StatusUnprocessableEntity
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Warn(op+" rejected", "err", err)
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), status)
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Response encode failed", "err", err)
	}
}
