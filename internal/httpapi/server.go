package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/penny/internal/config"
	"github.com/antoniostano/penny/internal/dialog"
	"github.com/antoniostano/penny/internal/observability"
	"github.com/antoniostano/penny/internal/session"
	"github.com/antoniostano/penny/internal/settings"
	"github.com/antoniostano/penny/internal/speech"
)

type Server struct {
	cfg      config.Config
	settings settings.Store
	sessions *session.Manager
	pipeline *dialog.Pipeline
	synth    *speech.Selector
	hub      *dialog.Hub
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(
	cfg config.Config,
	store settings.Store,
	sessions *session.Manager,
	pipeline *dialog.Pipeline,
	synth *speech.Selector,
	hub *dialog.Hub,
	metrics *observability.Metrics,
) *Server {
	return &Server{
		cfg:      cfg,
		settings: store,
		sessions: sessions,
		pipeline: pipeline,
		synth:    synth,
		hub:      hub,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same origin,
				// so another site cannot watch live call transcripts if the
				// dashboard is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Server running"))
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/voice", s.handleVoice)
	r.Post("/process", s.handleProcess)

	r.Get("/dashboard", s.handleDashboard)
	r.Post("/dashboard", s.handleDashboardSave)
	r.Get("/dashboard/live", s.handleDashboardLive)

	r.Handle(speech.PublicPathPrefix+"*", http.StripPrefix(
		speech.PublicPathPrefix,
		http.FileServer(http.Dir(s.cfg.AudioDir)),
	))

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"active_calls": s.sessions.ActiveCount(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.settings.Load(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "settings_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
