package server

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/playhead-dev/playhead/internal/clock"
	"github.com/playhead-dev/playhead/internal/highlight"
	"github.com/playhead-dev/playhead/internal/player"
	"github.com/playhead-dev/playhead/internal/session"
)

// Server exposes a loaded player over HTTP: a dashboard, a JSON control
// API, and a WebSocket feed of playback state.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	player     *player.Player
	highlights *highlight.Controller
	hub        *Hub
	clock      clock.Clock
}

// New creates a playhead server around an already-loaded player.
func New(addr string, p *player.Player, hl *highlight.Controller, hub *Hub, clk clock.Clock) *Server {
	s := &Server{
		player:     p,
		highlights: hl,
		hub:        hub,
		clock:      clk,
		mux:        http.NewServeMux(),
	}
	s.routes()
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: LoggingMiddleware(s.mux, clk),
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/state", s.handleState)
	s.mux.HandleFunc("/api/session", s.handleSession)
	s.mux.HandleFunc("/api/play", s.handlePlay)
	s.mux.HandleFunc("/api/pause", s.handlePause)
	s.mux.HandleFunc("/api/seek", s.handleSeek)
	s.mux.HandleFunc("/api/speed", s.handleSpeed)
	s.mux.HandleFunc("/api/skip", s.handleSkip)
	s.mux.HandleFunc("/api/restart", s.handleRestart)
	s.mux.HandleFunc("/api/highlights", s.handleHighlights)
	s.mux.HandleFunc("/api/highlights/", s.handleHighlightByID)
	if s.hub != nil {
		s.mux.HandleFunc("/ws", s.hub.HandleWebSocket)
	}
}

// handleRoot serves the embedded dashboard.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(DashboardHTML))
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleState returns the current playback state.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.respondState(w)
}

// sessionSummary is the /api/session response body.
type sessionSummary struct {
	ID         string                    `json:"id"`
	DurationMs int64                     `json:"duration_ms"`
	Events     int                       `json:"events"`
	Counts     map[session.EventKind]int `json:"counts"`
	IdleGaps   []session.IdleGap         `json:"idle_gaps"`
}

// handleSession describes the loaded session.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := s.player.Session()
	if sess == nil {
		http.Error(w, `{"error":"no session loaded"}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessionSummary{
		ID:         sess.ID(),
		DurationMs: sess.DurationMs(),
		Events:     sess.Len(),
		Counts:     sess.CountByKind(),
		IdleGaps:   sess.IdleGaps(10 * time.Second),
	})
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	s.player.TogglePlayPause(true, "api")
	s.respondState(w)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	s.player.TogglePlayPause(false, "api")
	s.respondState(w)
}

// handleSeek moves the playhead. Body: {"time_ms": 5000}.
func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		TimeMs int64 `json:"time_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	s.player.SetCurrentTime(req.TimeMs)
	s.respondState(w)
}

// handleSpeed changes playback speed. Body: {"speed": 2}.
func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Speed <= 0 {
		http.Error(w, `{"error":"speed must be positive"}`, http.StatusBadRequest)
		return
	}
	s.player.SetSpeed(req.Speed)
	s.respondState(w)
}

// handleSkip toggles idle skipping. Body: {"enabled": true}.
func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	s.player.ToggleSkipInactive(req.Enabled)
	s.respondState(w)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	s.player.Restart()
	s.respondState(w)
}

// handleHighlights lists (GET), adds (POST), or clears (DELETE) highlights.
func (s *Server) handleHighlights(w http.ResponseWriter, r *http.Request) {
	if s.highlights == nil {
		http.Error(w, `{"error":"highlights are not enabled"}`, http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.highlights.Snapshot())
	case http.MethodPost:
		var h highlight.Highlight
		if err := json.NewDecoder(r.Body).Decode(&h); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		h.ID = s.highlights.AddHighlight(h)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(h)
	case http.MethodDelete:
		s.highlights.ClearAllHighlights()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
	}
}

// handleHighlightByID removes one highlight. Path: /api/highlights/{id}.
func (s *Server) handleHighlightByID(w http.ResponseWriter, r *http.Request) {
	if s.highlights == nil {
		http.Error(w, `{"error":"highlights are not enabled"}`, http.StatusNotFound)
		return
	}
	if r.Method != http.MethodDelete {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Path[len("/api/highlights/"):]
	if id == "" {
		http.Error(w, `{"error":"highlight id is required"}`, http.StatusBadRequest)
		return
	}
	s.highlights.RemoveHighlight(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondState(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.player.State())
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// Start begins listening. It blocks until the server is shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	log.Printf("playhead server listening on %s", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// StartOnListener begins serving on the provided listener.
// Useful for tests that need to pick an ephemeral port.
func (s *Server) StartOnListener(ln net.Listener) error {
	log.Printf("playhead server listening on %s", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
