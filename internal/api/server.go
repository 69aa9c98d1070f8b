// Package api is the inbound message transport: a JSON HTTP surface that
// feeds user messages through the router and returns the reply. Origin
// verification and delivery callbacks belong to the messaging platform, not
// here.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/pbaille/jot/internal/router"
	"github.com/pbaille/jot/internal/store"
	"go.uber.org/zap"
)

// Server handles HTTP requests for the journal
type Server struct {
	router *router.Router
	mirror *store.Store
	addr   string
	logger *zap.Logger
}

// New creates a new API server. mirror may be nil when no sqlite mirror is
// configured; the entries listing then returns 404.
func New(r *router.Router, mirror *store.Store, addr string, logger *zap.Logger) *Server {
	return &Server{router: r, mirror: mirror, addr: addr, logger: logger}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	s.logger.Info("starting server", zap.String("addr", s.addr))
	return http.ListenAndServe(s.addr, s.Handler())
}

// Handler builds the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Inbound messages
	mux.HandleFunc("POST /messages", s.handleMessage)

	// Mirrored entries
	mux.HandleFunc("GET /entries", s.listEntries)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return mux
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// MessageRequest is one inbound message event.
type MessageRequest struct {
	Text    string `json:"text"`
	ReplyTo string `json:"reply_to,omitempty"`
	User    string `json:"user,omitempty"`
}

// MessageResponse carries the reply text for the event.
type MessageResponse struct {
	Reply string `json:"reply"`
}

// handleMessage processes one event to completion. A malformed event is
// rejected on its own; it never aborts the process or other events.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	s.logger.Debug("inbound message",
		zap.String("user", req.User),
		zap.Int("length", len(req.Text)))

	reply := s.router.Handle(r.Context(), req.Text)
	writeJSON(w, http.StatusOK, MessageResponse{Reply: reply})
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	if s.mirror == nil {
		writeError(w, http.StatusNotFound, "entry mirror not configured")
		return
	}

	limit := 20
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}

	entries, err := s.mirror.ListEntries(limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"limit":   limit,
		"offset":  offset,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
