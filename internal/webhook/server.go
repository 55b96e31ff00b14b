// Package webhook exposes the chat contract over HTTP: start a session and
// get the welcome messages, post a message and get the reply.
package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/user/schemabot/internal/types"
)

// StartHandler starts (or re-welcomes) a session and returns its context
// plus the welcome messages.
type StartHandler func(ctx context.Context, key types.SessionKey) (*types.SessionContext, []string, error)

// MessageHandler processes one inbound message in arrival order and returns
// the reply text.
type MessageHandler func(ctx context.Context, msg *types.InboundMessage) (string, error)

// EndHandler ends a session; no reply is delivered to it afterwards.
type EndHandler func(ctx context.Context, id types.SessionID) error

// Server is a lightweight HTTP handler for the chat endpoints.
type Server struct {
	sessions types.SessionStore
	start    StartHandler
	message  MessageHandler
	end      EndHandler
	mux      *http.ServeMux
}

// NewServer creates a Server wired to the given session store and handlers.
func NewServer(sessions types.SessionStore, start StartHandler, message MessageHandler, end EndHandler) *Server {
	s := &Server{
		sessions: sessions,
		start:    start,
		message:  message,
		end:      end,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /chat/sessions", s.handleStartSession)
	s.mux.HandleFunc("POST /chat/sessions/{id}/messages", s.handlePostMessage)
	s.mux.HandleFunc("DELETE /chat/sessions/{id}", s.handleEndSession)
	s.mux.HandleFunc("GET /api/sessions", s.handleAPISessions)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// startRequest is the optional JSON body for POST /chat/sessions.
type startRequest struct {
	SessionKey string `json:"session_key"`
}

type startResponse struct {
	SessionID  string   `json:"session_id"`
	SessionKey string   `json:"session_key"`
	Messages   []string `json:"messages"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	// An empty body is fine; the key is generated.
	_ = json.NewDecoder(r.Body).Decode(&req)

	key := types.SessionKey(req.SessionKey)
	if key == "" {
		key = types.NewSessionKey("http", uuid.New().String())
	}

	session, messages, err := s.start(r.Context(), key)
	if err != nil {
		slog.Error("start session failed", "session_key", string(key), "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(startResponse{
		SessionID:  string(session.ID),
		SessionKey: string(session.Key),
		Messages:   messages,
	})
}

// messageRequest is the JSON body for POST /chat/sessions/{id}/messages.
type messageRequest struct {
	Text string `json:"text"`
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Get(r.Context(), types.SessionID(r.PathValue("id")))
	if err != nil {
		http.Error(w, `{"error":"session not found"}`, http.StatusNotFound)
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	reply, err := s.message(r.Context(), &types.InboundMessage{
		Source:     "http",
		SessionKey: session.Key,
		Text:       req.Text,
	})
	if err != nil {
		slog.Error("message handler failed", "session_id", string(session.ID), "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"reply": reply})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := types.SessionID(r.PathValue("id"))
	if _, err := s.sessions.Get(r.Context(), id); err != nil {
		http.Error(w, `{"error":"session not found"}`, http.StatusNotFound)
		return
	}
	if err := s.end(r.Context(), id); err != nil {
		slog.Error("end session failed", "session_id", string(id), "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sessionResponse struct {
	SessionID  string `json:"session_id"`
	SessionKey string `json:"session_key"`
	StartedAt  string `json:"started_at"`
	Degraded   bool   `json:"degraded"`
	TableCount int    `json:"table_count"`
}

func (s *Server) handleAPISessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.List(r.Context())
	if err != nil {
		slog.Error("list sessions failed", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	result := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionResponse{
			SessionID:  string(sess.ID),
			SessionKey: string(sess.Key),
			StartedAt:  sess.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
			Degraded:   sess.Degraded,
			TableCount: len(sess.Listing),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt < result[j].StartedAt
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
