// Package gateway exposes the agent team over HTTP: per-agent task
// submission, the multi-agent exchange, task history, and conversation
// management.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/crewdesk/crewdesk/internal/agent"
	"github.com/crewdesk/crewdesk/internal/memory"
	"github.com/crewdesk/crewdesk/internal/registry"
	"github.com/crewdesk/crewdesk/internal/store"
)

// Server wires the HTTP routes to the agent runtime.
type Server struct {
	reg    *registry.Registry
	team   *agent.Team
	store  *store.Store
	memory *memory.ConversationMemory
}

// New creates the gateway server.
func New(reg *registry.Registry, team *agent.Team, st *store.Store, mem *memory.ConversationMemory) *Server {
	return &Server{reg: reg, team: team, store: st, memory: mem}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/agents", s.handleRoster)
	mux.HandleFunc("POST /api/agents/{id}", s.handleAgent)
	mux.HandleFunc("POST /api/multi-agent", s.handleMultiAgent)
	mux.HandleFunc("GET /api/tasks/{owner}", s.handleTasks)
	mux.HandleFunc("POST /api/conversations", s.handleCreateConversation)
	mux.HandleFunc("GET /api/conversations/{owner}", s.handleListConversations)
	mux.HandleFunc("GET /api/conversations/{owner}/{id}/messages", s.handleMessages)
	mux.HandleFunc("GET /api/conversations/{owner}/{id}/summary", s.handleSummary)
	mux.HandleFunc("PATCH /api/conversations/{owner}/{id}/title", s.handleRenameConversation)
	mux.HandleFunc("DELETE /api/conversations/{owner}/{id}/messages", s.handleClearConversation)

	return mux
}

// ListenAndServe runs the gateway until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Gateway listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type agentRequest struct {
	OwnerID        string         `json:"owner_id"`
	Prompt         string         `json:"prompt"`
	Context        map[string]any `json:"context,omitempty"`
	ExternalID     string         `json:"external_id,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "agents": len(s.reg.AgentIDs())})
}

// handleRoster lists every agent with its display name and expertise.
func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	type agentInfo struct {
		AgentID     string   `json:"agent_id"`
		DisplayName string   `json:"display_name"`
		Expertise   []string `json:"expertise"`
	}
	var roster []agentInfo
	for _, id := range s.reg.AgentIDs() {
		roster = append(roster, agentInfo{
			AgentID:     id,
			DisplayName: s.reg.DisplayName(id),
			Expertise:   s.reg.Keywords(id),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": roster})
}

// handleAgent submits a task to a single agent. The path segment accepts
// canonical ids or aliases ("kevin", "engineer").
func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	agentID, ok := s.reg.Resolve(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown agent %q", r.PathValue("id")))
		return
	}
	handler, ok := s.reg.Instance(agentID)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("agent %s not wired", agentID))
		return
	}

	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OwnerID == "" || req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "owner_id and prompt are required")
		return
	}

	conversationID := req.ConversationID
	if conversationID != "" {
		if err := s.store.EnsureConversation(conversationID, req.OwnerID, agentID); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	out, err := handler.Process(r.Context(), &registry.Request{
		OwnerID:        req.OwnerID,
		Prompt:         req.Prompt,
		Context:        req.Context,
		ExternalID:     req.ExternalID,
		ConversationID: conversationID,
	})
	if err != nil {
		writeProcessError(w, agentID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": out})
}

// handleMultiAgent runs the "@alex ask @kevin" exchange.
func (s *Server) handleMultiAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OwnerID == "" || req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "owner_id and prompt are required")
		return
	}

	result, err := s.team.Synthesize(r.Context(), req.OwnerID, req.Prompt)
	if err != nil {
		writeProcessError(w, "multi-agent", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": result})
}

// handleTasks lists an owner's tasks, optionally filtered by status and
// agent.
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	tasks, err := s.store.ListTasks(r.PathValue("owner"),
		r.URL.Query().Get("status"), r.URL.Query().Get("agent"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": tasks})
}

type conversationRequest struct {
	OwnerID   string `json:"owner_id"`
	Title     string `json:"title,omitempty"`
	AgentType string `json:"agent_type,omitempty"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OwnerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id is required")
		return
	}
	agentType := req.AgentType
	if agentType == "" {
		agentType = registry.PersonalAssistant
	} else if resolved, ok := s.reg.Resolve(agentType); ok {
		agentType = resolved
	} else {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown agent_type %q", req.AgentType))
		return
	}

	conv, err := s.store.CreateConversation(&store.Conversation{
		ID:        fmt.Sprintf("%s_%s_%s", agentType, req.OwnerID, uuid.NewString()[:8]),
		OwnerID:   req.OwnerID,
		Title:     req.Title,
		AgentType: agentType,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": conv})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	convs, err := s.store.ListConversations(r.PathValue("owner"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": convs})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	conv, err := s.ownedConversation(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	msgs, err := s.store.AllMessages(conv.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": msgs})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	conv, err := s.ownedConversation(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	summary, err := s.memory.GetSummary(conv.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if summary == nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": summary})
}

func (s *Server) handleRenameConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.ownedConversation(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if err := s.store.UpdateConversationTitle(conv.ID, req.Title); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleClearConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.ownedConversation(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := s.memory.Clear(conv.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ownedConversation loads the conversation in the path and checks it belongs
// to the owner in the path.
func (s *Server) ownedConversation(r *http.Request) (*store.Conversation, error) {
	conv, err := s.store.GetConversation(r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	if conv == nil || conv.OwnerID != r.PathValue("owner") {
		return nil, fmt.Errorf("conversation not found: %s", r.PathValue("id"))
	}
	return conv, nil
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Response encoding failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]any{"success": false, "detail": detail})
}

// writeProcessError maps pipeline errors to HTTP statuses: caller mistakes
// get 400, everything else 500.
func writeProcessError(w http.ResponseWriter, scope string, err error) {
	var verr *agent.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Msg)
		return
	}
	if errors.Is(err, agent.ErrUnknownAgent) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	slog.Error("Agent request failed", "scope", scope, "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}
