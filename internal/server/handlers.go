package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/config"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createCharacterRequest struct {
	Name    string `json:"name"`
	Persona string `json:"persona"`
}

func (s *Server) handleCreateCharacter(w http.ResponseWriter, r *http.Request) {
	var req createCharacterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, errors.New("name is required"))
		return
	}

	char, err := s.store.CreateCharacter(r.Context(), req.Name, req.Persona)
	if err != nil {
		s.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, characterJSON(char))
}

func (s *Server) handleMemories(w http.ResponseWriter, r *http.Request) {
	memories, err := s.memories.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		s.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": memories})
}

type createConversationRequest struct {
	UserID      string `json:"user_id"`
	CharacterID string `json:"character_id"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.UserID == "" || req.CharacterID == "" {
		writeError(w, http.StatusBadRequest, errors.New("user_id and character_id are required"))
		return
	}

	conv, err := s.store.CreateConversation(r.Context(), req.UserID, req.CharacterID)
	if err != nil {
		s.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conversationJSON(conv))
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.store.Messages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.serverError(w, err)
		return
	}

	out := make([]map[string]any, len(msgs))
	for i, m := range msgs {
		out[i] = messageJSON(m)
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}

type sendMessageRequest struct {
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.UserID == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, errors.New("user_id and content are required"))
		return
	}

	reply, err := s.chat.SendMessage(r.Context(), chi.URLParam(r, "id"), req.UserID, req.Content)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		s.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageJSON(reply))
}

type compactRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleCompact(w http.ResponseWriter, r *http.Request) {
	var req compactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	processed, err := s.compactor.CompactIfNeeded(r.Context(), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		s.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"processed": processed})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.UserSettings(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings config.ChatSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.store.SaveUserSettings(r.Context(), chi.URLParam(r, "id"), settings); err != nil {
		if settings.Validate() != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		s.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func characterJSON(c store.Character) map[string]any {
	return map[string]any{
		"id":         c.ID,
		"name":       c.Name,
		"persona":    c.Persona,
		"created_at": c.CreatedAt.Format(time.RFC3339),
	}
}

func conversationJSON(c store.Conversation) map[string]any {
	return map[string]any{
		"id":           c.ID,
		"user_id":      c.UserID,
		"character_id": c.CharacterID,
		"created_at":   c.CreatedAt.Format(time.RFC3339),
	}
}

func messageJSON(m store.Message) map[string]any {
	out := map[string]any{
		"id":         m.ID,
		"role":       string(m.Role),
		"type":       string(m.Type),
		"content":    m.Content,
		"created_at": m.CreatedAt.Format(time.RFC3339),
	}
	if m.Type == store.TypeTimeGap {
		out["gap_hours"] = m.GapHours
	}
	return out
}
