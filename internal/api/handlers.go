// Package api provides HTTP handlers for ParcelPipe endpoints.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/ParcelPipe/internal/models"
	"github.com/BTreeMap/ParcelPipe/internal/session"
)

// healthHandler handles GET /health
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.Success(map[string]any{
		"sessions_in_memory": s.registry.Len(),
	}))
}

// createSessionHandler handles POST /sessions
func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.createSessionHandler: creating session", "method", r.Method, "path", r.URL.Path)
	welcome := s.engine.Welcome()
	id, err := s.registry.Create(r.Context(), func(sess *session.Session) {
		sess.AddHistoryEntry(models.RoleBot, welcome.Message, "")
		sess.SetLastReply(welcome)
	})
	if err != nil {
		slog.Error("Server.createSessionHandler: create failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	slog.Info("Server.createSessionHandler: session created", "sessionID", id)
	writeJSON(w, http.StatusCreated, models.Success(models.CreateSessionResult{SessionID: id, Reply: welcome}))
}

// messageHandler handles POST /sessions/{id}/messages
func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req models.MessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		slog.Warn("Server.messageHandler: failed to decode JSON", "sessionID", id, "error", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.messageHandler: validation failed", "sessionID", id, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	reply, duplicate, err := s.registry.Turn(ctx, id, req.MessageID, func(sess *session.Session) models.Reply {
		return s.engine.ProcessInput(ctx, sess, req.Message)
	})
	if errors.Is(err, models.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		slog.Error("Server.messageHandler: turn failed", "sessionID", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process message")
		return
	}
	slog.Debug("Server.messageHandler: turn processed", "sessionID", id, "state", reply.State, "duplicate", duplicate)
	writeJSON(w, http.StatusOK, models.Success(models.TurnResult{SessionID: id, Duplicate: duplicate, Reply: reply}))
}

// getSessionHandler handles GET /sessions/{id}
func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, err := s.registry.Snapshot(r.Context(), id)
	if errors.Is(err, models.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		slog.Error("Server.getSessionHandler: snapshot failed", "sessionID", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, models.Success(snap))
}

// deleteSessionHandler handles DELETE /sessions/{id}
func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.registry.Snapshot(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		slog.Error("Server.deleteSessionHandler: lookup failed", "sessionID", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}
	if err := s.registry.Delete(r.Context(), id); err != nil {
		slog.Error("Server.deleteSessionHandler: delete failed", "sessionID", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	slog.Info("Server.deleteSessionHandler: session deleted", "sessionID", id)
	writeJSON(w, http.StatusOK, models.SuccessWithMessage("Session deleted", nil))
}

// listSessionsHandler handles GET /sessions
func (s *Server) listSessionsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.sessions.ListSessions(r.Context())
	if err != nil {
		slog.Error("Server.listSessionsHandler: list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, models.Success(list))
}

// listSignalsHandler handles GET /sessions/{id}/signals
func (s *Server) listSignalsHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sigs, err := s.signals.ListSignals(r.Context(), id)
	if err != nil {
		slog.Error("Server.listSignalsHandler: list failed", "sessionID", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list signals")
		return
	}
	if sigs == nil {
		sigs = []models.Signal{}
	}
	writeJSON(w, http.StatusOK, models.Success(sigs))
}
