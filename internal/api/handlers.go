// Package api provides HTTP handlers for PayFlow endpoints.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/PayFlow/internal/flow"
	"github.com/BTreeMap/PayFlow/internal/models"
	"github.com/BTreeMap/PayFlow/internal/presenter"
	"github.com/gorilla/mux"
)

// DefaultStopWait bounds how long a stop request waits for the session to end.
const DefaultStopWait = 5 * time.Second

// startSessionRequest is the body of POST /flows/{kind}/sessions.
type startSessionRequest struct {
	SDK           *models.SDKConfiguration `json:"sdk"`
	Configuration json.RawMessage          `json:"configuration"`
}

// sessionView is the JSON shape of a hosted session.
type sessionView struct {
	SessionID string           `json:"session_id"`
	FlowKind  models.FlowKind  `json:"flow_kind"`
	State     models.StateType `json:"state"`
	Done      bool             `json:"done"`
	Result    models.Result    `json:"result,omitempty"`
	presenter.View
}

func (s *Server) viewOf(f *flow.Flow) sessionView {
	v := sessionView{SessionID: f.ID(), FlowKind: f.Kind(), State: f.State()}
	if r, done := f.Result(); done {
		v.Done = true
		v.Result = r
	}
	if pv, ok := s.recorder.View(f.ID()); ok {
		v.View = pv
	}
	return v
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	n := len(s.sessions)
	s.mu.RUnlock()
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"status":   "healthy",
		"sessions": n,
	}))
}

func (s *Server) startSessionHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	kind := models.FlowKind(mux.Vars(r)["kind"])
	slog.Debug("Server.startSessionHandler: processing start request", "kind", kind)

	if !models.IsValidFlowKind(kind) {
		slog.Warn("Server.startSessionHandler: unknown flow kind", "kind", kind)
		writeErrorResponse(w, fmt.Errorf("%w: %s", models.ErrInvalidFlowKind, kind), nil)
		return
	}

	var req startSessionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, MaxRequestBytes)).Decode(&req); err != nil {
		slog.Warn("Server.startSessionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	cfg, err := models.DecodeFlowConfiguration(kind, req.Configuration)
	if err != nil {
		slog.Warn("Server.startSessionHandler: invalid flow configuration", "kind", kind, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	f, err := flow.New(kind, req.SDK, cfg, s.deps)
	if err != nil {
		slog.Error("Server.startSessionHandler: failed to create flow", "kind", kind, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	s.addSession(f)

	id := f.ID()
	err = f.Start(s.baseCtx, func(result models.Result) {
		slog.Debug("Server: session completed", "sessionID", id, "statusCode", result.StatusCode())
		s.recorder.Redact(id)
		s.scheduleEviction(id)
	})
	if err != nil {
		status := writeErrorResponse(w, err, s.viewOf(f))
		slog.Warn("Server.startSessionHandler: session failed to start", "sessionID", id, "kind", kind, "status", status, "error", err)
		return
	}
	s.scheduleIdleStop(f)
	slog.Info("Server.startSessionHandler: session started", "sessionID", id, "kind", kind)
	writeJSONResponse(w, http.StatusAccepted, models.Accepted(s.viewOf(f)))
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	f, ok := s.session(id)
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.viewOf(f)))
}

// stopSessionHandler delivers the stop signal. The optional body is the
// result mapping handed verbatim to the session's completion.
func (s *Server) stopSessionHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	id := mux.Vars(r)["id"]
	f, ok := s.session(id)
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}

	var result models.Result
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBytes))
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Failed to read request body"))
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &result); err != nil {
			slog.Warn("Server.stopSessionHandler: failed to decode JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
	}

	if !f.Stop(result) {
		slog.Warn("Server.stopSessionHandler: session not running", "sessionID", id)
		writeJSONResponse(w, http.StatusConflict, models.ErrorWithResult("Session is not running", s.viewOf(f)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), DefaultStopWait)
	defer cancel()
	if _, err := f.Wait(ctx); err != nil {
		slog.Warn("Server.stopSessionHandler: session did not end in time", "sessionID", id, "error", err)
		writeJSONResponse(w, http.StatusAccepted, models.Accepted(s.viewOf(f)))
		return
	}
	slog.Info("Server.stopSessionHandler: session stopped", "sessionID", id)
	writeJSONResponse(w, http.StatusOK, models.Success(s.viewOf(f)))
}
