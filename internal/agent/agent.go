// Package agent exposes the local monitor to UI clients over loopback HTTP:
// control messages in via POST /message, broadcasts out via GET /ws.
package agent

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pausalabs/pausa/internal/middleware"
	"github.com/pausalabs/pausa/internal/monitor"
	"github.com/pausalabs/pausa/internal/store"
	"github.com/pausalabs/pausa/internal/websocket"
)

// Agent routes UI messages to the monitor and persists synced timer state so
// it survives agent restarts.
type Agent struct {
	monitor   *monitor.Monitor
	timers    *store.TimerStore
	hub       *websocket.Hub
	sessionID string
	logger    *slog.Logger
}

func New(mon *monitor.Monitor, timers *store.TimerStore, hub *websocket.Hub, sessionID string, logger *slog.Logger) *Agent {
	return &Agent{
		monitor:   mon,
		timers:    timers,
		hub:       hub,
		sessionID: sessionID,
		logger:    logger,
	}
}

func (a *Agent) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /message", a.handleMessage)
	mux.HandleFunc("GET /ws", websocket.Handler(a.hub, a.logger.With("component", "websocket")))
	mux.HandleFunc("GET /health", a.handleHealth)

	return middleware.RequestLogger(a.logger.With("component", "http"))(mux)
}

func (a *Agent) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg monitor.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	// Synced state is persisted before it reaches the monitor, so a restarted
	// agent resumes from the last known timers.
	if msg.Type == monitor.MsgSyncTimerState && msg.State != nil {
		if msg.State.SessionID == "" {
			msg.State.SessionID = a.sessionID
		}
		if err := a.timers.Upsert(msg.State); err != nil {
			a.logger.Error("persist synced timer state", "error", err)
		}
	}

	reply, err := a.monitor.Handle(msg)
	if err != nil {
		a.logger.Warn("monitor message rejected", "type", msg.Type, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if reply != nil {
		writeJSON(w, http.StatusOK, reply)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *Agent) handleHealth(w http.ResponseWriter, r *http.Request) {
	state, err := a.timers.GetBySession(a.sessionID)
	status := map[string]any{
		"status":    "ok",
		"sessionId": a.sessionID,
		"clients":   a.hub.ClientCount(),
	}
	if err == nil && state != nil {
		status["lastSyncAt"] = state.SavedAt
	}
	writeJSON(w, http.StatusOK, status)
}

// RestoreState loads the last persisted timer state into the monitor on
// startup. A state that has gone stale while the agent was down is skipped.
func (a *Agent) RestoreState() {
	state, err := a.timers.GetBySession(a.sessionID)
	if err != nil || state == nil {
		return
	}
	if _, err := a.monitor.Handle(monitor.Message{Type: monitor.MsgSyncTimerState, State: state}); err != nil {
		a.logger.Debug("persisted state not restored", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
