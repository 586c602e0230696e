package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/pausalabs/pausa/internal/model"
	"github.com/pausalabs/pausa/internal/store"
)

// maxSyncStateAge rejects syncs whose savedAt is too old to reflect running
// timers. A late-arriving sync from a suspended device must not resurrect
// state the client has since replaced.
const maxSyncStateAge = 10 * time.Minute

type TimerHandler struct {
	timers *store.TimerStore
	logger *slog.Logger
}

func NewTimerHandler(timers *store.TimerStore, logger *slog.Logger) *TimerHandler {
	return &TimerHandler{timers: timers, logger: logger}
}

type syncRequest struct {
	SessionID      string `json:"sessionId"`
	EyeEndTime     *int64 `json:"eyeEndTime"`
	StretchEndTime *int64 `json:"stretchEndTime"`
	WaterEndTime   *int64 `json:"waterEndTime"`
	IsRunning      bool   `json:"isRunning"`
	SavedAt        int64  `json:"savedAt"`
}

// Sync handles POST /api/timers/sync
func (h *TimerHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	if req.SavedAt == 0 {
		writeError(w, http.StatusBadRequest, "savedAt is required")
		return
	}
	if time.Now().UnixMilli()-req.SavedAt > maxSyncStateAge.Milliseconds() {
		// Stale, not an error: the write is dropped so the scanner keeps
		// acting on the last fresh state.
		h.logger.Debug("ignoring stale timer sync", "session", req.SessionID, "savedAt", req.SavedAt)
		writeJSON(w, http.StatusOK, map[string]bool{"synced": false})
		return
	}

	if err := h.timers.Upsert(&model.TimerState{
		SessionID:      req.SessionID,
		EyeEndTime:     req.EyeEndTime,
		StretchEndTime: req.StretchEndTime,
		WaterEndTime:   req.WaterEndTime,
		IsRunning:      req.IsRunning,
		SavedAt:        req.SavedAt,
	}); err != nil {
		h.logger.Error("upsert timer state", "session", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save timer state")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"synced": true})
}

// Reset handles DELETE /api/timers/{sessionId}
func (h *TimerHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	if err := h.timers.Delete(sessionID); err != nil {
		h.logger.Error("delete timer state", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete timer state")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
