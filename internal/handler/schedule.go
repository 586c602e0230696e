package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pausalabs/pausa/internal/model"
	"github.com/pausalabs/pausa/internal/recurrence"
	"github.com/pausalabs/pausa/internal/store"
)

type ScheduleHandler struct {
	schedules *store.ScheduleStore
	logger    *slog.Logger
}

func NewScheduleHandler(schedules *store.ScheduleStore, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, logger: logger}
}

type createScheduleRequest struct {
	Title            string   `json:"title"`
	Body             string   `json:"body"`
	Icon             string   `json:"icon"`
	URL              string   `json:"url"`
	ScheduledFor     int64    `json:"scheduledFor"`
	RecurrenceType   string   `json:"recurrenceType"`
	RecurrenceEnd    *int64   `json:"recurrenceEndDate"`
	TargetType       string   `json:"targetType"`
	TargetSessionIDs []string `json:"targetSessionIds"`
}

// Create handles POST /api/schedules
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Title == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "title and body are required")
		return
	}
	if req.ScheduledFor <= 0 {
		writeError(w, http.StatusBadRequest, "scheduledFor is required")
		return
	}
	rec, err := recurrence.Parse(req.RecurrenceType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	switch req.TargetType {
	case model.TargetAll:
	case model.TargetSpecific:
		if len(req.TargetSessionIDs) == 0 {
			writeError(w, http.StatusBadRequest, "targetSessionIds required for specific target")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "targetType must be all or specific")
		return
	}

	created, err := h.schedules.Create(&model.ScheduledNotification{
		Title:            req.Title,
		Body:             req.Body,
		Icon:             req.Icon,
		URL:              req.URL,
		ScheduledFor:     req.ScheduledFor,
		RecurrenceType:   string(rec),
		RecurrenceEnd:    req.RecurrenceEnd,
		TargetType:       req.TargetType,
		TargetSessionIDs: req.TargetSessionIDs,
	})
	if err != nil {
		h.logger.Error("create scheduled notification", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create scheduled notification")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// List handles GET /api/schedules
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.schedules.List()
	if err != nil {
		h.logger.Error("list scheduled notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list scheduled notifications")
		return
	}
	if items == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// History handles GET /api/schedules/{id}/history
func (h *ScheduleHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	n, err := h.schedules.GetByID(id)
	if err != nil {
		h.logger.Error("get scheduled notification", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get scheduled notification")
		return
	}
	if n == nil {
		writeError(w, http.StatusNotFound, "scheduled notification not found")
		return
	}

	history, err := h.schedules.ListHistory(id)
	if err != nil {
		h.logger.Error("list notification history", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	if history == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, history)
}
