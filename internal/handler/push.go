package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pausalabs/pausa/internal/model"
	"github.com/pausalabs/pausa/internal/push"
	"github.com/pausalabs/pausa/internal/store"
)

type PushHandler struct {
	subs    *store.SubscriptionStore
	service *push.Service
	logger  *slog.Logger
}

func NewPushHandler(subs *store.SubscriptionStore, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{subs: subs, service: svc, logger: logger}
}

type subscribeRequest struct {
	SessionID   string `json:"sessionId"`
	UserID      string `json:"userId"`
	DeviceToken string `json:"deviceToken"`
	Endpoint    string `json:"endpoint"`
	P256dh      string `json:"p256dh"`
	Auth        string `json:"auth"`
}

// Subscribe handles POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.SessionID == "" || req.Endpoint == "" || req.P256dh == "" || req.Auth == "" {
		writeError(w, http.StatusBadRequest, "sessionId, endpoint, p256dh, and auth are required")
		return
	}

	sub, err := h.subs.Upsert(&model.PushSubscription{
		SessionID:   req.SessionID,
		UserID:      req.UserID,
		DeviceToken: req.DeviceToken,
		Endpoint:    req.Endpoint,
		P256dhKey:   req.P256dh,
		AuthKey:     req.Auth,
	})
	if err != nil {
		h.logger.Error("upsert push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// Unsubscribe handles POST /api/push/unsubscribe
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "endpoint is required")
		return
	}

	if err := h.subs.DeleteByEndpoint(req.Endpoint); err != nil {
		h.logger.Error("delete push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete subscription")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// VAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": h.service.VAPIDPublicKey()})
}

type dispatchRequest struct {
	SessionID   string         `json:"sessionId"`
	DeviceToken string         `json:"deviceToken"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Icon        string         `json:"icon"`
	URL         string         `json:"url"`
	Tag         string         `json:"tag"`
	Data        map[string]any `json:"data"`
}

type dispatchResponse struct {
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	Results []push.Result `json:"results,omitempty"`
}

// Dispatch handles POST /api/push/dispatch
func (h *PushHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Title == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "title and body are required")
		return
	}
	if req.SessionID == "" && req.DeviceToken == "" {
		writeError(w, http.StatusBadRequest, "sessionId or deviceToken is required")
		return
	}

	payload := push.Payload{
		Title: req.Title,
		Body:  req.Body,
		Icon:  req.Icon,
		URL:   req.URL,
		Tag:   req.Tag,
		Data:  req.Data,
	}

	var (
		results []push.Result
		err     error
	)
	if req.SessionID != "" {
		results, err = h.service.DispatchToSession(r.Context(), req.SessionID, payload)
	} else {
		results, err = h.service.DispatchToDevice(r.Context(), req.DeviceToken, payload)
	}
	if errors.Is(err, push.ErrNoSubscription) {
		writeJSON(w, http.StatusNotFound, dispatchResponse{Success: false, Error: err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("dispatch push", "error", err)
		writeJSON(w, http.StatusInternalServerError, dispatchResponse{Success: false, Error: "dispatch failed"})
		return
	}

	resp := dispatchResponse{Results: results}
	for _, res := range results {
		if res.Success {
			resp.Success = true
			break
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
