package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"valour-site/internal/logger"
	"valour-site/internal/notify"
)

// WaiverNotifier sends the staff email for one waiver.
type WaiverNotifier interface {
	SendWaiver(ctx context.Context, p notify.WaiverPayload) (string, error)
}

// FunctionHandler serves the waiver notification function. Callers outside
// the site may use it, so it answers CORS preflights and never retries.
type FunctionHandler struct {
	notifier WaiverNotifier
	log      logger.Logger
}

// NewFunctionHandler creates a FunctionHandler.
func NewFunctionHandler(n WaiverNotifier, log logger.Logger) *FunctionHandler {
	return &FunctionHandler{notifier: n, log: log}
}

type waiverNotificationRequest struct {
	WaiverData *notify.WaiverPayload `json:"waiverData"`
}

type functionResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

func setCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Client-Info, Apikey")
}

func (h *FunctionHandler) sendWaiverNotification(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, functionResponse{Error: "method not allowed"})
		return
	}

	var req waiverNotificationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		h.log.Error(err, "Invalid waiver notification body")
		writeJSON(w, http.StatusInternalServerError, functionResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if req.WaiverData == nil {
		writeJSON(w, http.StatusInternalServerError, functionResponse{Error: "waiverData is required"})
		return
	}

	id, err := h.notifier.SendWaiver(r.Context(), *req.WaiverData)
	if err != nil {
		h.log.Error(err, "Failed to send waiver notification")
		writeJSON(w, http.StatusInternalServerError, functionResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, functionResponse{Success: true, MessageID: id})
}
