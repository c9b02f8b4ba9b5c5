package httpapi

import (
	"net/http"

	"qms/hospital-service/internal/calls"
)

type requestCallRequest struct {
	Priority         string `json:"priority"`
	NotificationMode string `json:"notification_mode"`
}

type transitionRequest struct {
	State string `json:"state"`
}

// orderRequest carries a nullable position; {"manual_order": null} clears it.
type orderRequest struct {
	ManualOrder *int `json:"manual_order"`
}

func (h *Handler) handleActiveCalls(w http.ResponseWriter, r *http.Request) {
	active, err := h.engine.ListActive(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, active)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.engine.Dashboard(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *Handler) handlePendingCalls(w http.ResponseWriter, r *http.Request) {
	pending, err := h.engine.ListPending(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (h *Handler) handleCallHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.engine.History(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) handleRequestCall(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathID(w, r, "patientId")
	if !ok {
		return
	}
	var req requestCallRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	id, _ := identityFromContext(r.Context())
	call, err := h.engine.RequestCall(r.Context(), calls.RequestCallInput{
		PatientID:        patientID,
		Priority:         req.Priority,
		NotificationMode: req.NotificationMode,
		RequestedBy:      id.UserID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, call)
}

func (h *Handler) handleTransitionCall(w http.ResponseWriter, r *http.Request) {
	callID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req transitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.engine.TransitionState(r.Context(), callID, req.State)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleReorderCall(w http.ResponseWriter, r *http.Request) {
	callID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req orderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	call, err := h.engine.SetManualOrder(r.Context(), callID, req.ManualOrder)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, call)
}
