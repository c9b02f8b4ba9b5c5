package httpapi

import (
	"net/http"
	"strings"
	"time"

	"qms/hospital-service/internal/models"
	"qms/hospital-service/internal/store"
)

type appointmentRequest struct {
	PatientID string    `json:"patient_id"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Reason    string    `json:"reason"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
}

func (req *appointmentRequest) validate() map[string][]string {
	fields := map[string][]string{}
	req.PatientID = strings.TrimSpace(req.PatientID)
	req.Reason = strings.TrimSpace(req.Reason)
	req.Type = strings.TrimSpace(req.Type)
	req.Status = strings.TrimSpace(req.Status)
	if req.Status == "" {
		req.Status = models.AppointmentScheduled
	}

	if !isValidUUID(req.PatientID) {
		fields["patient_id"] = append(fields["patient_id"], "must be a UUID")
	}
	if req.StartsAt.IsZero() {
		fields["starts_at"] = append(fields["starts_at"], "is required")
	}
	if !req.EndsAt.After(req.StartsAt) {
		fields["ends_at"] = append(fields["ends_at"], "must be after starts_at")
	}
	if req.Type == "" {
		fields["type"] = append(fields["type"], "is required")
	}
	if !models.ValidAppointmentStatus(req.Status) {
		fields["status"] = append(fields["status"], "must be one of scheduled, attended, cancelled, no_show")
	}
	return fields
}

func (req appointmentRequest) appointment() models.Appointment {
	return models.Appointment{
		PatientID: req.PatientID,
		StartsAt:  req.StartsAt.UTC(),
		EndsAt:    req.EndsAt.UTC(),
		Reason:    req.Reason,
		Type:      req.Type,
		Status:    req.Status,
	}
}

// handleAppointmentBoard feeds the waiting room screen: every scheduled
// appointment with patient and creator names joined in.
func (h *Handler) handleAppointmentBoard(w http.ResponseWriter, r *http.Request) {
	appts, err := h.store.ListAppointments(r.Context(), store.AppointmentFilter{Status: models.AppointmentScheduled})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

func (h *Handler) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.AppointmentFilter{
		Type:   strings.TrimSpace(query.Get("type")),
		Status: strings.TrimSpace(query.Get("status")),
	}
	if filter.Status != "" && !models.ValidAppointmentStatus(filter.Status) {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "unknown status filter")
		return
	}
	appts, err := h.store.ListAppointments(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

func (h *Handler) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFromContext(r.Context())
	var req appointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		writeValidation(w, r, fields)
		return
	}
	appt := req.appointment()
	appt.CreatedBy = id.UserID
	created, err := h.store.CreateAppointment(r.Context(), appt)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	appt, err := h.store.GetAppointment(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) handleUpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req appointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		writeValidation(w, r, fields)
		return
	}
	appt := req.appointment()
	appt.AppointmentID = id
	updated, err := h.store.UpdateAppointment(r.Context(), appt)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteAppointment(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
