package httpapi

import (
	"net/http"
	"strings"
	"time"

	"qms/hospital-service/internal/models"
)

type patientRequest struct {
	Rut                string                   `json:"rut"`
	FullName           string                   `json:"full_name"`
	BirthDate          string                   `json:"birth_date"`
	Sex                string                   `json:"sex"`
	Phone              string                   `json:"phone"`
	DisabilityType     string                   `json:"disability_type"`
	CommunicationMode  string                   `json:"communication_mode"`
	AssistiveAids      []string                 `json:"assistive_aids"`
	AvatarURL          string                   `json:"avatar_url"`
	RequiresAssistance bool                     `json:"requires_assistance"`
	EmergencyContact   *models.EmergencyContact `json:"emergency_contact"`
	History            []string                 `json:"history"`
	Symptoms           []symptomRequest         `json:"symptoms"`
}

type symptomRequest struct {
	BodyZone    string `json:"body_zone"`
	Description string `json:"description"`
	Severity    int    `json:"severity"`
}

type patientDetail struct {
	models.Patient
	Symptoms []models.Symptom `json:"symptoms"`
}

type intakeResponse struct {
	Patient       models.Patient   `json:"patient"`
	Symptoms      []models.Symptom `json:"symptoms"`
	EscalatedCall *models.Call     `json:"escalated_call,omitempty"`
}

// validate trims the request in place and collects per-field problems.
func (req *patientRequest) validate(now time.Time) map[string][]string {
	fields := map[string][]string{}
	req.Rut = strings.TrimSpace(req.Rut)
	req.FullName = strings.TrimSpace(req.FullName)
	req.BirthDate = strings.TrimSpace(req.BirthDate)
	req.Sex = strings.TrimSpace(req.Sex)
	req.DisabilityType = strings.TrimSpace(req.DisabilityType)

	required := map[string]string{
		"rut":             req.Rut,
		"full_name":       req.FullName,
		"birth_date":      req.BirthDate,
		"sex":             req.Sex,
		"disability_type": req.DisabilityType,
	}
	for name, value := range required {
		if value == "" {
			fields[name] = append(fields[name], "is required")
		}
	}
	if req.BirthDate != "" {
		born, err := time.Parse(models.BirthDateLayout, req.BirthDate)
		switch {
		case err != nil:
			fields["birth_date"] = append(fields["birth_date"], "must be YYYY-MM-DD")
		case born.After(now):
			fields["birth_date"] = append(fields["birth_date"], "must not be in the future")
		}
	}
	if c := req.EmergencyContact; c != nil {
		c.Name = strings.TrimSpace(c.Name)
		c.Phone = strings.TrimSpace(c.Phone)
		if c.Name == "" || c.Phone == "" {
			fields["emergency_contact"] = append(fields["emergency_contact"], "name and phone are required")
		}
	}
	for _, s := range req.Symptoms {
		if strings.TrimSpace(s.BodyZone) == "" {
			fields["symptoms"] = append(fields["symptoms"], "body_zone is required")
		}
		if s.Severity < models.MinSeverity || s.Severity > models.MaxSeverity {
			fields["symptoms"] = append(fields["symptoms"], "severity must be between 1 and 10")
		}
	}
	return fields
}

func (req patientRequest) patient() models.Patient {
	p := models.Patient{
		Rut:                req.Rut,
		FullName:           req.FullName,
		BirthDate:          req.BirthDate,
		Sex:                req.Sex,
		Phone:              strings.TrimSpace(req.Phone),
		DisabilityType:     req.DisabilityType,
		CommunicationMode:  strings.TrimSpace(req.CommunicationMode),
		AssistiveAids:      req.AssistiveAids,
		AvatarURL:          strings.TrimSpace(req.AvatarURL),
		RequiresAssistance: req.RequiresAssistance,
		EmergencyContact:   req.EmergencyContact,
		History:            req.History,
	}
	if p.CommunicationMode == "" {
		p.CommunicationMode = models.DefaultCommunicationMode
	}
	if p.AvatarURL == "" {
		p.AvatarURL = models.DefaultAvatarURL
	}
	if p.AssistiveAids == nil {
		p.AssistiveAids = []string{}
	}
	if p.History == nil {
		p.History = []string{}
	}
	return p
}

func (h *Handler) handleListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.store.ListPatients(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

// handleCreatePatient registers a patient with their symptoms and opens a call
// automatically when the worst symptom is severe enough.
func (h *Handler) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	var req patientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if fields := req.validate(h.now()); len(fields) > 0 {
		writeValidation(w, r, fields)
		return
	}

	symptoms := make([]models.Symptom, 0, len(req.Symptoms))
	severities := make([]int, 0, len(req.Symptoms))
	for _, s := range req.Symptoms {
		symptoms = append(symptoms, models.Symptom{
			BodyZone:    strings.TrimSpace(s.BodyZone),
			Description: strings.TrimSpace(s.Description),
			Severity:    s.Severity,
		})
		severities = append(severities, s.Severity)
	}

	patient, created, err := h.store.CreatePatient(r.Context(), req.patient(), symptoms)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := intakeResponse{Patient: patient, Symptoms: created}
	if h.engine != nil {
		call, opened, err := h.engine.Escalate(r.Context(), patient.PatientID, severities)
		if err != nil {
			h.log.Error().Err(err).Str("request_id", requestIDFromRequest(r)).
				Str("patient_id", patient.PatientID).Msg("escalate patient")
		} else if opened {
			resp.EscalatedCall = &call
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	patient, err := h.store.GetPatient(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	symptoms, err := h.store.ListSymptoms(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, patientDetail{Patient: patient, Symptoms: symptoms})
}

func (h *Handler) handleUpdatePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req patientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Symptoms = nil
	if fields := req.validate(h.now()); len(fields) > 0 {
		writeValidation(w, r, fields)
		return
	}
	patient := req.patient()
	patient.PatientID = id
	updated, err := h.store.UpdatePatient(r.Context(), patient)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeletePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.store.DeletePatient(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
