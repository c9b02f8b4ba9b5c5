package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"qms/hospital-service/internal/auth"
	"qms/hospital-service/internal/calls"
	"qms/hospital-service/internal/models"
	"qms/hospital-service/internal/reports"
	"qms/hospital-service/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	errProtectedUser = errors.New("system user cannot be modified")
	errForbidden     = errors.New("forbidden")
)

type Handler struct {
	store        store.Store
	engine       *calls.Engine
	reports      *reports.Service
	pdf          reports.PDFRenderer
	tokens       *auth.TokenManager
	realtime     http.Handler
	systemUserID string
	log          zerolog.Logger
	now          func() time.Time
}

type Options struct {
	Engine       *calls.Engine
	Tokens       *auth.TokenManager
	Reports      *reports.Service
	PDF          reports.PDFRenderer
	Realtime     http.Handler
	SystemUserID string
	Logger       zerolog.Logger
	Now          func() time.Time
}

type errorResponse struct {
	RequestID string        `json:"request_id"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

func NewHandler(s store.Store, options Options) *Handler {
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.Reports == nil {
		options.Reports = reports.NewService(s)
	}
	return &Handler{
		store:        s,
		engine:       options.Engine,
		reports:      options.Reports,
		pdf:          options.PDF,
		tokens:       options.Tokens,
		realtime:     options.Realtime,
		systemUserID: options.SystemUserID,
		log:          options.Logger,
		now:          options.Now,
	}
}

func (h *Handler) Routes() http.Handler {
	const (
		admin     = models.RoleAdministrator
		secretary = models.RoleSecretary
		physician = models.RolePhysician
	)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealth)

	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/auth/register", h.handleRegister)
	mux.Handle("GET /api/auth/profile", h.requireRoles(h.handleProfile))

	mux.HandleFunc("GET /api/patients", h.handleListPatients)
	mux.HandleFunc("POST /api/patients", h.handleCreatePatient)
	mux.Handle("GET /api/patients/{id}", h.requireRoles(h.handleGetPatient, physician, admin))
	mux.Handle("GET /api/patients/{id}/full", h.requireRoles(h.handleGetPatient, physician, admin))
	mux.Handle("PUT /api/patients/{id}", h.requireRoles(h.handleUpdatePatient, physician, admin))
	mux.Handle("DELETE /api/patients/{id}", h.requireRoles(h.handleDeletePatient, admin))

	mux.HandleFunc("GET /api/appointments/board", h.handleAppointmentBoard)
	mux.Handle("GET /api/appointments", h.requireRoles(h.handleListAppointments, secretary, physician, admin))
	mux.Handle("POST /api/appointments", h.requireRoles(h.handleCreateAppointment, secretary, admin))
	mux.Handle("GET /api/appointments/{id}", h.requireRoles(h.handleGetAppointment, secretary, physician, admin))
	mux.Handle("PUT /api/appointments/{id}", h.requireRoles(h.handleUpdateAppointment, secretary, admin))
	mux.Handle("DELETE /api/appointments/{id}", h.requireRoles(h.handleDeleteAppointment, admin))

	mux.HandleFunc("GET /api/calls", h.handleActiveCalls)
	mux.HandleFunc("GET /api/calls/dashboard", h.handleDashboard)
	mux.Handle("GET /api/calls/pending", h.requireRoles(h.handlePendingCalls, secretary, admin))
	mux.Handle("GET /api/calls/history", h.requireRoles(h.handleCallHistory, admin))
	mux.Handle("POST /api/calls/patients/{patientId}", h.requireRoles(h.handleRequestCall, secretary, admin))
	mux.Handle("PUT /api/calls/{id}/state", h.requireRoles(h.handleTransitionCall, secretary, admin))
	mux.Handle("PUT /api/calls/{id}/order", h.requireRoles(h.handleReorderCall, secretary, admin))

	mux.Handle("GET /api/users", h.requireRoles(h.handleListUsers, admin))
	mux.Handle("GET /api/users/roles", h.requireRoles(h.handleListRoles))
	mux.Handle("PUT /api/users/{id}", h.requireRoles(h.handleUpdateUser))
	mux.Handle("PUT /api/users/{id}/role", h.requireRoles(h.handleUpdateUserRole, admin))
	mux.Handle("DELETE /api/users/{id}", h.requireRoles(h.handleDeleteUser, admin))

	mux.Handle("GET /api/reports/appointments/attended", h.requireRoles(h.handleAttendedReport, admin, secretary))
	mux.Handle("GET /api/reports/appointments/pending", h.requireRoles(h.handlePendingReport, admin, secretary))
	mux.Handle("GET /api/reports/calls/by-priority", h.requireRoles(h.handleCallsByPriorityReport, admin, secretary))
	mux.Handle("GET /api/reports/users/by-role", h.requireRoles(h.handleUsersByRoleReport, admin))

	if h.realtime != nil {
		mux.Handle("/realtime/", h.realtime)
	}
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("health check")
		writeError(w, requestIDFromRequest(r), http.StatusServiceUnavailable, "unavailable", "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

// pathID writes a 400 and returns false when the {name} segment is not a UUID.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := r.PathValue(name)
	if !isValidUUID(id) {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", name+" must be a UUID")
		return "", false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

// decodeOptionalJSON is decodeJSON for bodies that may be empty, chunked or not.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

// fail maps err onto the error envelope and logs anything unexpected.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := mapError(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("request_id", requestIDFromRequest(r)).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, requestIDFromRequest(r), status, code, msg)
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrCallNotFound):
		return http.StatusNotFound, "call_not_found", "call not found"
	case errors.Is(err, store.ErrPatientNotFound):
		return http.StatusNotFound, "patient_not_found", "patient not found"
	case errors.Is(err, store.ErrAppointmentNotFound):
		return http.StatusNotFound, "appointment_not_found", "appointment not found"
	case errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found", "user not found"
	case errors.Is(err, store.ErrRoleNotFound):
		return http.StatusBadRequest, "invalid_role", "role does not exist"
	case errors.Is(err, store.ErrSpecialtyNotFound):
		return http.StatusBadRequest, "invalid_specialty", "specialty does not exist"
	case errors.Is(err, calls.ErrDuplicateCall), errors.Is(err, store.ErrDuplicateCall):
		return http.StatusConflict, "duplicate_call", "patient already has a call today"
	case errors.Is(err, calls.ErrTransitionNotAllowed), errors.Is(err, calls.ErrNotPending):
		return http.StatusConflict, "invalid_state", "call state does not allow this action"
	case errors.Is(err, store.ErrActiveCallExists):
		return http.StatusConflict, "call_in_progress", "another call is already in progress"
	case errors.Is(err, calls.ErrInvalidState):
		return http.StatusBadRequest, "invalid_request", "state must be one of pending, called, attended, cancelled"
	case errors.Is(err, calls.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_request", err.Error()
	case errors.Is(err, store.ErrEmailTaken):
		return http.StatusConflict, "email_taken", "email already registered"
	case errors.Is(err, store.ErrRutTaken):
		return http.StatusConflict, "rut_taken", "rut already registered"
	case errors.Is(err, store.ErrPatientInUse):
		return http.StatusConflict, "patient_in_use", "patient has appointments or calls"
	case errors.Is(err, errProtectedUser):
		return http.StatusConflict, "protected_user", "system user cannot be modified"
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, "access_denied", "access denied"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid email or password"
	case errors.Is(err, reports.ErrInvalidRange):
		return http.StatusBadRequest, "invalid_request", "from must be before to"
	case errors.Is(err, reports.ErrPDFUnavailable):
		return http.StatusNotImplemented, "pdf_unavailable", "pdf export is not configured"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeValidation(w http.ResponseWriter, r *http.Request, fields map[string][]string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		RequestID: requestIDFromRequest(r),
		Error: responseError{
			Code:    "invalid_request",
			Message: "validation failed",
			Fields:  fields,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
