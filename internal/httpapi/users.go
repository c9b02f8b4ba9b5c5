package httpapi

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"qms/hospital-service/internal/auth"
	"qms/hospital-service/internal/models"
	"qms/hospital-service/internal/store"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

type registerRequest struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Password    string `json:"password"`
	RoleID      int    `json:"role_id"`
	SpecialtyID *int   `json:"specialty_id"`
}

type updateUserRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type updateRoleRequest struct {
	RoleID int `json:"role_id"`
}

func validEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == value
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}
	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrUserNotFound) {
		h.fail(w, r, auth.ErrInvalidCredentials)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		h.fail(w, r, err)
		return
	}
	token, expires, err := h.tokens.Issue(auth.Identity{UserID: user.UserID, RoleID: user.RoleID, Role: user.RoleName})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires, User: user})
}

// handleRegister is public for staff accounts; creating an administrator needs an
// administrator's token.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)

	fields := map[string][]string{}
	if req.FullName == "" {
		fields["full_name"] = append(fields["full_name"], "is required")
	}
	if !validEmail(req.Email) {
		fields["email"] = append(fields["email"], "must be a valid address")
	}
	if req.Password == "" {
		fields["password"] = append(fields["password"], "is required")
	}
	if req.RoleID == 0 {
		fields["role_id"] = append(fields["role_id"], "is required")
	}
	if len(fields) > 0 {
		writeValidation(w, r, fields)
		return
	}

	if req.RoleID == models.RoleIDAdministrator {
		caller, ok := identityFromContext(r.Context())
		if !ok {
			writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "administrator token required")
			return
		}
		if caller.Role != models.RoleAdministrator {
			h.fail(w, r, errForbidden)
			return
		}
	}

	var specialty *int
	if req.RoleID == models.RoleIDPhysician && req.SpecialtyID != nil {
		if _, err := h.store.GetSpecialty(r.Context(), *req.SpecialtyID); err != nil {
			h.fail(w, r, err)
			return
		}
		specialty = req.SpecialtyID
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.store.CreateUser(r.Context(), models.User{
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		RoleID:       req.RoleID,
		SpecialtyID:  specialty,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFromContext(r.Context())
	user, err := h.store.GetUser(r.Context(), id.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.store.ListRoles(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

// handleUpdateUser lets staff edit their own contact details; administrators may edit anyone.
func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	caller, _ := identityFromContext(r.Context())
	if caller.UserID != userID && caller.Role != models.RoleAdministrator {
		h.fail(w, r, errForbidden)
		return
	}
	if userID == h.systemUserID {
		h.fail(w, r, errProtectedUser)
		return
	}
	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	fields := map[string][]string{}
	if req.FullName == "" {
		fields["full_name"] = append(fields["full_name"], "is required")
	}
	if !validEmail(req.Email) {
		fields["email"] = append(fields["email"], "must be a valid address")
	}
	if len(fields) > 0 {
		writeValidation(w, r, fields)
		return
	}
	user, err := h.store.UpdateUser(r.Context(), models.User{
		UserID:   userID,
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    strings.TrimSpace(req.Phone),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if userID == h.systemUserID {
		h.fail(w, r, errProtectedUser)
		return
	}
	var req updateRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RoleID == 0 {
		writeValidation(w, r, map[string][]string{"role_id": {"is required"}})
		return
	}
	user, err := h.store.UpdateUserRole(r.Context(), userID, req.RoleID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleDeleteUser hands the user's appointments and calls to the system user first.
func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if userID == h.systemUserID {
		h.fail(w, r, errProtectedUser)
		return
	}
	if err := h.store.DeleteUser(r.Context(), userID, h.systemUserID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
