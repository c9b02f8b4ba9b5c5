// Package memory is an in-process store used for local development and tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"qms/hospital-service/internal/models"
	"qms/hospital-service/internal/store"
)

type Store struct {
	mu           sync.RWMutex
	patients     map[string]models.Patient
	symptoms     map[string][]models.Symptom
	appointments map[string]models.Appointment
	calls        map[string]models.Call
	users        map[string]models.User
	roles        []models.Role
	specialties  []models.Specialty
	now          func() time.Time
}

func New() *Store {
	return &Store{
		patients:     make(map[string]models.Patient),
		symptoms:     make(map[string][]models.Symptom),
		appointments: make(map[string]models.Appointment),
		calls:        make(map[string]models.Call),
		users:        make(map[string]models.User),
		roles: []models.Role{
			{RoleID: models.RoleIDAdministrator, Name: models.RoleAdministrator},
			{RoleID: models.RoleIDSecretary, Name: models.RoleSecretary},
			{RoleID: models.RoleIDPhysician, Name: models.RolePhysician},
		},
		specialties: []models.Specialty{
			{SpecialtyID: 1, Name: "general medicine"},
			{SpecialtyID: 2, Name: "pediatrics"},
			{SpecialtyID: 3, Name: "cardiology"},
			{SpecialtyID: 4, Name: "traumatology"},
		},
		now: time.Now,
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) CreatePatient(_ context.Context, patient models.Patient, symptoms []models.Symptom) (models.Patient, []models.Symptom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.patients {
		if existing.Rut == patient.Rut {
			return models.Patient{}, nil, store.ErrRutTaken
		}
	}
	if patient.PatientID == "" {
		patient.PatientID = uuid.NewString()
	}
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = s.now()
	}
	s.patients[patient.PatientID] = patient

	saved := make([]models.Symptom, 0, len(symptoms))
	for _, sym := range symptoms {
		sym.SymptomID = uuid.NewString()
		sym.PatientID = patient.PatientID
		if sym.ReportedAt.IsZero() {
			sym.ReportedAt = patient.CreatedAt
		}
		saved = append(saved, sym)
	}
	s.symptoms[patient.PatientID] = saved
	return patient, slices.Clone(saved), nil
}

func (s *Store) GetPatient(_ context.Context, patientID string) (models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	patient, ok := s.patients[patientID]
	if !ok {
		return models.Patient{}, store.ErrPatientNotFound
	}
	return patient, nil
}

func (s *Store) ListPatients(context.Context) ([]models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b models.Patient) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (s *Store) UpdatePatient(_ context.Context, patient models.Patient) (models.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.patients[patient.PatientID]
	if !ok {
		return models.Patient{}, store.ErrPatientNotFound
	}
	for id, other := range s.patients {
		if id != patient.PatientID && other.Rut == patient.Rut {
			return models.Patient{}, store.ErrRutTaken
		}
	}
	patient.CreatedAt = existing.CreatedAt
	s.patients[patient.PatientID] = patient
	return patient, nil
}

func (s *Store) DeletePatient(_ context.Context, patientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[patientID]; !ok {
		return store.ErrPatientNotFound
	}
	for _, a := range s.appointments {
		if a.PatientID == patientID {
			return store.ErrPatientInUse
		}
	}
	for _, c := range s.calls {
		if c.PatientID == patientID {
			return store.ErrPatientInUse
		}
	}
	delete(s.symptoms, patientID)
	delete(s.patients, patientID)
	return nil
}

func (s *Store) ListSymptoms(_ context.Context, patientID string) ([]models.Symptom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.patients[patientID]; !ok {
		return nil, store.ErrPatientNotFound
	}
	return slices.Clone(s.symptoms[patientID]), nil
}

func (s *Store) CreateAppointment(_ context.Context, appt models.Appointment) (models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[appt.PatientID]; !ok {
		return models.Appointment{}, store.ErrPatientNotFound
	}
	if _, ok := s.users[appt.CreatedBy]; !ok {
		return models.Appointment{}, store.ErrUserNotFound
	}
	if appt.AppointmentID == "" {
		appt.AppointmentID = uuid.NewString()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = s.now()
	}
	s.appointments[appt.AppointmentID] = appt
	return s.joinAppointment(appt), nil
}

func (s *Store) GetAppointment(_ context.Context, appointmentID string) (models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appt, ok := s.appointments[appointmentID]
	if !ok {
		return models.Appointment{}, store.ErrAppointmentNotFound
	}
	return s.joinAppointment(appt), nil
}

func (s *Store) ListAppointments(_ context.Context, filter store.AppointmentFilter) ([]models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Appointment, 0)
	for _, a := range s.appointments {
		if filter.Type != "" && a.Type != filter.Type {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if !filter.StartsFrom.IsZero() && a.StartsAt.Before(filter.StartsFrom) {
			continue
		}
		if !filter.StartsBefore.IsZero() && !a.StartsAt.Before(filter.StartsBefore) {
			continue
		}
		out = append(out, s.joinAppointment(a))
	}
	slices.SortFunc(out, func(a, b models.Appointment) int {
		if c := a.StartsAt.Compare(b.StartsAt); c != 0 {
			return c
		}
		return strings.Compare(a.AppointmentID, b.AppointmentID)
	})
	return out, nil
}

func (s *Store) UpdateAppointment(_ context.Context, appt models.Appointment) (models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.appointments[appt.AppointmentID]
	if !ok {
		return models.Appointment{}, store.ErrAppointmentNotFound
	}
	if _, ok := s.patients[appt.PatientID]; !ok {
		return models.Appointment{}, store.ErrPatientNotFound
	}
	appt.CreatedAt = existing.CreatedAt
	appt.CreatedBy = existing.CreatedBy
	s.appointments[appt.AppointmentID] = appt
	return s.joinAppointment(appt), nil
}

func (s *Store) DeleteAppointment(_ context.Context, appointmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[appointmentID]; !ok {
		return store.ErrAppointmentNotFound
	}
	delete(s.appointments, appointmentID)
	return nil
}

func (s *Store) joinAppointment(a models.Appointment) models.Appointment {
	if p, ok := s.patients[a.PatientID]; ok {
		a.PatientName = p.FullName
		a.PatientRut = p.Rut
	}
	if u, ok := s.users[a.CreatedBy]; ok {
		a.CreatorName = u.FullName
	}
	return a
}

func (s *Store) CreateCall(_ context.Context, call models.Call) (models.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[call.PatientID]; !ok {
		return models.Call{}, store.ErrPatientNotFound
	}
	for _, existing := range s.calls {
		if existing.PatientID == call.PatientID && existing.CallDate == call.CallDate {
			return models.Call{}, store.ErrDuplicateCall
		}
		if call.Status == models.StatusCalled && existing.Status == models.StatusCalled {
			return models.Call{}, store.ErrActiveCallExists
		}
	}
	if call.CallID == "" {
		call.CallID = uuid.NewString()
	}
	if call.CreatedAt.IsZero() {
		call.CreatedAt = s.now()
	}
	s.calls[call.CallID] = call
	return s.joinCall(call), nil
}

func (s *Store) GetCall(_ context.Context, callID string) (models.Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	call, ok := s.calls[callID]
	if !ok {
		return models.Call{}, store.ErrCallNotFound
	}
	return s.joinCall(call), nil
}

func (s *Store) ListCalls(_ context.Context, filter store.CallFilter) ([]models.Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Call, 0)
	for _, c := range s.calls {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.PatientID != "" && c.PatientID != filter.PatientID {
			continue
		}
		if !filter.CreatedFrom.IsZero() && c.CreatedAt.Before(filter.CreatedFrom) {
			continue
		}
		if !filter.CreatedBefore.IsZero() && !c.CreatedAt.Before(filter.CreatedBefore) {
			continue
		}
		out = append(out, s.joinCall(c))
	}
	switch filter.Order {
	case store.OrderByQueue:
		store.SortQueue(out)
	case store.OrderByCreatedAsc:
		slices.SortFunc(out, func(a, b models.Call) int {
			if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
				return c
			}
			return strings.Compare(a.CallID, b.CallID)
		})
	default:
		slices.SortFunc(out, func(a, b models.Call) int {
			if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
				return c
			}
			return strings.Compare(b.CallID, a.CallID)
		})
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) UpdateCall(_ context.Context, callID string, update store.CallUpdate) (models.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	call, ok := s.calls[callID]
	if !ok {
		return models.Call{}, store.ErrCallNotFound
	}
	if update.Status != nil {
		if *update.Status == models.StatusCalled {
			for id, other := range s.calls {
				if id != callID && other.Status == models.StatusCalled {
					return models.Call{}, store.ErrActiveCallExists
				}
			}
		}
		call.Status = *update.Status
	}
	if update.ClearManualOrder {
		call.ManualOrder = nil
	} else if update.ManualOrder != nil {
		v := *update.ManualOrder
		call.ManualOrder = &v
	}
	s.calls[callID] = call
	return s.joinCall(call), nil
}

func (s *Store) joinCall(c models.Call) models.Call {
	if p, ok := s.patients[c.PatientID]; ok {
		c.PatientName = p.FullName
		c.PatientRut = p.Rut
	}
	if c.ManualOrder != nil {
		v := *c.ManualOrder
		c.ManualOrder = &v
	}
	return c
}

func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return models.User{}, store.ErrEmailTaken
		}
	}
	role, ok := s.role(user.RoleID)
	if !ok {
		return models.User{}, store.ErrRoleNotFound
	}
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}
	if user.Created.IsZero() {
		user.Created = s.now()
	}
	user.RoleName = role.Name
	s.users[user.UserID] = user
	return user, nil
}

func (s *Store) GetUser(_ context.Context, userID string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return models.User{}, store.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, store.ErrUserNotFound
}

func (s *Store) ListUsers(context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b models.User) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return strings.Compare(a.UserID, b.UserID)
	})
	return out, nil
}

func (s *Store) UpdateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[user.UserID]
	if !ok {
		return models.User{}, store.ErrUserNotFound
	}
	for id, other := range s.users {
		if id != user.UserID && strings.EqualFold(other.Email, user.Email) {
			return models.User{}, store.ErrEmailTaken
		}
	}
	existing.FullName = user.FullName
	existing.Email = user.Email
	existing.Phone = user.Phone
	s.users[user.UserID] = existing
	return existing, nil
}

func (s *Store) UpdateUserRole(_ context.Context, userID string, roleID int) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return models.User{}, store.ErrUserNotFound
	}
	role, ok := s.role(roleID)
	if !ok {
		return models.User{}, store.ErrRoleNotFound
	}
	user.RoleID = role.RoleID
	user.RoleName = role.Name
	if roleID != models.RoleIDPhysician {
		user.SpecialtyID = nil
	}
	s.users[userID] = user
	return user, nil
}

func (s *Store) DeleteUser(_ context.Context, userID, reassignTo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return store.ErrUserNotFound
	}
	if _, ok := s.users[reassignTo]; !ok {
		return store.ErrUserNotFound
	}
	for id, a := range s.appointments {
		if a.CreatedBy == userID {
			a.CreatedBy = reassignTo
			s.appointments[id] = a
		}
	}
	for id, c := range s.calls {
		if c.CreatedBy == userID {
			c.CreatedBy = reassignTo
			s.calls[id] = c
		}
	}
	delete(s.users, userID)
	return nil
}

func (s *Store) ListRoles(context.Context) ([]models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.roles), nil
}

func (s *Store) GetSpecialty(_ context.Context, specialtyID int) (models.Specialty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sp := range s.specialties {
		if sp.SpecialtyID == specialtyID {
			return sp, nil
		}
	}
	return models.Specialty{}, store.ErrSpecialtyNotFound
}

func (s *Store) role(roleID int) (models.Role, bool) {
	for _, r := range s.roles {
		if r.RoleID == roleID {
			return r, true
		}
	}
	return models.Role{}, false
}
