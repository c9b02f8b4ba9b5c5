package store

import (
	"context"
	"time"

	"qms/hospital-service/internal/models"
)

type CallOrder int

const (
	OrderByCreatedDesc CallOrder = iota
	OrderByCreatedAsc
	// OrderByQueue is manual order nulls-last, then priority rank, then creation time.
	OrderByQueue
)

type CallFilter struct {
	Status        string
	PatientID     string
	CreatedFrom   time.Time
	CreatedBefore time.Time
	Order         CallOrder
	Limit         int
}

// CallUpdate leaves nil fields untouched. ClearManualOrder wins over ManualOrder.
type CallUpdate struct {
	Status           *string
	ManualOrder      *int
	ClearManualOrder bool
}

type AppointmentFilter struct {
	Type         string
	Status       string
	StartsFrom   time.Time
	StartsBefore time.Time
}

type PatientStore interface {
	CreatePatient(ctx context.Context, patient models.Patient, symptoms []models.Symptom) (models.Patient, []models.Symptom, error)
	GetPatient(ctx context.Context, patientID string) (models.Patient, error)
	ListPatients(ctx context.Context) ([]models.Patient, error)
	UpdatePatient(ctx context.Context, patient models.Patient) (models.Patient, error)
	DeletePatient(ctx context.Context, patientID string) error
	ListSymptoms(ctx context.Context, patientID string) ([]models.Symptom, error)
}

type AppointmentStore interface {
	CreateAppointment(ctx context.Context, appt models.Appointment) (models.Appointment, error)
	GetAppointment(ctx context.Context, appointmentID string) (models.Appointment, error)
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error)
	UpdateAppointment(ctx context.Context, appt models.Appointment) (models.Appointment, error)
	DeleteAppointment(ctx context.Context, appointmentID string) error
}

type CallStore interface {
	CreateCall(ctx context.Context, call models.Call) (models.Call, error)
	GetCall(ctx context.Context, callID string) (models.Call, error)
	ListCalls(ctx context.Context, filter CallFilter) ([]models.Call, error)
	UpdateCall(ctx context.Context, callID string, update CallUpdate) (models.Call, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, userID string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user models.User) (models.User, error)
	UpdateUserRole(ctx context.Context, userID string, roleID int) (models.User, error)
	// DeleteUser moves the user's appointments and calls to reassignTo before deleting.
	DeleteUser(ctx context.Context, userID, reassignTo string) error
	ListRoles(ctx context.Context) ([]models.Role, error)
	GetSpecialty(ctx context.Context, specialtyID int) (models.Specialty, error)
}

type Store interface {
	PatientStore
	AppointmentStore
	CallStore
	UserStore
	Ping(ctx context.Context) error
}
