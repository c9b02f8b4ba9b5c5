package models

import "time"

type Appointment struct {
	AppointmentID string    `json:"appointment_id"`
	PatientID     string    `json:"patient_id"`
	PatientName   string    `json:"patient_name,omitempty"`
	PatientRut    string    `json:"patient_rut,omitempty"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	Reason        string    `json:"reason"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	CreatedBy     string    `json:"created_by"`
	CreatorName   string    `json:"creator_name,omitempty"`
}

const (
	AppointmentScheduled = "scheduled"
	AppointmentAttended  = "attended"
	AppointmentCancelled = "cancelled"
	AppointmentNoShow    = "no_show"
)

func ValidAppointmentStatus(status string) bool {
	switch status {
	case AppointmentScheduled, AppointmentAttended, AppointmentCancelled, AppointmentNoShow:
		return true
	}
	return false
}
