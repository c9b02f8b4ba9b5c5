package models

import "time"

type Patient struct {
	PatientID          string            `json:"patient_id"`
	Rut                string            `json:"rut"`
	FullName           string            `json:"full_name"`
	BirthDate          string            `json:"birth_date"`
	Sex                string            `json:"sex"`
	Phone              string            `json:"phone"`
	DisabilityType     string            `json:"disability_type"`
	CommunicationMode  string            `json:"communication_mode"`
	AssistiveAids      []string          `json:"assistive_aids"`
	AvatarURL          string            `json:"avatar_url"`
	RequiresAssistance bool              `json:"requires_assistance"`
	EmergencyContact   *EmergencyContact `json:"emergency_contact,omitempty"`
	History            []string          `json:"history"`
	CreatedAt          time.Time         `json:"created_at"`
}

// EmergencyContact replaces the free-form JSON blob the intake form used to send.
type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship,omitempty"`
}

type Symptom struct {
	SymptomID   string    `json:"symptom_id"`
	PatientID   string    `json:"patient_id"`
	BodyZone    string    `json:"body_zone"`
	Description string    `json:"description"`
	Severity    int       `json:"severity"`
	ReportedAt  time.Time `json:"reported_at"`
}

const (
	DefaultCommunicationMode = "unspecified"
	DefaultAvatarURL         = "https://example.com/default-avatar.png"
)

const (
	MinSeverity = 1
	MaxSeverity = 10
)

// BirthDateLayout is the layout of Patient.BirthDate.
const BirthDateLayout = "2006-01-02"
