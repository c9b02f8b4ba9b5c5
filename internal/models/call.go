package models

import "time"

type Call struct {
	CallID           string    `json:"call_id"`
	PatientID        string    `json:"patient_id"`
	PatientName      string    `json:"patient_name,omitempty"`
	PatientRut       string    `json:"patient_rut,omitempty"`
	Priority         string    `json:"priority"`
	PriorityRank     int       `json:"priority_rank"`
	NotificationMode string    `json:"notification_mode"`
	Status           string    `json:"status"`
	ManualOrder      *int      `json:"manual_order"`
	CreatedAt        time.Time `json:"created_at"`
	CallDate         string    `json:"call_date"`
	CreatedBy        string    `json:"created_by"`
}

const (
	StatusPending   = "pending"
	StatusCalled    = "called"
	StatusAttended  = "attended"
	StatusCancelled = "cancelled"
)

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

const (
	NotifyVisual = "visual"
	NotifyAudio  = "audio"
	NotifyBoth   = "both"
)

// CallDateLayout is the layout of Call.CallDate.
const CallDateLayout = "2006-01-02"
