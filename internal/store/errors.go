package store

import "errors"

var (
	ErrCallNotFound        = errors.New("call not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrRoleNotFound        = errors.New("role not found")
	ErrSpecialtyNotFound   = errors.New("specialty not found")
	ErrDuplicateCall       = errors.New("call already registered for patient today")
	ErrActiveCallExists    = errors.New("another call is already in progress")
	ErrEmailTaken          = errors.New("email already registered")
	ErrRutTaken            = errors.New("rut already registered")
	ErrPatientInUse        = errors.New("patient has appointments or calls")
)
