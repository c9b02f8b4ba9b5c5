// Package reports aggregates appointments, calls and staff for the administration screens.
package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"qms/hospital-service/internal/models"
	"qms/hospital-service/internal/store"
)

// UndefinedRole labels users whose role could not be resolved.
const UndefinedRole = "undefined"

var ErrInvalidRange = errors.New("invalid report range")

type Store interface {
	ListAppointments(ctx context.Context, filter store.AppointmentFilter) ([]models.Appointment, error)
	ListCalls(ctx context.Context, filter store.CallFilter) ([]models.Call, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

type PriorityCount struct {
	Priority string `json:"priority"`
	Count    int    `json:"count"`
}

type Service struct {
	store Store
}

func NewService(s Store) *Service {
	return &Service{store: s}
}

// AttendedAppointments lists attended appointments starting in [from, to).
func (s *Service) AttendedAppointments(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	if from.IsZero() || to.IsZero() || !from.Before(to) {
		return nil, ErrInvalidRange
	}
	appts, err := s.store.ListAppointments(ctx, store.AppointmentFilter{
		Status:       models.AppointmentAttended,
		StartsFrom:   from,
		StartsBefore: to,
	})
	if err != nil {
		return nil, fmt.Errorf("list attended appointments: %w", err)
	}
	return appts, nil
}

func (s *Service) PendingAppointments(ctx context.Context) ([]models.Appointment, error) {
	appts, err := s.store.ListAppointments(ctx, store.AppointmentFilter{Status: models.AppointmentScheduled})
	if err != nil {
		return nil, fmt.Errorf("list pending appointments: %w", err)
	}
	return appts, nil
}

// CallsByPriority always reports high, medium and low in rank order, then any
// legacy label found in storage.
func (s *Service) CallsByPriority(ctx context.Context) ([]PriorityCount, error) {
	calls, err := s.store.ListCalls(ctx, store.CallFilter{Order: store.OrderByCreatedAsc})
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	counts := lo.CountValuesBy(calls, func(c models.Call) string { return c.Priority })

	known := []string{models.PriorityHigh, models.PriorityMedium, models.PriorityLow}
	out := lo.Map(known, func(label string, _ int) PriorityCount {
		return PriorityCount{Priority: label, Count: counts[label]}
	})
	extra := lo.Without(lo.Uniq(lo.Map(calls, func(c models.Call, _ int) string { return c.Priority })), known...)
	for _, label := range extra {
		out = append(out, PriorityCount{Priority: label, Count: counts[label]})
	}
	return out, nil
}

func (s *Service) UsersByRole(ctx context.Context) (map[string]int, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return lo.CountValuesBy(users, func(u models.User) string {
		if u.RoleName == "" {
			return UndefinedRole
		}
		return u.RoleName
	}), nil
}
