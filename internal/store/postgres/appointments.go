package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"qms/hospital-service/internal/models"
	"qms/hospital-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const appointmentSelect = `
	SELECT a.appointment_id, a.patient_id, p.full_name, p.rut, a.starts_at, a.ends_at, a.reason, a.type,
		a.status, a.created_at, a.created_by, u.full_name
	FROM appointments a
	JOIN patients p ON p.patient_id = a.patient_id
	LEFT JOIN users u ON u.user_id = a.created_by`

func (s *Store) CreateAppointment(ctx context.Context, appt models.Appointment) (models.Appointment, error) {
	if appt.AppointmentID == "" {
		appt.AppointmentID = uuid.NewString()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO appointments (appointment_id, patient_id, starts_at, ends_at, reason, type, status, created_at, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, appt.AppointmentID, appt.PatientID, appt.StartsAt, appt.EndsAt, appt.Reason, appt.Type, appt.Status, appt.CreatedAt, appt.CreatedBy)
	if err != nil {
		return models.Appointment{}, mapPgError(err)
	}
	return s.GetAppointment(ctx, appt.AppointmentID)
}

func (s *Store) GetAppointment(ctx context.Context, appointmentID string) (models.Appointment, error) {
	row := s.pool.QueryRow(ctx, appointmentSelect+` WHERE a.appointment_id = $1`, appointmentID)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Appointment{}, store.ErrAppointmentNotFound
		}
		return models.Appointment{}, err
	}
	return appt, nil
}

func (s *Store) ListAppointments(ctx context.Context, filter store.AppointmentFilter) ([]models.Appointment, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Type != "" {
		add("a.type = $%d", filter.Type)
	}
	if filter.Status != "" {
		add("a.status = $%d", filter.Status)
	}
	if !filter.StartsFrom.IsZero() {
		add("a.starts_at >= $%d", filter.StartsFrom)
	}
	if !filter.StartsBefore.IsZero() {
		add("a.starts_at < $%d", filter.StartsBefore)
	}
	query := appointmentSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY a.starts_at, a.appointment_id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appointments := make([]models.Appointment, 0)
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, appt)
	}
	return appointments, rows.Err()
}

func (s *Store) UpdateAppointment(ctx context.Context, appt models.Appointment) (models.Appointment, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE appointments
		SET patient_id = $2, starts_at = $3, ends_at = $4, reason = $5, type = $6, status = $7
		WHERE appointment_id = $1
	`, appt.AppointmentID, appt.PatientID, appt.StartsAt, appt.EndsAt, appt.Reason, appt.Type, appt.Status)
	if err != nil {
		return models.Appointment{}, mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.Appointment{}, store.ErrAppointmentNotFound
	}
	return s.GetAppointment(ctx, appt.AppointmentID)
}

func (s *Store) DeleteAppointment(ctx context.Context, appointmentID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM appointments WHERE appointment_id = $1`, appointmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrAppointmentNotFound
	}
	return nil
}

func scanAppointment(row pgx.Row) (models.Appointment, error) {
	var (
		a       models.Appointment
		creator sql.NullString
	)
	if err := row.Scan(&a.AppointmentID, &a.PatientID, &a.PatientName, &a.PatientRut, &a.StartsAt, &a.EndsAt,
		&a.Reason, &a.Type, &a.Status, &a.CreatedAt, &a.CreatedBy, &creator); err != nil {
		return models.Appointment{}, err
	}
	a.CreatorName = nullString(creator)
	return a, nil
}
