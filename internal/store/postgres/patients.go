package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"qms/hospital-service/internal/models"
	"qms/hospital-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const patientColumns = `patient_id, rut, full_name, to_char(birth_date, 'YYYY-MM-DD'), sex, phone, disability_type,
	communication_mode, assistive_aids, avatar_url, requires_assistance, emergency_contact, history, created_at`

func (s *Store) CreatePatient(ctx context.Context, patient models.Patient, symptoms []models.Symptom) (models.Patient, []models.Symptom, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Patient{}, nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if patient.PatientID == "" {
		patient.PatientID = uuid.NewString()
	}
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = time.Now().UTC()
	}
	contact, err := encodeContact(patient.EmergencyContact)
	if err != nil {
		return models.Patient{}, nil, err
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO patients (
			patient_id, rut, full_name, birth_date, sex, phone, disability_type, communication_mode,
			assistive_aids, avatar_url, requires_assistance, emergency_contact, history, created_at
		) VALUES ($1,$2,$3,$4::date,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING `+patientColumns,
		patient.PatientID, patient.Rut, patient.FullName, patient.BirthDate, patient.Sex, patient.Phone,
		patient.DisabilityType, patient.CommunicationMode, nonNil(patient.AssistiveAids), patient.AvatarURL,
		patient.RequiresAssistance, contact, nonNil(patient.History), patient.CreatedAt)
	created, err := scanPatient(row)
	if err != nil {
		err = mapPgError(err)
		return models.Patient{}, nil, err
	}

	saved := make([]models.Symptom, 0, len(symptoms))
	for _, sym := range symptoms {
		reported := sym.ReportedAt
		if reported.IsZero() {
			reported = created.CreatedAt
		}
		var out models.Symptom
		err = tx.QueryRow(ctx, `
			INSERT INTO symptoms (symptom_id, patient_id, body_zone, description, severity, reported_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING symptom_id, patient_id, body_zone, description, severity, reported_at
		`, uuid.NewString(), created.PatientID, sym.BodyZone, sym.Description, sym.Severity, reported).
			Scan(&out.SymptomID, &out.PatientID, &out.BodyZone, &out.Description, &out.Severity, &out.ReportedAt)
		if err != nil {
			return models.Patient{}, nil, fmt.Errorf("insert symptom: %w", err)
		}
		saved = append(saved, out)
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Patient{}, nil, err
	}
	return created, saved, nil
}

func (s *Store) GetPatient(ctx context.Context, patientID string) (models.Patient, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE patient_id = $1`, patientID)
	patient, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Patient{}, store.ErrPatientNotFound
		}
		return models.Patient{}, err
	}
	return patient, nil
}

func (s *Store) ListPatients(ctx context.Context) ([]models.Patient, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+patientColumns+` FROM patients ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	patients := make([]models.Patient, 0)
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, patient)
	}
	return patients, rows.Err()
}

func (s *Store) UpdatePatient(ctx context.Context, patient models.Patient) (models.Patient, error) {
	contact, err := encodeContact(patient.EmergencyContact)
	if err != nil {
		return models.Patient{}, err
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE patients SET
			rut = $2, full_name = $3, birth_date = $4::date, sex = $5, phone = $6, disability_type = $7,
			communication_mode = $8, assistive_aids = $9, avatar_url = $10, requires_assistance = $11,
			emergency_contact = $12, history = $13
		WHERE patient_id = $1
		RETURNING `+patientColumns,
		patient.PatientID, patient.Rut, patient.FullName, patient.BirthDate, patient.Sex, patient.Phone,
		patient.DisabilityType, patient.CommunicationMode, nonNil(patient.AssistiveAids), patient.AvatarURL,
		patient.RequiresAssistance, contact, nonNil(patient.History))
	updated, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Patient{}, store.ErrPatientNotFound
		}
		return models.Patient{}, mapPgError(err)
	}
	return updated, nil
}

// DeletePatient removes symptoms through the cascade; appointments and calls block deletion.
func (s *Store) DeletePatient(ctx context.Context, patientID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM patients WHERE patient_id = $1`, patientID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrPatientInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrPatientNotFound
	}
	return nil
}

func (s *Store) ListSymptoms(ctx context.Context, patientID string) ([]models.Symptom, error) {
	if _, err := s.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT symptom_id, patient_id, body_zone, description, severity, reported_at
		FROM symptoms
		WHERE patient_id = $1
		ORDER BY reported_at, symptom_id
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	symptoms := make([]models.Symptom, 0)
	for rows.Next() {
		var sym models.Symptom
		if err := rows.Scan(&sym.SymptomID, &sym.PatientID, &sym.BodyZone, &sym.Description, &sym.Severity, &sym.ReportedAt); err != nil {
			return nil, err
		}
		symptoms = append(symptoms, sym)
	}
	return symptoms, rows.Err()
}

func scanPatient(row pgx.Row) (models.Patient, error) {
	var (
		p       models.Patient
		contact []byte
	)
	if err := row.Scan(&p.PatientID, &p.Rut, &p.FullName, &p.BirthDate, &p.Sex, &p.Phone, &p.DisabilityType,
		&p.CommunicationMode, &p.AssistiveAids, &p.AvatarURL, &p.RequiresAssistance, &contact, &p.History, &p.CreatedAt); err != nil {
		return models.Patient{}, err
	}
	if len(contact) > 0 {
		var c models.EmergencyContact
		if err := json.Unmarshal(contact, &c); err != nil {
			return models.Patient{}, fmt.Errorf("decode emergency contact: %w", err)
		}
		p.EmergencyContact = &c
	}
	return p, nil
}

func encodeContact(contact *models.EmergencyContact) (interface{}, error) {
	if contact == nil {
		return nil, nil
	}
	raw, err := json.Marshal(contact)
	if err != nil {
		return nil, fmt.Errorf("encode emergency contact: %w", err)
	}
	return raw, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
