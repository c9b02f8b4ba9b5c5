package postgres

import (
	"context"
	"database/sql"
	"errors"

	"qms/hospital-service/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// mapPgError turns constraint violations into store errors and passes anything else through.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		switch pgErr.ConstraintName {
		case "calls_patient_day_idx":
			return store.ErrDuplicateCall
		case "calls_single_called_idx":
			return store.ErrActiveCallExists
		case "users_email_idx":
			return store.ErrEmailTaken
		case "patients_rut_key":
			return store.ErrRutTaken
		}
	case codeForeignKeyViolation:
		switch pgErr.ConstraintName {
		case "appointments_patient_id_fkey", "calls_patient_id_fkey", "symptoms_patient_id_fkey":
			return store.ErrPatientNotFound
		case "appointments_created_by_fkey", "calls_created_by_fkey":
			return store.ErrUserNotFound
		case "users_role_id_fkey":
			return store.ErrRoleNotFound
		case "users_specialty_id_fkey":
			return store.ErrSpecialtyNotFound
		}
	}
	return err
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}

func nullIntPtr(value sql.NullInt32) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int32)
	return &v
}

func nullInt64Ptr(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int64)
	return &v
}

func nullString(value sql.NullString) string {
	if !value.Valid {
		return ""
	}
	return value.String
}
