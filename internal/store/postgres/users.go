package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"qms/hospital-service/internal/models"
	"qms/hospital-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userSelect = `
	SELECT u.user_id, u.full_name, u.email, u.phone, u.password_hash, u.role_id, r.name, u.specialty_id, u.created_at
	FROM users u
	JOIN roles r ON r.role_id = u.role_id`

func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}
	if user.Created.IsZero() {
		user.Created = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (user_id, full_name, email, phone, password_hash, role_id, specialty_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, user.UserID, user.FullName, user.Email, user.Phone, user.PasswordHash, user.RoleID, user.SpecialtyID, user.Created)
	if err != nil {
		return models.User{}, mapPgError(err)
	}
	return s.GetUser(ctx, user.UserID)
}

func (s *Store) GetUser(ctx context.Context, userID string) (models.User, error) {
	return getUser(ctx, s.pool, userSelect+` WHERE u.user_id = $1`, userID)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return getUser(ctx, s.pool, userSelect+` WHERE LOWER(u.email) = LOWER($1)`, email)
}

func getUser(ctx context.Context, q querier, query string, arg string) (models.User, error) {
	user, err := scanUser(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, store.ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, userSelect+` ORDER BY u.created_at, u.user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, user models.User) (models.User, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET full_name = $2, email = $3, phone = $4 WHERE user_id = $1
	`, user.UserID, user.FullName, user.Email, user.Phone)
	if err != nil {
		return models.User{}, mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.User{}, store.ErrUserNotFound
	}
	return s.GetUser(ctx, user.UserID)
}

// UpdateUserRole drops the specialty when the user stops being a physician.
func (s *Store) UpdateUserRole(ctx context.Context, userID string, roleID int) (models.User, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET role_id = $2, specialty_id = CASE WHEN $2 = $3 THEN specialty_id ELSE NULL END
		WHERE user_id = $1
	`, userID, roleID, models.RoleIDPhysician)
	if err != nil {
		return models.User{}, mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.User{}, store.ErrUserNotFound
	}
	return s.GetUser(ctx, userID)
}

func (s *Store) DeleteUser(ctx context.Context, userID, reassignTo string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = getUser(ctx, tx, userSelect+` WHERE u.user_id = $1`, reassignTo); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE appointments SET created_by = $2 WHERE created_by = $1`, userID, reassignTo); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE calls SET created_by = $2 WHERE created_by = $1`, userID, reassignTo); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		err = store.ErrUserNotFound
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ListRoles(ctx context.Context) ([]models.Role, error) {
	rows, err := s.pool.Query(ctx, `SELECT role_id, name FROM roles ORDER BY role_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]models.Role, 0)
	for rows.Next() {
		var r models.Role
		if err := rows.Scan(&r.RoleID, &r.Name); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (s *Store) GetSpecialty(ctx context.Context, specialtyID int) (models.Specialty, error) {
	var sp models.Specialty
	err := s.pool.QueryRow(ctx, `SELECT specialty_id, name FROM specialties WHERE specialty_id = $1`, specialtyID).
		Scan(&sp.SpecialtyID, &sp.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Specialty{}, store.ErrSpecialtyNotFound
		}
		return models.Specialty{}, err
	}
	return sp, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var (
		u         models.User
		specialty sql.NullInt32
	)
	if err := row.Scan(&u.UserID, &u.FullName, &u.Email, &u.Phone, &u.PasswordHash, &u.RoleID, &u.RoleName,
		&specialty, &u.Created); err != nil {
		return models.User{}, err
	}
	u.SpecialtyID = nullIntPtr(specialty)
	return u, nil
}
