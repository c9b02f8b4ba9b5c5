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

const callSelect = `
	SELECT c.call_id, c.patient_id, p.full_name, p.rut, c.priority, c.priority_rank, c.notification_mode,
		c.status, c.manual_order, c.created_at, to_char(c.call_date, 'YYYY-MM-DD'), c.created_by
	FROM calls c
	JOIN patients p ON p.patient_id = c.patient_id`

var callOrderClauses = map[store.CallOrder]string{
	store.OrderByCreatedDesc: " ORDER BY c.created_at DESC, c.call_id DESC",
	store.OrderByCreatedAsc:  " ORDER BY c.created_at, c.call_id",
	store.OrderByQueue:       " ORDER BY c.manual_order ASC NULLS LAST, c.priority_rank, c.created_at, c.call_id",
}

func (s *Store) CreateCall(ctx context.Context, call models.Call) (models.Call, error) {
	if call.CallID == "" {
		call.CallID = uuid.NewString()
	}
	if call.CreatedAt.IsZero() {
		call.CreatedAt = time.Now().UTC()
	}
	if call.CallDate == "" {
		call.CallDate = call.CreatedAt.Format(models.CallDateLayout)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO calls (
			call_id, patient_id, priority, priority_rank, notification_mode, status, manual_order,
			created_at, call_date, created_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::date,$10)
	`, call.CallID, call.PatientID, call.Priority, call.PriorityRank, call.NotificationMode, call.Status,
		call.ManualOrder, call.CreatedAt, call.CallDate, call.CreatedBy)
	if err != nil {
		return models.Call{}, mapPgError(err)
	}
	return s.GetCall(ctx, call.CallID)
}

func (s *Store) GetCall(ctx context.Context, callID string) (models.Call, error) {
	return getCall(ctx, s.pool, callID)
}

func getCall(ctx context.Context, q querier, callID string) (models.Call, error) {
	call, err := scanCall(q.QueryRow(ctx, callSelect+` WHERE c.call_id = $1`, callID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Call{}, store.ErrCallNotFound
		}
		return models.Call{}, err
	}
	return call, nil
}

func (s *Store) ListCalls(ctx context.Context, filter store.CallFilter) ([]models.Call, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != "" {
		add("c.status = $%d", filter.Status)
	}
	if filter.PatientID != "" {
		add("c.patient_id = $%d", filter.PatientID)
	}
	if !filter.CreatedFrom.IsZero() {
		add("c.created_at >= $%d", filter.CreatedFrom)
	}
	if !filter.CreatedBefore.IsZero() {
		add("c.created_at < $%d", filter.CreatedBefore)
	}

	query := callSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	order, ok := callOrderClauses[filter.Order]
	if !ok {
		order = callOrderClauses[store.OrderByCreatedDesc]
	}
	query += order
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	calls := make([]models.Call, 0)
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return calls, rows.Err()
}

func (s *Store) UpdateCall(ctx context.Context, callID string, update store.CallUpdate) (models.Call, error) {
	var (
		sets []string
		args = []any{callID}
	)
	if update.Status != nil {
		args = append(args, *update.Status)
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	switch {
	case update.ClearManualOrder:
		sets = append(sets, "manual_order = NULL")
	case update.ManualOrder != nil:
		args = append(args, *update.ManualOrder)
		sets = append(sets, fmt.Sprintf("manual_order = $%d", len(args)))
	}
	if len(sets) == 0 {
		return s.GetCall(ctx, callID)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE calls SET `+strings.Join(sets, ", ")+` WHERE call_id = $1`, args...)
	if err != nil {
		return models.Call{}, mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.Call{}, store.ErrCallNotFound
	}
	return s.GetCall(ctx, callID)
}

func scanCall(row pgx.Row) (models.Call, error) {
	var (
		c           models.Call
		manualOrder sql.NullInt64
	)
	if err := row.Scan(&c.CallID, &c.PatientID, &c.PatientName, &c.PatientRut, &c.Priority, &c.PriorityRank,
		&c.NotificationMode, &c.Status, &manualOrder, &c.CreatedAt, &c.CallDate, &c.CreatedBy); err != nil {
		return models.Call{}, err
	}
	c.ManualOrder = nullInt64Ptr(manualOrder)
	return c, nil
}
