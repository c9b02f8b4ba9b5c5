// Package calls owns the patient call queue: who is called next, who is being
// attended, and which calls were opened automatically from symptom severity.
package calls

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"qms/hospital-service/internal/events"
	"qms/hospital-service/internal/models"
	"qms/hospital-service/internal/store"
)

const (
	dashboardPending  = 5
	dashboardAttended = 4
)

type Store interface {
	store.CallStore
	GetPatient(ctx context.Context, patientID string) (models.Patient, error)
}

type Options struct {
	Location     *time.Location
	SystemUserID string
	Now          func() time.Time
	Publisher    events.Publisher
	Logger       zerolog.Logger
}

type Engine struct {
	store        Store
	loc          *time.Location
	systemUserID string
	now          func() time.Time
	publisher    events.Publisher
	log          zerolog.Logger
}

type RequestCallInput struct {
	PatientID        string
	Priority         string
	NotificationMode string
	RequestedBy      string
}

type TransitionResult struct {
	Call    models.Call `json:"call"`
	Updates []string    `json:"updates"`
}

type Dashboard struct {
	Active           []models.Call `json:"active"`
	Pending          []models.Call `json:"pending"`
	RecentlyAttended []models.Call `json:"recently_attended"`
	Cancelled        []models.Call `json:"cancelled"`
}

func NewEngine(s Store, opts Options) *Engine {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Discard{}
	}
	return &Engine{
		store:        s,
		loc:          opts.Location,
		systemUserID: opts.SystemUserID,
		now:          opts.Now,
		publisher:    opts.Publisher,
		log:          opts.Logger,
	}
}

func (e *Engine) RequestCall(ctx context.Context, input RequestCallInput) (models.Call, error) {
	if strings.TrimSpace(input.PatientID) == "" {
		return models.Call{}, fmt.Errorf("%w: patient_id is required", ErrInvalidInput)
	}
	if _, err := e.store.GetPatient(ctx, input.PatientID); err != nil {
		return models.Call{}, err
	}
	now := e.now()
	exists, err := e.hasCallOn(ctx, input.PatientID, now)
	if err != nil {
		return models.Call{}, err
	}
	if exists {
		return models.Call{}, ErrDuplicateCall
	}

	label, rank := NormalizePriority(input.Priority)
	mode := strings.TrimSpace(input.NotificationMode)
	if mode == "" {
		mode = models.NotifyVisual
	}
	call, err := e.store.CreateCall(ctx, models.Call{
		PatientID:        input.PatientID,
		Priority:         label,
		PriorityRank:     rank,
		NotificationMode: mode,
		Status:           models.StatusPending,
		CreatedAt:        now,
		CallDate:         now.In(e.loc).Format(models.CallDateLayout),
		CreatedBy:        input.RequestedBy,
	})
	if errors.Is(err, store.ErrDuplicateCall) {
		return models.Call{}, ErrDuplicateCall
	}
	if err != nil {
		return models.Call{}, fmt.Errorf("create call: %w", err)
	}
	e.publish(ctx, events.CallRequested, call)
	return call, nil
}

// TransitionState moves a call to target. Calling a patient first demotes whoever is
// currently called to attended; that demotion stays even if the target update fails.
func (e *Engine) TransitionState(ctx context.Context, callID, target string) (TransitionResult, error) {
	if !ValidState(target) {
		return TransitionResult{}, fmt.Errorf("%w: %q", ErrInvalidState, target)
	}
	current, err := e.store.GetCall(ctx, callID)
	if err != nil {
		return TransitionResult{}, err
	}
	if !ValidTransition(target, current.Status) {
		return TransitionResult{}, fmt.Errorf("%w: %s to %s", ErrTransitionNotAllowed, current.Status, target)
	}

	updates := make([]string, 0, 2)
	if target == models.StatusCalled {
		active, err := e.store.ListCalls(ctx, store.CallFilter{Status: models.StatusCalled, Order: store.OrderByCreatedAsc})
		if err != nil {
			return TransitionResult{}, fmt.Errorf("load called calls: %w", err)
		}
		attended := models.StatusAttended
		for _, prev := range active {
			if prev.CallID == callID {
				continue
			}
			demoted, err := e.store.UpdateCall(ctx, prev.CallID, store.CallUpdate{Status: &attended, ClearManualOrder: true})
			if err != nil {
				return TransitionResult{}, fmt.Errorf("demote call %s: %w", prev.CallID, err)
			}
			updates = append(updates, fmt.Sprintf("call %s: %s -> %s", prev.CallID, models.StatusCalled, models.StatusAttended))
			e.publish(ctx, events.CallStateChanged, demoted)
		}
	}

	updated, err := e.store.UpdateCall(ctx, callID, store.CallUpdate{Status: &target, ClearManualOrder: true})
	if err != nil {
		return TransitionResult{}, fmt.Errorf("update call %s: %w", callID, err)
	}
	updates = append(updates, fmt.Sprintf("call %s: %s -> %s", callID, current.Status, target))
	e.publish(ctx, events.CallStateChanged, updated)
	return TransitionResult{Call: updated, Updates: updates}, nil
}

// SetManualOrder pins a pending call's position; nil removes the override.
func (e *Engine) SetManualOrder(ctx context.Context, callID string, order *int) (models.Call, error) {
	current, err := e.store.GetCall(ctx, callID)
	if err != nil {
		return models.Call{}, err
	}
	if current.Status != models.StatusPending {
		return models.Call{}, fmt.Errorf("%w: status is %s", ErrNotPending, current.Status)
	}
	update := store.CallUpdate{ManualOrder: order, ClearManualOrder: order == nil}
	updated, err := e.store.UpdateCall(ctx, callID, update)
	if err != nil {
		return models.Call{}, fmt.Errorf("update call %s: %w", callID, err)
	}
	e.publish(ctx, events.CallReordered, updated)
	return updated, nil
}

func (e *Engine) ListPending(ctx context.Context) ([]models.Call, error) {
	return e.list(ctx, store.CallFilter{Status: models.StatusPending, Order: store.OrderByQueue})
}

func (e *Engine) ListActive(ctx context.Context) ([]models.Call, error) {
	return e.list(ctx, store.CallFilter{Status: models.StatusCalled, Order: store.OrderByCreatedAsc})
}

func (e *Engine) History(ctx context.Context) ([]models.Call, error) {
	return e.list(ctx, store.CallFilter{Order: store.OrderByCreatedDesc})
}

func (e *Engine) Dashboard(ctx context.Context) (Dashboard, error) {
	active, err := e.ListActive(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	pending, err := e.list(ctx, store.CallFilter{Status: models.StatusPending, Order: store.OrderByQueue, Limit: dashboardPending})
	if err != nil {
		return Dashboard{}, err
	}
	attended, err := e.list(ctx, store.CallFilter{Status: models.StatusAttended, Order: store.OrderByCreatedDesc, Limit: dashboardAttended})
	if err != nil {
		return Dashboard{}, err
	}
	cancelled, err := e.list(ctx, store.CallFilter{Status: models.StatusCancelled, Order: store.OrderByCreatedDesc})
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{Active: active, Pending: pending, RecentlyAttended: attended, Cancelled: cancelled}, nil
}

// Escalate opens a call for the patient when the worst reported severity is high
// enough. It reports false when no call was needed or one already exists today.
func (e *Engine) Escalate(ctx context.Context, patientID string, severities []int) (models.Call, bool, error) {
	if len(severities) == 0 {
		return models.Call{}, false, nil
	}
	label := PriorityForSeverity(slices.Max(severities))
	if label == "" {
		return models.Call{}, false, nil
	}
	now := e.now()
	exists, err := e.hasCallOn(ctx, patientID, now)
	if err != nil {
		return models.Call{}, false, err
	}
	if exists {
		return models.Call{}, false, nil
	}
	call, err := e.store.CreateCall(ctx, models.Call{
		PatientID:        patientID,
		Priority:         label,
		PriorityRank:     priorityRanks[label],
		NotificationMode: models.NotifyVisual,
		Status:           models.StatusPending,
		CreatedAt:        now,
		CallDate:         now.In(e.loc).Format(models.CallDateLayout),
		CreatedBy:        e.systemUserID,
	})
	if errors.Is(err, store.ErrDuplicateCall) {
		return models.Call{}, false, nil
	}
	if err != nil {
		return models.Call{}, false, fmt.Errorf("create escalated call: %w", err)
	}
	e.publish(ctx, events.CallEscalated, call)
	return call, true, nil
}

func (e *Engine) hasCallOn(ctx context.Context, patientID string, at time.Time) (bool, error) {
	start, end := DayBounds(at, e.loc)
	existing, err := e.store.ListCalls(ctx, store.CallFilter{
		PatientID:     patientID,
		CreatedFrom:   start,
		CreatedBefore: end,
		Limit:         1,
	})
	if err != nil {
		return false, fmt.Errorf("check existing calls: %w", err)
	}
	return len(existing) > 0, nil
}

func (e *Engine) list(ctx context.Context, filter store.CallFilter) ([]models.Call, error) {
	calls, err := e.store.ListCalls(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	if calls == nil {
		calls = []models.Call{}
	}
	return calls, nil
}

func (e *Engine) publish(ctx context.Context, eventType string, call models.Call) {
	err := e.publisher.Publish(ctx, events.Event{
		Type:      eventType,
		Key:       call.CallID,
		Payload:   call,
		CreatedAt: e.now(),
	})
	if err != nil {
		e.log.Warn().Err(err).Str("event", eventType).Str("call_id", call.CallID).Msg("publish call event")
	}
}
