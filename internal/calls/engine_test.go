package calls

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"qms/hospital-service/internal/events"
	"qms/hospital-service/internal/models"
	"qms/hospital-service/internal/store"
	"qms/hospital-service/internal/store/memory"
)

const systemUser = "00000000-0000-0000-0000-000000000001"

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type recorder struct{ events []events.Event }

func (r *recorder) Publish(_ context.Context, ev events.Event) error {
	r.events = append(r.events, ev)
	return nil
}

type flakyStore struct {
	*memory.Store
	updateCall func(ctx context.Context, callID string, update store.CallUpdate) (models.Call, error)
}

func (s *flakyStore) UpdateCall(ctx context.Context, callID string, update store.CallUpdate) (models.Call, error) {
	if s.updateCall != nil {
		return s.updateCall(ctx, callID, update)
	}
	return s.Store.UpdateCall(ctx, callID, update)
}

func newTestEngine(t *testing.T, s Store) (*Engine, *clock, *recorder) {
	t.Helper()
	clk := &clock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	rec := &recorder{}
	e := NewEngine(s, Options{
		Location:     time.UTC,
		SystemUserID: systemUser,
		Now:          clk.now,
		Publisher:    rec,
		Logger:       zerolog.Nop(),
	})
	return e, clk, rec
}

func addPatient(t *testing.T, s *memory.Store, rut string) string {
	t.Helper()
	p, _, err := s.CreatePatient(context.Background(), models.Patient{Rut: rut, FullName: "Patient " + rut}, nil)
	if err != nil {
		t.Fatalf("create patient: %v", err)
	}
	return p.PatientID
}

func request(t *testing.T, e *Engine, patientID, priority string) models.Call {
	t.Helper()
	call, err := e.RequestCall(context.Background(), RequestCallInput{PatientID: patientID, Priority: priority, RequestedBy: "secretary-1"})
	if err != nil {
		t.Fatalf("request call: %v", err)
	}
	return call
}

func intPtr(v int) *int { return &v }

func TestRequestCallCreatesPendingRecord(t *testing.T) {
	s := memory.New()
	e, _, rec := newTestEngine(t, s)
	p := addPatient(t, s, "11.111.111-1")

	call := request(t, e, p, "Alta")
	if call.Status != models.StatusPending || call.Priority != models.PriorityHigh || call.PriorityRank != 1 {
		t.Fatalf("unexpected call %+v", call)
	}
	if call.ManualOrder != nil {
		t.Fatalf("expected no manual order")
	}
	if call.NotificationMode != models.NotifyVisual {
		t.Fatalf("expected default notification mode, got %q", call.NotificationMode)
	}
	if call.CallDate != "2026-03-10" || call.CreatedBy != "secretary-1" {
		t.Fatalf("unexpected call metadata %+v", call)
	}
	if len(rec.events) != 1 || rec.events[0].Type != events.CallRequested {
		t.Fatalf("expected call.requested event, got %+v", rec.events)
	}
}

func TestRequestCallDefaultsToMedium(t *testing.T) {
	s := memory.New()
	e, _, _ := newTestEngine(t, s)
	call := request(t, e, addPatient(t, s, "1"), "")
	if call.Priority != models.PriorityMedium || call.PriorityRank != 2 {
		t.Fatalf("expected medium, got %s/%d", call.Priority, call.PriorityRank)
	}
}

func TestRequestCallRejectsSameDayDuplicate(t *testing.T) {
	s := memory.New()
	e, clk, _ := newTestEngine(t, s)
	p := addPatient(t, s, "1")

	request(t, e, p, "Alta")
	clk.advance(3 * time.Hour)
	_, err := e.RequestCall(context.Background(), RequestCallInput{PatientID: p, Priority: "Alta"})
	if !errors.Is(err, ErrDuplicateCall) {
		t.Fatalf("expected ErrDuplicateCall, got %v", err)
	}

	clk.advance(12 * time.Hour)
	if _, err := e.RequestCall(context.Background(), RequestCallInput{PatientID: p}); err != nil {
		t.Fatalf("expected next-day call allowed, got %v", err)
	}
}

func TestRequestCallUsesQueueTimezone(t *testing.T) {
	s := memory.New()
	clk := &clock{t: time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)}
	e := NewEngine(s, Options{Location: time.FixedZone("UTC-3", -3*3600), Now: clk.now})
	p := addPatient(t, s, "1")

	call := request(t, e, p, "Baja")
	if call.CallDate != "2026-03-09" {
		t.Fatalf("expected local call date 2026-03-09, got %s", call.CallDate)
	}
	// 04:00 UTC is 01:00 local on the 10th, a new local day.
	clk.advance(2 * time.Hour)
	if _, err := e.RequestCall(context.Background(), RequestCallInput{PatientID: p}); err != nil {
		t.Fatalf("expected new local day to allow call, got %v", err)
	}
}

func TestRequestCallUnknownPatient(t *testing.T) {
	e, _, _ := newTestEngine(t, memory.New())
	_, err := e.RequestCall(context.Background(), RequestCallInput{PatientID: "missing"})
	if !errors.Is(err, store.ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
	_, err = e.RequestCall(context.Background(), RequestCallInput{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDistinctPatientsNeverShareDay(t *testing.T) {
	s := memory.New()
	e, clk, _ := newTestEngine(t, s)
	patients := []string{addPatient(t, s, "1"), addPatient(t, s, "2"), addPatient(t, s, "3")}
	for round := 0; round < 3; round++ {
		for _, p := range patients {
			_, _ = e.RequestCall(context.Background(), RequestCallInput{PatientID: p})
			clk.advance(time.Minute)
		}
	}
	history, err := e.History(context.Background())
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	seen := map[string]bool{}
	for _, c := range history {
		key := c.PatientID + "/" + c.CallDate
		if seen[key] {
			t.Fatalf("duplicate call for %s", key)
		}
		seen[key] = true
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(history))
	}
}

func TestTransitionToCalledDemotesPrevious(t *testing.T) {
	s := memory.New()
	e, clk, rec := newTestEngine(t, s)
	r1 := request(t, e, addPatient(t, s, "1"), "Media")
	clk.advance(time.Minute)
	r2 := request(t, e, addPatient(t, s, "2"), "Baja")

	if _, err := e.TransitionState(context.Background(), r1.CallID, models.StatusCalled); err != nil {
		t.Fatalf("call r1: %v", err)
	}
	if _, err := e.SetManualOrder(context.Background(), r2.CallID, intPtr(4)); err != nil {
		t.Fatalf("order r2: %v", err)
	}
	rec.events = nil

	res, err := e.TransitionState(context.Background(), r2.CallID, models.StatusCalled)
	if err != nil {
		t.Fatalf("call r2: %v", err)
	}
	if res.Call.CallID != r2.CallID || res.Call.Status != models.StatusCalled || res.Call.ManualOrder != nil {
		t.Fatalf("unexpected result %+v", res.Call)
	}
	want := []string{
		fmt.Sprintf("call %s: called -> attended", r1.CallID),
		fmt.Sprintf("call %s: pending -> called", r2.CallID),
	}
	if len(res.Updates) != 2 || res.Updates[0] != want[0] || res.Updates[1] != want[1] {
		t.Fatalf("unexpected updates %v", res.Updates)
	}

	prev, _ := s.GetCall(context.Background(), r1.CallID)
	if prev.Status != models.StatusAttended || prev.ManualOrder != nil {
		t.Fatalf("expected r1 attended with cleared order, got %+v", prev)
	}
	active, err := e.ListActive(context.Background())
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 1 || active[0].CallID != r2.CallID {
		t.Fatalf("expected only r2 active, got %+v", active)
	}
	if len(rec.events) != 2 || rec.events[0].Key != r1.CallID || rec.events[1].Key != r2.CallID {
		t.Fatalf("expected demotion event before target event, got %+v", rec.events)
	}
}

func TestTransitionClearsManualOrder(t *testing.T) {
	for _, target := range []string{models.StatusAttended, models.StatusCancelled} {
		s := memory.New()
		e, _, _ := newTestEngine(t, s)
		c := request(t, e, addPatient(t, s, "1"), "")
		if _, err := e.SetManualOrder(context.Background(), c.CallID, intPtr(1)); err != nil {
			t.Fatalf("order: %v", err)
		}
		res, err := e.TransitionState(context.Background(), c.CallID, target)
		if err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
		if res.Call.ManualOrder != nil || res.Call.Status != target {
			t.Fatalf("expected %s with cleared order, got %+v", target, res.Call)
		}
		if len(res.Updates) != 1 {
			t.Fatalf("expected single update, got %v", res.Updates)
		}
	}
}

func TestTransitionErrors(t *testing.T) {
	s := memory.New()
	e, _, _ := newTestEngine(t, s)
	c := request(t, e, addPatient(t, s, "1"), "")

	if _, err := e.TransitionState(context.Background(), c.CallID, "Llamado"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if _, err := e.TransitionState(context.Background(), "missing", models.StatusCalled); !errors.Is(err, store.ErrCallNotFound) {
		t.Fatalf("expected ErrCallNotFound, got %v", err)
	}
	if _, err := e.TransitionState(context.Background(), c.CallID, models.StatusPending); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Fatalf("expected pending target rejected, got %v", err)
	}
	if _, err := e.TransitionState(context.Background(), c.CallID, models.StatusCalled); err != nil {
		t.Fatalf("call: %v", err)
	}
	if _, err := e.TransitionState(context.Background(), c.CallID, models.StatusCancelled); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Fatalf("expected called->cancelled rejected, got %v", err)
	}
	if _, err := e.TransitionState(context.Background(), c.CallID, models.StatusAttended); err != nil {
		t.Fatalf("called->attended: %v", err)
	}
	if _, err := e.TransitionState(context.Background(), c.CallID, models.StatusCalled); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Fatalf("expected attended->called rejected, got %v", err)
	}
}

func TestDemotionIsNotRolledBack(t *testing.T) {
	mem := memory.New()
	s := &flakyStore{Store: mem}
	e, clk, _ := newTestEngine(t, s)
	r1 := request(t, e, addPatient(t, mem, "1"), "")
	clk.advance(time.Minute)
	r2 := request(t, e, addPatient(t, mem, "2"), "")
	if _, err := e.TransitionState(context.Background(), r1.CallID, models.StatusCalled); err != nil {
		t.Fatalf("call r1: %v", err)
	}

	boom := errors.New("connection reset")
	s.updateCall = func(ctx context.Context, callID string, update store.CallUpdate) (models.Call, error) {
		if callID == r2.CallID {
			return models.Call{}, boom
		}
		return mem.UpdateCall(ctx, callID, update)
	}
	if _, err := e.TransitionState(context.Background(), r2.CallID, models.StatusCalled); !errors.Is(err, boom) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	active, _ := e.ListActive(context.Background())
	if len(active) != 0 {
		t.Fatalf("expected no called records after partial failure, got %+v", active)
	}
}

func TestListPendingOrdering(t *testing.T) {
	s := memory.New()
	e, clk, _ := newTestEngine(t, s)
	low := request(t, e, addPatient(t, s, "1"), "Baja")
	clk.advance(time.Minute)
	med := request(t, e, addPatient(t, s, "2"), "Media")
	clk.advance(time.Minute)
	high1 := request(t, e, addPatient(t, s, "3"), "Alta")
	clk.advance(time.Minute)
	high2 := request(t, e, addPatient(t, s, "4"), "Alta")
	clk.advance(time.Minute)
	r3 := request(t, e, addPatient(t, s, "5"), "Baja")

	pending, err := e.ListPending(context.Background())
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	assertOrder(t, pending, high1.CallID, high2.CallID, med.CallID, low.CallID, r3.CallID)

	if _, err := e.SetManualOrder(context.Background(), r3.CallID, intPtr(1)); err != nil {
		t.Fatalf("order: %v", err)
	}
	pending, _ = e.ListPending(context.Background())
	assertOrder(t, pending, r3.CallID, high1.CallID, high2.CallID, med.CallID, low.CallID)

	for i := 1; i < len(pending); i++ {
		if store.CompareQueue(pending[i-1], pending[i]) > 0 {
			t.Fatalf("adjacent records out of order at %d", i)
		}
	}
}

func TestSetManualOrderRequiresPending(t *testing.T) {
	s := memory.New()
	e, _, _ := newTestEngine(t, s)
	c := request(t, e, addPatient(t, s, "1"), "")
	if _, err := e.SetManualOrder(context.Background(), c.CallID, intPtr(-3)); err != nil {
		t.Fatalf("negative order accepted: %v", err)
	}
	cleared, err := e.SetManualOrder(context.Background(), c.CallID, nil)
	if err != nil || cleared.ManualOrder != nil {
		t.Fatalf("expected cleared order, got %+v %v", cleared, err)
	}
	if _, err := e.TransitionState(context.Background(), c.CallID, models.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := e.SetManualOrder(context.Background(), c.CallID, intPtr(1)); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
	if _, err := e.SetManualOrder(context.Background(), "missing", intPtr(1)); !errors.Is(err, store.ErrCallNotFound) {
		t.Fatalf("expected ErrCallNotFound, got %v", err)
	}
}

func TestDashboard(t *testing.T) {
	s := memory.New()
	e, clk, _ := newTestEngine(t, s)
	var ids []string
	for i := 0; i < 12; i++ {
		c := request(t, e, addPatient(t, s, fmt.Sprintf("p%d", i)), "")
		ids = append(ids, c.CallID)
		clk.advance(time.Minute)
	}
	for _, id := range ids[:6] {
		if _, err := e.TransitionState(context.Background(), id, models.StatusAttended); err != nil {
			t.Fatalf("attend: %v", err)
		}
	}
	if _, err := e.TransitionState(context.Background(), ids[6], models.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := e.TransitionState(context.Background(), ids[7], models.StatusCalled); err != nil {
		t.Fatalf("call: %v", err)
	}

	first, err := e.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if len(first.Active) != 1 || first.Active[0].CallID != ids[7] {
		t.Fatalf("unexpected active %+v", first.Active)
	}
	assertOrder(t, first.Pending, ids[8], ids[9], ids[10], ids[11])
	assertOrder(t, first.RecentlyAttended, ids[5], ids[4], ids[3], ids[2])
	assertOrder(t, first.Cancelled, ids[6])

	second, err := e.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if fmt.Sprint(first) != fmt.Sprint(second) {
		t.Fatalf("dashboard not idempotent:\n%v\n%v", first, second)
	}
}

func TestDashboardEmptyListsAreNotNil(t *testing.T) {
	e, _, _ := newTestEngine(t, memory.New())
	d, err := e.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.Active == nil || d.Pending == nil || d.RecentlyAttended == nil || d.Cancelled == nil {
		t.Fatalf("expected empty slices, got %+v", d)
	}
}

func TestEscalate(t *testing.T) {
	s := memory.New()
	e, _, rec := newTestEngine(t, s)
	p := addPatient(t, s, "1")

	call, created, err := e.Escalate(context.Background(), p, []int{3, 10, 7})
	if err != nil || !created {
		t.Fatalf("expected escalation, got %v %v", created, err)
	}
	if call.Priority != models.PriorityHigh || call.PriorityRank != 1 || call.Status != models.StatusPending {
		t.Fatalf("unexpected call %+v", call)
	}
	if call.CreatedBy != systemUser {
		t.Fatalf("expected system creator, got %q", call.CreatedBy)
	}
	if rec.events[len(rec.events)-1].Type != events.CallEscalated {
		t.Fatalf("expected escalation event")
	}

	_, created, err = e.Escalate(context.Background(), p, []int{10})
	if err != nil || created {
		t.Fatalf("expected suppression on same day, got %v %v", created, err)
	}
}

func TestEscalateThresholds(t *testing.T) {
	cases := []struct {
		severities []int
		priority   string
	}{
		{[]int{9}, models.PriorityMedium},
		{[]int{8, 2}, models.PriorityLow},
		{[]int{7}, models.PriorityLow},
		{[]int{6, 5}, ""},
		{nil, ""},
	}
	for i, tt := range cases {
		s := memory.New()
		e, _, _ := newTestEngine(t, s)
		call, created, err := e.Escalate(context.Background(), addPatient(t, s, fmt.Sprint(i)), tt.severities)
		if err != nil {
			t.Fatalf("escalate %v: %v", tt.severities, err)
		}
		if created != (tt.priority != "") || call.Priority != tt.priority {
			t.Fatalf("escalate %v: created=%v priority=%q, want %q", tt.severities, created, call.Priority, tt.priority)
		}
	}
}

func TestEscalateSuppressedByManualCall(t *testing.T) {
	s := memory.New()
	e, _, _ := newTestEngine(t, s)
	p := addPatient(t, s, "1")
	request(t, e, p, "Baja")
	_, created, err := e.Escalate(context.Background(), p, []int{10})
	if err != nil || created {
		t.Fatalf("expected suppression, got %v %v", created, err)
	}
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	s := memory.New()
	e := NewEngine(s, Options{
		Location:  time.UTC,
		Publisher: events.PublisherFunc(func(context.Context, events.Event) error { return errors.New("down") }),
		Logger:    zerolog.Nop(),
	})
	if _, err := e.RequestCall(context.Background(), RequestCallInput{PatientID: addPatient(t, s, "1")}); err != nil {
		t.Fatalf("expected success despite publisher failure, got %v", err)
	}
}

func assertOrder(t *testing.T, calls []models.Call, ids ...string) {
	t.Helper()
	if len(calls) != len(ids) {
		t.Fatalf("expected %d calls, got %d", len(ids), len(calls))
	}
	for i, id := range ids {
		if calls[i].CallID != id {
			t.Fatalf("position %d: got %s, want %s", i, calls[i].CallID, id)
		}
	}
}
