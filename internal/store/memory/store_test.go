package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"qms/hospital-service/internal/models"
	"qms/hospital-service/internal/store"
)

func seedPatient(t *testing.T, s *Store, rut string) models.Patient {
	t.Helper()
	p, _, err := s.CreatePatient(context.Background(), models.Patient{Rut: rut, FullName: "P " + rut}, []models.Symptom{{BodyZone: "head", Severity: 3}})
	if err != nil {
		t.Fatalf("create patient: %v", err)
	}
	return p
}

func TestCallConstraints(t *testing.T) {
	ctx := context.Background()
	s := New()
	p1 := seedPatient(t, s, "1")
	p2 := seedPatient(t, s, "2")
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	a, err := s.CreateCall(ctx, models.Call{PatientID: p1.PatientID, Status: models.StatusPending, CreatedAt: now, CallDate: "2026-01-05"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.PatientName != "P 1" {
		t.Fatalf("expected joined patient name, got %q", a.PatientName)
	}
	if _, err := s.CreateCall(ctx, models.Call{PatientID: p1.PatientID, CallDate: "2026-01-05"}); !errors.Is(err, store.ErrDuplicateCall) {
		t.Fatalf("expected ErrDuplicateCall, got %v", err)
	}
	if _, err := s.CreateCall(ctx, models.Call{PatientID: "nobody", CallDate: "2026-01-05"}); !errors.Is(err, store.ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
	b, err := s.CreateCall(ctx, models.Call{PatientID: p2.PatientID, Status: models.StatusPending, CreatedAt: now, CallDate: "2026-01-05"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	called := models.StatusCalled
	if _, err := s.UpdateCall(ctx, a.CallID, store.CallUpdate{Status: &called}); err != nil {
		t.Fatalf("call a: %v", err)
	}
	if _, err := s.UpdateCall(ctx, b.CallID, store.CallUpdate{Status: &called}); !errors.Is(err, store.ErrActiveCallExists) {
		t.Fatalf("expected ErrActiveCallExists, got %v", err)
	}
	if err := s.DeletePatient(ctx, p1.PatientID); !errors.Is(err, store.ErrPatientInUse) {
		t.Fatalf("expected ErrPatientInUse, got %v", err)
	}
}

func TestManualOrderIsCopied(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedPatient(t, s, "1")
	c, _ := s.CreateCall(ctx, models.Call{PatientID: p.PatientID, Status: models.StatusPending, CallDate: "d"})
	order := 3
	updated, err := s.UpdateCall(ctx, c.CallID, store.CallUpdate{ManualOrder: &order})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	*updated.ManualOrder = 99
	reloaded, _ := s.GetCall(ctx, c.CallID)
	if *reloaded.ManualOrder != 3 {
		t.Fatalf("stored manual order mutated through returned value")
	}
	cleared, _ := s.UpdateCall(ctx, c.CallID, store.CallUpdate{ManualOrder: &order, ClearManualOrder: true})
	if cleared.ManualOrder != nil {
		t.Fatalf("expected cleared manual order")
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := New()
	admin, err := s.CreateUser(ctx, models.User{UserID: "sys", Email: "root@h.local", RoleID: models.RoleIDAdministrator})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if admin.RoleName != models.RoleAdministrator {
		t.Fatalf("expected role name, got %q", admin.RoleName)
	}
	spec := 2
	doc, err := s.CreateUser(ctx, models.User{Email: "doc@h.local", RoleID: models.RoleIDPhysician, SpecialtyID: &spec})
	if err != nil {
		t.Fatalf("create doc: %v", err)
	}
	if _, err := s.CreateUser(ctx, models.User{Email: "DOC@h.local", RoleID: models.RoleIDSecretary}); !errors.Is(err, store.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := s.CreateUser(ctx, models.User{Email: "x@h.local", RoleID: 9}); !errors.Is(err, store.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
	found, err := s.GetUserByEmail(ctx, "Doc@H.local")
	if err != nil || found.UserID != doc.UserID {
		t.Fatalf("expected lookup by email, got %v %v", found, err)
	}

	moved, err := s.UpdateUserRole(ctx, doc.UserID, models.RoleIDSecretary)
	if err != nil || moved.SpecialtyID != nil || moved.RoleName != models.RoleSecretary {
		t.Fatalf("unexpected role change %+v %v", moved, err)
	}

	p := seedPatient(t, s, "1")
	appt, err := s.CreateAppointment(ctx, models.Appointment{PatientID: p.PatientID, CreatedBy: doc.UserID, Status: models.AppointmentScheduled})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	if err := s.DeleteUser(ctx, doc.UserID, admin.UserID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	reloaded, _ := s.GetAppointment(ctx, appt.AppointmentID)
	if reloaded.CreatedBy != admin.UserID {
		t.Fatalf("expected reassignment to admin, got %s", reloaded.CreatedBy)
	}
}

func TestListAppointmentsFilters(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _ = s.CreateUser(ctx, models.User{UserID: "u", Email: "u@h", RoleID: models.RoleIDSecretary})
	p := seedPatient(t, s, "1")
	day := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	for i, status := range []string{models.AppointmentScheduled, models.AppointmentAttended, models.AppointmentAttended} {
		_, err := s.CreateAppointment(ctx, models.Appointment{
			PatientID: p.PatientID, CreatedBy: "u", Type: "control", Status: status,
			StartsAt: day.AddDate(0, 0, i), EndsAt: day.AddDate(0, 0, i).Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	got, _ := s.ListAppointments(ctx, store.AppointmentFilter{Status: models.AppointmentAttended, StartsFrom: day, StartsBefore: day.AddDate(0, 0, 2)})
	if len(got) != 1 || !got[0].StartsAt.Equal(day.AddDate(0, 0, 1)) {
		t.Fatalf("unexpected filter result %+v", got)
	}
	if got[0].PatientName != "P 1" {
		t.Fatalf("expected joined patient name")
	}
}
