package domain

import (
	"errors"
	"testing"
)

func TestAppointmentLifecycle_LinearPath(t *testing.T) {
	a := &Appointment{Status: StatusPending}

	if err := a.Confirm(); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if a.Status != StatusConfirmed {
		t.Fatalf("status = %q, want %q", a.Status, StatusConfirmed)
	}

	if err := a.Complete(); err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if a.Status != StatusCompleted {
		t.Fatalf("status = %q, want %q", a.Status, StatusCompleted)
	}
}

func TestAppointmentLifecycle_CancelFromPendingAndConfirmed(t *testing.T) {
	for _, from := range []AppointmentStatus{StatusPending, StatusConfirmed} {
		a := &Appointment{Status: from}
		if err := a.Cancel("schedule conflict", "patient-1"); err != nil {
			t.Fatalf("Cancel from %q error: %v", from, err)
		}
		if a.Status != StatusCancelled {
			t.Fatalf("status = %q, want %q", a.Status, StatusCancelled)
		}
		if a.CancelledAt == nil {
			t.Fatalf("CancelledAt not set")
		}
		if a.CancellationReason != "schedule conflict" || a.CancelledBy != "patient-1" {
			t.Fatalf("cancellation metadata not recorded: %+v", a)
		}
	}
}

func TestAppointmentLifecycle_TerminalStatesReject(t *testing.T) {
	for _, terminal := range []AppointmentStatus{StatusCompleted, StatusCancelled} {
		a := &Appointment{Status: terminal}

		if err := a.Confirm(); !errors.Is(err, ErrInvalidStatusTransition) {
			t.Fatalf("Confirm from %q error = %v, want ErrInvalidStatusTransition", terminal, err)
		}
		if err := a.Complete(); !errors.Is(err, ErrInvalidStatusTransition) {
			t.Fatalf("Complete from %q error = %v, want ErrInvalidStatusTransition", terminal, err)
		}
		if err := a.Cancel("", ""); !errors.Is(err, ErrInvalidStatusTransition) {
			t.Fatalf("Cancel from %q error = %v, want ErrInvalidStatusTransition", terminal, err)
		}
	}
}

func TestAppointmentLifecycle_NoCompleteBeforeConfirm(t *testing.T) {
	a := &Appointment{Status: StatusPending}
	if err := a.Complete(); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("Complete from pending error = %v, want ErrInvalidStatusTransition", err)
	}
}

func TestAppointmentStatus_IsValid(t *testing.T) {
	for _, s := range []AppointmentStatus{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled} {
		if !s.IsValid() {
			t.Fatalf("%q should be valid", s)
		}
	}
	if AppointmentStatus("no_show").IsValid() {
		t.Fatalf("unknown status should be invalid")
	}
}
