package models

import (
	"testing"
	"time"
)

func TestScopeKeys(t *testing.T) {
	if got := EmployeeScope(7).Key(); got != "employee:7" {
		t.Fatalf("unexpected employee key %q", got)
	}
	if got := RoleScope().Key(); got != RoleScopeKey {
		t.Fatalf("unexpected role key %q", got)
	}
	if !RoleScope().IsRole() || EmployeeScope(1).IsRole() {
		t.Fatal("IsRole mixed up")
	}
}

func TestJobRef(t *testing.T) {
	ref := CategoryRef(3)
	if ref.Kind != CategoryOnly || ref.CodeIDPtr() != nil {
		t.Fatalf("unexpected category ref %+v", ref)
	}
	ref = CodeRef(3, 9)
	if ref.Kind != CategoryAndCode || ref.CodeIDPtr() == nil || *ref.CodeIDPtr() != 9 {
		t.Fatalf("unexpected code ref %+v", ref)
	}
	if !(JobRequest{}).IsEmpty() || (JobRequest{CodeID: 1}).IsEmpty() {
		t.Fatal("IsEmpty mixed up")
	}
}

func TestSessionLifecycleHelpers(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	code := uint(4)
	s := Session{CategoryID: 1, JobCodeID: &code, StartedAt: start, Status: StatusOpen}

	if !s.IsOpen() || !s.IsActive() || s.IsInterruption() {
		t.Fatal("fresh session should be open, active and not an interruption")
	}
	if got := s.Duration(start.Add(90 * time.Minute)); got != 90*time.Minute {
		t.Fatalf("unexpected live duration %v", got)
	}
	if s.Job() != CodeRef(1, 4) {
		t.Fatalf("unexpected job %+v", s.Job())
	}

	s.Status = StatusPaused
	if !s.IsOpen() || s.IsActive() {
		t.Fatal("paused session should be open but not active")
	}

	end := start.Add(time.Hour)
	s.Close(end)
	s.Close(end.Add(time.Hour))
	if s.Status != StatusClosed || !s.EndedAt.Equal(end) {
		t.Fatalf("close must be terminal, got %s %v", s.Status, s.EndedAt)
	}
	if got := s.Duration(end.Add(5 * time.Hour)); got != time.Hour {
		t.Fatalf("closed duration should ignore now, got %v", got)
	}
}

func TestJobDisplayName(t *testing.T) {
	s := Session{CategoryID: 1, Category: Category{ID: 1, Name: "WRP"}}
	if got := s.JobDisplayName(); got != "WRP" {
		t.Fatalf("unexpected name %q", got)
	}
	s.JobCode = &JobCode{ID: 2, Name: "Hensley"}
	if got := s.JobDisplayName(); got != "WRP - Hensley" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestEmployeeName(t *testing.T) {
	e := Employee{FirstName: "Dana", LastName: "Reyes"}
	if e.FullName() != "Dana Reyes" || e.HasPin() {
		t.Fatalf("unexpected employee helpers %q %v", e.FullName(), e.HasPin())
	}
}
