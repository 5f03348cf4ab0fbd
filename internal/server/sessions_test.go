package server

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSessionManager_StartStop(t *testing.T) {
	sm := NewSessionManager(newTestMetrics(t))
	ctx := context.Background()

	started := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	sm.now = func() time.Time { return started }

	info, err := sm.Start(ctx, "priya")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if info.ID == "" {
		t.Fatal("Start returned empty session id")
	}
	if info.Username != "priya" {
		t.Errorf("username = %q, want %q", info.Username, "priya")
	}
	if !info.StartedAt.Equal(started) {
		t.Errorf("started_at = %v, want %v", info.StartedAt, started)
	}

	if _, err := sm.Start(ctx, "priya"); !errors.Is(err, ErrSessionActive) {
		t.Errorf("second Start error = %v, want ErrSessionActive", err)
	}

	stopped, err := sm.Stop(ctx, "priya", info.ID)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if stopped.ID != info.ID {
		t.Errorf("stopped id = %q, want %q", stopped.ID, info.ID)
	}

	if _, active := sm.Active("priya"); active {
		t.Error("session still active after Stop")
	}

	// Starting again after a stop is allowed.
	if _, err := sm.Start(ctx, "priya"); err != nil {
		t.Errorf("restart after stop: %v", err)
	}
}

func TestSessionManager_StopMismatch(t *testing.T) {
	sm := NewSessionManager(newTestMetrics(t))
	ctx := context.Background()

	info, err := sm.Start(ctx, "priya")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := sm.Stop(ctx, "priya", "wrong-id"); !errors.Is(err, ErrNoSession) {
		t.Errorf("Stop with wrong id error = %v, want ErrNoSession", err)
	}
	if _, err := sm.Stop(ctx, "arjun", info.ID); !errors.Is(err, ErrNoSession) {
		t.Errorf("Stop for other user error = %v, want ErrNoSession", err)
	}

	// The original session survives failed stops.
	if _, active := sm.Active("priya"); !active {
		t.Error("session closed by mismatched Stop")
	}
}

func TestSessionManager_PerUserIsolation(t *testing.T) {
	sm := NewSessionManager(newTestMetrics(t))
	ctx := context.Background()

	a, err := sm.Start(ctx, "priya")
	if err != nil {
		t.Fatalf("Start priya: %v", err)
	}
	b, err := sm.Start(ctx, "arjun")
	if err != nil {
		t.Fatalf("Start arjun: %v", err)
	}
	if a.ID == b.ID {
		t.Error("sessions for different users share an id")
	}

	if _, err := sm.Stop(ctx, "priya", a.ID); err != nil {
		t.Errorf("Stop priya: %v", err)
	}
	if _, active := sm.Active("arjun"); !active {
		t.Error("stopping one user closed another user's session")
	}
}
