package ingest

import (
	"context"
	"testing"
	"time"
)

func TestBackoff_Schedule(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		InitialDelay: 1 * time.Second,
		MaxDelay:     16 * time.Second,
	})

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		16 * time.Second, // capped
		16 * time.Second,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next() call %d = %v, want %v", i+1, got, w)
		}
	}
}

func TestBackoff_Reset(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		InitialDelay: 1 * time.Second,
		MaxDelay:     16 * time.Second,
	})

	b.Next()
	b.Next()
	b.Reset()

	if got := b.Next(); got != 1*time.Second {
		t.Errorf("Next() after Reset = %v, want 1s", got)
	}
}

func TestBackoff_CeilingEqualsFloor(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		InitialDelay: 3 * time.Second,
		MaxDelay:     3 * time.Second,
	})

	for i := 0; i < 3; i++ {
		if got := b.Next(); got != 3*time.Second {
			t.Errorf("Next() call %d = %v, want 3s", i+1, got)
		}
	}
}

func TestSleep_Completes(t *testing.T) {
	if !Sleep(context.Background(), time.Millisecond) {
		t.Error("Sleep() = false, want true when undisturbed")
	}
}

func TestSleep_CancelledPromptly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	begin := time.Now()
	if Sleep(ctx, 10*time.Second) {
		t.Error("Sleep() = true, want false on cancellation")
	}
	if elapsed := time.Since(begin); elapsed > time.Second {
		t.Errorf("Sleep() returned after %v, want prompt return on cancel", elapsed)
	}
}

func TestSleep_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if Sleep(ctx, 10*time.Second) {
		t.Error("Sleep() = true, want false with already-cancelled context")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateConnecting, "connecting"},
		{StateStreaming, "streaming"},
		{StateBackoff, "backoff"},
		{StateStopped, "stopped"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
