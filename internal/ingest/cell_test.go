package ingest

import (
	"sync"
	"testing"
	"time"
)

func TestCell_ZeroSnapshot(t *testing.T) {
	c := NewCell()

	snap := c.Snapshot()
	if snap.Frame != nil {
		t.Errorf("Frame = %v, want nil on fresh cell", snap.Frame)
	}
	if snap.FrameID != 0 {
		t.Errorf("FrameID = %d, want 0 on fresh cell", snap.FrameID)
	}

	st := c.Stats(time.Now())
	if st.Connected {
		t.Error("Connected = true on fresh cell")
	}
	if st.State != StateIdle {
		t.Errorf("State = %v, want StateIdle", st.State)
	}
	if st.Uptime != 0 {
		t.Errorf("Uptime = %v, want 0 before MarkStarted", st.Uptime)
	}
}

func TestCell_PublishAdvancesTogether(t *testing.T) {
	c := NewCell()
	now := time.Now()

	c.Publish([]byte{1}, 4, 2, "t-1", now)
	c.Publish([]byte{2}, 4, 2, "t-2", now.Add(time.Second))

	snap := c.Snapshot()
	if snap.FrameID != 2 {
		t.Errorf("FrameID = %d, want 2", snap.FrameID)
	}
	if snap.Frame[0] != 2 {
		t.Errorf("Frame = %v, want latest payload", snap.Frame)
	}
	if snap.TraceID != "t-2" {
		t.Errorf("TraceID = %q, want t-2", snap.TraceID)
	}
	if !snap.Timestamp.Equal(now.Add(time.Second)) {
		t.Errorf("Timestamp = %v, want publish time", snap.Timestamp)
	}
	if got := c.Stats(time.Now()).TotalFrames; got != 2 {
		t.Errorf("TotalFrames = %d, want 2", got)
	}
}

// The first successful connect never counts as a reconnect; connects after
// any decoded frame do.
func TestCell_ReconnectCounting(t *testing.T) {
	c := NewCell()

	if c.MarkConnected() {
		t.Error("MarkConnected() = true on first connect, want false")
	}
	if got := c.Snapshot().Reconnects; got != 0 {
		t.Errorf("Reconnects = %d, want 0 after first connect", got)
	}

	// Connection bounces before any frame was decoded: still not a reconnect
	c.MarkDisconnected()
	if c.MarkConnected() {
		t.Error("MarkConnected() = true before any decode, want false")
	}
	if got := c.Snapshot().Reconnects; got != 0 {
		t.Errorf("Reconnects = %d, want 0 before any decode", got)
	}

	c.Publish([]byte{1}, 4, 2, "", time.Now())
	c.MarkDisconnected()
	if !c.MarkConnected() {
		t.Error("MarkConnected() = false after a decoded frame, want true")
	}
	if got := c.Snapshot().Reconnects; got != 1 {
		t.Errorf("Reconnects = %d, want 1", got)
	}
}

func TestCell_StoppedForcesDisconnected(t *testing.T) {
	c := NewCell()
	c.MarkConnected()

	c.SetState(StateStopped)

	st := c.Stats(time.Now())
	if st.Connected {
		t.Error("Connected = true in StateStopped")
	}
	if st.State != StateStopped {
		t.Errorf("State = %v, want StateStopped", st.State)
	}
}

func TestCell_DisconnectKeepsSnapshot(t *testing.T) {
	c := NewCell()
	c.MarkConnected()
	c.Publish([]byte{7}, 4, 2, "", time.Now())

	c.MarkDisconnected()

	snap := c.Snapshot()
	if snap.FrameID != 1 || snap.Frame == nil {
		t.Error("snapshot lost on disconnect, want last good frame retained")
	}
}

func TestCell_UptimeAndFrameAge(t *testing.T) {
	c := NewCell()
	start := time.Now()
	c.MarkStarted(start)
	c.Publish([]byte{1}, 4, 2, "", start.Add(2*time.Second))

	st := c.Stats(start.Add(5 * time.Second))
	if st.Uptime != 5*time.Second {
		t.Errorf("Uptime = %v, want 5s", st.Uptime)
	}
	if st.LastFrameAge != 3*time.Second {
		t.Errorf("LastFrameAge = %v, want 3s", st.LastFrameAge)
	}
}

// Hammer the cell from one writer and several readers; every observed
// snapshot must be internally consistent (payload equals FrameID).
func TestCell_ConcurrentReadersConsistent(t *testing.T) {
	c := NewCell()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := byte(1); i <= 200; i++ {
			c.Publish([]byte{i}, 4, 2, "", time.Now())
		}
	}()

	var wg sync.WaitGroup
	errs := make(chan string, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				snap := c.Snapshot()
				if snap.Frame != nil && uint64(snap.Frame[0]) != snap.FrameID {
					errs <- "payload does not match FrameID"
					return
				}
				select {
				case <-done:
					return
				default:
				}
			}
		}()
	}
	wg.Wait()

	select {
	case msg := <-errs:
		t.Error(msg)
	default:
	}
}
