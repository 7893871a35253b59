// Package ingest implements the internals of the latest-frame ingestion
// engine: the loop state enum, the exponential backoff policy, and the
// mutex-guarded publisher cell.
//
// This package is INTERNAL - clients MUST use the public API in the parent
// package. Reason: allows internal refactoring without breaking changes.
package ingest

import (
	"sync"
	"time"
)

// Snapshot is the value held by the publisher cell: the latest frame plus
// the metadata that identifies it. All fields are replaced together under
// the cell lock, so a reader never observes a FrameID that is ahead of its
// paired Frame or Timestamp.
//
// Frame is owned by the cell once published and MUST NOT be mutated
// afterwards (the engine hands the cell a private copy, never a decoder
// buffer that could be overwritten by the next decode).
type Snapshot struct {
	Frame      []byte
	Width      int
	Height     int
	TraceID    string
	FrameID    uint64
	Timestamp  time.Time
	Reconnects uint64
}

// Stats is the aggregate counter view read by Cell.Stats.
type Stats struct {
	Uptime       time.Duration
	TotalFrames  uint64
	Reconnects   uint64
	Connected    bool
	State        State
	LastFrameAge time.Duration
}

// Cell is the single-slot "latest value" publisher shared between the
// ingestion loop (writer) and any number of reader goroutines.
//
// There is deliberately no queue: readers always want the freshest frame,
// so each publish replaces the slot wholesale and slow readers simply skip
// frames. The lock is held only to copy fields in or out, never across an
// I/O call, which keeps Snapshot() and Stats() wait-free with respect to
// network and decode latency.
type Cell struct {
	mu sync.Mutex

	snap        Snapshot
	totalFrames uint64
	connected   bool
	state       State
	startedAt   time.Time
}

// NewCell creates an empty cell in StateIdle.
//
// Before the first publish, Snapshot() returns a zero snapshot: nil Frame,
// FrameID 0, zero Timestamp.
func NewCell() *Cell {
	return &Cell{state: StateIdle}
}

// MarkStarted records the start instant used for uptime accounting.
// Called once per Start; a restart resets uptime but never the counters.
func (c *Cell) MarkStarted(now time.Time) {
	c.mu.Lock()
	c.startedAt = now
	c.mu.Unlock()
}

// MarkConnected flips the connection flag on a successful open and moves
// the state to StateStreaming.
//
// Returns true when the open counted as a reconnection: the counter only
// advances if at least one frame was decoded on a prior connection, which
// distinguishes the first connect of the engine's lifetime from a recovery.
func (c *Cell) MarkConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = true
	c.state = StateStreaming

	if c.totalFrames == 0 {
		return false
	}
	c.snap.Reconnects++
	return true
}

// MarkDisconnected flips the connection flag after a connection loss.
// The published snapshot is left intact: callers keep reading the last
// good frame, stale but never corrupted.
func (c *Cell) MarkDisconnected() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

// SetState records the loop state. StateStopped forces the connection
// flag false regardless of how the loop exited.
func (c *Cell) SetState(s State) {
	c.mu.Lock()
	c.state = s
	if s == StateStopped {
		c.connected = false
	}
	c.mu.Unlock()
}

// Publish replaces the slot with a new frame under one critical section:
// frame buffer, FrameID increment, timestamp and the total counter move
// together so readers never see a torn snapshot.
//
// frame must be owned by the caller (a private copy); the cell takes
// ownership and the buffer must not be touched afterwards.
func (c *Cell) Publish(frame []byte, width, height int, traceID string, now time.Time) {
	c.mu.Lock()
	c.snap.Frame = frame
	c.snap.Width = width
	c.snap.Height = height
	c.snap.TraceID = traceID
	c.snap.FrameID++
	c.snap.Timestamp = now
	c.totalFrames++
	c.mu.Unlock()
}

// Snapshot returns the current slot contents.
//
// The returned Frame aliases the published buffer, which is immutable by
// contract, so no copy is needed on the read path.
func (c *Cell) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Stats returns the aggregate counters as of now.
func (c *Cell) Stats(now time.Time) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Stats{
		TotalFrames: c.totalFrames,
		Reconnects:  c.snap.Reconnects,
		Connected:   c.connected,
		State:       c.state,
	}
	if !c.startedAt.IsZero() {
		st.Uptime = now.Sub(c.startedAt)
	}
	if !c.snap.Timestamp.IsZero() {
		st.LastFrameAge = now.Sub(c.snap.Timestamp)
	}
	return st
}
