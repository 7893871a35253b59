package streamingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/visiona/orion/modules/stream-ingest/internal/ingest"
)

// CameraStream implements Stream: a background goroutine runs the
// connect / read / backoff state machine against a Decoder, and a locked
// publisher cell holds the latest frame snapshot and running counters.
//
// Goroutine topology:
//   - 1 per running stream: readLoop (spawned by Start, exits on Stop,
//     context cancellation, or a terminal failure with Reconnect disabled)
//   - N external: reader goroutines calling GetLatestFrame/Stats (not
//     managed by the stream)
//
// The loop owns the open Source exclusively. Stop is the single exception:
// it may Close the source concurrently to unblock a stuck Read.
type CameraStream struct {
	url          string
	sourceStream string
	reconnect    bool
	backoffCfg   ingest.BackoffConfig
	stopTimeout  time.Duration
	opts         OpenOptions
	dec          Decoder

	// Lifecycle (guarded by mu)
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// Open source handover between loop and Stop (guarded by srcMu,
	// never held across an I/O call)
	srcMu sync.Mutex
	src   Source

	cell *ingest.Cell
}

var _ Stream = (*CameraStream)(nil)

// defaultStopTimeout bounds Stop's wait for loop exit.
const defaultStopTimeout = 5 * time.Second

// New creates a camera stream over an arbitrary decoding backend with
// fail-fast validation.
//
// Validates at construction time:
//   - URL must not be empty
//   - decoder must not be nil
//   - backoff delays, when set, must be positive and ordered
//
// Zero duration fields select defaults: 1s backoff floor, 16s ceiling,
// 5s stop timeout.
func New(cfg Config, dec Decoder) (*CameraStream, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("stream-ingest: source URL is required")
	}
	if dec == nil {
		return nil, fmt.Errorf("stream-ingest: decoder is required")
	}

	backoffCfg := ingest.DefaultBackoffConfig()
	if cfg.ReconnectInitialDelay > 0 {
		backoffCfg.InitialDelay = cfg.ReconnectInitialDelay
	}
	if cfg.ReconnectMaxDelay > 0 {
		backoffCfg.MaxDelay = cfg.ReconnectMaxDelay
	}
	if backoffCfg.MaxDelay < backoffCfg.InitialDelay {
		return nil, fmt.Errorf(
			"stream-ingest: backoff ceiling %v below floor %v",
			backoffCfg.MaxDelay, backoffCfg.InitialDelay,
		)
	}

	stopTimeout := cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}

	s := &CameraStream{
		url:          cfg.URL,
		sourceStream: cfg.SourceStream,
		reconnect:    cfg.Reconnect,
		backoffCfg:   backoffCfg,
		stopTimeout:  stopTimeout,
		opts: OpenOptions{
			Latency:    50 * time.Millisecond,
			TCPTimeout: 10 * time.Second,
			DropOnLate: true,
		},
		dec:  dec,
		cell: ingest.NewCell(),
	}

	slog.Info("stream-ingest: camera stream created",
		"url", cfg.URL,
		"source_stream", cfg.SourceStream,
		"reconnect", cfg.Reconnect,
		"backoff_floor", backoffCfg.InitialDelay,
		"backoff_ceiling", backoffCfg.MaxDelay,
	)

	return s, nil
}

// Start spawns the ingestion loop if it is not already running.
//
// Idempotent: a second Start while the loop is alive is a no-op, observable
// as no duplicated frame counters and no double-open of the source. After
// the loop terminated on its own (Reconnect disabled and the source failed),
// Start restarts ingestion; the frame and reconnect counters carry over.
func (s *CameraStream) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		select {
		case <-s.done:
			// Previous loop exited; fall through and restart.
		default:
			return nil
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.cell.MarkStarted(time.Now())

	slog.Info("stream-ingest: starting ingestion loop",
		"url", s.url,
		"source_stream", s.sourceStream,
		"reconnect", s.reconnect,
	)

	go s.readLoop(loopCtx, done)
	return nil
}

// Stop signals cancellation and waits, bounded by the stop timeout, for the
// loop to exit. If the loop fails to exit in time, Stop still force-releases
// the source and marks the stream not connected before returning — it never
// blocks the caller indefinitely. Idempotent.
func (s *CameraStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		slog.Debug("stream-ingest: stream not started, nothing to stop")
		return nil
	}

	slog.Info("stream-ingest: stopping ingestion loop", "url", s.url)
	s.cancel()

	select {
	case <-s.done:
		slog.Debug("stream-ingest: loop exited cleanly")
	case <-time.After(s.stopTimeout):
		slog.Warn("stream-ingest: stop timeout exceeded, force-releasing source",
			"timeout", s.stopTimeout,
		)
	}

	// Force-release whatever handle is reachable, even if the loop is
	// still stuck in a read. Closing the source unblocks it.
	s.releaseSource()
	s.cell.SetState(ingest.StateStopped)
	s.cancel = nil

	st := s.cell.Stats(time.Now())
	slog.Info("stream-ingest: ingestion loop stopped",
		"total_frames", st.TotalFrames,
		"reconnects", st.Reconnects,
		"uptime", st.Uptime,
	)
	return nil
}

// GetLatestFrame returns the freshest published snapshot immediately.
//
// Wait-free with respect to I/O: it only reads the publisher cell under a
// short-held lock. During an outage it keeps returning the last good
// snapshot, stale but never corrupted.
func (s *CameraStream) GetLatestFrame() FrameSnapshot {
	snap := s.cell.Snapshot()
	return FrameSnapshot{
		Frame:      snap.Frame,
		Width:      snap.Width,
		Height:     snap.Height,
		FrameID:    snap.FrameID,
		Timestamp:  snap.Timestamp,
		Reconnects: snap.Reconnects,
		TraceID:    snap.TraceID,
	}
}

// Stats returns the current connection counters with the same wait-free
// guarantee as GetLatestFrame.
func (s *CameraStream) Stats() StreamStats {
	st := s.cell.Stats(time.Now())
	return StreamStats{
		Uptime:       st.Uptime,
		TotalFrames:  st.TotalFrames,
		Reconnects:   st.Reconnects,
		Connected:    st.Connected,
		State:        st.State.String(),
		LastFrameAge: st.LastFrameAge,
	}
}

// readLoop runs the connect → read → publish → backoff state machine until
// the context is cancelled or, with reconnection disabled, the source fails.
//
// Failures never propagate to callers: every open or read failure collapses
// into the same transient-connectivity path, visible only as Connected
// flipping false while GetLatestFrame keeps serving the last good snapshot.
func (s *CameraStream) readLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		s.releaseSource()
		s.cell.SetState(ingest.StateStopped)
		slog.Debug("stream-ingest: ingestion loop exited", "url", s.url)
	}()

	bo := ingest.NewBackoff(s.backoffCfg)
	state := ingest.StateConnecting

	for ctx.Err() == nil {
		switch state {
		case ingest.StateConnecting:
			s.cell.SetState(ingest.StateConnecting)

			// Latency options are applied on every attempt, before the
			// connection is made, never per-frame.
			src, err := s.dec.Open(ctx, s.url, s.opts)
			if err != nil {
				slog.Warn("stream-ingest: open failed",
					"url", s.url,
					"error", err,
				)
				if !s.reconnect {
					return
				}
				state = ingest.StateBackoff
				continue
			}

			s.storeSource(src)
			if s.cell.MarkConnected() {
				slog.Info("stream-ingest: reconnected", "url", s.url)
			} else {
				slog.Info("stream-ingest: connected", "url", s.url)
			}
			bo.Reset()
			state = ingest.StateStreaming

		case ingest.StateStreaming:
			frame, ok := s.readFrame()
			if !ok {
				slog.Warn("stream-ingest: stream lost", "url", s.url)
				s.releaseSource()
				s.cell.MarkDisconnected()
				if !s.reconnect {
					return
				}
				state = ingest.StateBackoff
				continue
			}

			// Take ownership before publishing: the decoder may reuse its
			// buffer on the next read.
			owned := make([]byte, len(frame.Data))
			copy(owned, frame.Data)
			s.cell.Publish(owned, frame.Width, frame.Height, frame.TraceID, time.Now())

		case ingest.StateBackoff:
			s.cell.SetState(ingest.StateBackoff)
			delay := bo.Next()
			slog.Debug("stream-ingest: backing off before reconnect",
				"url", s.url,
				"delay", delay,
			)
			if !ingest.Sleep(ctx, delay) {
				return
			}
			state = ingest.StateConnecting
		}
	}
}

// readFrame reads one frame from the current source. The source pointer is
// loaded under srcMu but the blocking Read happens outside the lock, so
// Stop can always reach releaseSource.
func (s *CameraStream) readFrame() (Frame, bool) {
	s.srcMu.Lock()
	src := s.src
	s.srcMu.Unlock()

	if src == nil || !src.IsOpen() {
		return Frame{}, false
	}
	return src.Read()
}

func (s *CameraStream) storeSource(src Source) {
	s.srcMu.Lock()
	s.src = src
	s.srcMu.Unlock()
}

// releaseSource closes and clears the current source, if any. Called by the
// loop on stream loss and exit, and by Stop as a force-release.
func (s *CameraStream) releaseSource() {
	s.srcMu.Lock()
	src := s.src
	s.src = nil
	s.srcMu.Unlock()

	if src != nil {
		if err := src.Close(); err != nil {
			slog.Debug("stream-ingest: source close failed", "error", err)
		}
	}
}
