package streamingest

import "context"

// Stream defines the capability set any ingestion backend exposes and the
// guarantees consumers may rely on regardless of backend.
//
// Implementations must guarantee:
//   - Start() is idempotent and never creates a second concurrent loop
//   - Stop() returns within a bounded time budget, even mid-backoff
//   - GetLatestFrame() and Stats() are wait-free with respect to I/O
//   - All methods are safe to call from any goroutine
type Stream interface {
	// Start spawns the background ingestion loop if it is not already
	// running and returns immediately. Calling Start while the loop is
	// alive is a no-op. Cancelling ctx stops the loop, equivalent to Stop.
	//
	// After the loop terminated on its own (reconnection disabled and the
	// source failed), Start restarts ingestion with a fresh loop; frame and
	// reconnect counters are never reset.
	Start(ctx context.Context) error

	// Stop requests graceful shutdown and waits, bounded by the configured
	// stop timeout, for the loop to exit. Even if the loop fails to exit in
	// time — stuck in a slow transport read, for instance — Stop still
	// force-releases the source it can reach, marks the stream not
	// connected, and returns. Idempotent.
	Stop() error

	// GetLatestFrame returns the freshest published snapshot immediately.
	// It never blocks on network, decode, or disk: it reads the in-memory
	// published state under a short-held lock. Before the first successful
	// decode it returns a zero snapshot (nil Frame, FrameID 0).
	GetLatestFrame() FrameSnapshot

	// Stats returns a consistent aggregate of the connection counters with
	// the same wait-free guarantee as GetLatestFrame.
	Stats() StreamStats
}

// WithStream runs fn with the stream started, guaranteeing Stop on exit:
// the deferred Stop runs even if fn panics, so an exceptional consumer
// cannot leak the transport handle.
//
//	err := streamingest.WithStream(ctx, stream, func(s streamingest.Stream) error {
//	    snap := s.GetLatestFrame()
//	    return process(snap)
//	})
func WithStream(ctx context.Context, s Stream, fn func(Stream) error) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer s.Stop()
	return fn(s)
}
