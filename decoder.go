package streamingest

import (
	"context"
	"time"
)

// OpenOptions tune latency-oriented behavior of the decoding backend. The
// engine applies them on every open attempt, before the source is created,
// never per-frame. They are backend-specific knobs: a backend is free to
// ignore options it has no equivalent for.
type OpenOptions struct {
	// Latency is the jitter buffer depth (0 means the backend minimum)
	Latency time.Duration
	// TCPTimeout bounds transport-level reads during open and streaming
	TCPTimeout time.Duration
	// DropOnLate asks the backend to keep only the newest decoded frame
	// instead of queueing, trading completeness for freshness
	DropOnLate bool
}

// Frame is one decoded frame as handed over by a Source.
//
// Data MAY alias a buffer the decoder reuses on its next Read call. The
// ingestion engine copies it before publishing; any other consumer of this
// boundary must do the same.
type Frame struct {
	Data    []byte
	Width   int
	Height  int
	TraceID string
}

// Decoder is the opaque decoding collaborator boundary: it turns a source
// address into a Source of decoded frames. Transport specifics (RTSP, RTP,
// depayloading, codec) live entirely behind this interface.
type Decoder interface {
	// Open attempts to establish a connection and set up decoding for url.
	// The context bounds the attempt; opts carry latency tuning applied
	// before the connection is made.
	Open(ctx context.Context, url string, opts OpenOptions) (Source, error)
}

// Source is one open connection. It is exclusively owned by the ingestion
// loop, with a single exception: Stop may Close it concurrently to unblock
// a stuck Read, so implementations must tolerate Close racing Read.
type Source interface {
	// IsOpen reports whether the connection is still presumed healthy.
	IsOpen() bool
	// Read blocks until the next frame is decoded and returns it, or
	// returns ok=false on any failure (closed transport, decode error,
	// end of stream). Failures are uniform by design: the engine retries
	// them all identically.
	Read() (frame Frame, ok bool)
	// Close releases the connection. Safe to call more than once and
	// concurrently with Read.
	Close() error
}
