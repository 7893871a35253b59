package streamingest

import "time"

// FrameSnapshot is an immutable bundle of the latest decoded frame and the
// metadata that identifies it, published atomically by the ingestion loop.
//
// The snapshot a caller receives is never mutated afterwards: the engine
// copies the decoder's buffer before publishing, so the decoder reusing its
// internal buffer on the next read cannot corrupt a frame already handed out.
type FrameSnapshot struct {
	// Frame contains the raw pixel bytes (RGB from the GStreamer backend).
	// Nil until the first successful decode. Read-only by contract.
	Frame []byte
	// Width in pixels (0 until the first decode)
	Width int
	// Height in pixels (0 until the first decode)
	Height int
	// FrameID counts successful decodes: starts at 0, +1 per decoded frame,
	// never reset by reconnects or restarts.
	FrameID uint64
	// Timestamp is the monotonic-clock instant of the last successful decode
	// (time.Now carries a monotonic reading). Zero until the first decode.
	Timestamp time.Time
	// Reconnects at the moment this frame was published. The counter advances
	// only when a connect succeeds after frames were decoded on a prior
	// connection; the first connect of the engine's lifetime does not count.
	Reconnects uint64
	// TraceID is a unique identifier for distributed tracing
	TraceID string
}

// StreamStats is the connection-level metrics view.
type StreamStats struct {
	// Uptime is the time elapsed since Start
	Uptime time.Duration
	// TotalFrames is the count of frames ever successfully decoded
	TotalFrames uint64
	// Reconnects is the number of successful reconnections (first connect excluded)
	Reconnects uint64
	// Connected is true only while a connection is open and presumed healthy
	Connected bool
	// State is the current loop state: idle, connecting, streaming, backoff, stopped
	State string
	// LastFrameAge is the time since the last successful decode (0 if none yet)
	LastFrameAge time.Duration
}

// Resolution represents supported video resolutions
type Resolution int

const (
	// Res512p represents 910x512 resolution
	Res512p Resolution = iota
	// Res720p represents 1280x720 resolution (HD)
	Res720p
	// Res1080p represents 1920x1080 resolution (Full HD)
	Res1080p
)

// Dimensions returns the width and height for the resolution
func (r Resolution) Dimensions() (width, height int) {
	switch r {
	case Res512p:
		return 910, 512
	case Res720p:
		return 1280, 720
	case Res1080p:
		return 1920, 1080
	default:
		// Safe default: 720p
		return 1280, 720
	}
}

// String returns a human-readable string representation of the resolution
func (r Resolution) String() string {
	switch r {
	case Res512p:
		return "512p"
	case Res720p:
		return "720p"
	case Res1080p:
		return "1080p"
	default:
		return "720p"
	}
}

// Config contains construction-time configuration for a camera stream.
//
// Only URL is required. Zero values for the remaining duration fields select
// the documented defaults at construction time.
type Config struct {
	// URL is the stream source address (required), e.g. rtsp://host/stream
	URL string
	// Resolution is the target video resolution (GStreamer backend only)
	Resolution Resolution
	// TargetFPS is the target frames per second, 0.1-30.0 (GStreamer backend only)
	TargetFPS float64
	// SourceStream identifies the stream in logs (e.g., "LQ", "HQ")
	SourceStream string
	// Reconnect enables automatic reconnection with exponential backoff.
	// When false, the first open or read failure permanently stops the loop.
	Reconnect bool
	// ReconnectInitialDelay is the backoff floor (default: 1 second)
	ReconnectInitialDelay time.Duration
	// ReconnectMaxDelay is the backoff ceiling (default: 16 seconds)
	ReconnectMaxDelay time.Duration
	// StopTimeout bounds how long Stop waits for the loop to exit before
	// force-releasing the source and returning (default: 5 seconds)
	StopTimeout time.Duration
}
