package ingest

// State identifies where the ingestion loop is in its
// connect / read / backoff cycle.
type State int

const (
	// StateIdle means the loop has not been started yet.
	StateIdle State = iota
	// StateConnecting means the loop is attempting to open the source.
	StateConnecting
	// StateStreaming means the source is open and frames are being decoded.
	StateStreaming
	// StateBackoff means the loop is sleeping before the next connect attempt.
	StateBackoff
	// StateStopped is terminal: the loop has exited.
	StateStopped
)

// String returns a human-readable state name for logs and stats.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateBackoff:
		return "backoff"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
