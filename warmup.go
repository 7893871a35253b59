package streamingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/visiona/orion/modules/stream-ingest/internal/warmup"
)

// WarmupStats contains statistics collected during the stream warm-up phase.
type WarmupStats struct {
	// FramesReceived is the number of new frames observed during warm-up
	FramesReceived int
	// Duration is the actual warm-up duration
	Duration time.Duration
	// FPSMean is the mean FPS across all frames
	FPSMean float64
	// FPSStdDev is the standard deviation of instantaneous FPS
	FPSStdDev float64
	// FPSMin is the minimum instantaneous FPS
	FPSMin float64
	// FPSMax is the maximum instantaneous FPS
	FPSMax float64
	// JitterMean is the mean deviation from the expected frame interval (seconds)
	JitterMean float64
	// JitterStdDev is the standard deviation of the jitter (seconds)
	JitterStdDev float64
	// JitterMax is the worst observed jitter (seconds)
	JitterMax float64
	// IsStable is true if FPS stddev < 15% of mean and jitter < 20% of interval
	IsStable bool
}

// CalculateFPSStats calculates FPS statistics from frame timestamps.
//
// Public wrapper around internal/warmup; the canonical implementation lives
// there so the warmup poller and any external caller share one definition
// of stability.
func CalculateFPSStats(frameTimes []time.Time, totalDuration time.Duration) *WarmupStats {
	st := warmup.Calculate(frameTimes, totalDuration)
	return &WarmupStats{
		FramesReceived: st.FramesReceived,
		Duration:       st.Duration,
		FPSMean:        st.FPSMean,
		FPSStdDev:      st.FPSStdDev,
		FPSMin:         st.FPSMin,
		FPSMax:         st.FPSMax,
		JitterMean:     st.JitterMean,
		JitterStdDev:   st.JitterStdDev,
		JitterMax:      st.JitterMax,
		IsStable:       st.IsStable,
	}
}

// warmupPollInterval is how often Warmup samples the latest-frame slot for
// a new FrameID. Well under any sane inter-frame interval, so no frame
// transition is missed at ≤30 FPS.
const warmupPollInterval = 10 * time.Millisecond

// Warmup measures stream FPS stability over the given duration.
//
// It samples GetLatestFrame and records the decode timestamp each time the
// FrameID advances, then derives FPS and jitter statistics. Call it after
// Start, before consumers begin to rely on the stream's frame rate.
//
// The method blocks for the entire duration. Returns an error if:
//   - the stream is not running
//   - fewer than 2 new frames were observed
//   - the measured FPS is unstable
//   - ctx is cancelled
func (s *CameraStream) Warmup(ctx context.Context, duration time.Duration) (*WarmupStats, error) {
	s.mu.Lock()
	running := s.cancel != nil
	s.mu.Unlock()
	if !running {
		return nil, fmt.Errorf("stream-ingest: stream not started")
	}

	slog.Info("stream-ingest: starting warmup", "duration", duration)

	startTime := time.Now()
	frameTimes := make([]time.Time, 0, 128)
	lastID := s.GetLatestFrame().FrameID

	warmupCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	ticker := time.NewTicker(warmupPollInterval)
	defer ticker.Stop()

poll:
	for {
		select {
		case <-warmupCtx.Done():
			if ctx.Err() != nil {
				return nil, fmt.Errorf("stream-ingest: warmup cancelled: %w", ctx.Err())
			}
			break poll
		case <-ticker.C:
			snap := s.GetLatestFrame()
			if snap.FrameID != lastID {
				lastID = snap.FrameID
				frameTimes = append(frameTimes, snap.Timestamp)
			}
		}
	}

	elapsed := time.Since(startTime)
	if len(frameTimes) < 2 {
		return nil, fmt.Errorf(
			"stream-ingest: not enough frames received during warmup (got %d, need at least 2)",
			len(frameTimes),
		)
	}

	stats := CalculateFPSStats(frameTimes, elapsed)

	slog.Info("stream-ingest: warmup complete",
		"frames", stats.FramesReceived,
		"duration", stats.Duration,
		"fps_mean", fmt.Sprintf("%.2f", stats.FPSMean),
		"fps_stddev", fmt.Sprintf("%.2f", stats.FPSStdDev),
		"fps_range", fmt.Sprintf("%.1f-%.1f", stats.FPSMin, stats.FPSMax),
		"stable", stats.IsStable,
	)

	// An unstable stream indicates network issues, camera problems, or
	// pipeline misconfiguration; surface it before production use.
	if !stats.IsStable {
		return nil, fmt.Errorf(
			"stream-ingest: warmup failed - stream FPS unstable (mean=%.2f Hz, stddev=%.2f)",
			stats.FPSMean, stats.FPSStdDev,
		)
	}

	return stats, nil
}
