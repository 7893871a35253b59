// Package warmup computes FPS stability statistics from observed frame
// timestamps. Used to verify a stream is healthy before consumers rely on
// its frame rate.
package warmup

import (
	"math"
	"time"
)

const (
	// fpsStabilityThreshold: stable if the stddev of instantaneous FPS is
	// below 15% of the mean FPS.
	fpsStabilityThreshold = 0.15

	// jitterStabilityThreshold: stable if mean jitter is below 20% of the
	// expected inter-frame interval.
	jitterStabilityThreshold = 0.20
)

// Stats holds the FPS measurements collected over a warmup window.
type Stats struct {
	FramesReceived int
	Duration       time.Duration
	FPSMean        float64
	FPSStdDev      float64
	FPSMin         float64
	FPSMax         float64
	JitterMean     float64
	JitterStdDev   float64
	JitterMax      float64
	IsStable       bool
}

// Calculate derives FPS statistics from frame arrival timestamps.
//
// FPSMean is the overall rate (frames / duration); min, max and stddev are
// computed over the instantaneous per-interval rates. Jitter is the absolute
// deviation of each interval from the expected interval. A stream counts as
// stable when both the FPS stddev and the mean jitter are under their
// thresholds.
func Calculate(frameTimes []time.Time, totalDuration time.Duration) *Stats {
	n := len(frameTimes)
	stats := &Stats{FramesReceived: n, Duration: totalDuration}
	if n == 0 {
		return stats
	}

	stats.FPSMean = float64(n) / totalDuration.Seconds()

	instantaneous := make([]float64, 0, n-1)
	intervals := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		interval := frameTimes[i].Sub(frameTimes[i-1]).Seconds()
		if interval > 0 {
			instantaneous = append(instantaneous, 1.0/interval)
			intervals = append(intervals, interval)
		}
	}
	if len(instantaneous) == 0 {
		return stats
	}

	stats.FPSMin = instantaneous[0]
	stats.FPSMax = instantaneous[0]
	var sumSquares float64
	for _, fps := range instantaneous {
		if fps < stats.FPSMin {
			stats.FPSMin = fps
		}
		if fps > stats.FPSMax {
			stats.FPSMax = fps
		}
		diff := fps - stats.FPSMean
		sumSquares += diff * diff
	}
	stats.FPSStdDev = math.Sqrt(sumSquares / float64(len(instantaneous)))

	expectedInterval := 1.0 / stats.FPSMean
	var jitterSum float64
	jitters := make([]float64, 0, len(intervals))
	for _, interval := range intervals {
		j := math.Abs(interval - expectedInterval)
		jitters = append(jitters, j)
		jitterSum += j
		if j > stats.JitterMax {
			stats.JitterMax = j
		}
	}
	stats.JitterMean = jitterSum / float64(len(jitters))

	var jitterSumSquares float64
	for _, j := range jitters {
		diff := j - stats.JitterMean
		jitterSumSquares += diff * diff
	}
	stats.JitterStdDev = math.Sqrt(jitterSumSquares / float64(len(jitters)))

	fpsStable := stats.FPSStdDev < stats.FPSMean*fpsStabilityThreshold
	jitterStable := stats.JitterMean < expectedInterval*jitterStabilityThreshold
	stats.IsStable = fpsStable && jitterStable

	return stats
}
