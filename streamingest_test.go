package streamingest_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	streamingest "github.com/visiona/orion/modules/stream-ingest"
)

// TestCalculateFPSStats tests FPS statistics calculation (math only, no decoder)
func TestCalculateFPSStats(t *testing.T) {
	tests := []struct {
		name          string
		frameTimes    []time.Time
		totalDuration time.Duration
		wantFrames    int
		wantFPSMean   float64
		wantStable    bool
		epsilon       float64
	}{
		{
			name:          "no frames",
			frameTimes:    nil,
			totalDuration: time.Second,
			wantFrames:    0,
			wantFPSMean:   0,
			wantStable:    false,
			epsilon:       0.001,
		},
		{
			name: "single frame",
			frameTimes: []time.Time{
				time.Unix(0, 0),
			},
			totalDuration: time.Second,
			wantFrames:    1,
			wantFPSMean:   1.0,
			wantStable:    false, // not enough data
			epsilon:       0.001,
		},
		{
			name: "metronome 1 Hz over long window is stable",
			frameTimes: []time.Time{
				time.Unix(0, 0), time.Unix(1, 0), time.Unix(2, 0),
				time.Unix(3, 0), time.Unix(4, 0), time.Unix(5, 0),
				time.Unix(6, 0), time.Unix(7, 0), time.Unix(8, 0),
				time.Unix(9, 0),
			},
			totalDuration: 9 * time.Second,
			wantFrames:    10,
			wantFPSMean:   1.111, // 10 frames / 9s
			wantStable:    true,  // stddev 10% of mean, jitter 11% of interval
			epsilon:       0.01,
		},
		{
			name: "short 2 Hz burst",
			frameTimes: []time.Time{
				time.Unix(0, 0),
				time.Unix(0, 500*1000*1000),
				time.Unix(0, 1000*1000*1000),
				time.Unix(0, 1500*1000*1000),
			},
			totalDuration: 1500 * time.Millisecond,
			wantFrames:    4,
			wantFPSMean:   2.666, // 4 frames / 1.5s
			wantStable:    false, // small sample skews stddev past threshold
			epsilon:       0.01,
		},
		{
			name: "irregular intervals",
			frameTimes: []time.Time{
				time.Unix(0, 0),
				time.Unix(0, 100*1000*1000),  // 100ms gap
				time.Unix(0, 1000*1000*1000), // 900ms gap
				time.Unix(0, 1200*1000*1000), // 200ms gap
			},
			totalDuration: 1200 * time.Millisecond,
			wantFrames:    4,
			wantFPSMean:   3.333, // 4 frames / 1.2s
			wantStable:    false, // high variance
			epsilon:       0.01,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := streamingest.CalculateFPSStats(tt.frameTimes, tt.totalDuration)

			if stats.FramesReceived != tt.wantFrames {
				t.Errorf("FramesReceived = %d, want %d", stats.FramesReceived, tt.wantFrames)
			}
			if !almostEqual(stats.FPSMean, tt.wantFPSMean, tt.epsilon) {
				t.Errorf("FPSMean = %.3f, want %.3f (±%.3f)", stats.FPSMean, tt.wantFPSMean, tt.epsilon)
			}
			if stats.IsStable != tt.wantStable {
				t.Errorf("IsStable = %v, want %v (FPSMean=%.2f, StdDev=%.2f, JitterMean=%.3f)",
					stats.IsStable, tt.wantStable, stats.FPSMean, stats.FPSStdDev, stats.JitterMean)
			}
		})
	}
}

func almostEqual(a, b, epsilon float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < epsilon
}

// Example functions for godoc (appear in pkg.go.dev)

// ExampleNewRTSPStream demonstrates basic stream creation and validation.
func ExampleNewRTSPStream() {
	cfg := streamingest.Config{
		URL:          "rtsp://192.168.1.100/stream",
		Resolution:   streamingest.Res720p,
		TargetFPS:    2.0,
		SourceStream: "camera-1",
		Reconnect:    true,
	}

	stream, err := streamingest.NewRTSPStream(cfg)
	if err != nil {
		// Handle error (e.g., GStreamer not available, invalid config)
		return
	}

	// Stream created successfully
	_ = stream
}

// ExampleCameraStream_GetLatestFrame demonstrates the wait-free read path.
//
// Note: This example requires a real RTSP stream to execute.
func ExampleCameraStream_GetLatestFrame() {
	// cfg := streamingest.Config{
	// 	URL:        "rtsp://camera/stream",
	// 	Resolution: streamingest.Res720p,
	// 	TargetFPS:  2.0,
	// 	Reconnect:  true,
	// }
	//
	// stream, _ := streamingest.NewRTSPStream(cfg)
	// stream.Start(context.Background())
	// defer stream.Stop()
	//
	// // Poll at the consumer's own pace; never blocks on the network
	// for range time.Tick(time.Second) {
	// 	snap := stream.GetLatestFrame()
	// 	if snap.Frame == nil {
	// 		continue // nothing decoded yet
	// 	}
	// 	log.Printf("frame %d: %dx%d, %d bytes",
	// 		snap.FrameID, snap.Width, snap.Height, len(snap.Frame))
	// }
}

// ExampleWithStream demonstrates scoped acquisition with guaranteed Stop.
func ExampleWithStream() {
	var stream streamingest.Stream // e.g. from NewRTSPStream
	if stream == nil {
		return
	}

	err := streamingest.WithStream(context.Background(), stream, func(s streamingest.Stream) error {
		snap := s.GetLatestFrame()
		fmt.Printf("latest frame: %d\n", snap.FrameID)
		return nil
	})
	_ = err // stream is stopped here, even if the body returned an error
}

// ExampleResolution_Dimensions demonstrates resolution dimension lookup.
func ExampleResolution_Dimensions() {
	width, height := streamingest.Res720p.Dimensions()
	fmt.Printf("%d %d\n", width, height)
	// Output: 1280 720
}

// ExampleResolution_String demonstrates resolution string representation.
func ExampleResolution_String() {
	fmt.Println(streamingest.Res720p.String())
	fmt.Println(streamingest.Res1080p.String())
	// Output: 720p
	// 1080p
}
