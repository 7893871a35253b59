package streamingest

import (
	"context"
	"fmt"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/visiona/orion/modules/stream-ingest/internal/gstdec"
)

// NewRTSPStream creates a camera stream backed by the GStreamer RTSP
// decoder, with fail-fast validation.
//
// Validates configuration at construction time (fail-fast principle):
//   - URL must not be empty
//   - Target FPS must be between 0.1 and 30.0
//   - Resolution must be valid (512p, 720p, 1080p)
//   - GStreamer runtime must be available
func NewRTSPStream(cfg Config) (*CameraStream, error) {
	if cfg.TargetFPS < 0.1 || cfg.TargetFPS > 30 {
		return nil, fmt.Errorf(
			"stream-ingest: invalid FPS %.2f (must be 0.1-30)",
			cfg.TargetFPS,
		)
	}

	width, height := cfg.Resolution.Dimensions()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("stream-ingest: invalid resolution %v", cfg.Resolution)
	}

	if err := checkGStreamerAvailable(); err != nil {
		return nil, fmt.Errorf("stream-ingest: GStreamer not available: %w", err)
	}

	return New(cfg, &gstDecoder{
		width:     width,
		height:    height,
		targetFPS: cfg.TargetFPS,
	})
}

// gstDecoder adapts internal/gstdec to the Decoder boundary.
type gstDecoder struct {
	width     int
	height    int
	targetFPS float64
}

func (d *gstDecoder) Open(ctx context.Context, url string, opts OpenOptions) (Source, error) {
	src, err := gstdec.Open(ctx, gstdec.Config{
		URL:        url,
		Width:      d.width,
		Height:     d.height,
		TargetFPS:  d.targetFPS,
		Latency:    opts.Latency,
		TCPTimeout: opts.TCPTimeout,
		DropOnLate: opts.DropOnLate,
	})
	if err != nil {
		return nil, err
	}
	return &gstSource{src: src}, nil
}

// gstSource converts gstdec frames to the engine's Frame type
// (avoids an import cycle by keeping gstdec free of parent types).
type gstSource struct {
	src *gstdec.Source
}

func (s *gstSource) IsOpen() bool { return s.src.IsOpen() }

func (s *gstSource) Read() (Frame, bool) {
	f, ok := s.src.Read()
	if !ok {
		return Frame{}, false
	}
	return Frame{
		Data:    f.Data,
		Width:   f.Width,
		Height:  f.Height,
		TraceID: f.TraceID,
	}, true
}

func (s *gstSource) Close() error { return s.src.Close() }

// checkGStreamerAvailable verifies the GStreamer runtime at construction
// time by creating and discarding a trivial element.
func checkGStreamerAvailable() error {
	gst.Init(nil)

	elem, err := gst.NewElement("fakesrc")
	if err != nil {
		return fmt.Errorf("GStreamer not available or not properly installed: %w", err)
	}
	elem.SetState(gst.StateNull)
	return nil
}
