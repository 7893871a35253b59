// Package gstdec implements the decoding collaborator boundary on top of
// GStreamer: it opens an RTSP address as a pipeline ending in an appsink
// and hands decoded RGB frames to the caller one at a time.
//
// This package is INTERNAL - clients MUST use the public API in the parent
// package, which wraps a Source behind the engine's Decoder interface.
package gstdec

import (
	"fmt"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// Config carries everything needed to open one RTSP connection.
type Config struct {
	URL       string
	Width     int
	Height    int
	TargetFPS float64

	// Latency-oriented open options, applied before the connection is made
	Latency    time.Duration // rtspsrc jitter buffer depth
	TCPTimeout time.Duration // transport-level read timeout
	DropOnLate bool          // appsink keeps only the newest frame

	// ReadTimeout bounds Source.Read when no frame arrives (default: 10s)
	ReadTimeout time.Duration
}

// elements holds the pipeline parts the source needs after construction.
type elements struct {
	pipeline *gst.Pipeline
	rtspsrc  *gst.Element
	sink     *app.Sink
}

// buildPipeline creates and links the decoding pipeline:
//
//	rtspsrc → rtph264depay → avdec_h264 → videoconvert → videoscale →
//	videorate → capsfilter → appsink
//
// The pipeline is configured but NOT started (state remains NULL).
// rtspsrc has dynamic pads, linked in the pad-added callback once the
// stream is negotiated.
func buildPipeline(cfg Config) (*elements, error) {
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("gstdec: failed to create pipeline: %w", err)
	}

	rtspsrc, err := gst.NewElement("rtspsrc")
	if err != nil {
		return nil, fmt.Errorf("gstdec: failed to create rtspsrc: %w", err)
	}
	rtspsrc.SetProperty("location", cfg.URL)
	rtspsrc.SetProperty("protocols", 4) // TCP only, interleaved RTP
	rtspsrc.SetProperty("latency", int(cfg.Latency / time.Millisecond))
	rtspsrc.SetProperty("ntp-sync", false)
	if cfg.TCPTimeout > 0 {
		rtspsrc.SetProperty("tcp-timeout", uint64(cfg.TCPTimeout/time.Microsecond))
	}

	depay, err := gst.NewElement("rtph264depay")
	if err != nil {
		return nil, fmt.Errorf("gstdec: failed to create rtph264depay: %w", err)
	}
	// Request keyframes on packet loss for faster recovery
	depay.SetProperty("request-keyframe", true)

	decoder, err := gst.NewElement("avdec_h264")
	if err != nil {
		return nil, fmt.Errorf("gstdec: failed to create avdec_h264: %w", err)
	}
	decoder.SetProperty("max-threads", 0) // auto-detect cores
	decoder.SetProperty("output-corrupt", false)

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("gstdec: failed to create videoconvert: %w", err)
	}
	converter.SetProperty("n-threads", 0)

	scaler, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("gstdec: failed to create videoscale: %w", err)
	}

	videorate, err := gst.NewElement("videorate")
	if err != nil {
		return nil, fmt.Errorf("gstdec: failed to create videorate: %w", err)
	}
	videorate.SetProperty("drop-only", true) // only drop frames, never duplicate
	videorate.SetProperty("skip-to-first", true)

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("gstdec: failed to create capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString(
		buildFramerateCaps(cfg.Width, cfg.Height, cfg.TargetFPS),
	))

	sink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("gstdec: failed to create appsink: %w", err)
	}
	sink.SetProperty("sync", false)      // no clock sync, real-time
	sink.SetProperty("max-buffers", 1)   // keep only the latest frame
	sink.SetProperty("drop", cfg.DropOnLate)
	sink.SetProperty("qos", true) // upstream drop notifications, pre-decode

	pipeline.AddMany(
		rtspsrc,
		depay,
		decoder,
		converter,
		scaler,
		videorate,
		capsfilter,
		sink.Element,
	)

	if err := gst.ElementLinkMany(
		depay,
		decoder,
		converter,
		scaler,
		videorate,
		capsfilter,
		sink.Element,
	); err != nil {
		return nil, fmt.Errorf("gstdec: failed to link pipeline elements: %w", err)
	}

	// rtspsrc pads appear only after RTSP negotiation
	rtspsrc.Connect("pad-added", func(self *gst.Element, srcPad *gst.Pad) {
		linkDynamicPad(srcPad, depay)
	})

	return &elements{pipeline: pipeline, rtspsrc: rtspsrc, sink: sink}, nil
}

// linkDynamicPad links a freshly negotiated rtspsrc pad into the depayloader.
func linkDynamicPad(srcPad *gst.Pad, depay *gst.Element) {
	sinkPad := depay.GetStaticPad("sink")
	if sinkPad == nil {
		return
	}
	srcPad.Link(sinkPad)
}

// buildFramerateCaps builds the caps string locking format, resolution and
// framerate. Fractional rates below 1 Hz map to 1/N.
func buildFramerateCaps(width, height int, fps float64) string {
	numerator, denominator := 1, 1
	if fps >= 1.0 {
		numerator = int(fps)
	} else if fps > 0 {
		denominator = int(1.0 / fps)
	}
	return fmt.Sprintf(
		"video/x-raw,format=RGB,width=%d,height=%d,framerate=%d/%d",
		width, height, numerator, denominator,
	)
}
