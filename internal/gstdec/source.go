package gstdec

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// Frame is one decoded RGB frame handed to the caller.
//
// Data is a private copy taken when the sample left the appsink (GStreamer
// reuses its buffers), so it stays valid after the next decode.
type Frame struct {
	Data    []byte
	Width   int
	Height  int
	TraceID string
}

const (
	defaultReadTimeout = 10 * time.Second
	busPollInterval    = 50 * time.Millisecond
)

// Source is one open RTSP connection: a playing pipeline plus the goroutine
// watching its bus. Read hands out frames one at a time; any pipeline error
// or EOS marks the source broken and Read starts failing.
type Source struct {
	cfg Config
	el  *elements

	frames chan Frame    // capacity 1, newest frame wins
	broken chan struct{} // closed on pipeline error, EOS, or Close

	brokenOnce sync.Once
	closeOnce  sync.Once
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// Open establishes a connection for cfg.URL: builds the pipeline, starts it,
// and waits until it reaches PLAYING or fails. The latency options in cfg
// are applied during pipeline construction, before the connection is made.
//
// The ctx bounds the open attempt only; the returned Source outlives it.
func Open(ctx context.Context, cfg Config) (*Source, error) {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}

	el, err := buildPipeline(cfg)
	if err != nil {
		return nil, err
	}

	s := &Source{
		cfg:    cfg,
		el:     el,
		frames: make(chan Frame, 1),
		broken: make(chan struct{}),
	}

	el.sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: s.onNewSample,
	})

	if err := el.pipeline.SetState(gst.StatePlaying); err != nil {
		el.pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("gstdec: failed to start pipeline: %w", err)
	}

	if err := s.waitPlaying(ctx); err != nil {
		el.pipeline.SetState(gst.StateNull)
		return nil, err
	}

	monitorCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.monitorBus(monitorCtx)

	slog.Info("gstdec: pipeline playing",
		"url", cfg.URL,
		"resolution", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"target_fps", cfg.TargetFPS,
		"latency", cfg.Latency,
	)
	return s, nil
}

// IsOpen reports whether the pipeline is still presumed healthy.
func (s *Source) IsOpen() bool {
	select {
	case <-s.broken:
		return false
	default:
		return true
	}
}

// Read blocks until the next decoded frame arrives, the source breaks, or
// the read timeout expires. All three failure shapes return ok=false: the
// caller retries them identically.
func (s *Source) Read() (Frame, bool) {
	timer := time.NewTimer(s.cfg.ReadTimeout)
	defer timer.Stop()

	select {
	case f := <-s.frames:
		return f, true
	case <-s.broken:
		return Frame{}, false
	case <-timer.C:
		slog.Warn("gstdec: no frame within read timeout",
			"url", s.cfg.URL,
			"timeout", s.cfg.ReadTimeout,
		)
		return Frame{}, false
	}
}

// Close tears the pipeline down. Safe to call more than once and
// concurrently with Read: marking the source broken unblocks any reader.
func (s *Source) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.markBroken()
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		if stateErr := s.el.pipeline.SetState(gst.StateNull); stateErr != nil {
			err = fmt.Errorf("gstdec: failed to stop pipeline: %w", stateErr)
		}
		slog.Debug("gstdec: pipeline released", "url", s.cfg.URL)
	})
	return err
}

func (s *Source) markBroken() {
	s.brokenOnce.Do(func() { close(s.broken) })
}

// onNewSample is called by GStreamer when a decoded frame reaches the
// appsink. The buffer is copied out (GStreamer reuses it) and offered to
// the reader with newest-wins semantics: an unconsumed older frame is
// discarded rather than queued.
func (s *Source) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		// A single bad sample should not kill the stream
		slog.Warn("gstdec: failed to pull sample, skipping frame")
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("gstdec: sample without buffer, skipping frame")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		slog.Warn("gstdec: empty buffer received")
		return gst.FlowOK
	}

	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	frame := Frame{
		Data:    frameData,
		Width:   s.cfg.Width,
		Height:  s.cfg.Height,
		TraceID: uuid.New().String(),
	}

	select {
	case s.frames <- frame:
	default:
		// Reader is behind: drop the stale frame, keep the new one
		select {
		case <-s.frames:
		default:
		}
		select {
		case s.frames <- frame:
		default:
		}
	}

	return gst.FlowOK
}

// waitPlaying polls the bus until the pipeline reaches PLAYING, an error
// arrives, the ctx is cancelled, or the transport timeout expires.
func (s *Source) waitPlaying(ctx context.Context) error {
	bus := s.el.pipeline.GetPipelineBus()

	budget := s.cfg.TCPTimeout
	if budget <= 0 {
		budget = defaultReadTimeout
	}
	deadline := time.Now().Add(budget)

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("gstdec: open cancelled: %w", err)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("gstdec: pipeline did not reach PLAYING within %v", budget)
		}

		msg := bus.TimedPop(busPollInterval)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageError:
			gerr := msg.ParseError()
			category := Classify(gerr)
			slog.Warn("gstdec: open failed",
				"url", s.cfg.URL,
				"category", category.String(),
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
			)
			return fmt.Errorf("gstdec: open failed [%s]: %s", category.String(), gerr.Error())

		case gst.MessageEOS:
			return fmt.Errorf("gstdec: end of stream before PLAYING")

		case gst.MessageStateChanged:
			if msg.Source() != s.el.pipeline.GetName() {
				continue
			}
			_, newState := msg.ParseStateChanged()
			if newState == gst.StatePlaying {
				return nil
			}
		}
	}
}

// monitorBus watches the pipeline bus after a successful open. Any error or
// EOS marks the source broken; the engine observes it as a failed Read and
// folds it into its retry machinery.
func (s *Source) monitorBus(ctx context.Context) {
	defer s.wg.Done()

	bus := s.el.pipeline.GetPipelineBus()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg := bus.TimedPop(busPollInterval)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			slog.Info("gstdec: end of stream", "url", s.cfg.URL)
			s.markBroken()
			return

		case gst.MessageError:
			gerr := msg.ParseError()
			category := Classify(gerr)
			slog.Error("gstdec: pipeline error",
				"url", s.cfg.URL,
				"category", category.String(),
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
			)
			s.markBroken()
			return
		}
	}
}
