// Package streamingest provides latest-frame video ingestion from network
// cameras with automatic reconnection.
//
// It is part of Orion 2.0 and implements Bounded Context "Stream Acquisition"
// for consumers that always want the freshest decoded frame and never want to
// wait for one: a background loop connects, decodes and publishes frames into
// a single mutex-guarded slot, and any number of goroutines read that slot in
// constant time, concurrently with ingestion.
//
// # Quick Start
//
// The simplest way to follow an RTSP camera:
//
//	cfg := streamingest.Config{
//	    URL:          "rtsp://192.168.1.100/stream",
//	    Resolution:   streamingest.Res720p,
//	    TargetFPS:    2.0,
//	    SourceStream: "camera-1",
//	    Reconnect:    true,
//	}
//
//	stream, err := streamingest.NewRTSPStream(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := stream.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer stream.Stop()
//
//	snap := stream.GetLatestFrame()
//	if snap.Frame != nil {
//	    // snap.Frame contains raw RGB bytes, snap.Width x snap.Height pixels
//	    processFrame(snap)
//	}
//
// Or, scoped to a block with Stop guaranteed on exit:
//
//	err := streamingest.WithStream(ctx, stream, func(s streamingest.Stream) error {
//	    return infer(s.GetLatestFrame())
//	})
//
// # Latest-Frame Semantics
//
// There is deliberately no frame queue. Every successful decode replaces the
// published snapshot wholesale; consumers that read slower than the camera
// produces simply skip frames. GetLatestFrame and Stats never block on
// network, decode, or disk — they read in-memory state under a lock held
// only for the duration of the copy. During an outage, callers keep
// receiving the last good snapshot (stale, with an unchanging FrameID and
// Timestamp) and Stats().Connected turns false; no error ever surfaces on
// the read path.
//
// Published snapshots are immutable: the engine copies each decoded buffer
// before publishing, so a frame already handed to a caller is never
// overwritten by the next decode.
//
// # Reconnection
//
// With Config.Reconnect enabled, every open or read failure is handled
// identically: the source is released, the loop sleeps with exponential
// backoff (1s doubling to 16s by default, reset on every successful
// connect), then tries again — indefinitely. Stats().Reconnects counts
// successful re-establishments; the first connect of the stream's lifetime
// is not a reconnect.
//
// With Reconnect disabled, the first failure permanently stops the loop.
// A later Start call restarts ingestion from scratch; FrameID and the
// counters are never reset.
//
// # Custom Backends
//
// NewRTSPStream wires the GStreamer backend (rtspsrc → rtph264depay →
// avdec_h264 → videoconvert → videoscale → videorate → capsfilter →
// appsink, requires the gstreamer1.0 runtime). Any other transport can be
// ingested by implementing the two-method Decoder/Source boundary and
// passing it to New; the engine treats it as an opaque decoding library.
//
// # Frame Format
//
// Frames from the GStreamer backend are raw interleaved RGB
// (Width × Height × 3 bytes). See cmd/frame-monitor for a JPEG conversion
// example.
package streamingest
