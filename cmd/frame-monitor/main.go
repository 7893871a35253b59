// frame-monitor exposes a running camera stream over HTTP for quick visual
// inspection: the latest frame as JPEG, connection stats as JSON, and a
// WebSocket feed pushing stats once per second.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	streamingest "github.com/visiona/orion/modules/stream-ingest"
)

const version = "v0.1.0"

var upgrader = websocket.Upgrader{
	// Diagnostic tool on a trusted network; accept any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// statsPayload is the JSON shape served on /stats and pushed over /ws.
type statsPayload struct {
	State        string  `json:"state"`
	Connected    bool    `json:"connected"`
	UptimeSec    float64 `json:"uptime_sec"`
	TotalFrames  uint64  `json:"total_frames"`
	Reconnects   uint64  `json:"reconnects"`
	FrameAgeSec  float64 `json:"frame_age_sec"`
	LastFrameID  uint64  `json:"last_frame_id"`
	LastTraceID  string  `json:"last_trace_id"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	SourceStream string  `json:"source_stream"`
}

func collectStats(stream streamingest.Stream, source string) statsPayload {
	st := stream.Stats()
	snap := stream.GetLatestFrame()
	return statsPayload{
		State:        st.State,
		Connected:    st.Connected,
		UptimeSec:    st.Uptime.Seconds(),
		TotalFrames:  st.TotalFrames,
		Reconnects:   st.Reconnects,
		FrameAgeSec:  st.LastFrameAge.Seconds(),
		LastFrameID:  snap.FrameID,
		LastTraceID:  snap.TraceID,
		Width:        snap.Width,
		Height:       snap.Height,
		SourceStream: source,
	}
}

func main() {
	rtspURL := flag.String("url", "", "RTSP stream URL (required)")
	resolution := flag.String("resolution", "720p", "Resolution: 512p, 720p, 1080p")
	fps := flag.Float64("fps", 2.0, "Target FPS (0.1-30)")
	sourceStream := flag.String("source", "monitor", "Source stream identifier")
	listenAddr := flag.String("listen", ":8089", "HTTP listen address")
	jpegQuality := flag.Int("jpeg-quality", 85, "JPEG quality for /frame.jpg (1-100)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("frame-monitor %s\n", version)
		os.Exit(0)
	}

	if *rtspURL == "" {
		fmt.Fprintf(os.Stderr, "Error: --url flag is required\n\n")
		fmt.Fprintf(os.Stderr, "Usage example:\n")
		fmt.Fprintf(os.Stderr, "  frame-monitor --url rtsp://192.168.1.100/stream --listen :8089\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	var res streamingest.Resolution
	switch *resolution {
	case "512p":
		res = streamingest.Res512p
	case "720p":
		res = streamingest.Res720p
	case "1080p":
		res = streamingest.Res1080p
	default:
		log.Fatalf("Invalid resolution: %s (must be 512p, 720p, or 1080p)", *resolution)
	}

	stream, err := streamingest.NewRTSPStream(streamingest.Config{
		URL:          *rtspURL,
		Resolution:   res,
		TargetFPS:    *fps,
		SourceStream: *sourceStream,
		Reconnect:    true,
	})
	if err != nil {
		log.Fatalf("Failed to create RTSP stream: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("Starting RTSP stream...", "url", *rtspURL)
	if err := stream.Start(ctx); err != nil {
		log.Fatalf("Failed to start stream: %v", err)
	}

	mux := http.NewServeMux()

	// Latest frame, re-encoded as JPEG on demand. 404 until the first decode.
	mux.HandleFunc("/frame.jpg", func(w http.ResponseWriter, r *http.Request) {
		snap := stream.GetLatestFrame()
		if snap.Frame == nil {
			http.Error(w, "no frame decoded yet", http.StatusNotFound)
			return
		}

		img := rgbToRGBA(snap.Frame, snap.Width, snap.Height)

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-Frame-ID", fmt.Sprintf("%d", snap.FrameID))
		w.Header().Set("X-Trace-ID", snap.TraceID)
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: *jpegQuality}); err != nil {
			slog.Error("Failed to encode frame", "error", err, "frame_id", snap.FrameID)
		}
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(collectStats(stream, *sourceStream)); err != nil {
			slog.Error("Failed to encode stats", "error", err)
		}
	})

	// WebSocket feed: pushes the stats payload once per second until the
	// client goes away.
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("WebSocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		clientAddr := conn.RemoteAddr().String()
		slog.Info("WebSocket client connected", "client", clientAddr)

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteJSON(collectStats(stream, *sourceStream)); err != nil {
					slog.Info("WebSocket client disconnected", "client", clientAddr)
					return
				}
			}
		}
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>frame-monitor</title></head>
<body>
  <h1>frame-monitor %s</h1>
  <p>Source: <code>%s</code></p>
  <ul>
    <li><a href="/frame.jpg">/frame.jpg</a> - latest frame</li>
    <li><a href="/stats">/stats</a> - connection stats (JSON)</li>
    <li><code>/ws</code> - stats over WebSocket (1/s)</li>
  </ul>
  <img src="/frame.jpg" style="max-width: 100%%" onerror="this.style.display='none'">
</body>
</html>`, version, *sourceStream)
	})

	server := &http.Server{Addr: *listenAddr, Handler: mux}

	go func() {
		slog.Info("HTTP server listening", "addr", *listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "error", err)
	}
	if err := stream.Stop(); err != nil {
		slog.Error("Error stopping stream", "error", err)
	}

	slog.Info("frame-monitor stopped")
}

// rgbToRGBA converts packed RGB bytes into an image.RGBA (alpha forced opaque).
func rgbToRGBA(data []byte, width, height int) *image.RGBA {
	img := &image.RGBA{
		Pix:    make([]uint8, width*height*4),
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
	for i := 0; i < width*height; i++ {
		img.Pix[i*4+0] = data[i*3+0]
		img.Pix[i*4+1] = data[i*3+1]
		img.Pix[i*4+2] = data[i*3+2]
		img.Pix[i*4+3] = 255
	}
	return img
}
