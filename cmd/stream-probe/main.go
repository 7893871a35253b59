package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	streamingest "github.com/visiona/orion/modules/stream-ingest"
)

// Version information
const version = "v0.1.0"

func main() {
	// Parse command-line flags
	rtspURL := flag.String("url", "", "RTSP stream URL (required)")
	resolution := flag.String("resolution", "720p", "Resolution: 512p, 720p, 1080p")
	fps := flag.Float64("fps", 2.0, "Target FPS (0.1-30)")
	sourceStream := flag.String("source", "probe", "Source stream identifier")
	reconnect := flag.Bool("reconnect", true, "Reconnect automatically with exponential backoff")
	outputDir := flag.String("output", "", "Directory to save observed frames (optional)")
	outputFormat := flag.String("format", "png", "Output format: png, jpeg")
	jpegQuality := flag.Int("jpeg-quality", 90, "JPEG quality (1-100, only for jpeg format)")
	maxFrames := flag.Int("max-frames", 0, "Maximum frames to observe (0 = unlimited)")
	pollInterval := flag.Duration("poll", 100*time.Millisecond, "Latest-frame poll interval")
	statsInterval := flag.Int("stats-interval", 10, "Seconds between stats reports")
	skipWarmup := flag.Bool("skip-warmup", false, "Skip FPS stability warmup")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	// Show version
	if *showVersion {
		fmt.Printf("stream-probe %s\n", version)
		os.Exit(0)
	}

	// Validate required flags
	if *rtspURL == "" {
		fmt.Fprintf(os.Stderr, "Error: --url flag is required\n\n")
		fmt.Fprintf(os.Stderr, "Usage example:\n")
		fmt.Fprintf(os.Stderr, "  stream-probe --url rtsp://192.168.1.100/stream\n")
		fmt.Fprintf(os.Stderr, "  stream-probe --url rtsp://192.168.1.100/stream --output ./frames --fps 1.0\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Set up logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Parse resolution
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

	// Validate output format
	if *outputFormat != "png" && *outputFormat != "jpeg" {
		log.Fatalf("Invalid output format: %s (must be png or jpeg)", *outputFormat)
	}

	// Create output directory if specified
	if *outputDir != "" {
		if err := os.MkdirAll(*outputDir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
		slog.Info("Frame saving enabled",
			"directory", *outputDir,
			"format", *outputFormat,
			"jpeg_quality", *jpegQuality,
		)
	}

	// Print banner
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║          Stream Probe - Orion 2.0 Ingest Module          ║\n")
	fmt.Printf("║                      Version %s                        ║\n", version)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  RTSP URL:      %s\n", *rtspURL)
	fmt.Printf("  Resolution:    %s\n", *resolution)
	fmt.Printf("  Target FPS:    %.2f\n", *fps)
	fmt.Printf("  Source Stream: %s\n", *sourceStream)
	fmt.Printf("  Reconnect:     %v\n", *reconnect)
	if *outputDir != "" {
		fmt.Printf("  Output Dir:    %s\n", *outputDir)
	} else {
		fmt.Printf("  Output Dir:    (none - frames not saved)\n")
	}
	if *maxFrames > 0 {
		fmt.Printf("  Max Frames:    %d\n", *maxFrames)
	} else {
		fmt.Printf("  Max Frames:    unlimited\n")
	}
	fmt.Printf("\n")

	// Create RTSP stream
	cfg := streamingest.Config{
		URL:          *rtspURL,
		Resolution:   res,
		TargetFPS:    *fps,
		SourceStream: *sourceStream,
		Reconnect:    *reconnect,
	}

	stream, err := streamingest.NewRTSPStream(cfg)
	if err != nil {
		log.Fatalf("Failed to create RTSP stream: %v", err)
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start stream (non-blocking, returns immediately)
	slog.Info("Starting RTSP stream...")
	if err := stream.Start(ctx); err != nil {
		log.Fatalf("Failed to start stream: %v", err)
	}

	slog.Info("Stream started successfully")

	// Warmup: measure FPS stability before observing frames
	if !*skipWarmup {
		fmt.Printf("\n")
		fmt.Printf("Running warmup (5 seconds) to measure stream stability...\n")
		warmupStats, err := stream.Warmup(ctx, 5*time.Second)
		if err != nil {
			log.Fatalf("Warmup failed: %v", err)
		}

		fmt.Printf("\n")
		fmt.Printf("╭─────────────────────────────────────────────────────────╮\n")
		fmt.Printf("│ Warmup Complete\n")
		fmt.Printf("├─────────────────────────────────────────────────────────┤\n")
		fmt.Printf("│ Frames Received:    %6d frames\n", warmupStats.FramesReceived)
		fmt.Printf("│ Duration:           %6.1f seconds\n", warmupStats.Duration.Seconds())
		fmt.Printf("│ FPS Mean:           %6.2f fps\n", warmupStats.FPSMean)
		fmt.Printf("│ FPS StdDev:         %6.2f fps\n", warmupStats.FPSStdDev)
		fmt.Printf("│ FPS Range:          %6.1f - %.1f fps\n", warmupStats.FPSMin, warmupStats.FPSMax)
		fmt.Printf("│ Jitter Mean:        %6.3f s\n", warmupStats.JitterMean)
		fmt.Printf("│ Jitter Max:         %6.3f s\n", warmupStats.JitterMax)
		fmt.Printf("│ Stable:             %6v\n", warmupStats.IsStable)
		fmt.Printf("╰─────────────────────────────────────────────────────────╯\n")
		fmt.Printf("\n")
	}
	fmt.Printf("Observing latest-frame slot...\n")
	fmt.Printf("Press Ctrl+C to stop gracefully\n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n\n")

	// Stats tracking
	startTime := time.Now()
	framesSaved := 0
	saveFailures := 0

	// Launch stats reporter goroutine
	statsTicker := time.NewTicker(time.Duration(*statsInterval) * time.Second)
	defer statsTicker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-statsTicker.C:
				stats := stream.Stats()
				snap := stream.GetLatestFrame()

				fmt.Printf("\n")
				fmt.Printf("╭─────────────────────────────────────────────────────────╮\n")
				fmt.Printf("│ Stream Statistics (Uptime: %s)\n", stats.Uptime.Round(time.Second))
				fmt.Printf("├─────────────────────────────────────────────────────────┤\n")
				fmt.Printf("│ State:              %10s\n", stats.State)
				fmt.Printf("│ Connected:          %10v\n", stats.Connected)
				fmt.Printf("│ Frames Decoded:     %6d frames\n", stats.TotalFrames)
				if *outputDir != "" {
					fmt.Printf("│ Frames Saved:       %6d frames\n", framesSaved)
				}
				if saveFailures > 0 {
					fmt.Printf("│ Save Failures:      %6d frames\n", saveFailures)
				}
				fmt.Printf("│ Reconnects:         %6d\n", stats.Reconnects)
				if snap.FrameID > 0 {
					fmt.Printf("│ Latest Frame ID:    %6d\n", snap.FrameID)
					fmt.Printf("│ Last Frame Age:     %6.1f s\n", stats.LastFrameAge.Seconds())
				}
				fmt.Printf("╰─────────────────────────────────────────────────────────╯\n")
				fmt.Printf("\n")
			}
		}
	}()

	// Main observation loop: poll the latest-frame slot and report whenever
	// the FrameID advances. Frames decoded between two polls are skipped,
	// which is the point of the latest-frame model.
	pollTicker := time.NewTicker(*pollInterval)
	defer pollTicker.Stop()

	var lastSeen uint64
	observed := 0
	for {
		select {
		case <-sigChan:
			fmt.Printf("\n\nReceived interrupt signal, shutting down...\n")
			cancel()
			goto shutdown

		case <-pollTicker.C:
			snap := stream.GetLatestFrame()
			if snap.Frame == nil || snap.FrameID == lastSeen {
				continue
			}
			skipped := snap.FrameID - lastSeen - 1
			lastSeen = snap.FrameID
			observed++

			// Log frame arrival (compact format)
			fmt.Printf("[%s] Frame #%-8d | Skipped: %-4d | Size: %6.1f KB | Decoded: %s\n",
				time.Now().Format("15:04:05"),
				snap.FrameID,
				skipped,
				float64(len(snap.Frame))/1024,
				snap.Timestamp.Format("15:04:05.000"),
			)

			// Save frame if output directory specified
			if *outputDir != "" {
				if err := saveFrame(*outputDir, snap, *outputFormat, *jpegQuality); err != nil {
					slog.Error("Failed to save frame", "error", err, "frame_id", snap.FrameID)
					saveFailures++
				} else {
					framesSaved++
				}
			}

			// Stop if max frames reached
			if *maxFrames > 0 && observed >= *maxFrames {
				fmt.Printf("\nReached maximum frames (%d), stopping...\n", *maxFrames)
				cancel()
				goto shutdown
			}
		}
	}

shutdown:
	slog.Info("Stopping stream...")
	if err := stream.Stop(); err != nil {
		slog.Error("Error stopping stream", "error", err)
	}

	// Final stats
	finalStats := stream.Stats()
	uptime := time.Since(startTime)

	fmt.Printf("\n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("                     Final Statistics                      \n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("  Total Uptime:       %s\n", uptime.Round(time.Second))
	fmt.Printf("  Frames Decoded:     %d frames\n", finalStats.TotalFrames)
	fmt.Printf("  Frames Observed:    %d frames\n", observed)
	if *outputDir != "" {
		fmt.Printf("  Frames Saved:       %d frames\n", framesSaved)
		fmt.Printf("  Save Failures:      %d frames\n", saveFailures)
	}
	fmt.Printf("  Reconnection Count: %d\n", finalStats.Reconnects)
	fmt.Printf("  Final State:        %s\n", finalStats.State)
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("\n")

	slog.Info("Stream probe completed successfully")
}

// saveFrame saves a frame snapshot to disk as PNG or JPEG
func saveFrame(outputDir string, snap streamingest.FrameSnapshot, format string, jpegQuality int) error {
	// Create filename with frame ID and decode timestamp
	ext := format
	filename := fmt.Sprintf("frame_%06d_%s.%s", snap.FrameID, snap.Timestamp.Format("20060102_150405.000"), ext)
	path := filepath.Join(outputDir, filename)

	// Convert raw RGB bytes to image.Image
	img := &image.RGBA{
		Pix:    make([]uint8, len(snap.Frame)+snap.Width*snap.Height), // RGBA needs alpha channel
		Stride: snap.Width * 4,
		Rect:   image.Rect(0, 0, snap.Width, snap.Height),
	}

	// Convert RGB to RGBA (add alpha = 255)
	for i := 0; i < snap.Width*snap.Height; i++ {
		img.Pix[i*4+0] = snap.Frame[i*3+0] // R
		img.Pix[i*4+1] = snap.Frame[i*3+1] // G
		img.Pix[i*4+2] = snap.Frame[i*3+2] // B
		img.Pix[i*4+3] = 255               // A (opaque)
	}

	// Create output file
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	// Encode based on format
	switch format {
	case "png":
		if err := png.Encode(file, img); err != nil {
			return fmt.Errorf("failed to encode PNG: %w", err)
		}
	case "jpeg":
		if err := jpeg.Encode(file, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return fmt.Errorf("failed to encode JPEG: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	return nil
}
