package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ciaraadkins/page-puppet/internal/capture"
	"github.com/ciaraadkins/page-puppet/internal/config"
	"github.com/ciaraadkins/page-puppet/internal/encoder"
	"github.com/ciaraadkins/page-puppet/internal/metrics"
	"github.com/ciaraadkins/page-puppet/internal/recording"
	"github.com/ciaraadkins/page-puppet/internal/server"
	"github.com/ciaraadkins/page-puppet/internal/session"
	"github.com/ciaraadkins/page-puppet/internal/transcription"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "page-puppet-listener"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("sample_rate", cfg.Capture.SampleRate),
		slog.Float64("silence_threshold", cfg.VAD.SilenceThreshold),
		slog.Int("trailing_silence_ms", cfg.Segmenter.TrailingSilenceMs),
		slog.Int("max_segment_duration_ms", cfg.Segmenter.MaxSegmentDurationMs),
		slog.Int("min_segment_duration_ms", cfg.Segmenter.MinSegmentDurationMs),
		slog.Int("poll_interval_ms", cfg.Segmenter.PollIntervalMs),
		slog.String("encoder_format", cfg.Encoder.Format),
		slog.Bool("transcription_enabled", cfg.Transcription.Enabled),
		slog.String("log_level", cfg.Logging.Level),
	)

	if cfg.Segmenter.CoarsePolling() {
		logger.Warn("Poll interval is coarse relative to the trailing silence window; cut timing will be imprecise",
			slog.Int("poll_interval_ms", cfg.Segmenter.PollIntervalMs),
			slog.Int("trailing_silence_ms", cfg.Segmenter.TrailingSilenceMs),
		)
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Open the microphone
	mic, err := capture.OpenMicrophone(logger, cfg.Capture.SampleRate, cfg.Capture.FramesPerBuffer)
	if err != nil {
		if errors.Is(err, capture.ErrPermissionDenied) {
			logger.Error("Microphone access denied; grant audio input permission and restart")
		} else {
			logger.Error("Failed to open microphone", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}
	defer mic.Close()

	// Build the segment encoder
	enc, err := encoder.New(cfg.Encoder, cfg.Capture.SampleRate)
	if err != nil {
		logger.Error("Failed to create encoder", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize transcription client (if enabled)
	var transcribe *transcription.Client
	if cfg.Transcription.Enabled {
		transcribe, err = transcription.NewClient(transcription.Config{
			Endpoint:      cfg.Transcription.Endpoint,
			APIKey:        cfg.Transcription.APIKey,
			Timeout:       cfg.Transcription.GetTimeoutDuration(),
			MaxRetries:    cfg.Transcription.MaxRetries,
			MaxConcurrent: cfg.Transcription.MaxConcurrent,
			Language:      cfg.Transcription.Language,
		})
		if err != nil {
			logger.Error("Failed to create transcription client", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Transcription client initialized",
			slog.String("endpoint", cfg.Transcription.Endpoint),
			slog.Int("max_concurrent", cfg.Transcription.MaxConcurrent),
		)
	}

	// Assemble the streaming pipeline
	controller := session.NewController(logger, cfg, mic, enc, appMetrics)
	onSegment := makeSegmentSink(ctx, logger, appMetrics, transcribe)

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, controller, transcribe, appMetrics)
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Start listening
	if err := controller.Start(onSegment); err != nil {
		logger.Error("Failed to start streaming session", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start HTTP server (if enabled)
	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, listening for speech...")

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop the pipeline (discards any in-flight recording)
	if err := controller.Stop(); err != nil {
		logger.Error("Error stopping streaming session", slog.String("error", err.Error()))
	}

	// Wait for outstanding transcription requests
	if transcribe != nil {
		if err := transcribe.Close(); err != nil {
			logger.Error("Error closing transcription client", slog.String("error", err.Error()))
		}
	}

	// Get final statistics
	stats := controller.GetStats()
	logger.Info("Final session statistics",
		slog.Uint64("ticks", stats.Monitor.Ticks),
		slog.Uint64("voice_ticks", stats.Monitor.VoiceTicks),
		slog.Int64("segments_emitted", stats.Session.SegmentsEmitted),
		slog.Int64("segments_discarded", stats.Session.SegmentsDiscarded),
		slog.Int64("segments_truncated", stats.Session.SegmentsTruncated),
	)

	logger.Info("Service stopped")
}

// makeSegmentSink builds the delivery callback for emitted segments. With
// transcription enabled each segment is uploaded on its own goroutine so the
// poll loop never blocks on the network.
func makeSegmentSink(ctx context.Context, logger *slog.Logger, m *metrics.Metrics, transcribe *transcription.Client) recording.DeliverFunc {
	return func(seg *recording.Segment) {
		logger.Info("Segment emitted",
			slog.String("segment_id", seg.ID),
			slog.Duration("duration", seg.Duration),
			slog.Int("size_bytes", len(seg.Data)),
			slog.Bool("truncated", seg.Truncated),
		)

		if transcribe == nil {
			return
		}

		go func() {
			startTime := time.Now()
			m.RecordTranscriptionRequest()

			resp, err := transcribe.Submit(ctx, seg)
			if err != nil {
				m.RecordTranscriptionFailure(time.Since(startTime).Seconds())
				logger.Error("Transcription failed",
					slog.String("segment_id", seg.ID),
					slog.String("error", err.Error()),
				)
				return
			}

			m.RecordTranscriptionSuccess(time.Since(startTime).Seconds())
			logger.Info("Transcription received",
				slog.String("segment_id", seg.ID),
				slog.String("text", resp.Text),
				slog.Float64("confidence", float64(resp.Confidence)),
			)
		}()
	}
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
