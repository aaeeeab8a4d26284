package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ciaraadkins/page-puppet/internal/audio"
	"github.com/ciaraadkins/page-puppet/internal/capture"
	"github.com/ciaraadkins/page-puppet/internal/config"
	"github.com/ciaraadkins/page-puppet/internal/encoder"
	"github.com/ciaraadkins/page-puppet/internal/metrics"
	"github.com/ciaraadkins/page-puppet/internal/recording"
	"github.com/ciaraadkins/page-puppet/internal/vad"
)

// Stats aggregates pipeline state for the monitoring API.
type Stats struct {
	State     string                 `json:"state"`
	Recording bool                   `json:"is_recording"`
	Monitor   vad.MonitorStats       `json:"monitor"`
	Session   recording.SessionStats `json:"session"`
	Buffer    audio.BufferStats      `json:"buffer"`
}

// Controller owns the streaming pipeline: one capture source, one rolling
// buffer, one activity monitor and one recording session.
type Controller struct {
	logger  *slog.Logger
	cfg     *config.Config
	source  capture.Source
	enc     encoder.Encoder
	buf     *audio.Buffer
	sampler *audio.Sampler
	monitor *vad.Monitor
	rec     *recording.Session
	metrics *metrics.Metrics

	mu       sync.Mutex
	running  bool
	done     chan struct{}
	loopDone chan struct{}
}

// NewController assembles the pipeline. The source and encoder are injected
// so tests can substitute fakes.
func NewController(logger *slog.Logger, cfg *config.Config, source capture.Source, enc encoder.Encoder, m *metrics.Metrics) *Controller {
	buf := audio.NewBuffer(cfg.Capture.SampleRate, cfg.VAD.WindowSize)

	th := vad.Thresholds{
		SilenceThreshold:   cfg.VAD.SilenceThreshold,
		TrailingSilence:    cfg.Segmenter.GetTrailingSilence(),
		MaxSegmentDuration: cfg.Segmenter.GetMaxSegmentDuration(),
		MinSegmentDuration: cfg.Segmenter.GetMinSegmentDuration(),
	}

	return &Controller{
		logger:  logger,
		cfg:     cfg,
		source:  source,
		enc:     enc,
		buf:     buf,
		sampler: audio.NewSampler(buf),
		monitor: vad.NewMonitor(th),
		rec:     recording.NewSession(logger, enc, cfg.Capture.SampleRate),
		metrics: m,
	}
}

// Start opens the capture source and launches the poll loop. Each emitted
// segment is handed to onSegment on the poll goroutine. Starting a running
// controller is a no-op.
func (c *Controller) Start(onSegment recording.DeliverFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.logger.Warn("Start called with controller already running")
		return nil
	}

	if rate := c.source.SampleRate(); rate != c.cfg.Capture.SampleRate {
		c.logger.Warn("Source sample rate differs from configuration",
			slog.Int("source_rate", rate),
			slog.Int("configured_rate", c.cfg.Capture.SampleRate))
	}

	c.rec.SetDeliver(func(seg *recording.Segment) {
		if c.metrics != nil {
			c.metrics.RecordSegmentEmitted(seg.Duration.Seconds(), len(seg.Data), seg.Truncated)
		}
		if onSegment != nil {
			onSegment(seg)
		}
	})

	if err := c.source.Start(func(pcm []int16) {
		c.buf.Append(pcm)
		if c.metrics != nil {
			c.metrics.RecordFrameCaptured(len(pcm))
		}
	}); err != nil {
		c.rec.SetDeliver(nil)
		return err
	}

	c.done = make(chan struct{})
	c.loopDone = make(chan struct{})
	c.running = true

	go c.run(c.done, c.loopDone)

	c.logger.Info("Streaming session started",
		slog.Int("sample_rate", c.cfg.Capture.SampleRate),
		slog.Duration("poll_interval", c.cfg.Segmenter.GetPollInterval()),
		slog.String("format", c.cfg.Encoder.Format))
	return nil
}

// run is the pipeline's only mutating goroutine.
func (c *Controller) run(done <-chan struct{}, loopDone chan<- struct{}) {
	defer close(loopDone)

	ticker := time.NewTicker(c.cfg.Segmenter.GetPollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case ev := <-c.enc.Events():
			c.handleEncoderEvent(ev)
		case now := <-ticker.C:
			c.tick(now)
		}
	}
}

// tick runs one poll: move captured samples into the open recording,
// measure loudness, advance the monitor and apply its command.
func (c *Controller) tick(now time.Time) {
	pcm := c.buf.Drain()
	if len(pcm) > 0 && c.rec.IsRecording() {
		c.rec.Write(pcm)
	}

	loudness := c.sampler.Sample()
	cmd := c.monitor.Advance(loudness, now)

	if c.metrics != nil {
		c.metrics.RecordTick(vad.IsSpeech(loudness, c.cfg.VAD.SilenceThreshold), loudness)
		c.metrics.SetMonitorState(int(c.monitor.State()))
	}

	switch cmd {
	case vad.CommandStart:
		if err := c.rec.Start(now); err != nil {
			c.logger.Error("Failed to open recording", slog.String("error", err.Error()))
			c.monitor.Reset()
		}
	case vad.CommandEmit:
		if err := c.rec.Stop(recording.Emit, false, now); err != nil {
			c.logger.Error("Failed to cut recording", slog.String("error", err.Error()))
		}
	case vad.CommandEmitTruncated:
		c.logger.Warn("Recording hit duration cap",
			slog.Duration("max_duration", c.cfg.Segmenter.GetMaxSegmentDuration()))
		if err := c.rec.Stop(recording.Emit, true, now); err != nil {
			c.logger.Error("Failed to cut recording", slog.String("error", err.Error()))
		}
	case vad.CommandDiscard:
		if err := c.rec.Stop(recording.Discard, false, now); err != nil {
			c.logger.Error("Failed to cut recording", slog.String("error", err.Error()))
		}
		if c.metrics != nil {
			c.metrics.RecordSegmentDiscarded()
		}
	}
}

func (c *Controller) handleEncoderEvent(ev encoder.Event) {
	if err := c.rec.HandleEvent(ev); err != nil {
		if c.metrics != nil {
			c.metrics.RecordEncoderError()
		}
		c.monitor.Reset()
	}
}

// Stop tears the pipeline down: the delivery callback is cleared before any
// remaining encoder events are processed, so no segment reaches the caller
// after Stop returns. An in-flight recording is discarded. Stopping a
// stopped controller is a no-op.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	done := c.done
	loopDone := c.loopDone
	c.mu.Unlock()

	c.rec.SetDeliver(nil)

	close(done)
	<-loopDone

	if c.rec.IsRecording() {
		if err := c.rec.Stop(recording.Discard, false, time.Now()); err != nil {
			c.logger.Error("Failed to discard in-flight recording", slog.String("error", err.Error()))
		}
	}

	// Collect whatever the encoder queued so its state is clean for a
	// future Start.
	for {
		select {
		case ev := <-c.enc.Events():
			c.rec.HandleEvent(ev)
		default:
			c.monitor.Reset()
			c.buf.Reset()

			if err := c.source.Stop(); err != nil {
				c.logger.Error("Failed to stop capture source", slog.String("error", err.Error()))
				return err
			}

			c.logger.Info("Streaming session stopped")
			return nil
		}
	}
}

// CurrentState returns the monitor's current state.
func (c *Controller) CurrentState() vad.State {
	return c.monitor.State()
}

// IsRecording reports whether a recording is currently open.
func (c *Controller) IsRecording() bool {
	return c.rec.IsRecording()
}

// IsRunning reports whether the poll loop is active.
func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// GetStats returns a snapshot of the whole pipeline.
func (c *Controller) GetStats() Stats {
	return Stats{
		State:     c.monitor.State().String(),
		Recording: c.rec.IsRecording(),
		Monitor:   c.monitor.GetStats(),
		Session:   c.rec.GetStats(),
		Buffer:    c.buf.GetStats(),
	}
}
