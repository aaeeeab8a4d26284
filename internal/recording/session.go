package recording

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ciaraadkins/page-puppet/internal/encoder"
)

// Disposition decides what happens to a recording when it is cut.
type Disposition int

const (
	// Discard drops the recording; fragments are collected and thrown away.
	Discard Disposition = iota
	// Emit delivers the assembled segment to the registered callback.
	Emit
)

func (d Disposition) String() string {
	if d == Emit {
		return "emit"
	}
	return "discard"
}

// Segment is a finished audio recording ready for downstream consumers.
type Segment struct {
	ID         string
	Data       []byte
	MIMEType   string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	SampleRate int
	Truncated  bool
}

// DeliverFunc receives each emitted segment exactly once.
type DeliverFunc func(seg *Segment)

// SessionStats carries counters for the monitoring API.
type SessionStats struct {
	SegmentsEmitted   int64 `json:"segments_emitted"`
	SegmentsDiscarded int64 `json:"segments_discarded"`
	SegmentsTruncated int64 `json:"segments_truncated"`
	BytesEmitted      int64 `json:"bytes_emitted"`
	EncoderErrors     int64 `json:"encoder_errors"`
}

// pendingCut remembers the disposition chosen at Stop until the encoder
// reports completion.
type pendingCut struct {
	disposition Disposition
	truncated   bool
	startTime   time.Time
	endTime     time.Time
}

// Session drives one encoder through start/write/stop cycles and assembles
// its fragments into segments.
type Session struct {
	logger     *slog.Logger
	enc        encoder.Encoder
	sampleRate int

	mu        sync.RWMutex
	deliver   DeliverFunc
	recording bool
	startTime time.Time
	fragments [][]byte
	pending   *pendingCut
	stats     SessionStats
}

// NewSession creates a session around enc. The deliver callback is set
// separately so it can be cleared during teardown.
func NewSession(logger *slog.Logger, enc encoder.Encoder, sampleRate int) *Session {
	return &Session{
		logger:     logger,
		enc:        enc,
		sampleRate: sampleRate,
	}
}

// SetDeliver installs the segment callback. Passing nil suppresses delivery;
// completed recordings are then discarded regardless of disposition.
func (s *Session) SetDeliver(fn DeliverFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliver = fn
}

// Start opens a new recording. Starting while one is already open is a no-op.
func (s *Session) Start(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recording {
		s.logger.Warn("Start called with recording already open")
		return nil
	}

	if err := s.enc.Start(); err != nil {
		s.logger.Error("Failed to start encoder", slog.String("error", err.Error()))
		return err
	}

	s.recording = true
	s.startTime = now
	s.fragments = nil
	return nil
}

// Write feeds captured samples into the open recording. Samples arriving
// with no recording open are silently dropped.
func (s *Session) Write(pcm []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recording {
		return
	}
	if err := s.enc.Write(pcm); err != nil {
		s.logger.Error("Failed to write samples to encoder", slog.String("error", err.Error()))
	}
}

// Stop cuts the open recording. The disposition decides whether the segment
// is delivered once the encoder finishes; truncated marks segments cut by
// the duration cap. Stopping with no recording open is a no-op.
func (s *Session) Stop(d Disposition, truncated bool, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recording {
		return nil
	}

	s.pending = &pendingCut{
		disposition: d,
		truncated:   truncated,
		startTime:   s.startTime,
		endTime:     now,
	}
	s.recording = false

	if err := s.enc.Stop(); err != nil {
		s.logger.Error("Failed to stop encoder", slog.String("error", err.Error()))
		s.pending = nil
		s.fragments = nil
		return err
	}
	return nil
}

// HandleEvent processes one encoder event. Fragment events accumulate data;
// the completion event assembles the segment and, for an Emit cut, invokes
// the delivery callback. Returns the encoder's error for error events so the
// caller can reset its own state.
func (s *Session) HandleEvent(ev encoder.Event) error {
	s.mu.Lock()

	switch ev.Kind {
	case encoder.EventFragment:
		s.fragments = append(s.fragments, ev.Fragment)
		s.mu.Unlock()
		return nil

	case encoder.EventComplete:
		cut := s.pending
		s.pending = nil
		fragments := s.fragments
		s.fragments = nil

		if cut == nil {
			s.logger.Warn("Encoder completion with no cut pending")
			s.mu.Unlock()
			return nil
		}

		if cut.disposition == Discard {
			s.stats.SegmentsDiscarded++
			s.logger.Debug("Recording discarded",
				slog.Duration("duration", cut.endTime.Sub(cut.startTime)))
			s.mu.Unlock()
			return nil
		}

		if len(fragments) == 0 {
			s.logger.Warn("Recording completed with no audio data")
			s.stats.SegmentsDiscarded++
			s.mu.Unlock()
			return nil
		}

		seg := s.assembleLocked(cut, fragments)
		deliver := s.deliver
		s.stats.SegmentsEmitted++
		s.stats.BytesEmitted += int64(len(seg.Data))
		if cut.truncated {
			s.stats.SegmentsTruncated++
		}
		s.mu.Unlock()

		s.logger.Info("Segment assembled",
			slog.String("segment_id", seg.ID),
			slog.Duration("duration", seg.Duration),
			slog.Int("size_bytes", len(seg.Data)),
			slog.Bool("truncated", seg.Truncated))

		if deliver != nil {
			deliver(seg)
		}
		return nil

	case encoder.EventError:
		s.logger.Error("Encoder failure", slog.String("error", ev.Err.Error()))
		s.stats.EncoderErrors++
		s.recording = false
		s.pending = nil
		s.fragments = nil
		s.mu.Unlock()
		return ev.Err
	}

	s.mu.Unlock()
	return nil
}

func (s *Session) assembleLocked(cut *pendingCut, fragments [][]byte) *Segment {
	size := 0
	for _, f := range fragments {
		size += len(f)
	}
	data := make([]byte, 0, size)
	for _, f := range fragments {
		data = append(data, f...)
	}

	return &Segment{
		ID:         uuid.New().String(),
		Data:       data,
		MIMEType:   s.enc.MIMEType(),
		StartTime:  cut.startTime,
		EndTime:    cut.endTime,
		Duration:   cut.endTime.Sub(cut.startTime),
		SampleRate: s.sampleRate,
		Truncated:  cut.truncated,
	}
}

// IsRecording reports whether a recording is currently open.
func (s *Session) IsRecording() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recording
}

// StartTime returns when the open recording began. Zero when not recording.
func (s *Session) StartTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.recording {
		return time.Time{}
	}
	return s.startTime
}

// GetStats returns a snapshot of session counters.
func (s *Session) GetStats() SessionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
