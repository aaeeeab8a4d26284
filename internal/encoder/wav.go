package encoder

import (
	"fmt"

	"github.com/ciaraadkins/page-puppet/internal/audio"
)

// WAVEncoder buffers PCM for the open recording and serializes it to a
// single WAV file at Stop. Fragment and completion events are queued on the
// event channel so the consumer always observes them after Stop returns.
type WAVEncoder struct {
	sampleRate int
	recording  bool
	samples    []int16
	events     chan Event
}

// NewWAVEncoder creates a WAV encoder for the given sample rate
func NewWAVEncoder(sampleRate int) (*WAVEncoder, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", ErrUnavailable, sampleRate)
	}

	return &WAVEncoder{
		sampleRate: sampleRate,
		events:     make(chan Event, 16),
	}, nil
}

// Start opens a new recording
func (e *WAVEncoder) Start() error {
	if e.recording {
		return fmt.Errorf("wav encoder already recording")
	}

	e.recording = true
	e.samples = e.samples[:0]
	return nil
}

// Write appends PCM samples to the open recording
func (e *WAVEncoder) Write(pcm []int16) error {
	if !e.recording {
		return ErrNotRecording
	}

	e.samples = append(e.samples, pcm...)
	return nil
}

// Stop closes the recording and queues the encoded fragment plus completion
func (e *WAVEncoder) Stop() error {
	if !e.recording {
		return ErrNotRecording
	}
	e.recording = false

	if len(e.samples) == 0 {
		// A cut with no audio still completes, with no fragments.
		e.events <- Event{Kind: EventComplete}
		return nil
	}

	data, err := audio.EncodeWAV(e.samples, e.sampleRate)
	e.samples = e.samples[:0]
	if err != nil {
		e.events <- Event{Kind: EventError, Err: fmt.Errorf("wav encode: %w", err)}
		return nil
	}

	e.events <- Event{Kind: EventFragment, Fragment: data}
	e.events <- Event{Kind: EventComplete}
	return nil
}

// Events returns the encoder's event channel
func (e *WAVEncoder) Events() <-chan Event {
	return e.events
}

// MIMEType identifies the encoded format
func (e *WAVEncoder) MIMEType() string {
	return "audio/wav"
}
