package encoder

import (
	"errors"
	"fmt"

	"github.com/ciaraadkins/page-puppet/internal/config"
)

// ErrUnavailable indicates the encoder could not be constructed or has been
// closed. Fatal at session start.
var ErrUnavailable = errors.New("encoder unavailable")

// ErrNotRecording indicates Write or Stop was called with no recording open.
var ErrNotRecording = errors.New("encoder is not recording")

// EventKind discriminates encoder events
type EventKind int

const (
	// EventFragment carries a piece of encoded audio for the current cut.
	EventFragment EventKind = iota
	// EventComplete signals that all fragments for the current cut have
	// been delivered and the recording is closed.
	EventComplete
	// EventError signals a runtime encoding failure. The current cut's
	// data is lost; the encoder is ready for a fresh Start.
	EventError
)

// Event is delivered asynchronously on the encoder's event channel, always
// as a later task relative to the Stop call that caused it.
type Event struct {
	Kind     EventKind
	Fragment []byte
	Err      error
}

// Encoder consumes PCM while a recording is open and produces encoded
// fragments followed by a completion event after Stop. One encoder instance
// serves many consecutive recordings; Start/Stop bracket each one.
type Encoder interface {
	// Start opens a new recording, clearing any previous fragment state.
	Start() error

	// Write appends PCM-16 samples to the open recording.
	Write(pcm []int16) error

	// Stop closes the recording. Fragment events for the encoded audio and
	// a completion event are delivered on Events afterwards.
	Stop() error

	// Events returns the channel carrying fragment/completion/error events.
	Events() <-chan Event

	// MIMEType identifies the encoded format.
	MIMEType() string
}

// New constructs the encoder selected by configuration
func New(cfg config.EncoderConfig, sampleRate int) (Encoder, error) {
	switch cfg.Format {
	case "wav":
		return NewWAVEncoder(sampleRate)
	case "opus":
		return NewOpusEncoder(sampleRate)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrUnavailable, cfg.Format)
	}
}
