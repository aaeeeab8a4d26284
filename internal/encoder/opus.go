package encoder

import (
	"encoding/binary"
	"fmt"

	"layeh.com/gopus"
)

const (
	// opusFrameMs is the Opus frame duration used for encoding.
	opusFrameMs = 20
	// opusMaxPacket bounds a single encoded Opus packet.
	opusMaxPacket = 4000
)

// OpusEncoder encodes PCM into a stream of Opus packets, each prefixed with
// a big-endian uint16 length so the concatenated fragment remains
// packet-separable downstream. Audio is encoded incrementally in 20 ms
// frames as it is written; the final partial frame is zero-padded at Stop.
type OpusEncoder struct {
	sampleRate int
	frameSize  int // samples per 20 ms mono frame

	enc       *gopus.Encoder
	recording bool
	pending   []int16 // samples not yet filling a whole frame
	encoded   []byte  // length-prefixed packets for the open recording
	events    chan Event
}

// NewOpusEncoder creates an Opus encoder for the given sample rate. The
// codec accepts 8, 12, 16, 24 or 48 kHz; anything else is ErrUnavailable.
func NewOpusEncoder(sampleRate int) (*OpusEncoder, error) {
	enc, err := gopus.NewEncoder(sampleRate, 1, gopus.Voip)
	if err != nil {
		return nil, fmt.Errorf("%w: create opus encoder: %v", ErrUnavailable, err)
	}

	return &OpusEncoder{
		sampleRate: sampleRate,
		frameSize:  sampleRate * opusFrameMs / 1000,
		enc:        enc,
		events:     make(chan Event, 16),
	}, nil
}

// Start opens a new recording
func (e *OpusEncoder) Start() error {
	if e.recording {
		return fmt.Errorf("opus encoder already recording")
	}

	e.recording = true
	e.pending = e.pending[:0]
	e.encoded = e.encoded[:0]
	return nil
}

// Write appends PCM samples, encoding every completed 20 ms frame
func (e *OpusEncoder) Write(pcm []int16) error {
	if !e.recording {
		return ErrNotRecording
	}

	e.pending = append(e.pending, pcm...)

	for len(e.pending) >= e.frameSize {
		if err := e.encodeFrame(e.pending[:e.frameSize]); err != nil {
			e.recording = false
			e.pending = e.pending[:0]
			e.encoded = e.encoded[:0]
			e.events <- Event{Kind: EventError, Err: err}
			return err
		}
		e.pending = e.pending[e.frameSize:]
	}

	return nil
}

// Stop closes the recording, flushing the final zero-padded frame, and
// queues the packet stream plus completion.
func (e *OpusEncoder) Stop() error {
	if !e.recording {
		return ErrNotRecording
	}
	e.recording = false

	if len(e.pending) > 0 {
		frame := make([]int16, e.frameSize)
		copy(frame, e.pending)
		e.pending = e.pending[:0]

		if err := e.encodeFrame(frame); err != nil {
			e.encoded = e.encoded[:0]
			e.events <- Event{Kind: EventError, Err: err}
			return nil
		}
	}

	if len(e.encoded) == 0 {
		e.events <- Event{Kind: EventComplete}
		return nil
	}

	data := make([]byte, len(e.encoded))
	copy(data, e.encoded)
	e.encoded = e.encoded[:0]

	e.events <- Event{Kind: EventFragment, Fragment: data}
	e.events <- Event{Kind: EventComplete}
	return nil
}

// encodeFrame encodes one full frame and appends the length-prefixed packet
func (e *OpusEncoder) encodeFrame(frame []int16) error {
	packet, err := e.enc.Encode(frame, e.frameSize, opusMaxPacket)
	if err != nil {
		return fmt.Errorf("opus encode: %w", err)
	}

	var prefix [2]byte
	binary.BigEndian.PutUint16(prefix[:], uint16(len(packet)))
	e.encoded = append(e.encoded, prefix[:]...)
	e.encoded = append(e.encoded, packet...)
	return nil
}

// Events returns the encoder's event channel
func (e *OpusEncoder) Events() <-chan Event {
	return e.events
}

// MIMEType identifies the encoded format
func (e *OpusEncoder) MIMEType() string {
	return "audio/opus"
}
