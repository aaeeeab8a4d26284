package capture

import "errors"

// ErrPermissionDenied indicates the operating system refused microphone
// access. Fatal to session start; callers must surface it and must not
// retry automatically.
var ErrPermissionDenied = errors.New("microphone access denied")

// ErrSourceUnavailable indicates no usable input device could be opened.
var ErrSourceUnavailable = errors.New("audio source unavailable")

// FrameFunc receives captured PCM-16 frames in order. The slice is only
// valid for the duration of the call; implementations reuse it.
type FrameFunc func(pcm []int16)

// Source is a continuous microphone signal. Start begins delivering frames
// to the callback from a capture goroutine until Stop; Close releases the
// device. Exactly one component (the session controller) owns a Source.
type Source interface {
	// Start begins capture and delivers frames to fn until Stop.
	Start(fn FrameFunc) error

	// Stop halts frame delivery. Safe to call when not started.
	Stop() error

	// SampleRate returns the fixed capture sample rate in Hz.
	SampleRate() int

	// Close releases the underlying device. The source is unusable after.
	Close() error
}
