// Package vad implements energy-threshold voice activity detection and the
// silence/speech state machine that decides utterance boundaries. The
// transition logic is a pure function over (state, loudness, time) so it can
// be tested against synthetic amplitude traces without a live microphone.
package vad
