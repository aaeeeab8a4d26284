// Package encoder turns buffered PCM into an encoded audio segment. It
// defines the start/stop/fragment/completion event contract the recording
// session consumes and implements it for WAV and Opus output.
package encoder
