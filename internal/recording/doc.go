// Package recording assembles encoder output into finished audio segments.
//
// A Session owns a single encoder and tracks one recording at a time. The
// caller decides at cut time whether the recording is delivered or thrown
// away; the session collects the encoder's fragments either way and invokes
// the delivery callback exactly once per emitted segment.
package recording
