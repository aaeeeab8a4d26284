// Package audio handles PCM buffering, amplitude measurement, and WAV encoding.
// It implements the rolling capture window the RMS sampler reads from, ordered
// draining of new samples for the recorder, and PCM-16 WAV serialization.
package audio
