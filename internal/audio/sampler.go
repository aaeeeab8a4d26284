package audio

import "math"

// Sampler measures the instantaneous loudness of the live audio source as
// root-mean-square energy over the buffer's rolling window, normalized to
// 0..1 against full-scale PCM-16. Reading has no side effects, so it can be
// polled at arbitrary cadence.
type Sampler struct {
	buf *Buffer
}

// NewSampler creates a sampler reading from the given rolling buffer.
func NewSampler(buf *Buffer) *Sampler {
	return &Sampler{buf: buf}
}

// Sample returns the current normalized RMS loudness. An empty window (no
// audio captured yet) measures as 0.
func (s *Sampler) Sample() float64 {
	return RMS(s.buf.Window())
}

// RMS computes sqrt(mean(x^2)) over PCM-16 samples, normalized so that a
// full-scale signal measures 1.0.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}

	var energy float64
	for _, sample := range samples {
		v := float64(sample)
		energy += v * v
	}

	return math.Sqrt(energy/float64(len(samples))) / 32768.0
}
