package audio

import (
	"math"
	"testing"
)

func TestRMSSilence(t *testing.T) {
	samples := make([]int16, 512)

	if got := RMS(samples); got != 0 {
		t.Errorf("Expected RMS 0 for silence, got %f", got)
	}
}

func TestRMSEmpty(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("Expected RMS 0 for empty input, got %f", got)
	}
}

func TestRMSFullScale(t *testing.T) {
	samples := make([]int16, 512)
	for i := range samples {
		samples[i] = math.MaxInt16
	}

	got := RMS(samples)
	if math.Abs(got-1.0) > 0.001 {
		t.Errorf("Expected RMS ~1.0 for full-scale signal, got %f", got)
	}
}

func TestRMSConstantAmplitude(t *testing.T) {
	// A constant signal at amplitude A has RMS exactly A.
	samples := make([]int16, 512)
	for i := range samples {
		samples[i] = 3277 // ~0.1 of full scale
	}

	got := RMS(samples)
	want := 3277.0 / 32768.0
	if math.Abs(got-want) > 0.0001 {
		t.Errorf("Expected RMS %f, got %f", want, got)
	}
}

func TestRMSSineWave(t *testing.T) {
	// A sine wave of peak amplitude A has RMS A/sqrt(2).
	samples := make([]int16, 1600)
	peak := 16384.0
	for i := range samples {
		samples[i] = int16(peak * math.Sin(2*math.Pi*float64(i)/160))
	}

	got := RMS(samples)
	want := (peak / math.Sqrt2) / 32768.0
	if math.Abs(got-want) > 0.005 {
		t.Errorf("Expected RMS ~%f for sine wave, got %f", want, got)
	}
}

func TestRMSIsSignIndependent(t *testing.T) {
	pos := []int16{1000, 1000, 1000, 1000}
	neg := []int16{-1000, -1000, -1000, -1000}

	if RMS(pos) != RMS(neg) {
		t.Errorf("Expected identical RMS for inverted signals, got %f and %f", RMS(pos), RMS(neg))
	}
}

func TestSamplerReadsRollingWindow(t *testing.T) {
	buf := NewBuffer(16000, 4)
	sampler := NewSampler(buf)

	if got := sampler.Sample(); got != 0 {
		t.Errorf("Expected 0 loudness before any capture, got %f", got)
	}

	buf.Append([]int16{8192, 8192, 8192, 8192})

	got := sampler.Sample()
	want := 8192.0 / 32768.0
	if math.Abs(got-want) > 0.0001 {
		t.Errorf("Expected loudness %f, got %f", want, got)
	}

	// Sampling is side-effect free: repeated reads agree.
	if again := sampler.Sample(); again != got {
		t.Errorf("Expected repeated sample %f, got %f", got, again)
	}

	// Newer silence displaces the old window.
	buf.Append(make([]int16, 4))
	if got := sampler.Sample(); got != 0 {
		t.Errorf("Expected 0 loudness after window rolled over to silence, got %f", got)
	}
}
