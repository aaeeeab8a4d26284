package audio

import (
	"sync"
	"time"
)

// Buffer is the rolling PCM-16 buffer between the capture device and the
// poll loop. The capture goroutine appends frames as the device delivers
// them; the poll loop drains new samples in order and reads the most recent
// window for amplitude measurement. Samples older than both the read cursor
// and the analysis window are trimmed to bound memory.
type Buffer struct {
	sampleRate int
	windowSize int // samples retained behind the read cursor for Window()

	samples []int16
	readPos int // next sample Drain() will return

	lastUpdate   time.Time
	totalSamples uint64

	mu sync.Mutex
}

// BufferStats represents buffer counters for monitoring
type BufferStats struct {
	SampleRate   int       `json:"sample_rate"`
	TotalSamples uint64    `json:"total_samples"`
	Pending      int       `json:"pending_samples"`
	LastUpdate   time.Time `json:"last_update"`
}

// NewBuffer creates a rolling buffer for the given sample rate. windowSize is
// the number of most-recent samples Window() returns for RMS measurement.
func NewBuffer(sampleRate, windowSize int) *Buffer {
	return &Buffer{
		sampleRate: sampleRate,
		windowSize: windowSize,
		samples:    make([]int16, 0, windowSize*4),
	}
}

// Append adds captured PCM samples to the buffer. Safe to call from the
// capture goroutine while the poll loop reads.
func (b *Buffer) Append(pcm []int16) {
	if len(pcm) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.samples = append(b.samples, pcm...)
	b.totalSamples += uint64(len(pcm))
	b.lastUpdate = time.Now()

	b.trimLocked()
}

// Drain returns a copy of all samples appended since the previous Drain call,
// in capture order, and advances the read cursor past them.
func (b *Buffer) Drain() []int16 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.readPos >= len(b.samples) {
		return nil
	}

	out := make([]int16, len(b.samples)-b.readPos)
	copy(out, b.samples[b.readPos:])
	b.readPos = len(b.samples)

	b.trimLocked()

	return out
}

// Window returns a copy of the most recent windowSize samples. When fewer
// samples have been captured it returns what exists, which may be empty.
func (b *Buffer) Window() []int16 {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.windowSize
	if n > len(b.samples) {
		n = len(b.samples)
	}
	if n == 0 {
		return nil
	}

	out := make([]int16, n)
	copy(out, b.samples[len(b.samples)-n:])
	return out
}

// Reset discards all buffered samples and clears the read cursor.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.samples = b.samples[:0]
	b.readPos = 0
}

// GetStats returns current buffer counters
func (b *Buffer) GetStats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BufferStats{
		SampleRate:   b.sampleRate,
		TotalSamples: b.totalSamples,
		Pending:      len(b.samples) - b.readPos,
		LastUpdate:   b.lastUpdate,
	}
}

// trimLocked drops samples no longer reachable through Drain or Window.
// Caller must hold b.mu.
func (b *Buffer) trimLocked() {
	keep := len(b.samples) - b.readPos
	if keep < b.windowSize {
		keep = b.windowSize
	}

	cut := len(b.samples) - keep
	if cut <= 0 {
		return
	}
	if cut > b.readPos {
		cut = b.readPos
	}
	if cut <= 0 {
		return
	}

	b.samples = append(b.samples[:0], b.samples[cut:]...)
	b.readPos -= cut
}
