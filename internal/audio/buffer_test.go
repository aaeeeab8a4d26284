package audio

import (
	"sync"
	"testing"
)

func TestBufferDrainReturnsNewSamplesInOrder(t *testing.T) {
	buf := NewBuffer(16000, 1024)

	buf.Append([]int16{1, 2, 3})
	buf.Append([]int16{4, 5})

	got := buf.Drain()
	if len(got) != 5 {
		t.Fatalf("Expected 5 drained samples, got %d", len(got))
	}

	for i, want := range []int16{1, 2, 3, 4, 5} {
		if got[i] != want {
			t.Errorf("Sample %d: expected %d, got %d", i, want, got[i])
		}
	}

	if next := buf.Drain(); next != nil {
		t.Errorf("Expected nil on second drain, got %d samples", len(next))
	}

	buf.Append([]int16{6})
	got = buf.Drain()
	if len(got) != 1 || got[0] != 6 {
		t.Errorf("Expected [6] after re-append, got %v", got)
	}
}

func TestBufferWindowReturnsMostRecent(t *testing.T) {
	buf := NewBuffer(16000, 4)

	if w := buf.Window(); w != nil {
		t.Errorf("Expected nil window for empty buffer, got %v", w)
	}

	buf.Append([]int16{1, 2})
	w := buf.Window()
	if len(w) != 2 {
		t.Fatalf("Expected partial window of 2 samples, got %d", len(w))
	}

	buf.Append([]int16{3, 4, 5, 6})
	w = buf.Window()
	if len(w) != 4 {
		t.Fatalf("Expected full window of 4 samples, got %d", len(w))
	}

	for i, want := range []int16{3, 4, 5, 6} {
		if w[i] != want {
			t.Errorf("Window sample %d: expected %d, got %d", i, want, w[i])
		}
	}
}

func TestBufferWindowSurvivesDrain(t *testing.T) {
	buf := NewBuffer(16000, 4)

	buf.Append([]int16{1, 2, 3, 4, 5, 6})
	buf.Drain()

	// Drained samples within the analysis window stay readable.
	w := buf.Window()
	if len(w) != 4 {
		t.Fatalf("Expected window of 4 samples after drain, got %d", len(w))
	}
	if w[0] != 3 || w[3] != 6 {
		t.Errorf("Expected window [3 4 5 6], got %v", w)
	}
}

func TestBufferTrimBoundsMemory(t *testing.T) {
	buf := NewBuffer(16000, 64)

	chunk := make([]int16, 256)
	for i := 0; i < 100; i++ {
		buf.Append(chunk)
		buf.Drain()
	}

	stats := buf.GetStats()
	if stats.Pending != 0 {
		t.Errorf("Expected 0 pending samples, got %d", stats.Pending)
	}
	if stats.TotalSamples != 100*256 {
		t.Errorf("Expected %d total samples, got %d", 100*256, stats.TotalSamples)
	}

	if got := len(buf.samples); got > 512 {
		t.Errorf("Expected trimmed backing slice, got %d retained samples", got)
	}
}

func TestBufferReset(t *testing.T) {
	buf := NewBuffer(16000, 4)

	buf.Append([]int16{1, 2, 3})
	buf.Reset()

	if got := buf.Drain(); got != nil {
		t.Errorf("Expected nil drain after reset, got %v", got)
	}

	if w := buf.Window(); w != nil {
		t.Errorf("Expected nil window after reset, got %v", w)
	}
}

func TestBufferConcurrentAppendDrain(t *testing.T) {
	buf := NewBuffer(16000, 256)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			buf.Append([]int16{int16(i), int16(i + 1)})
		}
	}()

	total := 0
	for i := 0; i < 1000; i++ {
		total += len(buf.Drain())
	}
	wg.Wait()
	total += len(buf.Drain())

	if total != 2000 {
		t.Errorf("Expected 2000 samples across drains, got %d", total)
	}
}
