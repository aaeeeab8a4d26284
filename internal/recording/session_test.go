package recording

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ciaraadkins/page-puppet/internal/encoder"
)

// fakeEncoder records calls and lets tests push events by hand.
type fakeEncoder struct {
	started  bool
	starts   int
	stops    int
	written  int
	startErr error
	stopErr  error
	events   chan encoder.Event
}

func newFakeEncoder() *fakeEncoder {
	return &fakeEncoder{events: make(chan encoder.Event, 16)}
}

func (f *fakeEncoder) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	f.starts++
	return nil
}

func (f *fakeEncoder) Write(pcm []int16) error {
	if !f.started {
		return encoder.ErrNotRecording
	}
	f.written += len(pcm)
	return nil
}

func (f *fakeEncoder) Stop() error {
	if f.stopErr != nil {
		return f.stopErr
	}
	f.started = false
	f.stops++
	return nil
}

func (f *fakeEncoder) Events() <-chan encoder.Event { return f.events }
func (f *fakeEncoder) MIMEType() string             { return "audio/test" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestSessionEmitsSegment(t *testing.T) {
	enc := newFakeEncoder()
	sess := NewSession(testLogger(), enc, 16000)

	var got *Segment
	sess.SetDeliver(func(seg *Segment) { got = seg })

	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := sess.Start(t0); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !sess.IsRecording() {
		t.Fatal("Expected recording to be open after Start")
	}

	sess.Write(make([]int16, 800))
	if enc.written != 800 {
		t.Errorf("Expected 800 samples written, got %d", enc.written)
	}

	t1 := t0.Add(2 * time.Second)
	if err := sess.Stop(Emit, false, t1); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if sess.IsRecording() {
		t.Error("Expected recording closed after Stop")
	}

	sess.HandleEvent(encoder.Event{Kind: encoder.EventFragment, Fragment: []byte{1, 2}})
	sess.HandleEvent(encoder.Event{Kind: encoder.EventFragment, Fragment: []byte{3}})
	sess.HandleEvent(encoder.Event{Kind: encoder.EventComplete})

	if got == nil {
		t.Fatal("Expected segment delivery")
	}
	if string(got.Data) != "\x01\x02\x03" {
		t.Errorf("Expected fragments joined in order, got %v", got.Data)
	}
	if got.Duration != 2*time.Second {
		t.Errorf("Expected 2s duration, got %v", got.Duration)
	}
	if got.MIMEType != "audio/test" {
		t.Errorf("Expected MIME type audio/test, got %s", got.MIMEType)
	}
	if got.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", got.SampleRate)
	}
	if got.ID == "" {
		t.Error("Expected a segment ID")
	}
	if got.Truncated {
		t.Error("Expected truncated flag clear")
	}

	stats := sess.GetStats()
	if stats.SegmentsEmitted != 1 || stats.BytesEmitted != 3 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestSessionDiscardSuppressesDelivery(t *testing.T) {
	enc := newFakeEncoder()
	sess := NewSession(testLogger(), enc, 16000)

	delivered := 0
	sess.SetDeliver(func(seg *Segment) { delivered++ })

	t0 := time.Now()
	if err := sess.Start(t0); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := sess.Stop(Discard, false, t0.Add(300*time.Millisecond)); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	sess.HandleEvent(encoder.Event{Kind: encoder.EventFragment, Fragment: []byte{9}})
	sess.HandleEvent(encoder.Event{Kind: encoder.EventComplete})

	if delivered != 0 {
		t.Errorf("Expected no delivery for discarded cut, got %d", delivered)
	}
	if sess.GetStats().SegmentsDiscarded != 1 {
		t.Errorf("Expected 1 discarded segment, got %d", sess.GetStats().SegmentsDiscarded)
	}
}

func TestSessionTruncatedCut(t *testing.T) {
	enc := newFakeEncoder()
	sess := NewSession(testLogger(), enc, 16000)

	var got *Segment
	sess.SetDeliver(func(seg *Segment) { got = seg })

	t0 := time.Now()
	sess.Start(t0)
	sess.Stop(Emit, true, t0.Add(15*time.Second))
	sess.HandleEvent(encoder.Event{Kind: encoder.EventFragment, Fragment: []byte{1}})
	sess.HandleEvent(encoder.Event{Kind: encoder.EventComplete})

	if got == nil {
		t.Fatal("Expected segment delivery")
	}
	if !got.Truncated {
		t.Error("Expected truncated flag set")
	}
	if sess.GetStats().SegmentsTruncated != 1 {
		t.Errorf("Expected 1 truncated segment, got %d", sess.GetStats().SegmentsTruncated)
	}
}

func TestSessionDoubleStartIsNoOp(t *testing.T) {
	enc := newFakeEncoder()
	sess := NewSession(testLogger(), enc, 16000)

	t0 := time.Now()
	if err := sess.Start(t0); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := sess.Start(t0.Add(time.Second)); err != nil {
		t.Fatalf("Second Start should be a no-op, got %v", err)
	}
	if enc.starts != 1 {
		t.Errorf("Expected encoder started once, got %d", enc.starts)
	}
	if !sess.StartTime().Equal(t0) {
		t.Errorf("Expected start time preserved, got %v", sess.StartTime())
	}
}

func TestSessionStopWithoutRecording(t *testing.T) {
	enc := newFakeEncoder()
	sess := NewSession(testLogger(), enc, 16000)

	if err := sess.Stop(Emit, false, time.Now()); err != nil {
		t.Fatalf("Stop with no recording should be a no-op, got %v", err)
	}
	if enc.stops != 0 {
		t.Errorf("Expected encoder untouched, got %d stops", enc.stops)
	}
}

func TestSessionSpuriousCompletion(t *testing.T) {
	enc := newFakeEncoder()
	sess := NewSession(testLogger(), enc, 16000)

	delivered := 0
	sess.SetDeliver(func(seg *Segment) { delivered++ })

	// Completion with no cut pending must not deliver.
	sess.HandleEvent(encoder.Event{Kind: encoder.EventComplete})

	t0 := time.Now()
	sess.Start(t0)
	sess.Stop(Emit, false, t0.Add(time.Second))
	sess.HandleEvent(encoder.Event{Kind: encoder.EventFragment, Fragment: []byte{1}})
	sess.HandleEvent(encoder.Event{Kind: encoder.EventComplete})

	// A duplicate completion must not deliver twice.
	sess.HandleEvent(encoder.Event{Kind: encoder.EventComplete})

	if delivered != 1 {
		t.Errorf("Expected exactly one delivery, got %d", delivered)
	}
}

func TestSessionClearedDeliverSuppressesEmit(t *testing.T) {
	enc := newFakeEncoder()
	sess := NewSession(testLogger(), enc, 16000)

	delivered := 0
	sess.SetDeliver(func(seg *Segment) { delivered++ })

	t0 := time.Now()
	sess.Start(t0)
	sess.Stop(Emit, false, t0.Add(time.Second))
	sess.SetDeliver(nil)

	sess.HandleEvent(encoder.Event{Kind: encoder.EventFragment, Fragment: []byte{1}})
	sess.HandleEvent(encoder.Event{Kind: encoder.EventComplete})

	if delivered != 0 {
		t.Errorf("Expected no delivery after callback cleared, got %d", delivered)
	}
}

func TestSessionEncoderError(t *testing.T) {
	enc := newFakeEncoder()
	sess := NewSession(testLogger(), enc, 16000)

	t0 := time.Now()
	sess.Start(t0)

	encErr := errors.New("codec blew up")
	if err := sess.HandleEvent(encoder.Event{Kind: encoder.EventError, Err: encErr}); !errors.Is(err, encErr) {
		t.Fatalf("Expected encoder error surfaced, got %v", err)
	}
	if sess.IsRecording() {
		t.Error("Expected recording aborted after encoder error")
	}
	if sess.GetStats().EncoderErrors != 1 {
		t.Errorf("Expected 1 encoder error, got %d", sess.GetStats().EncoderErrors)
	}
}

func TestSessionStartErrorPropagates(t *testing.T) {
	enc := newFakeEncoder()
	enc.startErr = errors.New("device busy")
	sess := NewSession(testLogger(), enc, 16000)

	if err := sess.Start(time.Now()); err == nil {
		t.Fatal("Expected Start to surface encoder error")
	}
	if sess.IsRecording() {
		t.Error("Expected no recording open after failed Start")
	}
}
