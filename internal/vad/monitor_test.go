package vad

import (
	"math/rand"
	"testing"
	"time"
)

var testThresholds = Thresholds{
	SilenceThreshold:   0.01,
	TrailingSilence:    1500 * time.Millisecond,
	MaxSegmentDuration: 15000 * time.Millisecond,
	MinSegmentDuration: 500 * time.Millisecond,
}

const testPollInterval = 50 * time.Millisecond

// runTrace feeds a loudness trace through a fresh monitor one tick at a
// time and returns the command issued at each tick. Tick N is evaluated at
// t0 + N*interval, matching a fixed-interval poll loop.
func runTrace(t *testing.T, th Thresholds, interval time.Duration, trace []float64) []Command {
	t.Helper()

	monitor := NewMonitor(th)
	t0 := time.Unix(1700000000, 0)

	commands := make([]Command, len(trace))
	for i, loudness := range trace {
		now := t0.Add(time.Duration(i+1) * interval)
		commands[i] = monitor.Advance(loudness, now)
	}
	return commands
}

// trace builds a loudness sequence from (value, repeat) pairs.
func trace(pairs ...[2]float64) []float64 {
	var out []float64
	for _, p := range pairs {
		for i := 0; i < int(p[1]); i++ {
			out = append(out, p[0])
		}
	}
	return out
}

func TestIsSpeech(t *testing.T) {
	tests := []struct {
		name      string
		loudness  float64
		threshold float64
		want      bool
	}{
		{"well above threshold", 0.05, 0.01, true},
		{"exactly at threshold", 0.01, 0.01, true},
		{"just below threshold", 0.0099, 0.01, false},
		{"silence", 0, 0.01, false},
		{"zero threshold counts everything", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSpeech(tt.loudness, tt.threshold); got != tt.want {
				t.Errorf("IsSpeech(%f, %f) = %v, want %v", tt.loudness, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestMonitorStaysSilentOnSilence(t *testing.T) {
	commands := runTrace(t, testThresholds, testPollInterval, trace([2]float64{0, 100}))

	for i, cmd := range commands {
		if cmd != CommandNone {
			t.Fatalf("Tick %d: expected no command on pure silence, got %v", i, cmd)
		}
	}
}

func TestMonitorStartsRecordingOnSpeechOnset(t *testing.T) {
	monitor := NewMonitor(testThresholds)
	t0 := time.Unix(1700000000, 0)

	if cmd := monitor.Advance(0, t0); cmd != CommandNone {
		t.Fatalf("Expected no command on silence, got %v", cmd)
	}
	if monitor.State() != StateSilent {
		t.Fatalf("Expected silent state, got %v", monitor.State())
	}

	now := t0.Add(testPollInterval)
	if cmd := monitor.Advance(0.05, now); cmd != CommandStart {
		t.Fatalf("Expected start command on speech onset, got %v", cmd)
	}
	if monitor.State() != StateSpeaking {
		t.Errorf("Expected speaking state, got %v", monitor.State())
	}
	if !monitor.RecordingStart().Equal(now) {
		t.Errorf("Expected recording start %v, got %v", now, monitor.RecordingStart())
	}
}

// Scenario: 3 silent ticks, 3 speech ticks, then silence. Recording starts
// at tick 4 (t=200ms), trailing silence begins at tick 7 (t=350ms) and the
// 1500ms window is reached at tick 37 (t=1850ms). Elapsed 1650ms >= 500ms,
// so the segment is emitted.
func TestEmitAfterNaturalPause(t *testing.T) {
	loudness := trace([2]float64{0, 3}, [2]float64{0.05, 3}, [2]float64{0, 40})
	commands := runTrace(t, testThresholds, testPollInterval, loudness)

	if commands[3] != CommandStart {
		t.Fatalf("Tick 4: expected start, got %v", commands[3])
	}

	emitAt := -1
	for i, cmd := range commands {
		if cmd == CommandEmit {
			emitAt = i
			break
		}
		if cmd == CommandDiscard || cmd == CommandEmitTruncated {
			t.Fatalf("Tick %d: unexpected %v", i, cmd)
		}
	}

	// Tick 37 is index 36.
	if emitAt != 36 {
		t.Fatalf("Expected emit at tick 37, got tick %d", emitAt+1)
	}
}

// Scenario: speech lasts a single tick, then silence for the full trailing
// window. Elapsed at cut = 50ms + 1500ms = 1550ms >= 500ms, so the segment
// is still emitted: the minimum-duration check includes the trailing wait,
// not pure speech time.
func TestMinDurationIncludesTrailingWait(t *testing.T) {
	loudness := trace([2]float64{0.05, 1}, [2]float64{0, 40})
	commands := runTrace(t, testThresholds, testPollInterval, loudness)

	sawEmit := false
	for i, cmd := range commands {
		switch cmd {
		case CommandEmit:
			sawEmit = true
		case CommandDiscard:
			t.Fatalf("Tick %d: expected emit, got discard", i+1)
		}
	}

	if !sawEmit {
		t.Fatal("Expected an emit command, got none")
	}
}

// Scenario: continuous speech past the 15s cap. A truncated emit fires at
// the cap, the machine returns to silent, then immediately re-enters
// speaking on the next tick, opening a second segment.
func TestForcedCutoffMidSpeech(t *testing.T) {
	ticks := int(16 * time.Second / testPollInterval)
	commands := runTrace(t, testThresholds, testPollInterval, trace([2]float64{0.05, float64(ticks)}))

	if commands[0] != CommandStart {
		t.Fatalf("Tick 1: expected start, got %v", commands[0])
	}

	cutAt := -1
	for i, cmd := range commands {
		if cmd == CommandEmitTruncated {
			cutAt = i
			break
		}
	}
	if cutAt < 0 {
		t.Fatal("Expected a truncated emit during continuous speech, got none")
	}

	// The cut fires once elapsed reaches the cap, within one poll interval.
	elapsed := time.Duration(cutAt) * testPollInterval
	if elapsed < testThresholds.MaxSegmentDuration-testPollInterval ||
		elapsed > testThresholds.MaxSegmentDuration+testPollInterval {
		t.Errorf("Forced cut at %v, expected within one tick of %v", elapsed, testThresholds.MaxSegmentDuration)
	}

	if commands[cutAt+1] != CommandStart {
		t.Errorf("Tick after forced cut: expected start of a new segment, got %v", commands[cutAt+1])
	}
}

func TestShortBlipIsDiscarded(t *testing.T) {
	// One speech tick then silence, with a minimum long enough that
	// interval+trailing stays below it.
	th := testThresholds
	th.MinSegmentDuration = 2 * time.Second

	loudness := trace([2]float64{0.05, 1}, [2]float64{0, 40})
	commands := runTrace(t, th, testPollInterval, loudness)

	sawDiscard := false
	for i, cmd := range commands {
		switch cmd {
		case CommandDiscard:
			sawDiscard = true
		case CommandEmit, CommandEmitTruncated:
			t.Fatalf("Tick %d: expected discard, got %v", i+1, cmd)
		}
	}

	if !sawDiscard {
		t.Fatal("Expected a discard command, got none")
	}
}

func TestSpeechResumeDuringTrailingSilence(t *testing.T) {
	monitor := NewMonitor(testThresholds)
	t0 := time.Unix(1700000000, 0)
	now := t0

	step := func(loudness float64) Command {
		now = now.Add(testPollInterval)
		return monitor.Advance(loudness, now)
	}

	step(0.05) // start
	step(0)    // pause
	if monitor.State() != StateTrailingSilence {
		t.Fatalf("Expected trailing silence, got %v", monitor.State())
	}

	if cmd := step(0.05); cmd != CommandNone {
		t.Fatalf("Expected no command when speech resumes, got %v", cmd)
	}
	if monitor.State() != StateSpeaking {
		t.Fatalf("Expected speaking after resume, got %v", monitor.State())
	}

	// The trailing window restarts on the next pause rather than carrying
	// over the earlier silence.
	step(0)
	for i := 0; i < 29; i++ {
		if cmd := step(0); cmd != CommandNone {
			t.Fatalf("Trailing tick %d: premature %v", i, cmd)
		}
	}
	if cmd := step(0); cmd != CommandEmit {
		t.Fatalf("Expected emit once the restarted window elapses, got %v", cmd)
	}
}

func TestMaxDurationOverridesTrailingWait(t *testing.T) {
	// Speech for almost the full cap, then silence. The cap elapses before
	// the trailing window does, forcing an emit.
	th := testThresholds
	th.MaxSegmentDuration = 2 * time.Second
	th.TrailingSilence = 10 * time.Second

	speechTicks := int(1900 * time.Millisecond / testPollInterval)
	loudness := trace([2]float64{0.05, float64(speechTicks)}, [2]float64{0, 60})
	commands := runTrace(t, th, testPollInterval, loudness)

	cutAt := -1
	for i, cmd := range commands {
		if cmd.IsCut() {
			cutAt = i
			break
		}
	}
	if cutAt < 0 {
		t.Fatal("Expected a cut, got none")
	}
	if commands[cutAt] != CommandEmitTruncated {
		t.Fatalf("Expected truncated emit when the cap overrides the trailing wait, got %v", commands[cutAt])
	}

	elapsed := time.Duration(cutAt) * testPollInterval
	if elapsed > th.MaxSegmentDuration+testPollInterval {
		t.Errorf("Cap cut at %v, expected no later than %v", elapsed, th.MaxSegmentDuration+testPollInterval)
	}
}

func TestMonitorReset(t *testing.T) {
	monitor := NewMonitor(testThresholds)
	t0 := time.Unix(1700000000, 0)

	monitor.Advance(0.05, t0)
	if monitor.State() != StateSpeaking {
		t.Fatalf("Expected speaking, got %v", monitor.State())
	}

	monitor.Reset()
	if monitor.State() != StateSilent {
		t.Errorf("Expected silent after reset, got %v", monitor.State())
	}
	if !monitor.RecordingStart().IsZero() {
		t.Errorf("Expected zero recording start after reset, got %v", monitor.RecordingStart())
	}
}

// Property checks over randomized threshold-crossing traces:
//   - commands are well-formed (start and cut strictly alternate),
//   - no emitted segment's onset-to-cut elapsed time is below the minimum,
//   - no recording stays open longer than the cap plus one poll interval,
//   - the machine is recording iff a start has no completed cut after it.
func TestRandomizedTraceProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		th := Thresholds{
			SilenceThreshold:   0.01,
			TrailingSilence:    time.Duration(200+rng.Intn(2000)) * time.Millisecond,
			MinSegmentDuration: time.Duration(100+rng.Intn(1000)) * time.Millisecond,
		}
		th.MaxSegmentDuration = th.MinSegmentDuration + time.Duration(500+rng.Intn(10000))*time.Millisecond

		monitor := NewMonitor(th)
		t0 := time.Unix(1700000000, 0)

		recording := false
		var openedAt time.Time

		for tick := 1; tick <= 600; tick++ {
			now := t0.Add(time.Duration(tick) * testPollInterval)

			loudness := 0.0
			if rng.Float64() < 0.4 {
				loudness = 0.02 + rng.Float64()*0.5
			}

			cmd := monitor.Advance(loudness, now)

			switch cmd {
			case CommandStart:
				if recording {
					t.Fatalf("run %d tick %d: start while already recording", run, tick)
				}
				recording = true
				openedAt = now

			case CommandEmit, CommandEmitTruncated:
				if !recording {
					t.Fatalf("run %d tick %d: emit without an open recording", run, tick)
				}
				elapsed := now.Sub(openedAt)
				if cmd == CommandEmit && elapsed < th.MinSegmentDuration {
					t.Fatalf("run %d tick %d: emitted %v below minimum %v", run, tick, elapsed, th.MinSegmentDuration)
				}
				recording = false

			case CommandDiscard:
				if !recording {
					t.Fatalf("run %d tick %d: discard without an open recording", run, tick)
				}
				if elapsed := now.Sub(openedAt); elapsed >= th.MinSegmentDuration {
					t.Fatalf("run %d tick %d: discarded %v despite meeting minimum %v", run, tick, elapsed, th.MinSegmentDuration)
				}
				recording = false
			}

			if recording {
				if open := now.Sub(openedAt); open > th.MaxSegmentDuration+testPollInterval {
					t.Fatalf("run %d tick %d: recording open for %v, cap %v", run, tick, open, th.MaxSegmentDuration)
				}
			}

			// Recording state and machine state must agree.
			inVoice := monitor.State() == StateSpeaking || monitor.State() == StateTrailingSilence
			if inVoice != recording {
				t.Fatalf("run %d tick %d: state %v disagrees with recording=%v", run, tick, monitor.State(), recording)
			}
		}
	}
}

func TestStateAndCommandStrings(t *testing.T) {
	if StateSilent.String() != "silent" || StateSpeaking.String() != "speaking" ||
		StateTrailingSilence.String() != "trailing_silence" {
		t.Error("Unexpected state names")
	}

	if CommandEmitTruncated.String() != "emit_truncated" {
		t.Errorf("Unexpected command name %q", CommandEmitTruncated.String())
	}

	if !CommandDiscard.IsCut() || CommandStart.IsCut() || CommandNone.IsCut() {
		t.Error("IsCut classification is wrong")
	}
}
