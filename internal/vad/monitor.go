package vad

import (
	"fmt"
	"sync"
	"time"
)

// State represents the current position in the silence/speech machine
type State int

const (
	// StateSilent means no speech is in progress and nothing is recording.
	StateSilent State = iota
	// StateSpeaking means speech is in progress and a recording is open.
	StateSpeaking
	// StateTrailingSilence means speech paused; the recording stays open
	// until the trailing-silence window elapses or speech resumes.
	StateTrailingSilence
)

// String returns the human-readable state name
func (s State) String() string {
	switch s {
	case StateSilent:
		return "silent"
	case StateSpeaking:
		return "speaking"
	case StateTrailingSilence:
		return "trailing_silence"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Command is the action a state transition instructs the recorder to take
type Command int

const (
	// CommandNone requests no recorder action.
	CommandNone Command = iota
	// CommandStart opens a new recording.
	CommandStart
	// CommandEmit cuts the recording and delivers the segment.
	CommandEmit
	// CommandEmitTruncated cuts at the max-duration cap and delivers the
	// segment flagged as an artificial boundary.
	CommandEmitTruncated
	// CommandDiscard cuts the recording and suppresses delivery.
	CommandDiscard
)

// String returns the human-readable command name
func (c Command) String() string {
	switch c {
	case CommandNone:
		return "none"
	case CommandStart:
		return "start"
	case CommandEmit:
		return "emit"
	case CommandEmitTruncated:
		return "emit_truncated"
	case CommandDiscard:
		return "discard"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// IsCut reports whether the command closes the in-progress recording
func (c Command) IsCut() bool {
	return c == CommandEmit || c == CommandEmitTruncated || c == CommandDiscard
}

// Thresholds are the immutable per-session boundary parameters
type Thresholds struct {
	SilenceThreshold   float64       // normalized RMS below which audio is silence
	TrailingSilence    time.Duration // quiet period that finishes an utterance
	MaxSegmentDuration time.Duration // hard cap on a single recording
	MinSegmentDuration time.Duration // cuts shorter than this are discarded
}

// IsSpeech classifies a loudness reading against the silence threshold.
// Stateless; the threshold is a configured constant, not adaptive.
func IsSpeech(loudness, threshold float64) bool {
	return loudness >= threshold
}

// Snapshot is the complete mutable state of the monitor at one poll tick:
// the machine state plus the two boundary timestamps. RecordingStart is set
// on the silent-to-speaking transition; SilenceStart is set when speech
// pauses and cleared when it resumes. Both are zeroed at every cut.
type Snapshot struct {
	State          State
	RecordingStart time.Time
	SilenceStart   time.Time
}

// Step advances the state machine by one poll tick. It is a pure function:
// given the previous snapshot, whether the current reading classifies as
// speech, the tick time, and the thresholds, it returns the next snapshot
// and the command for the recorder.
//
// The minimum-duration check deliberately measures from recording onset to
// cut time, so the trailing-silence wait counts toward a segment's elapsed
// duration. A one-tick utterance followed by a full trailing window is
// therefore still emitted when interval+trailing exceeds the minimum.
func Step(prev Snapshot, speech bool, now time.Time, th Thresholds) (Snapshot, Command) {
	switch prev.State {
	case StateSilent:
		if speech {
			return Snapshot{State: StateSpeaking, RecordingStart: now}, CommandStart
		}
		return prev, CommandNone

	case StateSpeaking:
		if !speech {
			next := prev
			next.State = StateTrailingSilence
			next.SilenceStart = now
			return next, CommandNone
		}
		if now.Sub(prev.RecordingStart) >= th.MaxSegmentDuration {
			// Forced cutoff mid-speech. The machine returns to silent and
			// re-enters speaking on the next tick, opening a new segment.
			return Snapshot{State: StateSilent}, CommandEmitTruncated
		}
		return prev, CommandNone

	case StateTrailingSilence:
		if speech {
			next := prev
			next.State = StateSpeaking
			next.SilenceStart = time.Time{}
			return next, CommandNone
		}
		if now.Sub(prev.SilenceStart) >= th.TrailingSilence {
			if now.Sub(prev.RecordingStart) >= th.MinSegmentDuration {
				return Snapshot{State: StateSilent}, CommandEmit
			}
			return Snapshot{State: StateSilent}, CommandDiscard
		}
		if now.Sub(prev.RecordingStart) >= th.MaxSegmentDuration {
			// The cap overrides the trailing-silence wait.
			return Snapshot{State: StateSilent}, CommandEmitTruncated
		}
		return prev, CommandNone
	}

	return prev, CommandNone
}

// Monitor wraps the transition function with the session's thresholds and
// the current snapshot. Advance is driven once per poll tick by the session
// run loop; the read-only accessors are safe from other goroutines.
type Monitor struct {
	thresholds Thresholds
	snapshot   Snapshot

	ticks        uint64
	voiceTicks   uint64
	lastLoudness float64

	mu sync.RWMutex
}

// MonitorStats represents monitor counters for monitoring endpoints
type MonitorStats struct {
	State        string  `json:"state"`
	Ticks        uint64  `json:"ticks"`
	VoiceTicks   uint64  `json:"voice_ticks"`
	LastLoudness float64 `json:"last_loudness"`
}

// NewMonitor creates a monitor in the silent state
func NewMonitor(th Thresholds) *Monitor {
	return &Monitor{thresholds: th}
}

// Advance classifies one loudness reading and advances the state machine,
// returning the command for the recorder.
func (m *Monitor) Advance(loudness float64, now time.Time) Command {
	m.mu.Lock()
	defer m.mu.Unlock()

	speech := IsSpeech(loudness, m.thresholds.SilenceThreshold)

	m.ticks++
	if speech {
		m.voiceTicks++
	}
	m.lastLoudness = loudness

	next, cmd := Step(m.snapshot, speech, now, m.thresholds)
	m.snapshot = next
	return cmd
}

// State returns the current machine state
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot.State
}

// RecordingStart returns the onset timestamp of the open recording, or the
// zero time when nothing is recording.
func (m *Monitor) RecordingStart() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot.RecordingStart
}

// Reset forces the machine back to silent with cleared timestamps. Used
// after an encoder runtime error loses the current candidate.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = Snapshot{}
}

// GetStats returns current monitor counters
func (m *Monitor) GetStats() MonitorStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MonitorStats{
		State:        m.snapshot.State.String(),
		Ticks:        m.ticks,
		VoiceTicks:   m.voiceTicks,
		LastLoudness: m.lastLoudness,
	}
}
