package capture

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Microphone is the PortAudio-backed Source reading the default input
// device with a mono PCM-16 stream at a fixed sample rate.
type Microphone struct {
	logger *slog.Logger

	sampleRate      int
	framesPerBuffer int

	stream *portaudio.Stream
	buf    []int16

	started bool
	stop    chan struct{}
	done    chan struct{}

	mu sync.Mutex
}

// OpenMicrophone initializes PortAudio and opens the default capture device.
// A refusal by the OS surfaces as ErrPermissionDenied; any other open
// failure as ErrSourceUnavailable.
func OpenMicrophone(logger *slog.Logger, sampleRate, framesPerBuffer int) (*Microphone, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: portaudio init: %v", ErrSourceUnavailable, err)
	}

	m := &Microphone{
		logger:          logger,
		sampleRate:      sampleRate,
		framesPerBuffer: framesPerBuffer,
		buf:             make([]int16, framesPerBuffer),
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), framesPerBuffer, m.buf)
	if err != nil {
		portaudio.Terminate()
		if isPermissionError(err) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("%w: open default stream: %v", ErrSourceUnavailable, err)
	}
	m.stream = stream

	logger.Info("Microphone opened",
		slog.Int("sample_rate", sampleRate),
		slog.Int("frames_per_buffer", framesPerBuffer),
	)

	return m, nil
}

// isPermissionError recognizes OS-level microphone access refusals in the
// error text PortAudio reports. The host APIs do not expose a dedicated
// error code for this.
func isPermissionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission") || strings.Contains(msg, "access denied")
}

// Start begins the capture goroutine delivering frames to fn
func (m *Microphone) Start(fn FrameFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}

	if err := m.stream.Start(); err != nil {
		return fmt.Errorf("%w: start stream: %v", ErrSourceUnavailable, err)
	}

	m.started = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})

	go m.readLoop(fn, m.stop, m.done)

	return nil
}

// readLoop blocks on device reads and hands each frame to the callback
// until stopped. Read errors end capture; the buffer simply stops filling
// and the session's amplitude sampler reads silence from then on.
func (m *Microphone) readLoop(fn FrameFunc, stop, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := m.stream.Read(); err != nil {
			m.logger.Error("Microphone read failed, capture stopped",
				slog.String("error", err.Error()),
			)
			return
		}

		fn(m.buf)
	}
}

// Stop halts frame delivery and waits for the capture goroutine to exit
func (m *Microphone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil
	}
	m.started = false

	close(m.stop)
	if err := m.stream.Abort(); err != nil {
		m.logger.Warn("Error aborting capture stream", slog.String("error", err.Error()))
	}
	<-m.done

	return nil
}

// SampleRate returns the fixed capture sample rate in Hz
func (m *Microphone) SampleRate() int {
	return m.sampleRate
}

// Close releases the stream and the PortAudio runtime
func (m *Microphone) Close() error {
	if err := m.Stop(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil {
		if err := m.stream.Close(); err != nil {
			portaudio.Terminate()
			return fmt.Errorf("close stream: %w", err)
		}
		m.stream = nil
	}

	return portaudio.Terminate()
}
