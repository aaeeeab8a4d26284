// Package capture acquires the continuous microphone signal. It defines the
// Source abstraction the session controller consumes and provides the
// PortAudio implementation for the default input device (mono PCM-16).
package capture
