package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Capture       CaptureConfig       `yaml:"capture"`
	VAD           VADConfig           `yaml:"vad"`
	Segmenter     SegmenterConfig     `yaml:"segmenter"`
	Encoder       EncoderConfig       `yaml:"encoder"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	HTTP          HTTPConfig          `yaml:"http"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// CaptureConfig contains microphone capture parameters
type CaptureConfig struct {
	SampleRate      int `yaml:"sample_rate"`       // Hz
	Channels        int `yaml:"channels"`          // must be 1 (mono)
	FramesPerBuffer int `yaml:"frames_per_buffer"` // samples per device read
}

// VADConfig contains voice activity detection parameters
type VADConfig struct {
	SilenceThreshold float64 `yaml:"silence_threshold"` // normalized RMS, 0-1
	WindowSize       int     `yaml:"window_size"`       // samples per RMS window
}

// SegmenterConfig contains segment boundary timing parameters
type SegmenterConfig struct {
	TrailingSilenceMs    int `yaml:"trailing_silence_ms"`
	MaxSegmentDurationMs int `yaml:"max_segment_duration_ms"`
	MinSegmentDurationMs int `yaml:"min_segment_duration_ms"`
	PollIntervalMs       int `yaml:"poll_interval_ms"`
}

// EncoderConfig contains audio encoder configuration
type EncoderConfig struct {
	Format string `yaml:"format"` // "wav" or "opus"
}

// TranscriptionConfig contains transcription API configuration
type TranscriptionConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxRetries    int    `yaml:"max_retries"`
	MaxConcurrent int    `yaml:"max_concurrent"`
	Language      string `yaml:"language"`
}

// HTTPConfig contains HTTP monitoring API configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns a configuration populated with the stock defaults:
// 16 kHz mono capture, 0.01 RMS threshold, 1500 ms trailing silence,
// 500 ms / 15000 ms segment bounds and a 50 ms poll interval.
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			SampleRate:      16000,
			Channels:        1,
			FramesPerBuffer: 512,
		},
		VAD: VADConfig{
			SilenceThreshold: 0.01,
			WindowSize:       1024,
		},
		Segmenter: SegmenterConfig{
			TrailingSilenceMs:    1500,
			MaxSegmentDurationMs: 15000,
			MinSegmentDurationMs: 500,
			PollIntervalMs:       50,
		},
		Encoder: EncoderConfig{
			Format: "wav",
		},
		Transcription: TranscriptionConfig{
			Enabled:       false,
			Timeout:       30,
			MaxRetries:    3,
			MaxConcurrent: 4,
		},
		HTTP: HTTPConfig{
			Port:    8080,
			Address: "127.0.0.1",
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.VAD.Validate(); err != nil {
		return fmt.Errorf("vad config: %w", err)
	}

	if err := c.Segmenter.Validate(); err != nil {
		return fmt.Errorf("segmenter config: %w", err)
	}

	if err := c.Encoder.Validate(c.Capture.SampleRate); err != nil {
		return fmt.Errorf("encoder config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates capture configuration
func (cc *CaptureConfig) Validate() error {
	if cc.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", cc.SampleRate)
	}

	if cc.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", cc.Channels)
	}

	if cc.FramesPerBuffer < 64 || cc.FramesPerBuffer > 8192 {
		return fmt.Errorf("frames_per_buffer must be between 64 and 8192, got %d", cc.FramesPerBuffer)
	}

	return nil
}

// Validate validates VAD configuration
func (v *VADConfig) Validate() error {
	if v.SilenceThreshold < 0 || v.SilenceThreshold > 1 {
		return fmt.Errorf("silence_threshold must be between 0 and 1, got %f", v.SilenceThreshold)
	}

	if v.WindowSize < 128 || v.WindowSize > 65536 {
		return fmt.Errorf("window_size must be between 128 and 65536 samples, got %d", v.WindowSize)
	}

	return nil
}

// Validate validates segmenter timing configuration
func (s *SegmenterConfig) Validate() error {
	if s.TrailingSilenceMs <= 0 {
		return fmt.Errorf("trailing_silence_ms must be positive, got %d", s.TrailingSilenceMs)
	}

	if s.MinSegmentDurationMs <= 0 {
		return fmt.Errorf("min_segment_duration_ms must be positive, got %d", s.MinSegmentDurationMs)
	}

	if s.MaxSegmentDurationMs <= s.MinSegmentDurationMs {
		return fmt.Errorf("max_segment_duration_ms (%d) must be greater than min_segment_duration_ms (%d)",
			s.MaxSegmentDurationMs, s.MinSegmentDurationMs)
	}

	if s.PollIntervalMs <= 0 {
		return fmt.Errorf("poll_interval_ms must be positive, got %d", s.PollIntervalMs)
	}

	if s.PollIntervalMs > s.TrailingSilenceMs {
		return fmt.Errorf("poll_interval_ms (%d) must not exceed trailing_silence_ms (%d)",
			s.PollIntervalMs, s.TrailingSilenceMs)
	}

	return nil
}

// CoarsePolling reports whether the poll interval is large relative to the
// trailing-silence window (more than a tenth of it), which makes silence
// detection coarse. Callers log a warning; it is not a validation error.
func (s *SegmenterConfig) CoarsePolling() bool {
	return s.PollIntervalMs*10 > s.TrailingSilenceMs
}

// opusSampleRates lists the sample rates the Opus codec accepts.
var opusSampleRates = map[int]bool{
	8000: true, 12000: true, 16000: true, 24000: true, 48000: true,
}

// Validate validates encoder configuration against the capture sample rate
func (e *EncoderConfig) Validate(sampleRate int) error {
	switch e.Format {
	case "wav":
		return nil
	case "opus":
		if !opusSampleRates[sampleRate] {
			return fmt.Errorf("opus requires a sample rate of 8000, 12000, 16000, 24000 or 48000 Hz, got %d", sampleRate)
		}
		return nil
	default:
		return fmt.Errorf("format must be 'wav' or 'opus', got '%s'", e.Format)
	}
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	if !t.Enabled {
		return nil
	}

	if t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty when transcription is enabled")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", t.MaxRetries)
	}

	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetTrailingSilence returns the trailing-silence window as a time.Duration
func (s *SegmenterConfig) GetTrailingSilence() time.Duration {
	return time.Duration(s.TrailingSilenceMs) * time.Millisecond
}

// GetMaxSegmentDuration returns the maximum segment duration as a time.Duration
func (s *SegmenterConfig) GetMaxSegmentDuration() time.Duration {
	return time.Duration(s.MaxSegmentDurationMs) * time.Millisecond
}

// GetMinSegmentDuration returns the minimum segment duration as a time.Duration
func (s *SegmenterConfig) GetMinSegmentDuration() time.Duration {
	return time.Duration(s.MinSegmentDurationMs) * time.Millisecond
}

// GetPollInterval returns the poll interval as a time.Duration
func (s *SegmenterConfig) GetPollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}
