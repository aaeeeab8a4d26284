// Package config handles YAML configuration loading and validation.
// It defines one section per subsystem (capture, VAD, segmenter, encoder,
// transcription, HTTP, logging) with per-section validation rules.
package config
