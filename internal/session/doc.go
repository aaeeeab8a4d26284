// Package session wires capture, activity monitoring, recording and
// encoding into one streaming pipeline.
//
// A Controller runs a single goroutine that polls the rolling capture
// buffer on a fixed interval, advances the activity monitor, and opens or
// cuts recordings as the monitor commands. All state transitions and
// segment deliveries happen on that goroutine, so observers never see a
// half-applied cut.
package session
