// Package server implements the HTTP monitoring API. It exposes health,
// session state, configuration, statistics and Prometheus metrics endpoints
// for operating the listener.
package server
