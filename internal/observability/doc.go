// Package observability provides structured logging and Prometheus metrics
// for the users service.
//
// This package implements:
//   - zap logger construction from LOG_LEVEL and LOG_FORMAT
//   - authentication attempt counters and latency histograms
//   - the /metrics handler backed by a private registry
package observability
