// Package observability provides structured logging and metrics
// for the ReLIFE service API.
//
// This package implements:
//   - zap logger construction from configuration
//   - Request ID propagation through context
//   - Prometheus collectors for authentication outcomes and upstream latency
package observability
