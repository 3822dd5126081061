// Package mlog provides structured logging for the decode core.
//
// It wraps zap with convenience functions for the events the core itself
// raises: frame acceptance/rejection, driver selection, decryption
// failures, and decode results. Logging is silent by default; set
// WMBUS_LOG_LEVEL to "debug", "info", "warn", or "error" to enable it.
//
// The core never writes to stdout/stderr directly outside of this package:
// every diagnostic goes through a logger here rather than a stray fmt.Print,
// so a caller embedding the decode core can redirect or silence it in one
// place.
package mlog
