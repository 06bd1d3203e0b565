// Package common provides shared utilities and types used across the application.
package common

import "errors"

// Error taxonomy. Every failure in a sync cycle wraps exactly one of these
// sentinels with %w; nothing is retried or recovered internally, so the
// first error aborts the cycle before anything is persisted.
var (
	// ErrAuth indicates a rejected login or a malformed login response.
	ErrAuth = errors.New("authentication failed")
	// ErrTransport indicates a non-success HTTP status or a network failure.
	ErrTransport = errors.New("request failed")
	// ErrDecoding indicates a response that does not match the expected shape.
	ErrDecoding = errors.New("unexpected response shape")
	// ErrValidation indicates a snapshot file that fails schema validation.
	ErrValidation = errors.New("invalid snapshot")
	// ErrPersistence indicates an I/O failure writing the snapshot file.
	ErrPersistence = errors.New("snapshot write failed")
)
