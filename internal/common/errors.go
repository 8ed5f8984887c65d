// Package common defines sentinel errors shared by the exporter layers.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Backend (archive, catalog, ledger) temporarily unreachable. Retried by
	// queue redelivery, never in-process.
	ErrTransientUpstream = errors.New("upstream temporarily unavailable")

	// Terminal export failures. The record is left untouched and can be
	// redriven after the cause is fixed.
	ErrDecryption          = errors.New("decryption failed")
	ErrLedgerInconsistency = errors.New("participant has no recorded version")

	// Bounded poll against an eventually consistent surface ran out of attempts.
	ErrPollTimeout = errors.New("timed out waiting for result")

	// Queue errors.
	ErrInvalidMessage = errors.New("invalid message")
	ErrLeaseHeld      = errors.New("lease held by another worker")
)

// IsTerminal reports whether err should not be retried by redelivery.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrDecryption) ||
		errors.Is(err, ErrLedgerInconsistency) ||
		errors.Is(err, ErrInvalidMessage)
}
