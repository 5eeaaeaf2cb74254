package tickets

import "errors"

// Failure kinds surfaced by the lifecycle manager. Handlers map these to
// status codes with errors.Is; everything else is an internal error.
var (
	// ErrPoolExhausted: no credentials remain. Expected and user-facing,
	// safe to retry after reseeding.
	ErrPoolExhausted = errors.New("ticket pool exhausted")

	// ErrDeliveryFailed: the mail transport rejected or errored. The
	// drawn credential is already consumed; retrying risks double-spend.
	ErrDeliveryFailed = errors.New("ticket delivery failed")

	// ErrPersistenceFailed: the store write failed after the mail was
	// accepted. The email is out but no record exists.
	ErrPersistenceFailed = errors.New("ticket persistence failed")

	// ErrNotFound: a query matched no ticket.
	ErrNotFound = errors.New("ticket not found")

	// ErrStoreUnavailable: the backing store could not be reached. Safe
	// to retry, nothing was consumed.
	ErrStoreUnavailable = errors.New("ticket store unavailable")

	// ErrInvalidInput: the request failed validation before any
	// credential was drawn.
	ErrInvalidInput = errors.New("invalid ticket request")
)
