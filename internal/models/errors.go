package models

import (
	"errors"
	"fmt"
)

// Error taxonomy for the retrieval engine. Callers classify with errors.Is /
// errors.As; everything else in the codebase keeps the usual fmt.Errorf("%w")
// wrapping on top of these sentinels.
var (
	// ErrValidation marks bad caller input (empty name, invalid chunk
	// parameters). Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks operations against a missing record. Deletes treat
	// it as a no-op, lists as an empty sequence.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a uniqueness violation from a concurrent create.
	// Idempotent paths (get-or-create, fingerprint dedup) resolve it by
	// re-reading the winning record instead of surfacing it.
	ErrConflict = errors.New("conflict")

	// ErrStorage marks a persistence-layer failure. Fatal to the current
	// operation; ingestion leaves no partial writes behind.
	ErrStorage = errors.New("storage failure")
)

// ProviderError is a failure at the embedding-provider boundary.
// Transient errors (rate limit, timeout) are candidates for caller-driven
// retry; permanent ones (auth, malformed input) abort immediately.
type ProviderError struct {
	Op         string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *ProviderError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("embedding provider %s failed (%s, status %d): %v", e.Op, kind, e.StatusCode, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsTransientProviderError reports whether err is a provider failure worth
// retrying with backoff.
func IsTransientProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}
