package attempts

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound covers unknown challenges and results reads for users with no
// counted attempt.
var ErrNotFound = errors.New("not found")

// ErrTransient is surfaced after the retry budget for storage conflicts is
// exhausted. The client should simply try again.
var ErrTransient = errors.New("transient storage conflict")

// isTransient reports whether a storage error is a concurrency conflict worth
// retrying: a unique-violation on the one-best partial index, a serialization
// failure, or a deadlock.
func isTransient(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "23505", // unique_violation
		"40001", // serialization_failure
		"40P01", // deadlock_detected
		"55P03": // lock_not_available
		return true
	}
	return false
}
