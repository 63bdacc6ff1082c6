package ensemble

import (
	"errors"
	"fmt"
)

// RecoverableError wraps a transient synchronization failure: a claim
// race lost, a peer archive that is corrupt or mid-write, a file that
// vanished between listing and use. Such failures are logged and
// skipped; the next externally driven sync cycle is the retry
// mechanism. Anything not wrapped in a RecoverableError aborts the
// operation that hit it.
type RecoverableError struct {
	Op  string
	Err error
}

func (e *RecoverableError) Error() string {
	return fmt.Sprintf("recoverable sync error during %s: %v", e.Op, e.Err)
}

func (e *RecoverableError) Unwrap() error {
	return e.Err
}

func recoverable(op string, err error) error {
	return &RecoverableError{Op: op, Err: err}
}

// IsRecoverable reports whether err is, or wraps, a RecoverableError.
func IsRecoverable(err error) bool {
	var re *RecoverableError
	return errors.As(err, &re)
}
