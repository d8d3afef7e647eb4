package optimistic

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNoop is returned by Apply when the change leaves the state as is.
	ErrNoop = errors.New("optimistic: change has no effect")

	// ErrClosed is returned once the owning view has been closed.
	ErrClosed = errors.New("optimistic: mutator closed")
)

// RejectedError reports a constraint policy violation. Notice is the text
// shown to the user; Title heads the warning pop-up.
type RejectedError struct {
	Reason string
	Title  string
	Notice string
}

func (e *RejectedError) Error() string {
	if e.Notice == "" {
		return "optimistic: rejected: " + e.Reason
	}
	return fmt.Sprintf("optimistic: rejected: %s: %s", e.Reason, e.Notice)
}

// IsRejected reports whether err is a policy rejection.
func IsRejected(err error) bool {
	var rejected *RejectedError
	return errors.As(err, &rejected)
}

// WriteError wraps the failure of an operation's network write.
type WriteError struct {
	Op     uuid.UUID
	Action Action
	Target string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("optimistic: %s %q failed: %v", e.Action, e.Target, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
