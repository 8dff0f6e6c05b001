package vault

import (
	"errors"
	"fmt"

	"github.com/rony4d/go-lpvault/ledger"
)

// Stable error taxonomy. Every error aborts the whole operation with no
// partial state change; integrators can branch on kind with errors.Is
// without parsing message text.
var (
	// ErrInvalidAmount rejects zero (or nil/negative) deposit amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientBalance rejects withdrawals exceeding the caller's
	// stake. Aliased from the ledger so errors.Is matches either package.
	ErrInsufficientBalance = ledger.ErrInsufficientBalance

	// ErrNotWhitelisted rejects conversion-path assets outside the
	// whitelist set.
	ErrNotWhitelisted = errors.New("asset not whitelisted")

	// ErrUnauthorized rejects privileged calls from anyone but the
	// designated authority.
	ErrUnauthorized = errors.New("caller is not the authority")

	// ErrExternalFailure marks failures of the reward source or the
	// conversion venue. The concrete cause is wrapped; match the kind with
	// errors.Is(err, ErrExternalFailure).
	ErrExternalFailure = errors.New("external call failed")
)

// ExternalError wraps a failed call against an external collaborator with
// the operation that was attempted.
type ExternalError struct {
	Op  string // e.g. "harvest", "stake", "convertToLP"
	Err error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("external call %s failed: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *ExternalError) Unwrap() error {
	return e.Err
}

// Is makes every ExternalError match ErrExternalFailure.
func (e *ExternalError) Is(target error) bool {
	return target == ErrExternalFailure
}

// external wraps err as an ExternalError, passing nil through.
func external(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ExternalError{Op: op, Err: err}
}
