package license

import (
	"errors"
	"fmt"

	"entitlement-controlplane/pkg/errutil"
)

const (
	ReasonActivationKeyExists = "ACTIVATION_KEY_ALREADY_EXISTS"
	ReasonInvalidLicenseKey   = "INVALID_LICENSE_KEY"
)

var ErrDuplicateActivation = errors.New("activation key already exists")

// DuplicateActivationError is returned when a trial was already issued to
// the email.
func DuplicateActivationError(email string) error {
	return errutil.Conflict("activation key already exists", ErrDuplicateActivation,
		errutil.WithReason(ReasonActivationKeyExists),
		errutil.WithParam("email", email),
	)
}

// UnexpectedAuthorityError is any failure talking to the licensing
// authority that has no defined meaning for the operation: a non-success
// status, an unreadable answer, or a transport error. StatusCode is 0 when
// no response was received.
type UnexpectedAuthorityError struct {
	Operation  string
	StatusCode int
	Body       string
	Err        error
}

func (e *UnexpectedAuthorityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected response from license authority on %s: status %d: %v", e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("unexpected response from license authority on %s: status %d: %s", e.Operation, e.StatusCode, e.Body)
}

func (e *UnexpectedAuthorityError) Unwrap() error {
	return e.Err
}

func (e *UnexpectedAuthorityError) Status() errutil.CoreStatus {
	return errutil.StatusBadGateway
}

type PerPlatformReconciliationError struct {
	PlatformID string
	Err        error
}

func (e *PerPlatformReconciliationError) Error() string {
	return fmt.Sprintf("reconcile platform %s: %v", e.PlatformID, e.Err)
}

func (e *PerPlatformReconciliationError) Unwrap() error {
	return e.Err
}
