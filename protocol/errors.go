package protocol

import (
	"errors"
	"fmt"
)

// ValidationKind enumerates the ways a candidate update can be rejected.
// The set is closed: every ValidationError carries exactly one of these.
type ValidationKind int

const (
	// UnknownUser means the update's user has no registered key.
	UnknownUser ValidationKind = iota + 1
	// MalformedSignature means the signature text could not be decoded.
	MalformedSignature
	// InvalidSignature means the signature decoded but did not verify.
	InvalidSignature
)

// String returns the name of the validation kind.
func (k ValidationKind) String() string {
	switch k {
	case UnknownUser:
		return "UnknownUser"
	case MalformedSignature:
		return "MalformedSignature"
	case InvalidSignature:
		return "InvalidSignature"
	}
	return fmt.Sprintf("ValidationKind(%d)", int(k))
}

// Sentinel errors for matching validation failures with errors.Is.
var (
	ErrUnknownUser        = errors.New("unknown user")
	ErrMalformedSignature = errors.New("malformed signature")
	ErrInvalidSignature   = errors.New("invalid signature")
)

func (k ValidationKind) sentinel() error {
	switch k {
	case UnknownUser:
		return ErrUnknownUser
	case MalformedSignature:
		return ErrMalformedSignature
	case InvalidSignature:
		return ErrInvalidSignature
	}
	return nil
}

// ValidationError reports why a candidate update was rejected.
// Validation errors are terminal for a given submission; retrying the same
// message yields the same result.
type ValidationError struct {
	Kind ValidationKind
	// User is set for UnknownUser.
	User string
	// Err is the underlying decode error, if any.
	Err error
}

// Error formats the error the way it is reported to HTTP callers,
// e.g. "UnknownUser(alice)" or "InvalidSignature".
func (e *ValidationError) Error() string {
	if e.Kind == UnknownUser {
		return fmt.Sprintf("%s(%s)", e.Kind, e.User)
	}
	return e.Kind.String()
}

// Unwrap exposes the underlying decode error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is matches the kind's sentinel error.
func (e *ValidationError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// NewUnknownUserError creates an UnknownUser validation error.
func NewUnknownUserError(user string) *ValidationError {
	return &ValidationError{Kind: UnknownUser, User: user}
}

// KindOf returns the validation kind of err, or 0 if err is not a
// ValidationError.
func KindOf(err error) ValidationKind {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Kind
	}
	return 0
}
