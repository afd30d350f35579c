package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so callers can branch with errors.Is without parsing messages.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrExpired       = errors.New("expired")
	ErrMisconfigured = errors.New("misconfigured")
	ErrDependency    = errors.New("dependency failure")
)

// Error carries a user-facing message alongside its kind and optional cause.
// Error() returns only the message; the kind and cause are reachable through errors.Is / errors.As.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError builds an Error of the given kind with no underlying cause.
func NewError(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error of the given kind around cause.
func Wrap(kind error, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// Message returns the user-facing text of err: the Msg of the outermost *Error
// in its chain, or err.Error() otherwise.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Msg
	}
	return err.Error()
}

// User-facing failures shared by the issuer, the verifier and the HTTP layer.
var (
	ErrEmailRequired       = NewError(ErrValidation, "Email is required")
	ErrCodeRequired        = NewError(ErrValidation, "Code is required")
	ErrCodeAndPassword     = NewError(ErrValidation, "Code and new password required")
	ErrInvalidAction       = NewError(ErrValidation, "Invalid action")
	ErrInvalidCode         = NewError(ErrNotFound, "Invalid code")
	ErrCodeExpired         = NewError(ErrExpired, "Code expired")
	ErrUserNotFound        = NewError(ErrNotFound, "User not found")
	ErrUserAccountNotFound = NewError(ErrNotFound, "User account not found")
	ErrMissingMailCreds    = NewError(ErrMisconfigured, "Server misconfiguration: Missing email credentials.")
)
