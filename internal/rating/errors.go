package rating

import "errors"

// Kind classifies a service failure.
type Kind string

const (
	KindValidation Kind = "VALIDATION_ERROR"
	KindNotFound   Kind = "NOT_FOUND"
	KindForbidden  Kind = "FORBIDDEN"
	KindConflict   Kind = "CONFLICT"
	KindInternal   Kind = "INTERNAL_ERROR"
)

// Error is returned by every Service operation.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the Kind of err. Errors not produced by the service are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func validationError(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }
func notFoundError(msg string) *Error   { return &Error{Kind: KindNotFound, Message: msg} }
func forbiddenError(msg string) *Error  { return &Error{Kind: KindForbidden, Message: msg} }
func conflictError(msg string) *Error   { return &Error{Kind: KindConflict, Message: msg} }

func internalError(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}
