package services

import "errors"

// Error kinds. Match them with errors.Is.
var (
	ErrValidation     = errors.New("validation error")
	ErrAuthentication = errors.New("authentication error")
	ErrNotFound       = errors.New("not found")
	ErrOrderPlacement = errors.New("order placement error")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal error")
)

// Error is what every service method returns on failure. Message is safe to
// show to callers; Err, when set, is the storage cause and is only logged.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }

func validationError(msg string) error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func authError(msg string) error {
	return &Error{Kind: ErrAuthentication, Message: msg}
}

func notFound(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func conflict(msg string, cause error) error {
	return &Error{Kind: ErrConflict, Message: msg, Err: cause}
}

func placementFailed(cause error) error {
	return &Error{Kind: ErrOrderPlacement, Message: "Failed to place order", Err: cause}
}

func internal(cause error) error {
	return &Error{Kind: ErrInternal, Message: "Internal server error", Err: cause}
}
