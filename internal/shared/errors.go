package shared

import "errors"

var (
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a duplicate of a unique field.
	ErrConflict = errors.New("conflict")
)

type apiError struct {
	kind error
	msg  string
}

func (e *apiError) Error() string { return e.msg }
func (e *apiError) Unwrap() error { return e.kind }

// NewError wraps a sentinel kind with a client-facing message.
func NewError(kind error, msg string) error {
	return &apiError{kind: kind, msg: msg}
}

// UserSafeMessage returns a message suitable for API clients. Known error
// kinds carry their own wording; anything else collapses to a generic line
// so internal detail never leaks.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict):
		return err.Error()
	default:
		return "Internal Server Error"
	}
}
