package env

// Error codes shared by every operation of the layer. Three failure classes
// exist: plain I/O failures, contended advisory locks, and a shared file
// mutex left unusable by a holder that crashed mid-operation.
const (
	CodeIO       = "IO"
	CodeLocked   = "AlreadyLocked"
	CodePoisoned = "Poisoned"
)

// Sentinel errors for errors.Is checks.
var (
	ErrLocked   = NewError(CodeLocked, "path is already locked")
	ErrPoisoned = NewError(CodePoisoned, "shared file mutex was poisoned by a crashed holder")
)

// Error is the failure type crossing every operation boundary of the layer.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Cause }

// Is matches errors by code, so errors.Is(err, ErrLocked) holds for any
// locked-kind failure regardless of the path or cause it carries.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates an Error with no underlying cause.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorWithCause creates an Error wrapping an underlying cause.
func NewErrorWithCause(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}
