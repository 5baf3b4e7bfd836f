package idb

import "fmt"

// Error names, following DOMException.
const (
	NameConstraint    = "ConstraintError"
	NameData          = "DataError"
	NameDataClone     = "DataCloneError"
	NameNotFound      = "NotFoundError"
	NameVersion       = "VersionError"
	NameInvalidState  = "InvalidStateError"
	NameInvalidAccess = "InvalidAccessError"
	NameReadOnly      = "ReadOnlyError"
	NameAbort         = "AbortError"
	NameType          = "TypeError"
	NameUnknown       = "UnknownError"
)

// Sentinels for errors.Is. Any *Error with the same Name matches.
var (
	ErrConstraint    = &Error{Name: NameConstraint}
	ErrData          = &Error{Name: NameData}
	ErrDataClone     = &Error{Name: NameDataClone}
	ErrNotFound      = &Error{Name: NameNotFound}
	ErrVersion       = &Error{Name: NameVersion}
	ErrInvalidState  = &Error{Name: NameInvalidState}
	ErrInvalidAccess = &Error{Name: NameInvalidAccess}
	ErrReadOnly      = &Error{Name: NameReadOnly}
	ErrAbort         = &Error{Name: NameAbort}
	ErrType          = &Error{Name: NameType}
	ErrUnknown       = &Error{Name: NameUnknown}
)

// Error is an engine failure.
type Error struct {
	Name    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Name
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Name.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Name == e.Name
}

func newError(name, format string, args ...any) *Error {
	return &Error{Name: name, Message: fmt.Sprintf(format, args...)}
}

func wrapError(name string, err error, format string, args ...any) *Error {
	return &Error{Name: name, Message: fmt.Sprintf(format, args...), Err: err}
}
