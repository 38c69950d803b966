package db

import "errors"

// Kind classifies a failure so the transport layer can render it.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnection
	KindValidation
	KindRejected
	KindExecution
	KindSerialization
	KindNotFound
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindConnection:    "connection",
	KindValidation:    "validation",
	KindRejected:      "rejected",
	KindExecution:     "execution",
	KindSerialization: "serialization",
	KindNotFound:      "not_found",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error is returned by every database-facing operation.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

// Error returns the message followed by the cause. Op is kept for logs only.
func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Cause != nil:
		return e.Cause.Error()
	case e.Cause == nil:
		return e.Message
	default:
		return e.Message + ": " + e.Cause.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates an Error.
func NewError(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
