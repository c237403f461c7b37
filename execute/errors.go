package execute

import (
	"errors"
	"fmt"
)

type Kind int

const (
	UnsupportedType Kind = iota + 1
	ProtectedObject
	DuplicateIndex
	RelationFailure
	UnknownStatement
	NoSuchObject
)

func (k Kind) String() string {
	switch k {
	case UnsupportedType:
		return "unsupported type"
	case ProtectedObject:
		return "protected object"
	case DuplicateIndex:
		return "duplicate index"
	case RelationFailure:
		return "relation failure"
	case UnknownStatement:
		return "unknown statement"
	case NoSuchObject:
		return "no such object"
	}
	return fmt.Sprintf("kind %d", int(k))
}

// Error is every error returned by Execute.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	} else if e.Msg == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func newError(kind Kind, msg string, args ...interface{}) error {
	return &Error{
		Kind: kind,
		Msg:  fmt.Sprintf(msg, args...),
	}
}
