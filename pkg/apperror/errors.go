package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by how callers are expected to react to it.
type Kind string

const (
	KindInvalidInput    Kind = "invalid_input"
	KindDataUnavailable Kind = "data_unavailable"
	KindUpstreamFailure Kind = "upstream_failure"
	KindNotFound        Kind = "not_found"
	KindInternal        Kind = "internal"
)

// Sentinels usable with errors.Is.
var (
	ErrInvalidInput    = &Error{Kind: KindInvalidInput}
	ErrDataUnavailable = &Error{Kind: KindDataUnavailable}
	ErrUpstreamFailure = &Error{Kind: KindUpstreamFailure}
	ErrNotFound        = &Error{Kind: KindNotFound}
)

type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Err.Error())
	case e.Op != "" && e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so sentinels compare by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func InvalidInput(op, msg string) error {
	return &Error{Kind: KindInvalidInput, Op: op, Msg: msg}
}

func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
