// Package apperr is the single typed error taxonomy for the goostr core.
//
// Every internal package returns *Error (or wraps a lower error with Wrap)
// instead of mixing ad-hoc sentinel errors and generic wrapping; the MCP
// tool boundary is the only place that converts a Kind into the transport's
// error representation.
package apperr

import "fmt"

type Kind string

const (
	InvalidParams Kind = "invalid_params"
	NoActiveKey   Kind = "no_active_key"
	AuthFailed    Kind = "auth_failed"
	Io            Kind = "io"
	Keyring       Kind = "keyring"
	Relay         Kind = "relay"
	PublishFailed Kind = "publish_failed"
	Internal      Kind = "internal"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Of returns the Kind of err if it is (or wraps) an *Error, else Internal.
func Of(err error) Kind {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind
	}
	return Internal
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
