package sqlite

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by connections, commands,
// transactions and readers
type ErrorKind int

const (
	KindConfiguration ErrorKind = iota + 1
	KindState
	KindResourceNotFound
	KindBinding
	KindEngine
	KindFormat
	KindIndex
	KindTimeout
)

// Sentinels for errors.Is; every *Error matches the sentinel of its Kind
var (
	ErrConfiguration    = errors.New("configuration error")
	ErrState            = errors.New("invalid state")
	ErrResourceNotFound = errors.New("resource not found")
	ErrBinding          = errors.New("parameter binding error")
	ErrEngine           = errors.New("engine error")
	ErrFormat           = errors.New("format error")
	ErrIndex            = errors.New("index out of range")
	ErrTimeout          = errors.New("timeout")
)

var kindSentinels = map[ErrorKind]error{
	KindConfiguration:    ErrConfiguration,
	KindState:            ErrState,
	KindResourceNotFound: ErrResourceNotFound,
	KindBinding:          ErrBinding,
	KindEngine:           ErrEngine,
	KindFormat:           ErrFormat,
	KindIndex:            ErrIndex,
	KindTimeout:          ErrTimeout,
}

func (k ErrorKind) String() string {
	if s, ok := kindSentinels[k]; ok {
		return s.Error()
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the error type returned by this package.
// The engine or parser failure that caused it, if any, is kept in Err.
type Error struct {
	Kind ErrorKind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

func newError(kind ErrorKind, op string, cause error, format string, args ...any) *Error {
	e := &Error{Kind: kind, Op: op, Err: cause}
	if format != "" {
		e.Msg = fmt.Sprintf(format, args...)
	}
	return e
}

func stateError(op, format string, args ...any) *Error {
	return newError(KindState, op, nil, format, args...)
}

// engineError classifies a failure coming back from the engine. A deadline on
// the call's context turns it into a timeout.
func engineError(ctx context.Context, op string, cause error) *Error {
	if ctx != nil && errors.Is(context.Cause(ctx), context.DeadlineExceeded) {
		return newError(KindTimeout, op, cause, "")
	}
	if errors.Is(cause, context.DeadlineExceeded) {
		return newError(KindTimeout, op, cause, "")
	}
	return newError(KindEngine, op, cause, "")
}
