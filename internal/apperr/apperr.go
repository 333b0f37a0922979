// internal/apperr/apperr.go

package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindConfig covers missing or invalid configuration fields and unknown
	// host names. Never retried.
	KindConfig Kind = iota
	// KindConnection covers authentication failures, timeouts and
	// unreachable proxies or targets.
	KindConnection
	// KindDispatch covers commands that were accepted but whose PID could
	// not be retrieved. Downgraded to a warning by the executor.
	KindDispatch
	// KindStep covers failures recorded per setup/teardown step.
	KindStep
)

// Stage distinguishes where along a proxied connection a failure happened,
// so callers can tell "jump host unreachable" from "target unreachable via
// jump host".
type Stage string

const (
	StageProxy  Stage = "proxy"
	StageTarget Stage = "target"
)

// Error is the structured error carried through results. Host names which
// host the failure belongs to; Field is set for configuration errors.
type Error struct {
	Kind  Kind
	Host  string
	Field string
	Stage Stage
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Host != "" {
		msg = fmt.Sprintf("host %q: %s", e.Host, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config reports a configuration problem for a host, naming the offending
// field when there is one.
func Config(host, field, msg string) *Error {
	if field != "" {
		msg = fmt.Sprintf("%s %q", msg, field)
	}
	return &Error{Kind: KindConfig, Host: host, Field: field, Msg: msg}
}

// Connection reports a connection-level failure at the given stage.
func Connection(host string, stage Stage, msg string, err error) *Error {
	return &Error{Kind: KindConnection, Host: host, Stage: stage, Msg: msg, Err: err}
}

// Dispatch reports a command that was accepted but left its PID unknown.
func Dispatch(host, msg string, err error) *Error {
	return &Error{Kind: KindDispatch, Host: host, Msg: msg, Err: err}
}

// Step reports a failed setup or teardown step.
func Step(host, step string, err error) *Error {
	return &Error{Kind: KindStep, Host: host, Msg: fmt.Sprintf("step %q failed", step), Err: err}
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
