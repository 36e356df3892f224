// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines typed errors with categories for user-friendly reporting.
// Every failure the remote query protocol can observe maps to one Kind, so callers
// can branch on the category with errors.Is regardless of the wrapped cause.
//
// Only SetupFailed and UseAfterClose are ever returned to a user of the client.
// The remaining kinds are absorbed locally and show up on the other node as a timeout.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// SetupFailed indicates the transport or database could not be brought up.
	SetupFailed Kind = "setup_failed"
	// UseAfterClose indicates a call on a component that was already closed.
	UseAfterClose Kind = "use_after_close"
	// NoAnswer indicates no response arrived before the deadline.
	NoAnswer Kind = "no_answer"
	// MalformedPayload indicates bytes that do not decode as a protocol frame.
	MalformedPayload Kind = "malformed_payload"
	// QueryFailed indicates the local database rejected or aborted a query.
	QueryFailed Kind = "query_failed"
	// TransportFailed indicates a send or peer listing failure on the transport.
	TransportFailed Kind = "transport_failed"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *E) Unwrap() error { return e.Err }

// Is reports whether target is an *E of the same kind.
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the kind of the first *E in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}
