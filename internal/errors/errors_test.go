// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"testing"
)

func TestIsMatchesByKind(t *testing.T) {
	sentinel := New(UseAfterClose, "already closed")
	other := New(UseAfterClose, "different message")

	if !stderrors.Is(other, sentinel) {
		t.Fatalf("expected errors with the same kind to match")
	}
	if stderrors.Is(New(NoAnswer, "x"), sentinel) {
		t.Fatalf("expected errors with different kinds not to match")
	}

	wrapped := fmt.Errorf("query: %w", sentinel)
	if !stderrors.Is(wrapped, sentinel) {
		t.Fatalf("expected wrapped error to match")
	}
}

func TestWrapUnwrap(t *testing.T) {
	err := Wrap(SetupFailed, "dial relay", io.EOF)
	if !stderrors.Is(err, io.EOF) {
		t.Fatalf("expected cause to be reachable through Unwrap")
	}
	if got, want := err.Error(), "setup_failed: dial relay: EOF"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain", err: io.EOF, want: ""},
		{name: "direct", err: New(MalformedPayload, "bad"), want: MalformedPayload},
		{name: "wrapped", err: fmt.Errorf("outer: %w", Wrap(QueryFailed, "exec", io.EOF)), want: QueryFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}
