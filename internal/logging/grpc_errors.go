// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RelayErrorType represents the category of a relay failure.
type RelayErrorType int

const (
	RelayErrorUnknown RelayErrorType = iota
	RelayErrorNetwork
	RelayErrorTLS
	RelayErrorTimeout
	RelayErrorUnavailable
	RelayErrorNotAttached
)

// ClassifyRelayError categorizes an error returned while talking to the relay.
func ClassifyRelayError(err error) RelayErrorType {
	if err == nil {
		return RelayErrorUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return RelayErrorTimeout
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.DeadlineExceeded:
			return RelayErrorTimeout
		case codes.NotFound:
			return RelayErrorNotAttached
		case codes.Unavailable:
			if isTLSMessage(st.Message()) {
				return RelayErrorTLS
			}
			return RelayErrorUnavailable
		}
	}
	lower := strings.ToLower(err.Error())
	switch {
	case isTLSMessage(lower):
		return RelayErrorTLS
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "connection reset") || strings.Contains(lower, "rst_stream"):
		return RelayErrorNetwork
	case strings.Contains(lower, "deadline") || strings.Contains(lower, "timeout"):
		return RelayErrorTimeout
	case strings.Contains(lower, "unavailable"):
		return RelayErrorUnavailable
	}
	return RelayErrorUnknown
}

func isTLSMessage(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "tls") || strings.Contains(s, "x509") || strings.Contains(s, "handshake")
}

// FormatRelayError formats a relay failure in a user-friendly way.
func FormatRelayError(addr string, err error) string {
	var b strings.Builder
	b.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Relay unreachable"))
	b.WriteString("\n\n")

	switch ClassifyRelayError(err) {
	case RelayErrorNetwork:
		fmt.Fprintf(&b, "Nothing is accepting connections at %s.\n", addr)
		b.WriteString("Start one with 'remotesql relay' or check the address.\n")
	case RelayErrorTLS:
		b.WriteString("The TLS handshake with the relay failed.\n")
		b.WriteString("If the relay runs without TLS, pass --insecure.\n")
	case RelayErrorTimeout:
		fmt.Fprintf(&b, "The relay at %s did not answer in time.\n", addr)
		b.WriteString("The network may be slow or the relay overloaded.\n")
	case RelayErrorUnavailable:
		fmt.Fprintf(&b, "The relay at %s is currently unavailable.\n", addr)
	case RelayErrorNotAttached:
		b.WriteString("The target node is not attached to the relay.\n")
	default:
		b.WriteString("The relay session could not be established.\n")
	}

	b.WriteString("\n")
	b.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(err.Error())))
	return b.String()
}

// PresentRelayError displays a formatted relay failure.
func PresentRelayError(addr string, err error) {
	fmt.Println()
	fmt.Println(FormatRelayError(addr, err))
	fmt.Println()
}
