// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package terminal

import (
	"strings"
	"testing"
)

func TestLinesUsed(t *testing.T) {
	tests := []struct {
		name   string
		length int
		width  int
		want   int
	}{
		{"empty", 0, 80, 1},
		{"one line", 10, 80, 1},
		{"exact width", 80, 80, 1},
		{"wraps", 81, 80, 2},
		{"several", 250, 100, 3},
		{"unknown width", 100, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := linesUsed(tt.length, tt.width); got != tt.want {
				t.Errorf("linesUsed(%d, %d) = %d, want %d", tt.length, tt.width, got, tt.want)
			}
		})
	}
}

func TestReadLine(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@h/db\n", "postgres://u:p@h/db"},
		{"  file:app.db  \r\n", "file:app.db"},
		{"no newline", "no newline"},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := readLine(strings.NewReader(tt.in))
		if err != nil {
			t.Fatalf("readLine(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("readLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
