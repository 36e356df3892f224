// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package remotequery

import (
	"testing"
)

func TestSequenceStrictlyIncreases(t *testing.T) {
	prev := nextSequence()
	seen := map[string]bool{RoutingKey(DefaultPrefix, prev): true}
	for i := 0; i < 1000; i++ {
		n := nextSequence()
		if n <= prev {
			t.Fatalf("sequence went from %d to %d", prev, n)
		}
		key := RoutingKey(DefaultPrefix, n)
		if seen[key] {
			t.Fatalf("key %s repeated", key)
		}
		seen[key] = true
		prev = n
	}
}

func TestRoutingKeyFormat(t *testing.T) {
	if got := RoutingKey("/app/query", 0); got != "/app/query/0" {
		t.Errorf("RoutingKey() = %q", got)
	}
	if got := RoutingKey("/app/query", 12); got != "/app/query/12" {
		t.Errorf("RoutingKey() = %q", got)
	}
}

func TestIsQueryKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"/app/query/1", true},
		{"/app/query/", true},
		{"/app/query", false},
		{"/app/queryx/1", false},
		{"/other/1", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := IsQueryKey("/app/query", tt.key); got != tt.want {
				t.Errorf("IsQueryKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestParseKey(t *testing.T) {
	if id, ok := ParseKey("/app/query", "/app/query/42"); !ok || id != 42 {
		t.Errorf("ParseKey() = %d, %v", id, ok)
	}
	if _, ok := ParseKey("/app/query", "/app/query/abc"); ok {
		t.Error("ParseKey() accepted a non-numeric key")
	}
}
