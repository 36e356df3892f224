// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"errors"
	"strings"
	"testing"

	rqerrors "remotesql/cli/internal/errors"
)

func TestPresentError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		want     string
		wantHint bool
	}{
		{"nil", nil, "", false},
		{"plain", errors.New("boom"), "Open: boom", false},
		{"masked", errors.New("dial postgres://bob:pw@h/db"), "Open: dial postgres://*:*@h/db", false},
		{"setup hint", rqerrors.Wrap(rqerrors.SetupFailed, "ping", errors.New("refused")), "Open: setup_failed: ping: refused", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PresentError("Open", tt.err)
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("PresentError() = %q, want prefix %q", got, tt.want)
			}
			if hasHint := strings.Contains(got, "\n"); hasHint != tt.wantHint {
				t.Errorf("PresentError() hint = %v, want %v: %q", hasHint, tt.wantHint, got)
			}
		})
	}
}
