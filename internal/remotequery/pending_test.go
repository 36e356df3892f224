// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package remotequery

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPendingDeliverBeforeWait(t *testing.T) {
	p := NewPending()
	w, err := p.Register("/q/1")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Deliver("/q/1", []byte("first")) {
		t.Fatal("Deliver() to registered key = false")
	}
	if p.Deliver("/q/1", []byte("second")) {
		t.Error("second Deliver() should be refused")
	}
	data, err := w.Wait(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if string(data) != "first" {
		t.Errorf("Wait() = %q, want first arrival", data)
	}
	if p.Has("/q/1") || p.Len() != 0 {
		t.Error("slot not removed after success")
	}
	if p.Deliver("/q/1", []byte("late")) {
		t.Error("Deliver() after consumption should be refused")
	}
}

func TestPendingExitPathsRemoveSlot(t *testing.T) {
	tests := []struct {
		name    string
		ctx     func() (context.Context, context.CancelFunc)
		close   bool
		wantErr error
	}{
		{
			name:    "timeout",
			ctx:     func() (context.Context, context.CancelFunc) { return context.WithCancel(context.Background()) },
			wantErr: ErrNoResult,
		},
		{
			name: "cancelled",
			ctx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx, cancel
			},
			wantErr: context.Canceled,
		},
		{
			name:    "closed",
			ctx:     func() (context.Context, context.CancelFunc) { return context.WithCancel(context.Background()) },
			close:   true,
			wantErr: ErrClosed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPending()
			w, err := p.Register("/q/7")
			if err != nil {
				t.Fatal(err)
			}
			if tt.close {
				p.Close()
			}
			ctx, cancel := tt.ctx()
			defer cancel()

			_, err = w.Wait(ctx, 20*time.Millisecond)
			if !errors.Is(err, ErrNoResult) {
				t.Errorf("Wait() error = %v, want ErrNoResult", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Wait() error = %v, want %v", err, tt.wantErr)
			}
			if p.Has("/q/7") {
				t.Error("slot left behind")
			}
		})
	}
}

func TestPendingRejectsDuplicateAndClosed(t *testing.T) {
	p := NewPending()
	if _, err := p.Register("/q/1"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Register("/q/1"); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("duplicate Register() error = %v", err)
	}
	p.Close()
	p.Close()
	if _, err := p.Register("/q/2"); !errors.Is(err, ErrClosed) {
		t.Errorf("Register() after Close error = %v", err)
	}
}

func TestPendingUnknownKey(t *testing.T) {
	if NewPending().Deliver("/q/unknown", nil) {
		t.Error("Deliver() for unknown key = true")
	}
}
