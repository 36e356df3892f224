// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package remotequery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	rqerrors "remotesql/cli/internal/errors"
)

var (
	// ErrNoResult reports that no response arrived: timeout, cancellation, or
	// the client closing while waiting. It is distinct from a zero-row table.
	ErrNoResult = rqerrors.New(rqerrors.NoAnswer, "no result")
	// ErrClosed reports a call on a closed client.
	ErrClosed = rqerrors.New(rqerrors.UseAfterClose, "client is closed")
	// ErrDuplicateKey reports a second registration for a key that is still waiting.
	ErrDuplicateKey = errors.New("remotequery: key already pending")
)

// Pending is the rendezvous table between waiting queries and the delivery
// callback. Each key holds a one-slot channel; the first delivery fills it and
// later ones are refused.
type Pending struct {
	mu     sync.Mutex
	slots  map[string]chan []byte
	closed bool
	done   chan struct{}
}

// NewPending creates an empty table.
func NewPending() *Pending {
	return &Pending{slots: make(map[string]chan []byte), done: make(chan struct{})}
}

// Waiter is a registered slot. Wait must be called exactly once.
type Waiter struct {
	p   *Pending
	key string
	ch  chan []byte
}

// Register inserts a slot for key. Register before sending the request so an
// early reply is not lost.
func (p *Pending) Register(key string) (*Waiter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	if _, ok := p.slots[key]; ok {
		return nil, ErrDuplicateKey
	}
	ch := make(chan []byte, 1)
	p.slots[key] = ch
	return &Waiter{p: p, key: key, ch: ch}, nil
}

// Deliver hands data to the waiter for key without blocking. It reports false
// when nobody waits for key or the slot was already filled.
func (p *Pending) Deliver(key string, data []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.slots[key]
	if !ok {
		return false
	}
	select {
	case ch <- data:
		return true
	default:
		return false
	}
}

// Len returns the number of waiting keys.
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

// Has reports whether key is waiting.
func (p *Pending) Has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.slots[key]
	return ok
}

// Close wakes every waiter with ErrNoResult and refuses new registrations.
func (p *Pending) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.done)
}

func (p *Pending) remove(key string, ch chan []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.slots[key] == ch {
		delete(p.slots, key)
	}
}

// Cancel removes the slot without waiting.
func (w *Waiter) Cancel() { w.p.remove(w.key, w.ch) }

// Key returns the routing key the waiter is registered under.
func (w *Waiter) Key() string { return w.key }

// Wait blocks until data is delivered, timeout elapses, ctx is done or the
// table is closed. The slot is removed on every path.
func (w *Waiter) Wait(ctx context.Context, timeout time.Duration) ([]byte, error) {
	defer w.p.remove(w.key, w.ch)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data := <-w.ch:
		return data, nil
	case <-timer.C:
		return nil, ErrNoResult
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrNoResult, ctx.Err())
	case <-w.p.done:
		return nil, fmt.Errorf("%w: %w", ErrNoResult, ErrClosed)
	}
}
