// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package model defines shared data structures for bridge communication.
// It provides the inbound Message shape and the Listener registry that every
// transport implementation uses to fan deliveries out to protocol handlers.
//
// The types in this package are designed to be transport-agnostic and
// provide a stable interface for different communication protocols.
package model

import (
	"fmt"
	"sync"
)

// Message is one delivery from a peer: a routing key and an opaque payload.
type Message struct {
	From       string
	RoutingKey string
	Data       []byte
}

// Listener receives every message the transport delivers to this node,
// including traffic that belongs to other protocols.
// OnMessage must not block for long; it runs on the transport's delivery goroutine.
type Listener interface {
	OnMessage(msg Message)
}

// ListenerSet is a concurrency-safe registry of listeners.
// Listeners are compared by identity, so register pointer types.
type ListenerSet struct {
	mu        sync.RWMutex
	listeners []Listener
	// OnPanic, when set, is told about a listener that panicked.
	OnPanic func(l Listener, msg Message, recovered any)
}

// Add registers l. Adding the same listener twice has no effect.
func (s *ListenerSet) Add(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.listeners {
		if existing == l {
			return
		}
	}
	s.listeners = append(s.listeners, l)
}

// Remove unregisters l. Unknown listeners are ignored.
func (s *ListenerSet) Remove(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.listeners {
		if existing == l {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered listeners.
func (s *ListenerSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

// Dispatch hands msg to every listener registered at call time.
// A panicking listener is recovered so one bad message cannot stop delivery.
func (s *ListenerSet) Dispatch(msg Message) {
	s.mu.RLock()
	snapshot := make([]Listener, len(s.listeners))
	copy(snapshot, s.listeners)
	s.mu.RUnlock()

	for _, l := range snapshot {
		s.deliver(l, msg)
	}
}

func (s *ListenerSet) deliver(l Listener, msg Message) {
	defer func() {
		if r := recover(); r != nil && s.OnPanic != nil {
			s.OnPanic(l, msg, r)
		}
	}()
	l.OnMessage(msg)
}

// String is used in logs.
func (m Message) String() string {
	return fmt.Sprintf("%s from %s (%d bytes)", m.RoutingKey, m.From, len(m.Data))
}
