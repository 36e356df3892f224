// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package remotequery

import (
	"context"
	"sync"
	"testing"
	"time"

	"remotesql/cli/internal/bridge"
	"remotesql/cli/internal/bridge/model"
	"remotesql/cli/internal/sqlexec"
)

type sentMsg struct {
	Peer, Key string
	Data      []byte
}

// fakeBridge records sends and lets tests inject deliveries.
type fakeBridge struct {
	mu        sync.Mutex
	peers     []string
	peersErr  error
	sent      []sentMsg
	onSend    func(peer, key string, data []byte)
	listeners model.ListenerSet
}

func (b *fakeBridge) ID() string { return "self" }

func (b *fakeBridge) Peers(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.peers...), b.peersErr
}

func (b *fakeBridge) Send(ctx context.Context, peer, key string, data []byte) error {
	b.mu.Lock()
	b.sent = append(b.sent, sentMsg{Peer: peer, Key: key, Data: data})
	hook := b.onSend
	b.mu.Unlock()
	if hook != nil {
		hook(peer, key, data)
	}
	return nil
}

func (b *fakeBridge) AddListener(l model.Listener)    { b.listeners.Add(l) }
func (b *fakeBridge) RemoveListener(l model.Listener) { b.listeners.Remove(l) }
func (b *fakeBridge) Close(ctx context.Context) error { return nil }

func (b *fakeBridge) deliver(key string, data []byte) {
	b.listeners.Dispatch(model.Message{From: "peer", RoutingKey: key, Data: data})
}

func (b *fakeBridge) sentMessages() []sentMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]sentMsg(nil), b.sent...)
}

// countingBridge wraps a real bridge and counts sends.
type countingBridge struct {
	bridge.Bridge
	mu    sync.Mutex
	sends int
}

func (c *countingBridge) Send(ctx context.Context, peer, key string, data []byte) error {
	c.mu.Lock()
	c.sends++
	c.mu.Unlock()
	return c.Bridge.Send(ctx, peer, key, data)
}

func (c *countingBridge) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sends
}

func peopleDB(t *testing.T) *sqlexec.SQLDatabase {
	t.Helper()
	db, err := sqlexec.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	if err := db.Exec(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if err := db.Exec(ctx, "INSERT INTO t (id, name) VALUES (1, 'Ann')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return db
}

func startResponder(t *testing.T, db sqlexec.Database, b bridge.Bridge, opts ...ResponderOption) *Responder {
	t.Helper()
	r, err := NewResponder(db, b, opts...)
	if err != nil {
		t.Fatalf("NewResponder() error = %v", err)
	}
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
