// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package grpcclient_test

import (
	"context"
	"net"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"remotesql/cli/internal/bridge/grpcclient"
	"remotesql/cli/internal/bridge/model"
	"remotesql/cli/internal/bridge/relay"

	"google.golang.org/grpc/test/bufconn"
)

type chanListener chan model.Message

func (c chanListener) OnMessage(msg model.Message) { c <- msg }

// harness runs a relay on an in-memory listener that can be swapped to simulate restarts.
type harness struct {
	lis    atomic.Pointer[bufconn.Listener]
	cancel context.CancelFunc
	server *relay.Server
}

func startRelay(t *testing.T, h *harness) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	h.lis.Store(lis)
	srv := relay.NewServer(relay.Options{})
	h.server = srv
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { _ = srv.Serve(ctx, lis) }()
}

func (h *harness) stop() { h.cancel(); h.server.Stop() }

func (h *harness) dial(ctx context.Context, _ string) (net.Conn, error) {
	return h.lis.Load().DialContext(ctx)
}

func connect(t *testing.T, h *harness, id string) *grpcclient.Client {
	t.Helper()
	c, err := grpcclient.Connect(context.Background(), "bufnet", id, grpcclient.Options{
		Dialer:      h.dial,
		DialTimeout: 5 * time.Second,
		MinBackoff:  20 * time.Millisecond,
		MaxBackoff:  200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Connect(%s) error = %v", id, err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func TestSendThroughRelay(t *testing.T) {
	h := &harness{}
	startRelay(t, h)
	defer h.stop()

	a := connect(t, h, "node-a")
	b := connect(t, h, "node-b")

	inbox := make(chanListener, 1)
	b.AddListener(inbox)

	peers, err := a.Peers(context.Background())
	if err != nil {
		t.Fatalf("Peers() error = %v", err)
	}
	if !reflect.DeepEqual(peers, []string{"node-b"}) {
		t.Errorf("Peers() = %v, want [node-b]", peers)
	}

	if err := a.Send(context.Background(), "node-b", "/remotesql/query/0", []byte("payload")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	select {
	case msg := <-inbox:
		if msg.From != "node-a" || msg.RoutingKey != "/remotesql/query/0" || string(msg.Data) != "payload" {
			t.Errorf("unexpected message %+v", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestSendToUnattachedPeerFails(t *testing.T) {
	h := &harness{}
	startRelay(t, h)
	defer h.stop()

	a := connect(t, h, "node-a")
	if err := a.Send(context.Background(), "ghost", "/k", nil); err == nil {
		t.Error("Send() to unattached node should fail")
	}
}

func TestConnectFailsWhenRelayDown(t *testing.T) {
	h := &harness{}
	lis := bufconn.Listen(1 << 20)
	_ = lis.Close()
	h.lis.Store(lis)

	_, err := grpcclient.Connect(context.Background(), "bufnet", "node-a", grpcclient.Options{
		Dialer:      h.dial,
		DialTimeout: 300 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("Connect() should fail when the relay is down")
	}
}

func TestReattachAfterRelayRestart(t *testing.T) {
	h := &harness{}
	startRelay(t, h)

	a := connect(t, h, "node-a")
	if !a.Attached() {
		t.Fatal("client should be attached after Connect")
	}

	h.stop()
	startRelay(t, h)
	defer h.stop()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if reflect.DeepEqual(h.server.Attached(), []string{"node-a"}) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("node did not re-attach, attached = %v", h.server.Attached())
}

func TestCloseIsIdempotent(t *testing.T) {
	h := &harness{}
	startRelay(t, h)
	defer h.stop()

	a := connect(t, h, "node-a")
	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := a.Close(context.Background()); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := a.Peers(context.Background()); err != grpcclient.ErrClosed {
		t.Errorf("Peers() after Close error = %v, want ErrClosed", err)
	}
}
