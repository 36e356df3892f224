// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package relay

import (
	"context"
	"reflect"
	"testing"

	"remotesql/cli/internal/bridge/relaywire"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func addSession(s *Server, id string, queue int) *session {
	sess := &session{nodeID: id, out: make(chan *relaywire.Envelope, queue), done: make(chan struct{})}
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	return sess
}

func TestPeersExcludesCaller(t *testing.T) {
	s := NewServer(Options{})
	addSession(s, "c", 1)
	addSession(s, "a", 1)
	addSession(s, "b", 1)

	reply, err := s.Peers(context.Background(), &relaywire.PeersRequest{NodeID: "b"})
	if err != nil {
		t.Fatalf("Peers() error = %v", err)
	}
	if want := []string{"a", "c"}; !reflect.DeepEqual(reply.NodeIDs, want) {
		t.Errorf("Peers() = %v, want %v", reply.NodeIDs, want)
	}
}

func TestSendStatusCodes(t *testing.T) {
	s := NewServer(Options{})
	sess := addSession(s, "b", 1)

	tests := []struct {
		name string
		env  *relaywire.Envelope
		want codes.Code
	}{
		{"accepted", &relaywire.Envelope{From: "a", To: "b", RoutingKey: "/k/0"}, codes.OK},
		{"queue full", &relaywire.Envelope{From: "a", To: "b", RoutingKey: "/k/1"}, codes.ResourceExhausted},
		{"not attached", &relaywire.Envelope{From: "a", To: "z", RoutingKey: "/k/2"}, codes.NotFound},
		{"no target", &relaywire.Envelope{From: "a"}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Send(context.Background(), tt.env)
			if got := status.Code(err); got != tt.want {
				t.Errorf("Send() code = %v, want %v (err %v)", got, tt.want, err)
			}
		})
	}

	env := <-sess.out
	if env.RoutingKey != "/k/0" {
		t.Errorf("queued envelope = %+v", env)
	}
}

func TestDetachKeepsReplacement(t *testing.T) {
	s := NewServer(Options{})
	old := addSession(s, "a", 1)
	replacement := addSession(s, "a", 1)

	s.detach(old)
	if got := s.Attached(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("Attached() = %v, want [a]", got)
	}
	s.detach(replacement)
	if got := s.Attached(); len(got) != 0 {
		t.Errorf("Attached() = %v, want empty", got)
	}
}
