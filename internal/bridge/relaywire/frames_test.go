// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package relaywire

import (
	"errors"
	"reflect"
	"testing"
)

func TestServerFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   ServerFrame
	}{
		{"attached", ServerFrame{Attached: true}},
		{"envelope", ServerFrame{Envelope: &Envelope{From: "a", To: "b", RoutingKey: "/q/1", Payload: []byte{0, 1, 2}}}},
		{"empty payload", ServerFrame{Envelope: &Envelope{From: "a", To: "b", RoutingKey: "/q/2"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Codec{}.Marshal(&tt.in)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			var out ServerFrame
			if err := (Codec{}).Unmarshal(data, &out); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !reflect.DeepEqual(out, tt.in) {
				t.Errorf("round trip = %+v, want %+v", out, tt.in)
			}
		})
	}
}

func TestPeersReplyRoundTrip(t *testing.T) {
	in := &PeersReply{NodeIDs: []string{"a", "b", "c"}}
	var out PeersReply
	if err := out.UnmarshalFrame(in.AppendFrame(nil)); err != nil {
		t.Fatalf("UnmarshalFrame() error = %v", err)
	}
	if !reflect.DeepEqual(out.NodeIDs, in.NodeIDs) {
		t.Errorf("NodeIDs = %v, want %v", out.NodeIDs, in.NodeIDs)
	}
}

func TestUnmarshalTruncated(t *testing.T) {
	data := (&Envelope{From: "node-a"}).AppendFrame(nil)
	var out Envelope
	err := out.UnmarshalFrame(data[:len(data)-2])
	if !errors.Is(err, ErrBadFrame) {
		t.Errorf("UnmarshalFrame() error = %v, want ErrBadFrame", err)
	}
}

func TestCodecRejectsForeignTypes(t *testing.T) {
	if _, err := (Codec{}).Marshal("nope"); err == nil {
		t.Error("Marshal(string) should fail")
	}
	if err := (Codec{}).Unmarshal(nil, new(int)); err == nil {
		t.Error("Unmarshal(*int) should fail")
	}
	if got := (Codec{}).Name(); got != CodecName {
		t.Errorf("Name() = %q", got)
	}
}
