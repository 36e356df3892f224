// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package relaywire holds the relay's gRPC service definition and its frames.
// Frames are encoded as protobuf wire messages by hand, so no generated code
// is needed; the field numbers below are the contract.
package relaywire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Frame is implemented by every message carried over the relay service.
type Frame interface {
	AppendFrame(b []byte) []byte
	UnmarshalFrame(b []byte) error
}

// ErrBadFrame is returned when a frame cannot be decoded.
var ErrBadFrame = errors.New("relaywire: bad frame")

// PeersRequest asks for the nodes attached to the relay.
type PeersRequest struct {
	NodeID string // 1
}

// PeersReply lists attached nodes other than the caller.
type PeersReply struct {
	NodeIDs []string // 1
}

// Envelope is one routed message.
type Envelope struct {
	From       string // 1
	To         string // 2
	RoutingKey string // 3
	Payload    []byte // 4
}

// SendReply acknowledges an accepted envelope.
type SendReply struct{}

// AttachRequest opens the delivery stream for a node.
type AttachRequest struct {
	NodeID string // 1
}

// ServerFrame is one item on the Attach stream. The first frame has Attached set.
type ServerFrame struct {
	Attached bool      // 1
	Envelope *Envelope // 2
}

func (m *PeersRequest) AppendFrame(b []byte) []byte {
	return appendString(b, 1, m.NodeID)
}

func (m *PeersRequest) UnmarshalFrame(b []byte) error {
	*m = PeersRequest{}
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			return consumeString(v, &m.NodeID)
		}
		return skip(num, typ, v)
	})
}

func (m *PeersReply) AppendFrame(b []byte) []byte {
	for _, id := range m.NodeIDs {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, id)
	}
	return b
}

func (m *PeersReply) UnmarshalFrame(b []byte) error {
	*m = PeersReply{}
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			var id string
			n, err := consumeString(v, &id)
			if err == nil {
				m.NodeIDs = append(m.NodeIDs, id)
			}
			return n, err
		}
		return skip(num, typ, v)
	})
}

func (m *Envelope) AppendFrame(b []byte) []byte {
	b = appendString(b, 1, m.From)
	b = appendString(b, 2, m.To)
	b = appendString(b, 3, m.RoutingKey)
	if len(m.Payload) > 0 {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Payload)
	}
	return b
}

func (m *Envelope) UnmarshalFrame(b []byte) error {
	*m = Envelope{}
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if typ != protowire.BytesType {
			return skip(num, typ, v)
		}
		switch num {
		case 1:
			return consumeString(v, &m.From)
		case 2:
			return consumeString(v, &m.To)
		case 3:
			return consumeString(v, &m.RoutingKey)
		case 4:
			p, n := protowire.ConsumeBytes(v)
			if n < 0 {
				return 0, parseErr(n)
			}
			m.Payload = append([]byte(nil), p...)
			return n, nil
		}
		return skip(num, typ, v)
	})
}

func (m *SendReply) AppendFrame(b []byte) []byte { return b }

func (m *SendReply) UnmarshalFrame(b []byte) error {
	return walk(b, skip)
}

func (m *AttachRequest) AppendFrame(b []byte) []byte {
	return appendString(b, 1, m.NodeID)
}

func (m *AttachRequest) UnmarshalFrame(b []byte) error {
	*m = AttachRequest{}
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			return consumeString(v, &m.NodeID)
		}
		return skip(num, typ, v)
	})
}

func (m *ServerFrame) AppendFrame(b []byte) []byte {
	if m.Attached {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	if m.Envelope != nil {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Envelope.AppendFrame(nil))
	}
	return b
}

func (m *ServerFrame) UnmarshalFrame(b []byte) error {
	*m = ServerFrame{}
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			x, n := protowire.ConsumeVarint(v)
			if n < 0 {
				return 0, parseErr(n)
			}
			m.Attached = x != 0
			return n, nil
		case num == 2 && typ == protowire.BytesType:
			p, n := protowire.ConsumeBytes(v)
			if n < 0 {
				return 0, parseErr(n)
			}
			env := &Envelope{}
			if err := env.UnmarshalFrame(p); err != nil {
				return 0, err
			}
			m.Envelope = env
			return n, nil
		}
		return skip(num, typ, v)
	})
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func consumeString(b []byte, dst *string) (int, error) {
	s, n := protowire.ConsumeString(b)
	if n < 0 {
		return 0, parseErr(n)
	}
	*dst = s
	return n, nil
}

func walk(b []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return parseErr(n)
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		b = b[m:]
	}
	return nil
}

func skip(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, parseErr(n)
	}
	return n, nil
}

func parseErr(n int) error {
	return fmt.Errorf("%w: %v", ErrBadFrame, protowire.ParseError(n))
}
