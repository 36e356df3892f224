// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package bridge defines the transport the remote query protocol runs over:
// best-effort sends to named peers, peer enumeration, and a process-wide inbound
// listener registry. It is deliberately broadcast-oriented; there is no reply
// channel, so request/response correlation lives in the protocol above.
//
// Two implementations exist: the gRPC relay client (grpcclient) used between
// machines, and an in-process network (memory) used by tests and the demo.
package bridge

import (
	"context"

	"remotesql/cli/internal/bridge/grpcclient"
	"remotesql/cli/internal/bridge/model"
	rqerrors "remotesql/cli/internal/errors"

	"github.com/pterm/pterm"
)

// Bridge represents a connected session with the messaging platform.
type Bridge interface {
	// ID returns this node's identifier as seen by peers.
	ID() string
	// Peers lists the currently reachable peers, excluding this node. May be empty.
	Peers(ctx context.Context) ([]string, error)
	// Send delivers data to one peer and returns once that send completed or failed.
	Send(ctx context.Context, peer, routingKey string, data []byte) error
	// AddListener registers l for every message delivered to this node.
	AddListener(l model.Listener)
	// RemoveListener unregisters l.
	RemoveListener(l model.Listener)
	// Close tears the session down. Listeners receive nothing afterwards.
	Close(ctx context.Context) error
}

var _ Bridge = (*grpcclient.Client)(nil)

// SendFailure describes one peer a broadcast could not reach.
type SendFailure struct {
	Peer string
	Err  error
}

// BroadcastResult summarizes a broadcast.
type BroadcastResult struct {
	Peers    int
	Sent     int
	Failures []SendFailure
}

// Broadcast sends data under routingKey to every reachable peer, one after another.
// Individual peer failures are collected, not returned; only a failure to list
// peers is an error.
func Broadcast(ctx context.Context, b Bridge, routingKey string, data []byte) (BroadcastResult, error) {
	var res BroadcastResult
	peers, err := b.Peers(ctx)
	if err != nil {
		return res, rqerrors.Wrap(rqerrors.TransportFailed, "list peers", err)
	}
	res.Peers = len(peers)
	for _, p := range peers {
		if err := b.Send(ctx, p, routingKey, data); err != nil {
			res.Failures = append(res.Failures, SendFailure{Peer: p, Err: err})
			continue
		}
		res.Sent++
	}
	return res, nil
}

// DialOptions configures Dial.
type DialOptions struct {
	// Insecure disables TLS towards the relay.
	Insecure bool
	Logger   *pterm.Logger
}

// Dial connects to a relay at addr as nodeID and returns the gRPC-backed bridge.
// Connection failures are reported with the SetupFailed kind.
func Dial(ctx context.Context, addr, nodeID string, opts DialOptions) (Bridge, error) {
	c, err := grpcclient.Connect(ctx, addr, nodeID, grpcclient.Options{
		Insecure: opts.Insecure,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, rqerrors.Wrap(rqerrors.SetupFailed, "connect to relay "+addr, err)
	}
	return c, nil
}
