// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package memory is an in-process broadcast network. Every joined Node owns one
// delivery goroutine that invokes its listeners, mirroring a platform SDK that
// calls back on a dedicated thread. Sends are queued, not executed inline,
// so a listener that sends from inside OnMessage cannot deadlock.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"remotesql/cli/internal/bridge"
	"remotesql/cli/internal/bridge/model"
)

// DefaultInboxSize is the per-node delivery queue length.
const DefaultInboxSize = 64

var (
	// ErrUnknownPeer is returned when sending to a node that is not on the network.
	ErrUnknownPeer = errors.New("memory: unknown peer")
	// ErrClosed is returned by operations on a node that has left the network.
	ErrClosed = errors.New("memory: node closed")
)

// Network connects nodes by id.
type Network struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{nodes: make(map[string]*Node)}
}

// Join adds a node with the given id and starts its delivery goroutine.
// Joining with an id already in use replaces the previous node, which is closed.
func (n *Network) Join(id string) *Node {
	node := &Node{
		id:    id,
		net:   n,
		inbox: make(chan model.Message, DefaultInboxSize),
		done:  make(chan struct{}),
	}
	n.mu.Lock()
	old := n.nodes[id]
	n.nodes[id] = node
	n.mu.Unlock()
	if old != nil {
		old.shutdown()
	}

	node.wg.Add(1)
	go node.deliverLoop()
	return node
}

// Nodes returns the ids of all joined nodes, sorted.
func (n *Network) Nodes() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]string, 0, len(n.nodes))
	for id := range n.nodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (n *Network) lookup(id string) (*Node, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	node, ok := n.nodes[id]
	return node, ok
}

func (n *Network) leave(node *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.nodes[node.id] == node {
		delete(n.nodes, node.id)
	}
}

var _ bridge.Bridge = (*Node)(nil)

// Node is one endpoint on a Network.
type Node struct {
	id        string
	net       *Network
	listeners model.ListenerSet
	inbox     chan model.Message
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// ID returns the node id.
func (n *Node) ID() string { return n.id }

// Peers returns every other node currently on the network, sorted.
func (n *Node) Peers(ctx context.Context) ([]string, error) {
	if n.isClosed() {
		return nil, ErrClosed
	}
	all := n.net.Nodes()
	out := all[:0]
	for _, id := range all {
		if id != n.id {
			out = append(out, id)
		}
	}
	return out, nil
}

// Send queues data for delivery on peer. It blocks while the peer's queue is full.
func (n *Node) Send(ctx context.Context, peer, routingKey string, data []byte) error {
	if n.isClosed() {
		return ErrClosed
	}
	target, ok := n.net.lookup(peer)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, peer)
	}
	msg := model.Message{From: n.id, RoutingKey: routingKey, Data: append([]byte(nil), data...)}
	select {
	case target.inbox <- msg:
		return nil
	case <-target.done:
		return fmt.Errorf("%w: %s", ErrUnknownPeer, peer)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddListener registers l.
func (n *Node) AddListener(l model.Listener) { n.listeners.Add(l) }

// RemoveListener unregisters l.
func (n *Node) RemoveListener(l model.Listener) { n.listeners.Remove(l) }

// Close leaves the network and waits for the delivery goroutine to stop.
// Queued but undelivered messages are dropped.
func (n *Node) Close(ctx context.Context) error {
	n.net.leave(n)
	n.shutdown()
	return nil
}

func (n *Node) shutdown() {
	n.closeOnce.Do(func() { close(n.done) })
	n.wg.Wait()
}

func (n *Node) isClosed() bool {
	select {
	case <-n.done:
		return true
	default:
		return false
	}
}

func (n *Node) deliverLoop() {
	defer n.wg.Done()
	for {
		select {
		case <-n.done:
			return
		case msg := <-n.inbox:
			n.listeners.Dispatch(msg)
		}
	}
}
