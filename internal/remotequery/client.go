// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package remotequery turns a broadcast transport into a blocking
// "run this query, give me the table" call.
//
// A Client tags every request with a routing key prefix + "/" + n, where n comes
// from a process-wide counter, broadcasts it to all reachable peers and waits
// for the first result that comes back under the same key. A Responder on
// every answering node picks requests out of the inbound traffic by prefix,
// runs them against its local database and broadcasts the table back.
//
// Multiple answers to one request are not reconciled: the first one to reach the
// client wins and the rest are dropped. Failures on the answering side are
// silent and surface on the client as ErrNoResult.
package remotequery

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"remotesql/cli/internal/bridge"
	"remotesql/cli/internal/bridge/model"
	"remotesql/cli/internal/logging"
	"remotesql/cli/internal/metrics"
	"remotesql/cli/internal/wire"

	"github.com/pterm/pterm"
)

// DefaultTimeout bounds how long Query waits for an answer.
const DefaultTimeout = 10 * time.Second

// Client issues queries to remote responders.
type Client struct {
	bridge  bridge.Bridge
	prefix  string
	timeout time.Duration
	log     *pterm.Logger
	metrics *metrics.Client
	pending *Pending

	closed    atomic.Bool
	closeOnce sync.Once
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithPrefix sets the routing key prefix.
func WithPrefix(prefix string) ClientOption {
	return func(c *Client) { c.prefix = prefix }
}

// WithTimeout sets how long Query waits for an answer.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithClientLogger sets the logger for send and delivery events.
func WithClientLogger(l *pterm.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

// WithClientMetrics records query outcomes, latency and late responses on m.
func WithClientMetrics(m *metrics.Client) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client and registers it as a listener on b for its lifetime.
func NewClient(b bridge.Bridge, opts ...ClientOption) *Client {
	c := &Client{
		bridge:  b,
		prefix:  DefaultPrefix,
		timeout: DefaultTimeout,
		log:     logging.Discard(),
		pending: NewPending(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	b.AddListener(c)
	return c
}

// Query runs text with positional args on whichever peer answers first.
// It returns ErrNoResult when no answer arrives in time, and ErrClosed after Close.
// A zero-row answer is a table with no rows, never ErrNoResult.
func (c *Client) Query(ctx context.Context, text string, args ...sql.NullString) (*wire.Table, error) {
	return c.Do(ctx, wire.Request{Text: text, Args: args})
}

// Do sends req and waits for its result.
func (c *Client) Do(ctx context.Context, req wire.Request) (*wire.Table, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	start := time.Now()
	key := RoutingKey(c.prefix, nextSequence())

	w, err := c.pending.Register(key)
	if err != nil {
		return nil, err
	}
	c.metrics.SetPending(c.pending.Len())
	defer func() { c.metrics.SetPending(c.pending.Len()) }()

	res, err := bridge.Broadcast(ctx, c.bridge, key, wire.EncodeRequest(req))
	if err != nil {
		// Nothing was sent, so nothing can come back.
		w.Cancel()
		c.log.Warn("query not sent", c.log.Args("routing_key", key, "error", err.Error()))
		c.metrics.ObserveQuery(metrics.OutcomeNoAnswer, time.Since(start))
		return nil, fmt.Errorf("%w: %w", ErrNoResult, err)
	}
	for _, f := range res.Failures {
		c.log.Debug("send to peer failed", c.log.Args("routing_key", key, "peer", f.Peer, "error", f.Err.Error()))
	}
	c.log.Trace("query broadcast", c.log.Args("routing_key", key, "peers", res.Peers, "sent", res.Sent))

	data, err := w.Wait(ctx, c.timeout)
	if err != nil {
		c.log.Debug("no answer", c.log.Args("routing_key", key, "error", err.Error()))
		c.metrics.ObserveQuery(metrics.OutcomeNoAnswer, time.Since(start))
		return nil, err
	}

	table, err := wire.DecodeResult(data)
	if err != nil {
		c.log.Warn("undecodable answer", c.log.Args("routing_key", key, "error", err.Error()))
		c.metrics.ObserveQuery(metrics.OutcomeMalformed, time.Since(start))
		return nil, fmt.Errorf("%w: %w", ErrNoResult, err)
	}
	c.metrics.ObserveQuery(metrics.OutcomeAnswered, time.Since(start))
	return table, nil
}

// OnMessage matches inbound results to waiting queries. It never blocks.
func (c *Client) OnMessage(msg model.Message) {
	if !IsQueryKey(c.prefix, msg.RoutingKey) || !wire.IsResult(msg.Data) {
		return
	}
	if !c.pending.Deliver(msg.RoutingKey, msg.Data) {
		c.metrics.LateResponse()
		c.log.Debug("dropped late or duplicate answer", c.log.Args("routing_key", msg.RoutingKey, "from", msg.From))
	}
}

// Pending exposes the rendezvous table, mainly for inspection in tests and diagnostics.
func (c *Client) Pending() *Pending { return c.pending }

// Close unregisters the client and wakes all waiting queries with ErrNoResult.
// It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.bridge.RemoveListener(c)
		c.pending.Close()
	})
	return nil
}
