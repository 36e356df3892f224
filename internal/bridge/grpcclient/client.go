// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package grpcclient provides a gRPC-backed implementation of the Bridge interface.
// A node dials the relay, proves it is reachable with a peer listing, then
// attaches a server stream on which every envelope addressed to it arrives.
// Deliveries are handed to listeners on the stream's receive goroutine.
//
// Connectivity is expected to be intermittent: when the attach stream is lost
// the client keeps re-attaching with exponential backoff until it is closed.
// Messages addressed to the node while it is detached are lost.
package grpcclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"remotesql/cli/internal/bridge/model"
	"remotesql/cli/internal/bridge/relaywire"
	"remotesql/cli/internal/logging"

	"github.com/pterm/pterm"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const (
	// DefaultPort is used for insecure relay addresses without a port.
	DefaultPort = "7400"
	// DefaultTLSPort is used for TLS relay addresses without a port.
	DefaultTLSPort = "443"

	defaultDialTimeout = 10 * time.Second
	defaultMinBackoff  = 500 * time.Millisecond
	defaultMaxBackoff  = 10 * time.Second
)

// ErrClosed is returned by operations on a closed client.
var ErrClosed = errors.New("grpcclient: closed")

// Options configures Connect.
type Options struct {
	// Insecure disables TLS.
	Insecure bool
	Logger   *pterm.Logger
	// Dialer replaces the network dialer, e.g. with an in-memory listener in tests.
	// The address is then passed through to it unchanged.
	Dialer func(ctx context.Context, addr string) (net.Conn, error)
	// DialTimeout bounds the initial reachability check and each attach.
	DialTimeout time.Duration
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
}

// Client implements bridge.Bridge over the relay service.
type Client struct {
	id   string
	opts Options
	log  *pterm.Logger
	conn *grpc.ClientConn
	rc   *relaywire.RelayClient

	listeners model.ListenerSet
	attached  atomic.Bool
	closed    atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Connect dials the relay at addr as nodeID and attaches the delivery stream.
// It fails if the relay cannot be reached within the dial timeout.
func Connect(ctx context.Context, addr, nodeID string, opts Options) (*Client, error) {
	if nodeID == "" {
		return nil, errors.New("node id is required")
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = defaultMinBackoff
	}
	if opts.MaxBackoff < opts.MinBackoff {
		opts.MaxBackoff = defaultMaxBackoff
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	target, dialOpts := dialTarget(addr, opts)
	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, err
	}

	c := &Client{
		id:   nodeID,
		opts: opts,
		log:  log,
		conn: conn,
		rc:   relaywire.NewRelayClient(conn),
	}
	c.listeners.OnPanic = func(_ model.Listener, msg model.Message, r any) {
		log.Error("listener panicked", log.Args("message", msg.String(), "panic", fmt.Sprint(r)))
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	dctx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if _, err := c.rc.Peers(dctx, &relaywire.PeersRequest{NodeID: nodeID}, grpc.WaitForReady(true)); err != nil {
		c.cancel()
		_ = conn.Close()
		return nil, fmt.Errorf("relay %s unreachable: %w", addr, err)
	}
	stream, err := c.attach(dctx)
	if err != nil {
		c.cancel()
		_ = conn.Close()
		return nil, fmt.Errorf("attach to relay %s: %w", addr, err)
	}

	c.wg.Add(1)
	go c.receiveLoop(stream)
	log.Debug("attached to relay", log.Args("address", addr, "node", nodeID))
	return c, nil
}

// dialTarget derives the gRPC target and credentials. TLS uses the host as SNI
// and port 443 when none is given.
func dialTarget(addr string, opts Options) (string, []grpc.DialOption) {
	if opts.Dialer != nil {
		return "passthrough:///" + addr, []grpc.DialOption{
			grpc.WithContextDialer(opts.Dialer),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		}
	}

	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	target := addr
	if _, _, err := net.SplitHostPort(addr); err != nil {
		port := DefaultTLSPort
		if opts.Insecure {
			port = DefaultPort
		}
		target = net.JoinHostPort(addr, port)
	}

	creds := insecure.NewCredentials()
	if !opts.Insecure {
		creds = credentials.NewTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12})
	}
	return target, []grpc.DialOption{grpc.WithTransportCredentials(creds)}
}

// attach opens the delivery stream and waits for the attached frame until ctx is done.
func (c *Client) attach(ctx context.Context) (grpc.ServerStreamingClient[relaywire.ServerFrame], error) {
	streamCtx, cancelStream := context.WithCancel(c.ctx)
	stop := context.AfterFunc(ctx, cancelStream)
	defer stop()

	stream, err := c.rc.Attach(streamCtx, &relaywire.AttachRequest{NodeID: c.id}, grpc.WaitForReady(true))
	if err != nil {
		cancelStream()
		return nil, err
	}
	frame, err := stream.Recv()
	if err != nil {
		cancelStream()
		return nil, err
	}
	if !frame.Attached {
		cancelStream()
		return nil, errors.New("relay did not confirm attach")
	}
	if !stop() {
		return nil, ctx.Err()
	}
	c.attached.Store(true)
	return stream, nil
}

func (c *Client) receiveLoop(stream grpc.ServerStreamingClient[relaywire.ServerFrame]) {
	defer c.wg.Done()
	for {
		frame, err := stream.Recv()
		if err != nil {
			c.attached.Store(false)
			if c.closed.Load() {
				return
			}
			c.logStreamError(err)
			if stream = c.reattach(); stream == nil {
				return
			}
			continue
		}
		if env := frame.Envelope; env != nil {
			c.listeners.Dispatch(model.Message{From: env.From, RoutingKey: env.RoutingKey, Data: env.Payload})
		}
	}
}

func (c *Client) logStreamError(err error) {
	if errors.Is(err, io.EOF) {
		c.log.Warn("relay closed the stream, re-attaching")
		return
	}
	if st, ok := status.FromError(err); ok {
		c.log.Warn("relay stream lost, re-attaching", c.log.Args("code", st.Code().String(), "error", st.Message()))
		return
	}
	c.log.Warn("relay stream lost, re-attaching", c.log.Args("error", err.Error()))
}

// reattach retries attach with exponential backoff. It returns nil once the client is closed.
func (c *Client) reattach() grpc.ServerStreamingClient[relaywire.ServerFrame] {
	delay := c.opts.MinBackoff
	for {
		select {
		case <-c.ctx.Done():
			return nil
		case <-time.After(delay):
		}
		ctx, cancel := context.WithTimeout(c.ctx, c.opts.DialTimeout)
		stream, err := c.attach(ctx)
		cancel()
		if err == nil {
			c.log.Info("re-attached to relay", c.log.Args("node", c.id))
			return stream
		}
		if c.closed.Load() {
			return nil
		}
		c.log.Debug("re-attach failed", c.log.Args("error", err.Error(), "retry_in", delay.String()))
		delay *= 2
		if delay > c.opts.MaxBackoff {
			delay = c.opts.MaxBackoff
		}
	}
}

// ID returns the node id.
func (c *Client) ID() string { return c.id }

// Attached reports whether the delivery stream is currently up.
func (c *Client) Attached() bool { return c.attached.Load() }

// Peers lists the other nodes attached to the relay.
func (c *Client) Peers(ctx context.Context) ([]string, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	reply, err := c.rc.Peers(ctx, &relaywire.PeersRequest{NodeID: c.id})
	if err != nil {
		return nil, err
	}
	return reply.NodeIDs, nil
}

// Send forwards data to peer through the relay.
func (c *Client) Send(ctx context.Context, peer, routingKey string, data []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	_, err := c.rc.Send(ctx, &relaywire.Envelope{From: c.id, To: peer, RoutingKey: routingKey, Payload: data})
	return err
}

// AddListener registers l.
func (c *Client) AddListener(l model.Listener) { c.listeners.Add(l) }

// RemoveListener unregisters l.
func (c *Client) RemoveListener(l model.Listener) { c.listeners.Remove(l) }

// Close detaches from the relay and closes the connection. It is idempotent.
func (c *Client) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.cancel()
	err := c.conn.Close()
	c.wg.Wait()
	return err
}
