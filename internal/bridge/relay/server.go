// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package relay implements the gRPC hub nodes attach to. It keeps one session
// per attached node, answers peer enumeration, and forwards envelopes to the
// target's attach stream. Delivery is best effort: nothing is stored for nodes
// that are not attached.
package relay

import (
	"context"
	"net"
	"sort"
	"sync"

	"remotesql/cli/internal/bridge/relaywire"
	"remotesql/cli/internal/logging"
	"remotesql/cli/internal/metrics"

	"github.com/pterm/pterm"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultQueueSize is the per-session outbound buffer.
const DefaultQueueSize = 256

// Options configures a Server.
type Options struct {
	QueueSize int
	Logger    *pterm.Logger
	Metrics   *metrics.Relay
}

// Server is the relay hub.
type Server struct {
	opts     Options
	log      *pterm.Logger
	mu       sync.RWMutex
	sessions map[string]*session
	grpc     *grpc.Server
	stopped  bool
}

type session struct {
	nodeID string
	out    chan *relaywire.Envelope
	done   chan struct{}
	once   sync.Once
}

func (s *session) end() { s.once.Do(func() { close(s.done) }) }

// NewServer builds a relay hub. Call Register or Serve to expose it.
func NewServer(opts Options) *Server {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Server{opts: opts, log: log, sessions: make(map[string]*session)}
}

// Register installs the relay service on an existing grpc.Server.
func (s *Server) Register(gs grpc.ServiceRegistrar) {
	relaywire.RegisterRelayServer(gs, s)
}

// Serve accepts connections on lis until ctx is cancelled or Stop is called.
func (s *Server) Serve(ctx context.Context, lis net.Listener, opts ...grpc.ServerOption) error {
	gs := grpc.NewServer(opts...)
	s.Register(gs)
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.grpc = gs
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	s.log.Info("relay listening", s.log.Args("address", lis.Addr().String()))
	return gs.Serve(lis)
}

// Stop ends every session and stops the gRPC server, if Serve started one.
func (s *Server) Stop() {
	s.mu.Lock()
	s.stopped = true
	gs := s.grpc
	for id, sess := range s.sessions {
		sess.end()
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if gs != nil {
		gs.Stop()
	}
}

// Attached returns the attached node ids, sorted.
func (s *Server) Attached() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Peers lists attached nodes other than the caller.
func (s *Server) Peers(ctx context.Context, in *relaywire.PeersRequest) (*relaywire.PeersReply, error) {
	all := s.Attached()
	reply := &relaywire.PeersReply{NodeIDs: make([]string, 0, len(all))}
	for _, id := range all {
		if id != in.NodeID {
			reply.NodeIDs = append(reply.NodeIDs, id)
		}
	}
	return reply, nil
}

// Send queues env for its target.
func (s *Server) Send(ctx context.Context, env *relaywire.Envelope) (*relaywire.SendReply, error) {
	if env.To == "" {
		return nil, status.Error(codes.InvalidArgument, "envelope has no target")
	}
	s.mu.RLock()
	sess, ok := s.sessions[env.To]
	s.mu.RUnlock()
	if !ok {
		s.opts.Metrics.Dropped("not_attached")
		return nil, status.Errorf(codes.NotFound, "node %q is not attached", env.To)
	}
	select {
	case sess.out <- env:
		s.opts.Metrics.Forwarded()
		return &relaywire.SendReply{}, nil
	case <-sess.done:
		s.opts.Metrics.Dropped("not_attached")
		return nil, status.Errorf(codes.NotFound, "node %q detached", env.To)
	default:
		s.opts.Metrics.Dropped("queue_full")
		s.log.Warn("relay queue full", s.log.Args("node", env.To, "routing_key", env.RoutingKey))
		return nil, status.Errorf(codes.ResourceExhausted, "queue for node %q is full", env.To)
	}
}

// Attach streams envelopes to the calling node until it disconnects or is replaced.
func (s *Server) Attach(in *relaywire.AttachRequest, stream grpc.ServerStreamingServer[relaywire.ServerFrame]) error {
	if in.NodeID == "" {
		return status.Error(codes.InvalidArgument, "node id is required")
	}
	sess := &session{
		nodeID: in.NodeID,
		out:    make(chan *relaywire.Envelope, s.opts.QueueSize),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return status.Error(codes.Unavailable, "relay stopping")
	}
	if prev, ok := s.sessions[in.NodeID]; ok {
		prev.end()
		s.log.Info("node re-attached, replacing session", s.log.Args("node", in.NodeID))
	}
	s.sessions[in.NodeID] = sess
	s.opts.Metrics.SetAttached(len(s.sessions))
	s.mu.Unlock()

	defer s.detach(sess)

	if err := stream.Send(&relaywire.ServerFrame{Attached: true}); err != nil {
		return err
	}
	s.log.Debug("node attached", s.log.Args("node", in.NodeID))

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sess.done:
			return status.Error(codes.Aborted, "session replaced")
		case env := <-sess.out:
			if err := stream.Send(&relaywire.ServerFrame{Envelope: env}); err != nil {
				return err
			}
		}
	}
}

func (s *Server) detach(sess *session) {
	sess.end()
	s.mu.Lock()
	if s.sessions[sess.nodeID] == sess {
		delete(s.sessions, sess.nodeID)
	}
	s.opts.Metrics.SetAttached(len(s.sessions))
	s.mu.Unlock()
	s.log.Debug("node detached", s.log.Args("node", sess.nodeID))
}
