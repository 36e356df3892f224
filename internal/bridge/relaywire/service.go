// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package relaywire

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified relay service name.
const ServiceName = "remotesql.relay.Relay"

// Full method names.
const (
	PeersMethod  = "/" + ServiceName + "/Peers"
	SendMethod   = "/" + ServiceName + "/Send"
	AttachMethod = "/" + ServiceName + "/Attach"
)

// RelayServer is implemented by the relay hub.
type RelayServer interface {
	Peers(context.Context, *PeersRequest) (*PeersReply, error)
	Send(context.Context, *Envelope) (*SendReply, error)
	Attach(*AttachRequest, grpc.ServerStreamingServer[ServerFrame]) error
}

// RegisterRelayServer registers srv on s.
func RegisterRelayServer(s grpc.ServiceRegistrar, srv RelayServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes the relay service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RelayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Peers", Handler: peersHandler},
		{MethodName: "Send", Handler: sendHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Attach", Handler: attachHandler, ServerStreams: true},
	},
	Metadata: "relay",
}

func peersHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PeersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RelayServer).Peers(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PeersMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RelayServer).Peers(ctx, req.(*PeersRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func sendHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Envelope)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RelayServer).Send(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SendMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RelayServer).Send(ctx, req.(*Envelope))
	}
	return interceptor(ctx, in, info, handler)
}

func attachHandler(srv any, stream grpc.ServerStream) error {
	in := new(AttachRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(RelayServer).Attach(in, &grpc.GenericServerStream[AttachRequest, ServerFrame]{ServerStream: stream})
}

// RelayClient calls the relay service over one connection.
type RelayClient struct {
	cc grpc.ClientConnInterface
}

// NewRelayClient wraps cc.
func NewRelayClient(cc grpc.ClientConnInterface) *RelayClient {
	return &RelayClient{cc: cc}
}

func (c *RelayClient) Peers(ctx context.Context, in *PeersRequest, opts ...grpc.CallOption) (*PeersReply, error) {
	out := new(PeersReply)
	if err := c.cc.Invoke(ctx, PeersMethod, in, out, c.callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RelayClient) Send(ctx context.Context, in *Envelope, opts ...grpc.CallOption) (*SendReply, error) {
	out := new(SendReply)
	if err := c.cc.Invoke(ctx, SendMethod, in, out, c.callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// Attach opens the delivery stream. The caller reads frames until the stream ends.
func (c *RelayClient) Attach(ctx context.Context, in *AttachRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ServerFrame], error) {
	cs, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], AttachMethod, c.callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	stream := &grpc.GenericClientStream[AttachRequest, ServerFrame]{ClientStream: cs}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return stream, nil
}

func (c *RelayClient) callOpts(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
