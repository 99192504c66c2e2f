package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LockBrokerServer is the server API for the LockBroker service.
type LockBrokerServer interface {
	// Acquire grants the named lock, queueing per the request's policy.
	Acquire(context.Context, *AcquireRequest) (*AcquireResponse, error)
	// Release returns a previously granted lock.
	Release(context.Context, *ReleaseRequest) (*ReleaseResponse, error)
}

// UnimplementedLockBrokerServer provides forward-compatible default
// implementations. Embed it in concrete servers.
type UnimplementedLockBrokerServer struct{}

func (UnimplementedLockBrokerServer) Acquire(context.Context, *AcquireRequest) (*AcquireResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Acquire not implemented")
}

func (UnimplementedLockBrokerServer) Release(context.Context, *ReleaseRequest) (*ReleaseResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Release not implemented")
}

// RegisterLockBrokerServer registers the LockBroker service implementation
// with a gRPC server.
func RegisterLockBrokerServer(s grpc.ServiceRegistrar, srv LockBrokerServer) {
	s.RegisterService(&LockBroker_ServiceDesc, srv)
}

func lockBrokerAcquireHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AcquireRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LockBrokerServer).Acquire(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/lockbox.LockBroker/Acquire",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LockBrokerServer).Acquire(ctx, req.(*AcquireRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func lockBrokerReleaseHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ReleaseRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LockBrokerServer).Release(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/lockbox.LockBroker/Release",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LockBrokerServer).Release(ctx, req.(*ReleaseRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// LockBroker_ServiceDesc is the grpc.ServiceDesc for the LockBroker service.
var LockBroker_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "lockbox.LockBroker",
	HandlerType: (*LockBrokerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Acquire",
			Handler:    lockBrokerAcquireHandler,
		},
		{
			MethodName: "Release",
			Handler:    lockBrokerReleaseHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lockbox.proto",
}

// LockBrokerClient is the client API for the LockBroker service.
type LockBrokerClient interface {
	Acquire(ctx context.Context, in *AcquireRequest, opts ...grpc.CallOption) (*AcquireResponse, error)
	Release(ctx context.Context, in *ReleaseRequest, opts ...grpc.CallOption) (*ReleaseResponse, error)
}

type lockBrokerClient struct {
	cc grpc.ClientConnInterface
}

// NewLockBrokerClient creates a LockBroker client on an established
// connection. Pair it with grpc.ForceCodec(JSONCodec{}) on the dial options.
func NewLockBrokerClient(cc grpc.ClientConnInterface) LockBrokerClient {
	return &lockBrokerClient{cc}
}

func (c *lockBrokerClient) Acquire(ctx context.Context, in *AcquireRequest, opts ...grpc.CallOption) (*AcquireResponse, error) {
	out := new(AcquireResponse)
	if err := c.cc.Invoke(ctx, "/lockbox.LockBroker/Acquire", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *lockBrokerClient) Release(ctx context.Context, in *ReleaseRequest, opts ...grpc.CallOption) (*ReleaseResponse, error) {
	out := new(ReleaseResponse)
	if err := c.cc.Invoke(ctx, "/lockbox.LockBroker/Release", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
