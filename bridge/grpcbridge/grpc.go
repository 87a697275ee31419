// Package grpcbridge carries sealed bridge envelopes over gRPC.
//
// The service definition is hand-written over protobuf well-known wrapper
// types, so the package needs no protoc/codegen toolchain.
//
// Proto definition: bridge.proto.
package grpcbridge

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// BridgeServer is the server API for the Bridge gRPC service.
type BridgeServer interface {
	// Send delivers one sealed envelope and returns the receipt status.
	Send(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
}

// UnimplementedBridgeServer can be embedded to have forward compatible
// implementations.
type UnimplementedBridgeServer struct{}

func (UnimplementedBridgeServer) Send(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Send not implemented")
}

// RegisterBridgeServer registers the Bridge service on a gRPC server.
func RegisterBridgeServer(s grpc.ServiceRegistrar, srv BridgeServer) {
	s.RegisterService(&Bridge_ServiceDesc, srv)
}

// BridgeClient is the client API for the Bridge gRPC service.
type BridgeClient interface {
	Send(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

type bridgeClient struct{ cc grpc.ClientConnInterface }

func NewBridgeClient(cc grpc.ClientConnInterface) BridgeClient { return &bridgeClient{cc: cc} }

func (c *bridgeClient) Send(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	err := c.cc.Invoke(ctx, "/namechain.bridge.v1.Bridge/Send", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func _Bridge_Send_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BridgeServer).Send(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/namechain.bridge.v1.Bridge/Send"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BridgeServer).Send(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Bridge_ServiceDesc is the grpc.ServiceDesc for the Bridge service.
var Bridge_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "namechain.bridge.v1.Bridge",
	HandlerType: (*BridgeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Send", Handler: _Bridge_Send_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bridge.proto",
}
