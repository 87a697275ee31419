package grpcbridge

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"namechain.dev/registry/bridge"
	"namechain.dev/registry/types"
)

// Server exposes a bridge.Controller's inbound entry point over the Bridge
// gRPC service.
type Server struct {
	UnimplementedBridgeServer
	Controller *bridge.Controller
}

func (s *Server) Send(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if s == nil || s.Controller == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing controller")
	}
	rcpt, err := s.Controller.Deliver(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	if rcpt.Replayed {
		return nil, mapErr(types.Errorf(types.ErrDuplicateMessage,
			"message %s already applied as %s", rcpt.MsgID, rcpt.Status))
	}
	return wrapperspb.String(string(rcpt.Status)), nil
}

func mapErr(err error) error {
	switch types.CodeOf(err) {
	case types.ErrUnauthorizedCaller:
		return status.Error(codes.PermissionDenied, err.Error())
	case types.ErrUnsupportedFormat:
		return status.Error(codes.InvalidArgument, err.Error())
	case types.ErrDuplicateMessage:
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
