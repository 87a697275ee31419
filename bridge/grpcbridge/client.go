package grpcbridge

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"namechain.dev/registry/bridge"
	"namechain.dev/registry/types"
)

// Client implements bridge.Bridge over the Bridge gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client BridgeClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var _ bridge.Bridge = (*Client)(nil)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewBridgeClient(cc)}, nil
}

func (c *Client) Close() error { return c.cc.Close() }

func (c *Client) SendMessage(ctx context.Context, msg []byte) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	_, err := c.client.Send(ctx, wrapperspb.Bytes(msg))
	return mapRPC(err)
}

// mapRPC converts transport status codes back into the module's coded
// errors where the mapping is unambiguous.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.PermissionDenied:
		return types.NewError(types.ErrUnauthorizedCaller, st.Message())
	case codes.InvalidArgument:
		return types.NewError(types.ErrUnsupportedFormat, st.Message())
	case codes.AlreadyExists:
		return types.NewError(types.ErrDuplicateMessage, st.Message())
	default:
		return err
	}
}
