package policy

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/ope-controller/internal/batch"
)

// #region client-struct
// Client queries a remote target policy over gRPC.
type Client struct {
	conn    *grpc.ClientConn
	cc      grpc.ClientConnInterface
	timeout time.Duration
}

// #endregion client-struct

// #region constructor
// NewClient connects to a policy service at addr. A zero timeout leaves the
// caller's context deadline in charge.
func NewClient(addr string, timeout time.Duration) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn, timeout: timeout}, nil
}

// NewClientWithConn wraps an existing connection. Used by tests.
func NewClientWithConn(cc grpc.ClientConnInterface, timeout time.Duration) *Client {
	return &Client{cc: cc, timeout: timeout}
}

// #endregion constructor

// #region close
// Close shuts down the connection if the client owns one.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region action-prob
// ActionProb asks the remote policy for the probability of each recorded action.
func (c *Client) ActionProb(ctx context.Context, b batch.SampleBatch) ([]float64, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := encodeRequest(b)
	if err != nil {
		return nil, err
	}
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, actionProbMethod, req, resp); err != nil {
		return nil, fmt.Errorf("action prob rpc: %w", err)
	}
	probs, err := decodeResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("action prob rpc: %w", err)
	}
	return probs, nil
}

// #endregion action-prob
