package codec

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/state"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// #region client-struct
// SolverClient wraps the gRPC connection to a remote solver service.
type SolverClient struct {
	conn   *grpc.ClientConn
	client SolverServiceClient
}

// #endregion client-struct

// #region constructor
// NewSolverClient connects to the solver gRPC server at addr.
func NewSolverClient(addr string, opts ...grpc.DialOption) (*SolverClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &SolverClient{
		conn:   conn,
		client: NewSolverServiceClient(conn),
	}, nil
}

// NewSolverClientWithService creates a SolverClient with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewSolverClientWithService(svc SolverServiceClient) *SolverClient {
	return &SolverClient{client: svc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *SolverClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region solve
// Solve sends the known quantities (theta in degrees) to the remote solver.
func (c *SolverClient) Solve(ctx context.Context, in map[state.Field]float64) (SolveResponse, error) {
	req, err := EncodeRequest(in)
	if err != nil {
		return SolveResponse{}, err
	}
	resp, err := c.client.Solve(ctx, req)
	if err != nil {
		return SolveResponse{}, fmt.Errorf("solve rpc: %w", err)
	}
	return DecodeResult(resp)
}

// #endregion solve
