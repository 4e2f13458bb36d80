package codec

import (
	"context"

	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/logging"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/solver"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/state"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region server
// Observer is called after every solve that is answered, with the validated
// input. Solves that fail to journal are not observed.
type Observer func(in state.Quantities, res solver.Result)

// Server implements SolverServiceServer on top of a solver engine.
type Server struct {
	engine   *solver.Engine
	logger   *zap.Logger
	store    *state.Store
	observer Observer
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger for request and construction diagnostics.
func WithServerLogger(logger *zap.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithJournal records every solve in store.
func WithJournal(store *state.Store) ServerOption {
	return func(s *Server) { s.store = store }
}

// WithObserver registers fn to be called after each solve.
func WithObserver(fn Observer) ServerOption {
	return func(s *Server) { s.observer = fn }
}

// NewServer creates a Server. A nil engine uses the default configuration.
func NewServer(engine *solver.Engine, opts ...ServerOption) *Server {
	if engine == nil {
		engine = solver.NewEngine(solver.DefaultConfig())
	}
	s := &Server{engine: engine, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve decodes the request, runs the solver and encodes the result.
func (s *Server) Solve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	q, err := DecodeRequest(in, state.WithLogger(s.logger))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	res := s.engine.Solve(q)

	var solveID string
	if s.store != nil {
		rec, err := logging.RecordSolve(s.store, q, res, "")
		if err != nil {
			s.logger.Error("journal solve failed", zap.Error(err))
			return nil, status.Error(codes.Internal, err.Error())
		}
		solveID = rec.SolveID
	}
	if s.observer != nil {
		s.observer(q, res)
	}

	s.logger.Info("solve served",
		zap.String("solve_id", solveID),
		zap.Int("known_in", q.Len()),
		zap.Int("known_out", res.Quantities.Len()),
		zap.Int("passes", res.Passes),
		zap.Bool("converged", res.Converged),
	)

	out, err := EncodeResult(res, q.Demoted(), solveID)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// #endregion server
