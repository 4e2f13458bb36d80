package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/codec"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/config"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/metrics"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/solver"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/state"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const shutdownTimeout = 5 * time.Second

// #region serve-cmd
type serveOptions struct {
	addr        string
	metricsAddr string
	noJournal   bool
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the solver gRPC service and the metrics endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				cfg.Addr = opts.addr
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Metrics = opts.metricsAddr
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			return runServe(cmd.Context(), opts.noJournal)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "gRPC listen address (overrides config)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "metrics listen address, empty to disable (overrides config)")
	cmd.Flags().BoolVar(&opts.noJournal, "no-journal", false, "do not record solves in the database")
	return cmd
}

// #endregion serve-cmd

// #region run-serve
func runServe(ctx context.Context, noJournal bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	m := metrics.NewSolverMetrics(reg)

	serverOpts := []codec.ServerOption{
		codec.WithServerLogger(logger),
		codec.WithObserver(m.Observe),
	}
	if !noJournal {
		store, err := state.NewStore(cfg.DB)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer store.Close()
		serverOpts = append(serverOpts, codec.WithJournal(store))
	}

	engine := solver.NewEngine(cfg.EngineConfig(), solver.WithLogger(logger))
	gs := grpc.NewServer()
	codec.RegisterSolverServiceServer(gs, codec.NewServer(engine, serverOpts...))

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}

	var httpSrv *http.Server
	if cfg.Metrics != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		httpSrv = &http.Server{
			Addr:              cfg.Metrics,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
		if err := gs.Serve(lis); !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	if httpSrv != nil {
		g.Go(func() error {
			logger.Info("metrics server listening", zap.String("addr", httpSrv.Addr))
			if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		gs.GracefulStop()
		if httpSrv != nil {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpSrv.Shutdown(sctx)
		}
		return nil
	})
	return g.Wait()
}

// #endregion run-serve
