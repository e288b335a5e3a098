// Package grpc exposes the standard gRPC health service. The overall status
// and the reconstruction service status are NOT_SERVING until the model is
// loaded.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/platerecon/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ReconstructionService is the health service name reported alongside the
// overall ("") status.
const ReconstructionService = "platerecon.Reconstruction"

type GRPCServer struct {
	address string
	ready   <-chan struct{}
	health  *health.Server
	logger  logging.Logger
}

// NewGRPCServer returns a server whose health flips to SERVING once ready is
// closed.
func NewGRPCServer(a string, l logging.Logger, ready <-chan struct{}) *GRPCServer {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ReconstructionService, healthpb.HealthCheckResponse_NOT_SERVING)

	return &GRPCServer{
		address: a,
		ready:   ready,
		health:  hs,
		logger:  l.With("module", "grpc_server"),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {

	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))

	// registers service
	healthpb.RegisterHealthServer(srv, s.health)

	go s.watchReadiness(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

func (s *GRPCServer) watchReadiness(ctx context.Context) {
	select {
	case <-s.ready:
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		s.health.SetServingStatus(ReconstructionService, healthpb.HealthCheckResponse_SERVING)
		s.logger.Info(ctx, "health status set to SERVING")
	case <-ctx.Done():
	}
}
