package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"beachrental-backend/internal/api/grpc/interceptor"
	"beachrental-backend/internal/security"
)

// NewServer builds the gRPC server with the operations service, health and
// reflection registered. The returned health server lets the caller flip
// serving status on shutdown.
func NewServer(tm security.TokenManager, ops OperationsServer) (*grpc.Server, *health.Server) {
	auth := interceptor.NewAuthInterceptor(tm)
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(interceptor.UnaryLogging(), auth.Unary()),
		grpc.ChainStreamInterceptor(auth.Stream()),
	)

	RegisterOperationsServer(srv, ops)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(srv, healthSrv)
	reflection.Register(srv)

	return srv, healthSrv
}
