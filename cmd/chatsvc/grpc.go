package main

import (
	"fmt"
	"net"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/novafabric/backbone/internal/rpcmesh/jwtauth"
)

// newGRPCServer builds this instance's server-side half of the RPC mesh
// (§4.7): a health-checkable gRPC server chaining panic recovery ahead of
// JWT authentication on every unary/stream call, following
// services/user-management-service/cmd/server/main.go's
// setupGRPCServer interceptor-chaining pattern. Peer services dial it
// through internal/rpcmesh.Mesh, whose client interceptors already attach
// the propagated bearer token this server validates.
func newGRPCServer(validator *jwtauth.Validator, logger *logrus.Logger) *grpc.Server {
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc_middleware.ChainUnaryServer(
				grpc_recovery.UnaryServerInterceptor(),
				jwtauth.UnaryServerInterceptor(validator),
			),
		),
		grpc.ChainStreamInterceptor(
			grpc_middleware.ChainStreamServer(
				grpc_recovery.StreamServerInterceptor(),
				jwtauth.StreamServerInterceptor(validator),
			),
		),
	)

	grpc_health_v1.RegisterHealthServer(server, health.NewServer())
	return server
}

func serveGRPC(server *grpc.Server, port int, logger *logrus.Logger) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		logger.Fatalf("failed to listen on grpc port %d: %v", port, err)
	}
	logger.Infof("starting chatsvc grpc server on port %d", port)
	if err := server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		logger.Fatalf("grpc server stopped unexpectedly: %v", err)
	}
}
