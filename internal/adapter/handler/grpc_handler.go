package handler

import (
	"context"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/rl1809/pet-storefront/internal/logger"
)

// CartServiceName is the name reported by the health service.
const CartServiceName = "djurshop.Cart"

// GRPCHandler serves the standard gRPC health protocol for the storefront.
type GRPCHandler struct {
	server *grpc.Server
	health *health.Server
	log    *logger.Logger
}

func NewGRPCHandler(log *logger.Logger) *GRPCHandler {
	h := &GRPCHandler{
		health: health.NewServer(),
		log:    log.With("component", "grpc"),
	}
	h.server = grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(h.logUnary),
	)

	healthpb.RegisterHealthServer(h.server, h.health)
	reflection.Register(h.server)

	h.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.health.SetServingStatus(CartServiceName, healthpb.HealthCheckResponse_SERVING)
	return h
}

func (h *GRPCHandler) Server() *grpc.Server {
	return h.server
}

// Shutdown flips every service to NOT_SERVING so probes stop routing here.
func (h *GRPCHandler) Shutdown() {
	h.health.Shutdown()
}

func (h *GRPCHandler) logUnary(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := next(ctx, req)
	h.log.Debug("grpc request",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}
