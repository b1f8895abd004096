package app

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthcheck "github.com/vladislavdragonenkov/orders/internal/health"
	"github.com/vladislavdragonenkov/orders/internal/version"
)

func TestNewGRPCServer_HealthServing(t *testing.T) {
	logger := log.WithField("test", "grpc-health")

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	server, healthServer := newGRPCServer(logger)
	go func() { _ = server.Serve(lis) }()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("failed to dial grpc: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := healthpb.NewHealthClient(conn)
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %s", resp.GetStatus())
	}

	stopGRPC(server, healthServer, time.Second, logger)

	resp, err = healthServer.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("local health check failed: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING after stop, got %s", resp.GetStatus())
	}
}

func TestNewGRPCServer_RepeatedRegistration(_ *testing.T) {
	logger := log.WithField("test", "grpc-metrics")

	// Повторная регистрация метрик не должна паниковать.
	first, _ := newGRPCServer(logger)
	second, _ := newGRPCServer(logger)
	first.Stop()
	second.Stop()
}

func TestStopGRPC_NilServer(_ *testing.T) {
	stopGRPC(nil, nil, time.Second, log.WithField("test", "grpc-nil"))
}

func TestNewOpsRouter_Routes(t *testing.T) {
	router := newOpsRouter(healthcheck.NewHandler(version.GetVersion()))

	tests := []struct {
		path string
		code int
		body string
	}{
		{path: "/livez", code: http.StatusOK, body: "ok"},
		{path: "/readyz", code: http.StatusOK, body: "ready"},
		{path: "/healthz", code: http.StatusOK},
		{path: "/metrics", code: http.StatusOK},
		{path: "/unknown", code: http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

		if rec.Code != tt.code {
			t.Errorf("%s returned status %d, expected %d", tt.path, rec.Code, tt.code)
		}
		if tt.body != "" && rec.Body.String() != tt.body {
			t.Errorf("%s returned body %q, expected %q", tt.path, rec.Body.String(), tt.body)
		}
	}
}
