// Package health exposes liveness, readiness and metrics endpoints.
//
// Docker and Kubernetes probe /healthz and /readyz over HTTP; gRPC-aware
// orchestrators use the standard grpc.health.v1 service on a separate port.
// Prometheus scrapes /metrics.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server serves health checks over HTTP and, when grpcPort is set, gRPC.
type Server struct {
	port     int
	grpcPort int
	gatherer prometheus.Gatherer
	ready    atomic.Bool

	grpcHealth *grpchealth.Server
	httpServer *http.Server
	grpcServer *grpc.Server
}

// New creates a health server. A zero grpcPort disables the gRPC service.
// A nil gatherer serves prometheus.DefaultGatherer.
func New(port, grpcPort int, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		port:       port,
		grpcPort:   grpcPort,
		gatherer:   gatherer,
		grpcHealth: grpchealth.NewServer(),
	}
	s.grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// SetReady marks the daemon as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.grpcHealth.SetServingStatus("", status)
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Liveness: the process is up.
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			writeStatus(w, http.StatusServiceUnavailable, "not_ready")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return mux
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// ListenAndServe starts the HTTP and gRPC health servers.
// It blocks until the context is cancelled or a listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		slog.Info("health server listening", "port", s.port)
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	if s.grpcPort > 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.grpcPort))
		if err != nil {
			_ = s.httpServer.Close()
			return fmt.Errorf("grpc health listen: %w", err)
		}
		s.grpcServer = newGRPCServer(s.grpcHealth)
		g.Go(func() error {
			return serveGRPC(s.grpcServer, lis)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("health server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		if s.grpcServer != nil {
			s.grpcHealth.Shutdown()
			s.grpcServer.GracefulStop()
		}
		return nil
	})

	return g.Wait()
}

// newGRPCServer creates a gRPC server exposing only grpc.health.v1.
func newGRPCServer(hs healthpb.HealthServer) *grpc.Server {
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

func serveGRPC(srv *grpc.Server, lis net.Listener) error {
	slog.Info("grpc health service listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc health: %w", err)
	}
	return nil
}
