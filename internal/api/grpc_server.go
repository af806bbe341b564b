package api

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"roombooking/internal/config"
	"roombooking/internal/logging"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the gRPC health service name reported for the booking API.
const ServiceName = "roombooking.v1.RoomBooking"

// GRPCServer serves grpc.health.v1.Health. Both the overall status and ServiceName
// follow database reachability.
type GRPCServer struct {
	db       Pinger
	health   *health.Server
	server   *grpc.Server
	listener net.Listener
	log      zerolog.Logger

	mu     sync.Mutex
	status healthpb.HealthCheckResponse_ServingStatus
}

func NewGRPCServer(cfg *config.APIConfig, db Pinger, logger *zerolog.Logger) (*GRPCServer, error) {
	opts, err := serverOptions(cfg.GRPC, logger)
	if err != nil {
		return nil, err
	}

	addr := fmt.Sprintf(":%d", cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("grpc listen %s: %w", addr, err)
	}

	s := &GRPCServer{
		db:       db,
		health:   health.NewServer(),
		server:   grpc.NewServer(opts...),
		listener: lis,
		log:      logging.Component(logger, "grpc"),
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	if cfg.GRPC.Reflection {
		reflection.Register(s.server)
	}
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
	return s, nil
}

func serverOptions(cfg config.APIGRPCConfig, logger *zerolog.Logger) ([]grpc.ServerOption, error) {
	opts := []grpc.ServerOption{
		grpc.UnaryInterceptor(ChainUnaryInterceptors(
			RecoveryUnaryInterceptor(logger),
			LoggingUnaryInterceptor(logger),
		)),
	}
	if !cfg.TLS.Enabled {
		return opts, nil
	}
	tlsCfg, err := buildTLSConfig(cfg.TLS)
	if err != nil {
		return nil, err
	}
	return append(opts, grpc.Creds(credentials.NewTLS(tlsCfg))), nil
}

func buildTLSConfig(cfg config.APITLSConfig) (*tls.Config, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, errors.New("grpc tls: cert_file and key_file are required")
	}
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("grpc tls: load key pair: %w", err)
	}

	tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	if !cfg.RequireClientCert {
		return tlsCfg, nil
	}
	if cfg.ClientCAFile == "" {
		return nil, errors.New("grpc tls: require_client_cert needs client_ca_file")
	}
	pool, err := loadCertPool(cfg.ClientCAFile)
	if err != nil {
		return nil, err
	}
	tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
	tlsCfg.ClientCAs = pool
	return tlsCfg, nil
}

func loadCertPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("grpc tls: read client_ca_file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("grpc tls: no certificates in %s", path)
	}
	return pool, nil
}

func (s *GRPCServer) Addr() string {
	return s.listener.Addr().String()
}

func (s *GRPCServer) Serve() error {
	s.log.Info().Str("addr", s.Addr()).Msg("gRPC health server listening")
	return s.server.Serve(s.listener)
}

// CheckHealth pings the database and publishes the resulting status.
func (s *GRPCServer) CheckHealth(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if s.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.db.PingContext(pingCtx)
		cancel()
		if err != nil {
			s.log.Debug().Err(err).Msg("database ping failed")
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.setStatus(st)
	return st
}

// setStatus updates both health entries and logs transitions only.
func (s *GRPCServer) setStatus(st healthpb.HealthCheckResponse_ServingStatus) {
	s.mu.Lock()
	prev := s.status
	s.status = st
	s.mu.Unlock()

	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
	if prev != st && prev != healthpb.HealthCheckResponse_UNKNOWN {
		s.log.Warn().Str("from", prev.String()).Str("to", st.String()).Msg("health status changed")
	}
}

// WatchHealth checks immediately and then every interval until ctx ends.
func (s *GRPCServer) WatchHealth(ctx context.Context, interval time.Duration) {
	s.CheckHealth(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckHealth(ctx)
		}
	}
}

// Shutdown marks the service NOT_SERVING and drains in-flight calls, forcing a stop
// when ctx expires first.
func (s *GRPCServer) Shutdown(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn().Msg("gRPC graceful shutdown timed out, forcing stop")
		s.server.Stop()
	}
}
