package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roombooking/internal/api"
	"roombooking/internal/config"
	"roombooking/internal/database"
	"roombooking/internal/domain"
	"roombooking/internal/events"
	"roombooking/internal/export"
	"roombooking/internal/lock"
	"roombooking/internal/logging"
	"roombooking/internal/metrics"
	"roombooking/internal/service"
	"roombooking/internal/worker"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	locker := newRoomLocker(cfg, redisClient, &logger)

	bus := events.NewEventBus()
	forwarder, natsConn := initEventForwarding(cfg, bus, &logger)
	if natsConn != nil {
		defer natsConn.Close()
	}

	users := service.NewUserService(db, domain.SystemClock{}, &logger)
	rooms := service.NewRoomService(db, &logger)
	reservations := service.NewReservationService(
		db, db, db, locker, bus, domain.SystemClock{}, cfg.Locking.AcquireTimeout, &logger,
	)
	admin := service.NewAdminService(db, bus, domain.SystemClock{}, &logger)

	if err := seedRooms(ctx, cfg, rooms, &logger); err != nil {
		return err
	}

	httpServer := api.NewHTTPServer(cfg.API, api.Services{
		Users:        users,
		Rooms:        rooms,
		Reservations: reservations,
		Admin:        admin,
		Exporter:     export.NewExporter(reservations, users, rooms),
		DB:           db,
	}, &logger)

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(&cfg.API, db, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	startMetrics(ctx, cfg, &logger)

	backup := database.NewBackupService(db, cfg.Backup, &logger)
	go backup.Start(ctx)

	if forwarder != nil {
		go forwarder.Start(ctx)
	}

	err = startServers(ctx, grpcServer, httpServer, cfg, &logger)
	stop()
	if forwarder != nil {
		forwarder.Wait()
	}
	return err
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database.Path, logger); err != nil {
			logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("migrate database")
			return nil, err
		}
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}
	return db, nil
}

func seedRooms(ctx context.Context, cfg *config.Config, rooms *service.RoomService, logger *zerolog.Logger) error {
	if cfg.Seed.RoomsPath == "" {
		return nil
	}
	defs, err := service.LoadRoomsFile(cfg.Seed.RoomsPath)
	if err != nil {
		logger.Error().Err(err).Str("rooms_path", cfg.Seed.RoomsPath).Msg("read rooms seed file")
		return err
	}
	if _, err := rooms.Seed(ctx, defs); err != nil {
		return fmt.Errorf("seed rooms: %w", err)
	}
	return nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := lock.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := lock.Ping(pingCtx, client); err != nil {
		// The failover locker keeps probing, so the client is kept.
		logger.Warn().Err(err).Msg("redis unavailable at startup, room locks fall back to memory")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}
	return client
}

func newRoomLocker(cfg *config.Config, client *redis.Client, logger *zerolog.Logger) domain.RoomLocker {
	memory := lock.NewMemoryRoomLocker()
	if client == nil {
		return memory
	}
	return lock.NewFailoverRoomLocker(lock.NewRedisRoomLocker(client, cfg.Locking.LockTTL, logger), memory, logger)
}

func initEventForwarding(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) (*worker.EventForwarder, *nats.Conn) {
	if cfg.Events.NATSURL == "" {
		return nil, nil
	}

	conn, err := events.ConnectNATS(cfg.Events.NATSURL, cfg.App.Name, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("nats connection failed, events stay in-process")
		return nil, nil
	}

	forwarder := worker.NewEventForwarder(
		events.NewNATSPublisher(conn, cfg.Events.SubjectPrefix),
		cfg.Events.QueueSize,
		worker.RetryPolicy{Jitter: 0.2},
		logger,
	)
	forwarder.Subscribe(bus, events.AllTypes...)
	return forwarder, conn
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	errCh := make(chan error, 2)

	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
		go grpcServer.WatchHealth(ctx, 10*time.Second)
	}

	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Bool("grpc", grpcServer != nil).Msg("API server started")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return runErr
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
