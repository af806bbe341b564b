package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"roombooking/internal/config"
	"roombooking/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// HTTPServer exposes the booking API over JSON/HTTP.
type HTTPServer struct {
	server *http.Server
	log    zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	log := logging.Component(logger, "http")

	return &HTTPServer{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler:           NewRouter(cfg, svc, log),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
		},
		log: log,
	}
}

// NewRouter builds the route table. Paths match with or without a trailing slash.
func NewRouter(cfg config.APIConfig, svc Services, logger zerolog.Logger) http.Handler {
	h := &handlers{svc: svc, logger: logger}

	allowedOrigins := cfg.CORS.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.StripSlashes)
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)

	r.Group(func(r chi.Router) {
		r.Use(newRateLimiter(cfg.RateLimit).Middleware)

		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.createUser)
			r.Get("/", h.listUsers)
			r.Get("/{user_id}", h.getUser)
		})

		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", h.createRoom)
			r.Get("/", h.listRooms)
			r.Get("/{room_id}", h.getRoom)
		})

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", h.createReservation)
			r.Get("/", h.listReservations)
			r.Get("/export", h.exportReservations)
			r.Get("/{reservation_id}", h.getReservation)
			r.Post("/{reservation_id}/cancel", h.cancelReservation)
		})

		r.Delete("/reset", h.reset)
	})

	return r
}

// Handler returns the root handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
