package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"carrental/internal/auth"
	"carrental/internal/config"
	"carrental/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Pinger reports whether the entity store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the collaborators behind the HTTP and gRPC surfaces.
type Services struct {
	Cars     domain.CarService
	Bookings domain.BookingService
	Stats    domain.StatsService
	Users    domain.UserService
	Tokens   *auth.TokenManager
	Store    Pinger
}

// HTTPServer exposes the customer and owner REST API.
type HTTPServer struct {
	cfg     config.APIConfig
	svc     Services
	server  *http.Server
	limiter *rateLimiter
	log     zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:     cfg,
		svc:     svc,
		limiter: newRateLimiter(cfg.RateLimit),
		log:     zerolog.Nop(),
	}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

// Handler returns the root handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins(),
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))
	r.Use(rateLimitMiddleware(s.limiter))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	authn := requireAuth(s.svc.Tokens)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.With(authn).Get("/profile", s.handleProfile)
	})

	r.Route("/api/cars", func(r chi.Router) {
		r.Get("/", s.handleListCars)
		r.Get("/brands/list", s.handleBrands)
		r.Get("/{id}", s.handleGetCar)
		r.Group(func(r chi.Router) {
			r.Use(authn, requireOwner)
			r.Post("/", s.handleCreateCar)
			r.Put("/{id}", s.handleUpdateCar)
			r.Delete("/{id}", s.handleDeleteCar)
		})
	})

	r.Route("/api/bookings", func(r chi.Router) {
		r.Use(authn)
		r.Post("/", s.handleCreateBooking)
		r.Get("/my-bookings", s.handleMyBookings)
		r.Get("/quote", s.handleQuote)
		r.Put("/{id}/cancel", s.handleCancelBooking)
		r.Group(func(r chi.Router) {
			r.Use(requireOwner)
			r.Get("/", s.handleListBookings)
			r.Get("/stats", s.handleStats)
			r.Get("/export", s.handleExport)
			r.Put("/{id}/status", s.handleSetStatus)
		})
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Use(authn, requireOwner)
		r.Get("/customers", s.handleListCustomers)
		r.Get("/customers/{id}", s.handleGetCustomer)
	})

	return r
}

func (s *HTTPServer) corsOrigins() []string {
	if len(s.cfg.HTTP.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return s.cfg.HTTP.CORSOrigins
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

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Store.Ping(ctx); err != nil {
			s.log.Warn().Err(err).Msg("store ping failed")
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
