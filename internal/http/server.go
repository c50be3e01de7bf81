package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Clark-Hu/skillswap-ratings/internal/auth"
	"github.com/Clark-Hu/skillswap-ratings/internal/config"
	"github.com/Clark-Hu/skillswap-ratings/internal/domain"
	"github.com/Clark-Hu/skillswap-ratings/internal/rating"
)

// RatingService is the subset of rating.Service the handlers depend on.
type RatingService interface {
	CreateRating(ctx context.Context, in rating.CreateInput) (domain.RatingView, error)
	UpdateRating(ctx context.Context, ratingID, requesterID string, score int) (domain.RatingView, error)
	DeleteRating(ctx context.Context, ratingID, requesterID string) (domain.DeletionRecord, error)
	ListRatingsForListing(ctx context.Context, listingID string) (domain.ListingRatings, error)
	GetAverageRating(ctx context.Context, listingID string) (domain.ListingAverage, error)
	ListRatingsByLearner(ctx context.Context, learnerID string) (domain.RatingList, error)
	ListMyRatings(ctx context.Context, currentUserID string) (domain.RatingList, error)
	ListReceivedRatings(ctx context.Context, currentUserID string) (domain.RatingList, error)
	ListTeacherRatings(ctx context.Context, teacherID string) (domain.RatingList, error)
	GetTeacherRatingStats(ctx context.Context, teacherID string) (domain.TeacherStats, error)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type healthCheck struct {
	name    string
	checker HealthChecker
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg      config.Config
	checks   []healthCheck
	ratings  RatingService
	verifier *auth.Verifier
	limiter  *clientLimiter
	logger   *zap.Logger
	router   chi.Router
	httpSrv  *http.Server
}

// New constructs the HTTP server with base middleware and routes. health is
// registered as the "store" check.
func New(cfg config.Config, health HealthChecker, ratings RatingService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:      cfg,
		ratings:  ratings,
		verifier: auth.NewVerifier(cfg.JWTSecret),
		logger:   logger.Named("http"),
		router:   chi.NewRouter(),
	}
	if health != nil {
		s.AddHealthCheck("store", health)
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = newClientLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, clientIdleTTL)
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.accessLog)
	s.router.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		s.router.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}).Handler)
	}
	if s.limiter != nil {
		s.router.Use(s.rateLimit)
	}

	s.registerRoutes()
	s.httpSrv = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeoutSecs) * time.Second,
	}
	return s
}

// AddHealthCheck adds a dependency probed by /healthz. Call it before Start.
func (s *Server) AddHealthCheck(name string, checker HealthChecker) {
	s.checks = append(s.checks, healthCheck{name: name, checker: checker})
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Route("/api/ratings", func(r chi.Router) {
		r.Get("/listings/{listingID}", s.handleListForListing)
		r.Get("/listings/{listingID}/average", s.handleListingAverage)
		r.Get("/learners/{learnerID}", s.handleListByLearner)
		r.Get("/teachers/{teacherID}", s.handleListForTeacher)
		r.Get("/teachers/{teacherID}/stats", s.handleTeacherStats)

		r.Group(func(r chi.Router) {
			r.Use(s.verifier.Middleware(s.respondUnauthorized))
			r.Post("/", s.handleCreateRating)
			r.Get("/me", s.handleListMine)
			r.Get("/received", s.handleListReceived)
			r.Patch("/{ratingID}", s.handleUpdateRating)
			r.Delete("/{ratingID}", s.handleDeleteRating)
		})
	})
}

// Handler exposes the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start boots the HTTP server and blocks until ctx is cancelled or serving fails.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server. A later Start returns at once.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, c := range s.checks {
		if err := c.checker.HealthCheck(ctx); err != nil {
			s.logger.Warn("health check failed", zap.String("check", c.name), zap.Error(err))
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			s.logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientKey(r)) {
			s.respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
