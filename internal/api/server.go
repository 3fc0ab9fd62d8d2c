// Package api serves the habit persistence layer as a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/greaterodd/odd-trackr/internal/constants"
	"github.com/greaterodd/odd-trackr/internal/logger"
	"github.com/greaterodd/odd-trackr/internal/models"
	"github.com/greaterodd/odd-trackr/internal/storage"
	"github.com/greaterodd/odd-trackr/internal/streak"
)

type Options struct {
	RateLimit float64
	RateBurst int
	// Registry receives the server metrics. Nil means a fresh registry.
	Registry *prometheus.Registry
	// Now is the clock the streak view uses. Nil means time.Now.
	Now func() time.Time
}

type Server struct {
	store   storage.Provider
	streaks *streak.Calculator
	limiter *rateLimiter
	metrics *Metrics
	engine  *gin.Engine
}

func New(store storage.Provider, opts Options) *Server {
	if opts.RateLimit <= 0 {
		opts.RateLimit = constants.DefaultRateLimit
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = constants.DefaultRateBurst
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		store:   store,
		limiter: newRateLimiter(opts.RateLimit, opts.RateBurst),
		metrics: NewMetrics(opts.Registry),
	}
	s.streaks = streak.New(
		streak.WithClock(opts.Now),
		streak.WithSkipHook(func(models.Completion) { s.metrics.MalformedDatesTotal.Inc() }),
	)
	s.engine = s.routes(opts.Registry)
	return s
}

func (s *Server) routes(reg *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(constants.AppName))
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(s.metrics.Middleware())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.Use(AuthMiddleware(s.store))
	v1.Use(RateLimitMiddleware(s.limiter))

	v1.GET("/me", s.me)

	v1.GET("/habits", s.listHabits)
	v1.POST("/habits", s.createHabit)
	v1.GET("/habits/:id", s.getHabit)
	v1.PATCH("/habits/:id", s.updateHabit)
	v1.DELETE("/habits/:id", s.deleteHabit)

	v1.GET("/habits/:id/completions", s.listHabitCompletions)
	v1.PUT("/habits/:id/completions/:date", s.setCompletion)
	v1.DELETE("/habits/:id/completions/:date", s.deleteCompletion)

	v1.GET("/completions", s.listCompletions)
	v1.GET("/completions/:date", s.completionsForDate)

	v1.GET("/habit-completions", s.habitsWithCompletions)
	v1.GET("/streaks", s.listStreaks)

	v1.POST("/import", s.importHabits)
	v1.GET("/export", s.exportHabits)

	return r
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("API server stopped")
	return nil
}

func (s *Server) health(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		logger.Error("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, Failure(http.StatusServiceUnavailable, "storage unavailable"))
		return
	}
	c.JSON(http.StatusOK, Success(gin.H{"status": "ok", "version": constants.Version}, nil))
}
