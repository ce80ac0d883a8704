package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v3"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/pennyfx/penny/archive"
	"github.com/pennyfx/penny/convert"
	"github.com/pennyfx/penny/currency"
	"github.com/pennyfx/penny/money"
	"github.com/pennyfx/penny/rate"
	"github.com/pennyfx/penny/resolver"
	"github.com/pennyfx/penny/server/config"
)

// RoutesFn is a callback that receives a router for registering routes
type RoutesFn func(router chi.Router)

var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// RateResolver obtains a rate for a currency pair under a strategy
type RateResolver interface {
	Resolve(
		ctx context.Context,
		base currency.Code,
		quote currency.Code,
		strategy resolver.Strategy,
	) (*rate.Record, error)
}

// Converter exchanges monetary values between currencies
type Converter interface {
	Convert(
		ctx context.Context,
		m money.Money,
		target currency.Code,
		strategy resolver.Strategy,
	) (*convert.Result, error)
}

// CacheStore exposes the rate cache maintenance surface
type CacheStore interface {
	// RecordCount returns the total number of cached records
	RecordCount(ctx context.Context) (int, error)

	// PairCount returns the number of cached pairs
	PairCount(ctx context.Context) (int, error)

	// Prune evicts records older than the retention window
	Prune(ctx context.Context, now time.Time) (int, error)

	// Clear wipes all cached records
	Clear(ctx context.Context) error
}

type Server struct {
	logger *slog.Logger
	config *config.Config

	resolver  RateResolver
	converter Converter

	archive archive.Archive
	cache   CacheStore

	metrics *Metrics

	// defaultStrategy serves requests that don't name a strategy
	defaultStrategy resolver.Strategy

	mux *chi.Mux
}

// New creates a new server instance
func New(rateResolver RateResolver, converter Converter, opts ...Option) (*Server, error) {
	s := &Server{
		logger:    noopLogger,
		resolver:  rateResolver,
		converter: converter,
		config:    config.DefaultConfig(),
		metrics:   NewMetrics(),
		mux:       chi.NewMux(),
	}

	// Apply the options
	for _, opt := range opts {
		opt(s)
	}

	// Validate the configuration
	if err := config.ValidateConfig(s.config); err != nil {
		return nil, fmt.Errorf("invalid configuration, %w", err)
	}

	// Resolve the default request strategy
	s.defaultStrategy = resolver.StrategyAuto

	if s.config.DefaultStrategy != "" {
		strategy, err := resolver.ParseStrategy(s.config.DefaultStrategy)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration, %w", err)
		}

		s.defaultStrategy = strategy
	}

	// Set up the CORS middleware
	if s.config.CORSConfig != nil {
		corsMiddleware := cors.New(cors.Options{
			AllowedOrigins: s.config.CORSConfig.AllowedOrigins,
			AllowedMethods: s.config.CORSConfig.AllowedMethods,
			AllowedHeaders: s.config.CORSConfig.AllowedHeaders,
		})

		s.mux.Use(corsMiddleware.Handler)
	}

	s.mux.Use(httplog.RequestLogger(s.logger, &httplog.Options{
		Level:         slog.LevelInfo,
		Schema:        httplog.SchemaOTEL,
		RecoverPanics: true,
		Skip: func(_ *http.Request, respStatus int) bool {
			return respStatus == 404 || respStatus == 405
		},
	}))

	// Register the health check handler
	s.mux.Get("/health", func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})

	// Register the metrics handler
	s.mux.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	// Register the standard API endpoints
	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/rates/{base}/{quote}", s.RateForPair)
		r.Post("/convert", s.Convert)
		r.Get("/currencies", s.Currencies)

		// History endpoints require an archive
		if s.archive != nil {
			r.Get("/history/{base}/{quote}", s.History)
			r.Get("/pairs", s.Pairs)
		}

		// Cache maintenance endpoints require a cache
		if s.cache != nil {
			r.Get("/cache/stats", s.CacheStats)
			r.Post("/cache/prune", s.CachePrune)
			r.Post("/cache/clear", s.CacheClear)
		}
	})

	return s, nil
}

// Routes calls fn with the server mux so callers can add endpoints
func (s *Server) Routes(fn RoutesFn) {
	if fn == nil {
		return
	}

	fn(s.mux)
}

// Serve serves the penny service
func (s *Server) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.mux,
		ReadHeaderTimeout: 60 * time.Second,
	}

	group, gCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer s.logger.Info("server shut down")

		ln, err := net.Listen("tcp", server.Addr)
		if err != nil {
			return err
		}

		s.logger.Info(
			fmt.Sprintf(
				"server started at %s",
				ln.Addr().String(),
			),
		)

		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	group.Go(func() error {
		<-gCtx.Done()

		s.logger.Info("server to be shutdown")

		wsCtx, cancel := context.WithTimeout(context.Background(), time.Second*30)
		defer cancel()

		return server.Shutdown(wsCtx)
	})

	return group.Wait()
}
