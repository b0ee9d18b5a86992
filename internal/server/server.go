package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"territory-planner/internal/config"
	"territory-planner/internal/database"
	"territory-planner/internal/handlers"
	"territory-planner/internal/metrics"
	"territory-planner/internal/models"
	"territory-planner/internal/progress"
	"territory-planner/internal/storage"
	"territory-planner/internal/workspace"
	"territory-planner/web"
)

// Server wraps the HTTP server and all dependencies
type Server struct {
	httpServer *http.Server
	handler    *handlers.Handler
	workspace  *workspace.Workspace
	db         database.DataStore
	broker     progress.Broker
	logger     *zap.Logger
	listener   net.Listener
	addr       string
}

// New creates and initializes a new server (does not start it). The stored
// dataset, if any, is restored into the workspace.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.RegisterDefault()

	logger.Info("initializing data store", zap.String("driver", cfg.Storage.Driver))
	db, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize data store: %w", err)
	}

	broker, err := newBroker(ctx, cfg.Broker, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize progress broker: %w", err)
	}

	ws := workspace.New(workspace.Options{
		Store:    db,
		Broker:   broker,
		Logger:   logger,
		Defaults: Defaults(cfg.Optimizer),
	})
	if err := ws.Restore(ctx); err != nil {
		logger.Warn("could not restore stored dataset", zap.Error(err))
	}

	handler := handlers.New(ws, db, logger, handlers.Config{
		OptimizeRate:  cfg.HTTP.OptimizeRate,
		OptimizeBurst: cfg.HTTP.OptimizeBurst,
	})

	engine, err := setupRoutes(handler, logger)
	if err != nil {
		broker.Close()
		db.Close()
		return nil, err
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
		workspace:  ws,
		db:         db,
		broker:     broker,
		logger:     logger,
		addr:       cfg.Server.Addr,
	}, nil
}

// Defaults maps optimizer configuration onto workspace defaults
func Defaults(cfg config.OptimizerConfig) workspace.Defaults {
	return workspace.Defaults{
		Iterations:    cfg.Iterations,
		ProgressEvery: cfg.ProgressEvery,
		Seed:          cfg.Seed,
		Weights:       cfg.Weights,
		Constraints:   models.Constraints{LockTopCustomers: cfg.LockTopCustomers},
	}
}

func newBroker(ctx context.Context, cfg config.BrokerConfig, logger *zap.Logger) (progress.Broker, error) {
	if cfg.RedisURL == "" {
		return progress.NewMemoryBroker(), nil
	}
	logger.Info("using redis progress broker")
	return progress.NewRedisBroker(ctx, cfg.RedisURL, logger)
}

// Workspace returns the planning session served by s
func (s *Server) Workspace() *workspace.Workspace { return s.workspace }

// Start starts the server and returns the actual address (useful for random port)
func (s *Server) Start() (string, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = listener
	actualAddr := listener.Addr().String()
	s.logger.Info("starting server", zap.String("addr", actualAddr))

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", zap.Error(err))
		}
	}()

	return actualAddr, nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	if err := s.broker.Close(); err != nil {
		s.logger.Warn("failed to close progress broker", zap.Error(err))
	}
	return s.db.Close()
}

// setupRoutes configures all HTTP routes
func setupRoutes(handler *handlers.Handler, logger *zap.Logger) (*gin.Engine, error) {
	engine := gin.New()
	engine.Use(gin.Recovery(), handlers.Logging(logger.Named("http")), handlers.Metrics(), handlers.CORS())

	handler.Register(engine)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to create static sub-filesystem: %w", err)
	}
	engine.StaticFS("/static", http.FS(staticFS))
	engine.GET("/", func(c *gin.Context) {
		c.FileFromFS("/", http.FS(staticFS))
	})

	return engine, nil
}
