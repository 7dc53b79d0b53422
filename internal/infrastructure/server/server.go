package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	api "github.com/rkshawon/interprep/internal/api/http"
	"github.com/rkshawon/interprep/internal/api/middleware"
	"github.com/rkshawon/interprep/internal/domain/catalog"
	"github.com/rkshawon/interprep/internal/domain/history"
	"github.com/rkshawon/interprep/internal/importer"
	"github.com/rkshawon/interprep/internal/infrastructure/config"
	"github.com/rkshawon/interprep/internal/infrastructure/monitoring"
	"github.com/rkshawon/interprep/internal/infrastructure/tracing"
	"github.com/rkshawon/interprep/internal/logging"
	catalogProvider "github.com/rkshawon/interprep/internal/providers/catalog"
	historyProvider "github.com/rkshawon/interprep/internal/providers/history"
	importerProvider "github.com/rkshawon/interprep/internal/providers/importer"
	"github.com/rkshawon/interprep/internal/providers/playground"
	"github.com/rkshawon/interprep/internal/sandbox"
	"github.com/rkshawon/interprep/internal/service"
	"github.com/rkshawon/interprep/internal/snippet"
	"github.com/rkshawon/interprep/internal/ws"
)

// shutdownTimeout bounds graceful drain of in-flight requests.
const shutdownTimeout = 10 * time.Second

// Server owns the HTTP surface and every subsystem behind it.
type Server struct {
	router   *gin.Engine
	httpSrv  *http.Server
	pool     *sandbox.Pool
	registry *service.Registry
	catalog  *catalog.Manager
	history  *history.Manager // nil when history is disabled
	store    *history.Store   // nil when history is disabled
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// New wires the full service from configuration: runtime pool,
// evaluator, catalog, history store, importer, provider registry,
// and the gin router.
func New(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("initializing interprep server",
		zap.String("port", cfg.Server.Port),
		zap.Int("pool_size", cfg.Sandbox.PoolSize),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("interprep", logger)

	pool, err := sandbox.NewPool(sandbox.Config{
		Timeout:       time.Duration(cfg.Sandbox.TimeoutMS) * time.Millisecond,
		MaxCallStack:  cfg.Sandbox.MaxCallStack,
		EnableConsole: true,
	}, cfg.Sandbox.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("create sandbox pool: %w", err)
	}
	metrics.WatchPool(pool, 5*time.Second)

	evaluator := snippet.New(pool, logger)

	catalogManager := catalog.NewManager(cfg.Catalog.Dir, cfg.Catalog.CacheLimit, logger)
	seeder := catalog.NewSeeder(catalogManager, cfg.Catalog.Dir, evaluator.Check, logger)
	if err := seeder.Seed(context.Background()); err != nil {
		logger.Warn("catalog seeding failed", zap.Error(err))
	}
	if err := seeder.SeedDefaults(context.Background()); err != nil {
		logger.Warn("default pack seeding failed", zap.Error(err))
	}

	var (
		historyManager *history.Manager
		historyStore   *history.Store
	)
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("open history store: %w", err)
		}
		historyStore = store
		historyManager = history.NewManager(store, cfg.History.MaxRecords, logger)
		logger.Info("history store opened", zap.String("path", cfg.History.Path))
	}

	var imp *importer.Importer
	if cfg.Importer.Enabled {
		client := importer.NewClient(
			importer.WithTimeout(time.Duration(cfg.Importer.TimeoutMS)*time.Millisecond),
			importer.WithMaxFetchSize(cfg.Importer.MaxBodyKB*1024),
		)
		imp = importer.New(client, evaluator, catalogManager, logger)
	}

	registry := service.NewRegistry()
	registerProviders(registry, evaluator, pool, catalogManager, historyManager, imp, logger)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := api.NewHandlers(evaluator, pool, registry, catalogManager, historyManager, imp, metrics)
	wsHandler := ws.NewHandler(evaluator, historyManager, metrics, logger)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Evaluation
	router.POST("/run", handlers.Run)
	router.POST("/check", handlers.Check)

	// Service registry passthrough
	router.GET("/services", handlers.ListServices)
	router.POST("/services/execute", handlers.ExecuteService)

	// Catalog
	router.GET("/catalog", handlers.ListCatalog)
	router.GET("/catalog/search", handlers.SearchCatalog)
	router.GET("/catalog/:id", handlers.GetPack)
	router.POST("/catalog/:pack/:snippet/run", handlers.RunCatalogSnippet)

	// History
	router.GET("/history", handlers.ListHistory)
	router.GET("/history/stats", handlers.HistoryStats)
	router.GET("/history/export", handlers.ExportHistory)
	router.GET("/history/:id", handlers.GetRun)

	// Admin surface: importing remote pages and pruning history mutate
	// shared state, so both sit behind the API key.
	admin := router.Group("/", middleware.RequireAdmin(cfg.Auth.AdminKeyHash))
	admin.POST("/catalog/import", handlers.ImportSnippets)
	admin.POST("/history/prune", handlers.PruneHistory)

	// WebSocket
	router.GET("/stream", wsHandler.HandleConnection)

	// Metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/stats", handlers.GetStats)
	router.GET("/dashboard", handlers.GetDashboard)

	logger.Info("server initialized")

	return &Server{
		router:   router,
		pool:     pool,
		registry: registry,
		catalog:  catalogManager,
		history:  historyManager,
		store:    historyStore,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("starting HTTP server", zap.String("addr", addr))

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close drains in-flight requests and shuts every subsystem down.
func (s *Server) Close() error {
	s.logger.Info("shutting down server")

	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("http shutdown failed", zap.Error(err))
		}
	}

	if err := s.pool.Close(); err != nil {
		s.logger.Error("pool close failed", zap.Error(err))
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.logger.Error("history close failed", zap.Error(err))
		}
	}
	// The manager drains its flush queue but does not own the store;
	// the sqlite handle is released here, after the last write.
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("history store close failed", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}

// Router exposes the gin engine for integration tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func registerProviders(
	registry *service.Registry,
	evaluator *snippet.Evaluator,
	pool *sandbox.Pool,
	catalogManager *catalog.Manager,
	historyManager *history.Manager,
	imp *importer.Importer,
	logger *logging.Logger,
) {
	// A nil *Manager must not become a non-nil Recorder interface.
	var runRecorder playground.Recorder
	var catalogRecorder catalogProvider.Recorder
	if historyManager != nil {
		runRecorder = historyManager
		catalogRecorder = historyManager
	}

	register := func(p service.Provider) {
		if err := registry.Register(p); err != nil {
			logger.Warn("provider registration failed",
				zap.String("provider", p.Definition().ID),
				zap.Error(err),
			)
		}
	}

	register(playground.NewProvider(evaluator, pool, runRecorder))
	register(catalogProvider.NewProvider(catalogManager, evaluator, catalogRecorder))
	if historyManager != nil {
		register(historyProvider.NewProvider(historyManager))
	}
	if imp != nil {
		register(importerProvider.NewProvider(imp))
	}
}
