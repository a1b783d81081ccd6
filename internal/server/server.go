// Package server provides the HTTP server setup and routing configuration.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rerun-tv/rerun/internal/api"
	"github.com/rerun-tv/rerun/internal/catalog"
	"github.com/rerun-tv/rerun/internal/config"
	"github.com/rerun-tv/rerun/internal/db"
	"github.com/rerun-tv/rerun/internal/logger"
	"github.com/rerun-tv/rerun/internal/middleware"
	"github.com/rerun-tv/rerun/internal/station"
)

// Server wires the scanner, station, and websocket hub behind one HTTP
// server
type Server struct {
	config  *config.Config
	db      *db.DB
	repos   *db.Repositories
	scanner *catalog.Scanner
	watcher *catalog.Watcher
	station *station.Station
	hub     *api.Hub
	router  *gin.Engine
	server  *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, database *db.DB) *Server {
	repos := db.NewRepositories(database)
	prober := catalog.NewFFProbe(cfg.Library.ProbeTimeout)
	scanner := catalog.NewScanner(cfg.Library, repos, prober)

	st := station.New(station.PolicyFromConfig(cfg.Broadcast), repos)
	st.SetRescanFunc(scanner.StartScan)

	// Every completed scan rebuilds broadcasts and refreshes the exported
	// guide
	scanner.OnUpdate(func(lib *catalog.Library) {
		st.ApplyLibrary(context.Background(), lib)
		if err := st.ExportGuide(cfg.Guide.ExportPath, cfg.Guide.Span); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to export XMLTV guide after rescan")
		}
	})

	return &Server{
		config:  cfg,
		db:      database,
		repos:   repos,
		scanner: scanner,
		station: st,
		hub:     api.NewHub(st),
	}
}

// Station returns the station instance, used by integration tests
func (s *Server) Station() *station.Station {
	return s.station
}

// setupRouter initializes the Gin router with middleware and routes
func (s *Server) setupRouter() {
	// Set Gin mode based on log level
	if s.config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()

	// Add middleware stack
	s.router.Use(middleware.RequestLogger()) // Custom zerolog request logger
	s.router.Use(gin.Recovery())             // Panic recovery
	s.router.Use(cors.Default())             // CORS support (allows all origins)

	// Create API route group
	apiGroup := s.router.Group("/api")

	// Register service routes
	api.SetupHealthRoutes(apiGroup, s.db, s.scanner)
	api.SetupStateRoutes(apiGroup, s.station)
	api.SetupGuideRoutes(apiGroup, s.station, s.config.Guide)
	api.SetupLibraryRoutes(apiGroup, s.scanner, s.station)

	// Snapshot stream for remotes
	api.SetupWebsocketRoutes(s.router, s.hub, s.station)
}

// Start restores persisted state, kicks off the initial library scan, and
// serves HTTP until shutdown
func (s *Server) Start() error {
	s.setupRouter()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.station.LoadPersisted(ctx); err != nil {
		return fmt.Errorf("failed to load persisted station state: %w", err)
	}

	// An unreadable library root is not fatal: the station stays off air
	// until a later scan succeeds
	if scanID, err := s.scanner.StartScan(); err != nil {
		logger.Log.Warn().
			Err(err).
			Str("root", s.config.Library.Root).
			Msg("Initial library scan could not start")
	} else {
		logger.Log.Info().Str("scan_id", scanID).Msg("Initial library scan started")
	}

	if s.config.Library.Watch {
		s.startWatcher()
	}

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.server = &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	logger.Log.Info().
		Str("host", s.config.Server.Host).
		Int("port", s.config.Server.Port).
		Msg("Starting HTTP server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// startWatcher begins watching the library root for changes. Watch failures
// degrade to manual rescans rather than stopping the server.
func (s *Server) startWatcher() {
	watcher, err := catalog.NewWatcher(
		s.config.Library.Root,
		s.config.Library.RescanDebounce,
		s.config.Library.Extensions,
		s.scanner.RequestRescan,
	)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Library watcher unavailable, rescans are manual")
		return
	}
	if err := watcher.Start(); err != nil {
		logger.Log.Warn().Err(err).Msg("Library watcher failed to start, rescans are manual")
		return
	}
	s.watcher = watcher
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log.Info().Msg("Shutting down server gracefully")

	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			logger.Log.Warn().Err(err).Msg("Library watcher stop failed")
		}
	}

	// Stop the scanner cleanup goroutine
	if s.scanner != nil {
		s.scanner.Stop()
	}

	// Disconnect remotes
	if s.hub != nil {
		s.hub.Shutdown()
	}

	// Check if server was started before attempting shutdown
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	logger.Log.Info().Msg("Server stopped")
	return nil
}
