package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/termdock/internal/api/middleware"
	handlers "github.com/GriffinCanCode/termdock/internal/http"
	"github.com/GriffinCanCode/termdock/internal/domain/links"
	"github.com/GriffinCanCode/termdock/internal/domain/multiplexer"
	"github.com/GriffinCanCode/termdock/internal/domain/tab"
	"github.com/GriffinCanCode/termdock/internal/infrastructure/config"
	"github.com/GriffinCanCode/termdock/internal/infrastructure/logging"
	"github.com/GriffinCanCode/termdock/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termdock/internal/infrastructure/notify"
	"github.com/GriffinCanCode/termdock/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/termdock/internal/providers/clipboard"
	"github.com/GriffinCanCode/termdock/internal/providers/contentstore"
	"github.com/GriffinCanCode/termdock/internal/providers/settings"
	"github.com/GriffinCanCode/termdock/internal/providers/storage"
	"github.com/GriffinCanCode/termdock/internal/providers/system"
	"github.com/GriffinCanCode/termdock/internal/providers/terminal"
	"github.com/GriffinCanCode/termdock/internal/ws"
)

const shutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	Config  *config.Config
	Logger  *zap.Logger
	Version string
	// InitialDir is where the first session starts when nothing is
	// restored. Empty uses the settings' default directory.
	InitialDir string
	// Fs backs settings, session state and the content store. Nil uses
	// the OS filesystem.
	Fs afero.Fs
	// Spawner starts shells. Nil uses real pseudo-terminals.
	Spawner terminal.Spawner
	// Opener opens URLs and paths for activated links. Nil uses the
	// platform opener.
	Opener links.Opener
	// WatchSettings reloads the settings file when it changes.
	WatchSettings bool
}

// Server wraps the HTTP server and dependencies
type Server struct {
	config     *config.Config
	logger     *zap.Logger
	metrics    *monitoring.Metrics
	router     *gin.Engine
	mux        *multiplexer.Multiplexer
	store      *storage.Store
	settings   *settings.Provider
	hub        *ws.Hub
	registry   *ws.Registry
	initialDir string
	watch      bool
}

// New creates a new server instance
func New(opts Options) (*Server, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := logging.OrNop(opts.Logger)
	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	logger.Info("Initializing termdock server",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("state_dir", cfg.Terminal.ResolveStateDir()),
		zap.String("content_root", cfg.Terminal.ContentRoot),
	)

	metrics := monitoring.NewMetrics()

	settingsPath := cfg.Terminal.SettingsPath()
	provider, err := settings.NewProvider(settingsPath, fsys, logger.Named("settings"))
	if err != nil {
		return nil, fmt.Errorf("failed to create settings provider: %w", err)
	}
	st, err := provider.Load()
	if err != nil {
		logger.Warn("Failed to load settings, using defaults", zap.String("path", settingsPath), zap.Error(err))
	}

	store := storage.NewStore(cfg.Terminal.SessionPath(), fsys, logger.Named("storage"), metrics)
	hub := ws.NewHub(logger.Named("hub"), metrics)
	notices := notify.NewChannels(hub, notify.DefaultInterval, logger)

	var content contentstore.Store
	if root := cfg.Terminal.ContentRoot; root != "" {
		content = contentstore.NewFS(root,
			contentstore.WithFs(fsys),
			contentstore.WithViewer(hub),
			contentstore.WithLogger(logger.Named("content")),
		)
	}

	opener := opts.Opener
	if opener == nil {
		opener = system.NewOpener(logger.Named("opener"))
	}
	engine := links.NewEngine(nil, links.WithLogger(logger.Named("links")), links.WithMetrics(metrics))
	activator := links.NewActivator(links.NewResolver(content, ""), content, opener, logger.Named("links"), metrics)

	registry := ws.NewRegistry(ws.RegistryOptions{
		Cols:    cfg.Terminal.DefaultCols,
		Rows:    cfg.Terminal.DefaultRows,
		Backlog: cfg.Terminal.OutputBacklog,
		Logger:  logger.Named("remote"),
		Metrics: metrics,
	})

	mux := multiplexer.New(multiplexer.Options{
		Deps: tab.Deps{
			Terminal: terminal.Options{
				Spawner:  opts.Spawner,
				Fs:       fsys,
				Logger:   logger.Named("terminal"),
				Metrics:  metrics,
				Notifier: notices.Failures,
			},
			Store:     content,
			Clipboard: clipboard.Multi{hub, clipboard.NewMemory(0)},
			Notifier:  notices.Info,
			Failures:  notices.Failures,
			Links:     engine,
			Activator: activator,
		},
		Settings:   st,
		NewSurface: registry.NewSurface,
		Store:      store,
		Logger:     logger.Named("multiplexer"),
		Metrics:    metrics,
	})

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.Middleware(logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.CORSConfigFor(cfg.Server.AllowedOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	h := handlers.NewHandlers(handlers.Options{
		Mux:       mux,
		Links:     engine,
		Activator: activator,
		Metrics:   metrics,
		Logger:    logger.Named("http"),
		Version:   opts.Version,
	})
	h.Register(router)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	wsHandler := ws.NewHandler(registry, hub, cfg.Server.AllowedOrigins, logger.Named("ws"), metrics)
	router.GET("/ws/sessions/:id", wsHandler.HandleSession)

	logger.Info("Server initialized successfully")

	return &Server{
		config:     cfg,
		logger:     logger,
		metrics:    metrics,
		router:     router,
		mux:        mux,
		store:      store,
		settings:   provider,
		hub:        hub,
		registry:   registry,
		initialDir: opts.InitialDir,
		watch:      opts.WatchSettings,
	}, nil
}

// Router returns the HTTP handler of the server.
func (s *Server) Router() *gin.Engine { return s.router }

// Multiplexer returns the served session set.
func (s *Server) Multiplexer() *multiplexer.Multiplexer { return s.mux }

// Hub returns the panel broadcast hub.
func (s *Server) Hub() *ws.Hub { return s.hub }

// Open restores the persisted layout or starts the first session.
func (s *Server) Open(ctx context.Context) error {
	if err := s.mux.Open(ctx, s.initialDir); err != nil {
		return fmt.Errorf("failed to open sessions: %w", err)
	}
	s.logger.Info("Sessions ready", zap.Int("sessions", s.mux.Len()))
	return nil
}

// Run opens the sessions and serves until ctx is done or the listener
// fails, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Open(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              s.config.Server.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 1)

	var wg conc.WaitGroup
	wg.Go(func() {
		defer cancel()
		s.logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server failed: %w", err)
		}
	})
	wg.Go(func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP shutdown incomplete", zap.Error(err))
		}
	})
	if s.watch {
		if err := os.MkdirAll(filepath.Dir(s.settings.Path()), 0o755); err != nil {
			s.logger.Warn("Failed to create settings directory", zap.Error(err))
		}
		wg.Go(func() {
			if err := s.settings.Watch(ctx, s.applySettings); err != nil {
				s.logger.Warn("Settings watcher stopped", zap.Error(err))
			}
		})
	}
	if r := wg.WaitAndRecover(); r != nil {
		s.logger.Error("server goroutine panicked", zap.String("panic", r.String()))
	}

	closeCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	closeErr := s.Close(closeCtx)

	select {
	case err := <-errCh:
		return err
	default:
		return closeErr
	}
}

func (s *Server) applySettings(st settings.Settings) {
	s.mux.ApplySettings(st)
}

// Close disposes every session, which also ends their panel connections,
// and flushes the persisted layout.
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	s.mux.Dispose()
	if err := s.store.Close(ctx); err != nil {
		s.logger.Error("Failed to flush session state", zap.Error(err))
		return fmt.Errorf("failed to flush session state: %w", err)
	}
	_ = s.logger.Sync()
	return nil
}
