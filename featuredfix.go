// Package featuredfix removes the duplicated featured image from published
// documents. It stores documents in SQLite and exposes the page-by-page
// migration to an authenticated operator over HTTP.
//
// The block tree operations live in package blocks and the per-document
// policy and page controller in package migration; this package wires them to
// storage, configuration, metrics and the admin transport.
package featuredfix

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eringen/featuredfix/migration"
)

// App is the migration service. It wires together the store, controller,
// handlers and middleware.
type App struct {
	Config     Config
	Echo       *echo.Echo
	Store      *Store
	Controller *migration.Controller
	Logger     *slog.Logger

	loginLimiter *LoginLimiter
	counts       *countCache
	metrics      *metrics
	customRoutes []func(*App)
	ownsStore    bool
}

// New creates an App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		ownsStore: true,
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}
	if a.Logger == nil {
		a.Logger = NewLogger(a.Config)
	}
	return a
}

// Init opens the store and builds the controller, middleware and routes.
// Start calls it; tests call it directly and serve through a.Echo.
func (a *App) Init() error {
	if a.Config.AdminPassword == "" {
		return errors.New("featuredfix: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return errors.New("featuredfix: SessionSecret is required")
	}

	if a.Store == nil {
		store, err := NewStore(a.Config.DatabasePath)
		if err != nil {
			return fmt.Errorf("featuredfix: init store: %w", err)
		}
		a.Store = store
	}

	a.metrics = newMetrics()
	a.Controller = NewController(a.Config, a.Store,
		migration.WithLogger(a.Logger),
		migration.WithMetrics(a.metrics),
	)
	a.counts = newCountCache(a.Config.CountCacheTTL, a.Controller.Count)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the App and serves HTTP until the server stops.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	a.Logger.Info("featuredfix listening", "addr", a.Config.Addr, "db", a.Config.DatabasePath)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(a.metrics.registry, promhttp.HandlerOpts{})))

	// Admin routes
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)

	// Migration API
	g := e.Group("/admin/migration", requireAdmin)
	g.GET("/count/", a.handleCount)
	g.GET("/status/", a.handleStatus)
	g.POST("/batch/", a.handleBatch)
	g.POST("/dismiss/", a.handleDismiss)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Store != nil && a.ownsStore {
		return a.Store.Close()
	}
	return nil
}

// NewController builds the migration controller for cfg over store.
func NewController(cfg Config, store *Store, opts ...migration.ControllerOption) *migration.Controller {
	opts = append([]migration.ControllerOption{migration.WithWorkers(cfg.Workers)}, opts...)
	return migration.NewController(store, store, migration.EligibleFilter(cfg.PostTypes...), opts...)
}
