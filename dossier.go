// Package dossier serves a professional biography: case writeups with cited
// sources, a career timeline and a profile. It wires the content and auth
// services to an Echo server with public pages, a public JSON API, and an
// admin JSON API behind a server-validated session.
//
// Pages are rendered by the components in ViewFuncs, which default to the
// views package and can be replaced with WithViews.
package dossier

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	glog "github.com/labstack/gommon/log"

	"github.com/eringen/dossier/auth"
	"github.com/eringen/dossier/content"
	"github.com/eringen/dossier/store"
	"github.com/eringen/dossier/views"
)

// ViewFuncs holds the page components the handlers render.
type ViewFuncs struct {
	Home        func(p views.HomePage) templ.Component
	Post        func(p views.PostPage) templ.Component
	Timeline    func(p views.TimelinePage) templ.Component
	Company     func(p views.CompanyPage) templ.Component
	Admin       func(p views.AdminPage) templ.Component
	NotFound    func(site views.Site) templ.Component
	ServerError func(site views.Site) templ.Component
}

// DefaultViews returns the components of the views package.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:        views.Home,
		Post:        views.Post,
		Timeline:    views.Timeline,
		Company:     views.Company,
		Admin:       views.Admin,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
	}
}

// Database is a store the App can open, migrate and close itself.
type Database interface {
	store.Backend
	store.Migrator
	Close() error
}

// OpenDatabase opens the configured driver.
func OpenDatabase(ctx context.Context, cfg SiteConfig) (Database, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return store.OpenPostgres(ctx, cfg.DatabaseURL)
	case DriverSQLite, "":
		path := cfg.DatabasePath
		if path == "" {
			path = "data/dossier.db"
		}
		return store.OpenSQLite(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// App is the central dossier application. It wires together the store,
// services, cache, handlers, middleware and page components.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Content *content.Service
	Auth    *auth.Service
	Cache   *ReadCache
	Views   ViewFuncs

	db           store.Backend
	owned        Database
	loginLimiter *LoginLimiter
	customRoutes []func(*App)
	staticDir    string

	setupOnce sync.Once
	setupErr  error
	stop      chan struct{}
}

// New creates a new App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     DefaultViews(),
		staticDir: "public",
		stop:      make(chan struct{}),
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Setup validates the configuration, opens and migrates the database unless
// one was supplied with WithBackend, and registers middleware and routes.
// It runs once; later calls return the first result.
func (a *App) Setup(ctx context.Context) error {
	a.setupOnce.Do(func() {
		a.setupErr = a.setup(ctx)
	})
	return a.setupErr
}

func (a *App) setup(ctx context.Context) error {
	if err := a.Config.Validate(); err != nil {
		return fmt.Errorf("dossier: %w", err)
	}
	a.Echo.Logger.SetLevel(logLevel(a.Config.LogLevel))

	if a.db == nil {
		db, err := OpenDatabase(ctx, a.Config)
		if err != nil {
			return fmt.Errorf("dossier: init store: %w", err)
		}
		features, _ := a.Config.SchemaFeatures()
		if err := db.EnsureSchema(ctx, features...); err != nil {
			db.Close()
			return fmt.Errorf("dossier: ensure schema: %w", err)
		}
		a.db, a.owned = db, db
	}

	a.Content = content.NewService(a.db, content.WithLogger(a.Echo.Logger))
	a.Auth = auth.NewService(a.db)
	a.Cache = NewReadCache(a.Content, a.Config.CacheTTL)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start sets the App up and serves HTTP until the server stops.
func (a *App) Start() error {
	if err := a.Setup(context.Background()); err != nil {
		return err
	}
	go a.purgeSessions(time.Hour)
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) purgeSessions(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			n, err := a.Auth.PurgeExpired(context.Background())
			if err != nil {
				a.Echo.Logger.Warnf("purging sessions: %v", err)
			} else if n > 0 {
				a.Echo.Logger.Infof("purged %d expired sessions", n)
			}
		}
	}
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.staticDir)
	e.Static(uploadsPath, a.Config.UploadDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	// Public pages
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/blog", handleBlogRedirect)
	e.GET("/blog/:slug/", a.handlePost)
	e.GET("/timeline/", a.handleTimeline)
	e.GET("/company/", a.handleCompany)

	// Public JSON
	api := e.Group("/api")
	api.GET("/posts", a.apiPosts)
	api.GET("/posts/:id", a.apiPost)
	api.GET("/timeline", a.apiTimeline)
	api.GET("/timeline/:id", a.apiTimelineEntry)
	api.GET("/profile", a.apiProfile)
	api.GET("/company", a.apiCompany)

	// Admin
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", a.handleAdminLogout)

	admin := e.Group("/admin/api", a.requireAdmin)
	admin.GET("/me", a.adminMe)
	admin.GET("/posts", a.adminListPosts)
	admin.POST("/posts", a.adminCreatePost)
	admin.GET("/posts/:id", a.adminGetPost)
	admin.PUT("/posts/:id", a.adminUpdatePost)
	admin.DELETE("/posts/:id", a.adminDeletePost)
	admin.POST("/posts/:id/archive", a.adminArchivePost)
	admin.POST("/posts/:id/unarchive", a.adminUnarchivePost)
	admin.GET("/timeline", a.adminListTimeline)
	admin.POST("/timeline", a.adminCreateTimeline)
	admin.GET("/timeline/:id", a.adminGetTimeline)
	admin.PUT("/timeline/:id", a.adminUpdateTimeline)
	admin.DELETE("/timeline/:id", a.adminDeleteTimeline)
	admin.GET("/profile", a.apiProfile)
	admin.PUT("/profile", a.adminUpdateProfile)
	admin.POST("/profile/image", a.handleImageUpload)
	admin.GET("/company", a.apiCompany)
	admin.PUT("/company", a.adminUpdateCompany)
	admin.GET("/scraping-log", a.adminScrapingLog)
	admin.POST("/scraping-log", a.adminLogScrape)
	admin.GET("/stats", a.adminStats)
	admin.GET("/capabilities", a.adminCapabilities)
	admin.POST("/snapshot", a.adminSnapshot)
}

// Close stops background work and closes the database if the App opened it.
func (a *App) Close() error {
	select {
	case <-a.stop:
	default:
		close(a.stop)
	}
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.owned != nil {
		return a.owned.Close()
	}
	return nil
}

func (a *App) site() views.Site {
	return views.Site{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Author:      a.Config.Author,
	}
}

func logLevel(s string) glog.Lvl {
	switch s {
	case "debug":
		return glog.DEBUG
	case "warn":
		return glog.WARN
	case "error":
		return glog.ERROR
	default:
		return glog.INFO
	}
}
