package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"page-composer-backend/internal/autosave"
	"page-composer-backend/internal/builder"
	"page-composer-backend/internal/config"
	"page-composer-backend/internal/exchange"
	"page-composer-backend/internal/handlers"
	"page-composer-backend/internal/middleware"
	"page-composer-backend/internal/models"
	"page-composer-backend/internal/repository"
	"page-composer-backend/pkg/cache"
	"page-composer-backend/pkg/logger"
)

// multipartOverhead leaves room for form boundaries around an import file.
const multipartOverhead = 64 * 1024

type Options struct {
	// Store replaces the auto-save store selected by AUTOSAVE_STORE.
	Store autosave.Store
	// BuilderOptions are appended to the options derived from config.
	BuilderOptions []builder.Option
}

type Application struct {
	cfg     *config.Config
	options Options

	db    *gorm.DB
	cache *cache.Cache
	store autosave.Store

	controller  *builder.Controller
	rateLimiter *middleware.RateLimitManager
	handlers    handlerContainer

	router *gin.Engine
	server *http.Server
}

type handlerContainer struct {
	Builder *handlers.BuilderHandler
}

func New(cfg *config.Config, opts Options) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg:     cfg,
		options: opts,
	}

	if err := app.initStore(); err != nil {
		app.closeBackends()
		return nil, err
	}

	app.initController()
	app.initHandlers()
	app.initRouter()

	app.server = &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        app.router,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return app, nil
}

func (a *Application) Run() error {
	logger.Info("Server starting", map[string]interface{}{
		"port":           a.cfg.Port,
		"environment":    a.cfg.Environment,
		"autosave_store": a.cfg.AutoSaveStore,
	})

	return a.server.ListenAndServe()
}

// Shutdown stops accepting requests, writes any pending auto-save and
// releases the store backends.
func (a *Application) Shutdown(ctx context.Context) error {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return err
		}
	}

	if a.controller != nil {
		if err := a.controller.SaveNow(ctx); err != nil && !errors.Is(err, builder.ErrAutoSaveUnavailable) {
			logger.Error(err, "Failed to flush auto-save on shutdown", nil)
		}
		a.controller.Close()
	}

	if a.rateLimiter != nil {
		a.rateLimiter.Shutdown()
	}

	a.closeBackends()
	return nil
}

func (a *Application) closeBackends() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Error(err, "Failed to close cache connection", nil)
		}
	}

	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

func (a *Application) Router() *gin.Engine {
	return a.router
}

// Controller returns the editing session served by this application.
func (a *Application) Controller() *builder.Controller {
	return a.controller
}

func (a *Application) initStore() error {
	if a.options.Store != nil {
		a.store = a.options.Store
		return nil
	}

	switch a.cfg.AutoSaveStore {
	case config.StoreMemory:
		a.store = autosave.NewMemoryStore()
	case config.StoreFile:
		store, err := autosave.NewFileStore(filepath.Join(a.cfg.DataDir, "autosave"))
		if err != nil {
			return fmt.Errorf("failed to prepare auto-save directory: %w", err)
		}
		a.store = store
	case config.StoreRedis:
		if err := a.initCache(); err != nil {
			return err
		}
		a.store = autosave.NewRedisStore(a.cache, a.cfg.AutoSaveRetention())
	case config.StorePostgres:
		if err := a.initDatabase(); err != nil {
			return err
		}
		if err := a.runMigrations(); err != nil {
			return err
		}
		a.store = autosave.NewDatabaseStore(repository.NewAutoSaveRepository(a.db))
	default:
		return fmt.Errorf("unsupported auto-save store %q", a.cfg.AutoSaveStore)
	}

	logger.Info("Auto-save store ready", map[string]interface{}{"store": a.cfg.AutoSaveStore})
	return nil
}

func (a *Application) initCache() error {
	c, err := cache.NewCache(a.cfg.RedisURL, true)
	if err != nil {
		return err
	}
	a.cache = c
	return nil
}

func (a *Application) initDatabase() error {
	logger.Info("Connecting to database", nil)

	db, err := gorm.Open(postgres.Open(a.cfg.DatabaseURL), &gorm.Config{
		Logger: logger.NewGormLogger(),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	a.db = db
	return nil
}

func (a *Application) runMigrations() error {
	if a.db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	logger.Info("Running database migrations", nil)

	if err := a.db.AutoMigrate(&models.AutoSaveEntry{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Database migration completed", nil)
	return nil
}

func (a *Application) initController() {
	saveCfg := autosave.Config{
		Key:         a.cfg.AutoSaveKey,
		Debounce:    a.cfg.AutoSaveDebounce(),
		Retention:   a.cfg.AutoSaveRetention(),
		Enabled:     a.cfg.AutoSaveEnabled,
		Name:        a.cfg.SiteName,
		Description: a.cfg.SiteDescription,
		URL:         a.cfg.SiteURL,
	}

	opts := []builder.Option{
		builder.WithHistorySize(a.cfg.HistoryMaxSize),
		builder.WithEditSettle(a.cfg.EditSettle()),
		builder.WithDownloader(exchange.DirDownloader{Dir: a.cfg.ExportDir}),
		builder.WithAutoSave(a.store, saveCfg),
	}
	a.controller = builder.New(append(opts, a.options.BuilderOptions...)...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := a.controller.CheckRecovery(ctx); err != nil {
		logger.Error(err, "Failed to check for auto-saved data", nil)
	}
}

func (a *Application) initHandlers() {
	a.handlers = handlerContainer{
		Builder: handlers.NewBuilderHandler(a.controller, a.cfg.MaxImportSize),
	}
}

func (a *Application) initRouter() {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	a.rateLimiter = middleware.NewRateLimitManager(context.Background())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(logger.GinLogger())
	if a.cfg.EnableMetrics {
		router.Use(middleware.MetricsMiddleware())
	}
	router.Use(middleware.SecurityHeadersMiddleware())

	router.Use(cors.New(corsConfig(a.cfg.CORSOrigins)))
	router.Use(middleware.RateLimitMiddleware(a.rateLimiter, a.cfg))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "healthy",
			"time":           time.Now().Format(time.RFC3339),
			"autosave_store": a.cfg.AutoSaveStore,
		})
	})

	if a.cfg.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		builderGroup := v1.Group("/builder")
		builderGroup.Use(middleware.BodyLimitMiddleware(a.cfg.MaxImportSize + multipartOverhead))
		a.handlers.Builder.RegisterRoutes(builderGroup, middleware.TransferRateLimitMiddleware(a.rateLimiter, a.cfg))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Route not found",
			"path":  c.Request.URL.Path,
		})
	})

	a.router = router
}

// corsConfig allows credentials for explicit origins only; an empty list or
// "*" opens the API to every origin without credentials.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
