// Package rest provides functionality for initializing a server.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/danilovkiri/dk-go-refill/internal/api/rest/handlers"
	"github.com/danilovkiri/dk-go-refill/internal/api/rest/middleware"
	"github.com/danilovkiri/dk-go-refill/internal/client/checker"
	"github.com/danilovkiri/dk-go-refill/internal/client/gateway"
	"github.com/danilovkiri/dk-go-refill/internal/client/notifier"
	"github.com/danilovkiri/dk-go-refill/internal/config"
	"github.com/danilovkiri/dk-go-refill/internal/service/processor/processor"
	"github.com/danilovkiri/dk-go-refill/internal/service/watcher"
	"github.com/danilovkiri/dk-go-refill/internal/storage/inpsql"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// App bundles what the entry point runs and closes.
type App struct {
	Server  *http.Server
	Watcher *watcher.Watcher
	Storage *inpsql.Storage
}

// InitServer returns a http.Server object ready to be listening and serving along with its background parts.
func InitServer(ctx context.Context, cfg *config.Config, log *zerolog.Logger) (*App, error) {
	// initialize storage
	storage, err := inpsql.InitStorage(ctx, cfg.StorageConfig, log)
	if err != nil {
		return nil, err
	}

	// initialize upstream clients
	gatewayClient := gateway.InitClient(cfg.GatewayConfig, storage, log)
	checkerClient := checker.InitClient(cfg.CheckerConfig, log)
	notifierClient := notifier.InitClient(cfg.NotifierConfig, log)

	// initialize main service
	mainService, err := processor.InitService(storage, gatewayClient, checkerClient, notifierClient, cfg.OrderConfig, log)
	if err != nil {
		storage.Close()
		return nil, err
	}

	// initialize maintenance flag watcher
	techWatcher := watcher.InitWatcher(storage, cfg.ServerConfig.TechPollInterval, log)

	// initialize handlers
	urlHandler, err := handlers.InitHandlers(mainService, techWatcher, cfg.ServerConfig, log)
	if err != nil {
		storage.Close()
		return nil, err
	}
	maintenanceHandler, err := middleware.NewMaintenanceHandler(techWatcher)
	if err != nil {
		storage.Close()
		return nil, err
	}

	srv := &http.Server{
		Addr:         cfg.ServerConfig.ServerAddress,
		Handler:      NewRouter(urlHandler, maintenanceHandler, cfg.ServerConfig, log),
		IdleTimeout:  60 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return &App{Server: srv, Watcher: techWatcher, Storage: storage}, nil
}

// NewRouter sets routing.
func NewRouter(urlHandler *handlers.Handler, maintenanceHandler *middleware.MaintenanceHandler, cfg *config.ServerConfig, log *zerolog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	r.MethodNotAllowed(urlHandler.HandleMethodNotAllowed())
	r.Get("/api/tech", urlHandler.HandleTech())
	orderGroup := r.Group(nil)
	orderGroup.Use(maintenanceHandler.MaintenanceHandle) // /api/tech stays reachable during maintenance
	orderGroup.Post("/api/order", urlHandler.HandleCreateOrder())
	orderGroup.Post("/api/telega", urlHandler.HandlePlaceOrder())
	orderGroup.Get("/api/order/{orderID}", urlHandler.HandleGetOrder())
	return r
}
