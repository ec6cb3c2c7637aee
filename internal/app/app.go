package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/openexcavate/fieldbook-backend/internal/entity"
	"github.com/openexcavate/fieldbook-backend/internal/observability"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
	"github.com/openexcavate/fieldbook-backend/internal/store"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Store    *store.Store
	Registry *entity.Registry
	Clients  Clients
	Services Services
	Router   *gin.Engine

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "fieldbook",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	registry, err := entity.Load(cfg.EntitiesFile)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load entity registry: %w", err)
	}

	clientset, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	hub := store.NewHub(log)
	st := store.New(log, hub)

	serviceset, err := wireServices(log, cfg, clientset, st, registry)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, clientset, serviceset, st, registry)
	middlewareset := wireMiddleware(log, cfg)
	router := wireRouter(cfg, handlerset, middlewareset)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Store:        st,
		Registry:     registry,
		Clients:      clientset,
		Services:     serviceset,
		Router:       router,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background loops: the token refresh ticker and one
// save/delete watcher per bound entity.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Clients.Tokens.Start(ctx)
	for _, binder := range a.Services.Binders {
		binder.Watch(ctx)
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
