package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/geocoder89/housepoints/internal/auth"
	"github.com/geocoder89/housepoints/internal/board"
	"github.com/geocoder89/housepoints/internal/config"
	"github.com/geocoder89/housepoints/internal/db"
	"github.com/geocoder89/housepoints/internal/domain/page"
	httpx "github.com/geocoder89/housepoints/internal/http"
	"github.com/geocoder89/housepoints/internal/http/handlers"
	"github.com/geocoder89/housepoints/internal/live"
	"github.com/geocoder89/housepoints/internal/observability"
	"github.com/geocoder89/housepoints/internal/redisclient"
	"github.com/geocoder89/housepoints/internal/repo/memory"
	"github.com/geocoder89/housepoints/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type storage struct {
	items   board.ItemStore
	users   httpx.UserStore
	refresh handlers.RefreshTokenStore
	check   handlers.Check
	close   func()
}

func openStorage(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (storage, error) {
	if cfg.StorageDriver == config.StorageMemory {
		log.Warn("using in-memory storage; data is lost on restart")
		return storage{
			items:   memory.NewItemsRepo(),
			users:   memory.NewUsersRepo(),
			refresh: memory.NewRefreshTokensRepo(),
			close:   func() {},
		}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return storage{}, fmt.Errorf("connect postgres: %w", err)
	}

	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return storage{}, fmt.Errorf("migrate: %w", err)
	}

	return storage{
		items:   postgres.NewItemsRepo(pool, prom),
		users:   postgres.NewUsersRepo(pool, prom),
		refresh: postgres.NewRefreshTokensRepo(pool, prom),
		check:   pool.Ping,
		close:   pool.Close,
	}, nil
}

func loadCatalog(cfg config.Config) (page.Catalog, error) {
	if cfg.PagesFile == "" {
		return page.DefaultCatalog(), nil
	}
	return page.LoadCatalog(cfg.PagesFile)
}

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	rootCtx, stopRoot := context.WithCancel(context.Background())
	defer stopRoot()

	shutdownTracer, err := observability.InitTracer(rootCtx, observability.TracingConfig{
		Enabled:     cfg.OTELEnabled,
		ServiceName: "housepoints-api",
		Env:         cfg.Env,
		Endpoint:    cfg.OTELEndpoint,
	})
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	catalog, err := loadCatalog(cfg)
	if err != nil {
		log.Error("page catalog invalid", "err", err, "file", cfg.PagesFile)
		os.Exit(1)
	}

	store, err := openStorage(rootCtx, cfg, prom, log)
	if err != nil {
		log.Error("storage init failed", "err", err, "driver", cfg.StorageDriver)
		os.Exit(1)
	}
	defer store.close()

	seeded, err := db.EnsureAdminUser(rootCtx, store.users, cfg)
	if err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}
	if seeded {
		log.Info("admin user created", "username", cfg.AdminUsername)
	}

	svc := board.NewService(store.items, catalog, nil, prom)
	hub := live.NewHub(svc, log, prom, cfg.CORSAllowedOrigins)
	go hub.Run(rootCtx)

	checks := map[string]handlers.Check{"postgres": store.check}

	// with redis, changes fan out to every replica and each replica's hub refreshes locally
	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer func() { _ = rc.Close() }()

		notifier := live.NewRedisNotifier(rc.Raw(), live.DefaultChannel, log)
		svc.SetNotifier(notifier)
		go notifier.Listen(rootCtx, hub)

		checks["redis"] = rc.Ping
	} else {
		svc.SetNotifier(hub)
	}

	var shuttingDown atomic.Bool

	router := httpx.NewRouter(cfg, httpx.Deps{
		Board:        svc,
		Catalog:      catalog,
		Users:        store.users,
		Refresh:      store.refresh,
		JWT:          auth.NewManager(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL()),
		Live:         hub,
		Prom:         prom,
		Gatherer:     reg,
		Checks:       checks,
		ShuttingDown: shuttingDown.Load,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "storage", cfg.StorageDriver, "pages", catalog.Len())
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")
	shuttingDown.Store(true)

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// websockets are hijacked connections; Shutdown does not wait for them
		hub.Close()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		stopRoot()

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
