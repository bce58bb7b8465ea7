// Package app wires the party server together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"party_server/internal/config"
	"party_server/internal/db"
	_ "party_server/internal/game/all"
	httpserver "party_server/internal/http"
	"party_server/internal/http/handlers"
	"party_server/internal/http/middleware"
	"party_server/internal/logger"
	"party_server/internal/repository"
	"party_server/internal/room"
	"party_server/internal/service"
	"party_server/internal/session"
	"party_server/internal/ws"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Config   *config.Config
	Engine   *gin.Engine
	Hub      *ws.Hub
	Rooms    *room.Registry
	Sessions *session.Manager
	Outcomes *service.OutcomeService
	Identity *service.IdentityResolver

	scheduler *session.Scheduler
	limiter   *middleware.RateLimiter
	pool      *pgxpool.Pool
	closers   []func() error
}

// New builds every component. With DATABASE_URL unset, content comes from the
// embedded documents and outcomes go to a local bbolt file.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Identity: service.NewIdentityResolver(cfg.JWTSecret)}

	builtin, err := repository.NewBuiltinContent()
	if err != nil {
		return nil, err
	}

	var (
		source repository.DocumentSource = builtin
		store  service.OutcomeStore
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		source = repository.ContentChain{repository.NewContentRepository(pool), builtin}
		store = repository.NewOutcomeRepository(pool)
	} else {
		bolt, err := repository.OpenBoltOutcomeStore(cfg.StatsFile)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, bolt.Close)
		store = bolt
		logger.Info("no database configured, using builtin content", "stats_file", cfg.StatsFile)
	}

	content, err := repository.NewCachedContent(source, cfg.ContentCacheSize)
	if err != nil {
		a.close()
		return nil, err
	}
	a.Outcomes = service.NewOutcomeService(store)

	a.Hub = ws.NewHub()
	a.Rooms = room.NewRegistry(cfg.MaxRoomCapacity, a.Hub)
	a.scheduler = session.NewScheduler(cfg.TickInterval)
	a.Sessions = session.NewManager(a.Rooms, a.scheduler, a.Hub,
		session.WithContent(content),
		session.WithOutcomes(a.Outcomes),
	)
	a.Rooms.OnDestroy(a.Sessions.Discard)

	a.limiter = middleware.NewRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	a.closers = append(a.closers, a.limiter.Close)

	checks := map[string]handlers.Pinger{}
	if a.pool != nil {
		checks["database"] = a.pool
	}
	if a.limiter.Redis() {
		checks["redis"] = a.limiter
	}

	a.Engine = httpserver.NewEngine(cfg)
	httpserver.RegisterRoutes(a.Engine, httpserver.Deps{
		Config:   cfg,
		Handler:  handlers.NewHandler(a.Rooms, a.Outcomes),
		Health:   handlers.NewHealthHandler(Version, a.Rooms, checks),
		Limiter:  a.limiter,
		Identity: a.Identity,
		Hub:      a.Hub,
		Router:   ws.NewRouter(a.Hub, a.Rooms, a.Sessions),
	})
	return a, nil
}

// Version is set at build time with -ldflags.
var Version = "dev"

// RunScheduler drives game ticks until ctx is done.
func (a *App) RunScheduler(ctx context.Context) error {
	return a.scheduler.Run(ctx)
}

// Run serves HTTP and game ticks until ctx is cancelled, then shuts down.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.Config.AppPort,
		Handler:           a.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.scheduler.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("server started", "port", a.Config.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(sctx)
		a.Shutdown(sctx)
		return err
	})

	err := g.Wait()
	logger.Info("server exited")
	return err
}

// Shutdown ends running games, disconnects clients, flushes pending outcome
// writes and releases storage.
func (a *App) Shutdown(ctx context.Context) {
	a.Sessions.Shutdown()
	a.Hub.CloseAll()
	if err := a.Outcomes.Wait(ctx); err != nil {
		logger.Warn("pending outcome writes abandoned", "error", err)
	}
	a.close()
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
