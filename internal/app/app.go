// Package app provides the top-level application lifecycle for the auction
// query service. It wires together all dependencies (feed client, stores,
// caches, blob storage, and notifications), starts the update loop, the
// archive scheduler, and the query facade, and blocks until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skyquery/skyquery/internal/config"
	"github.com/skyquery/skyquery/internal/domain"
	"github.com/skyquery/skyquery/internal/nbt"
	"github.com/skyquery/skyquery/internal/notify"
	"github.com/skyquery/skyquery/internal/pipeline"
	"github.com/skyquery/skyquery/internal/server"
	"github.com/skyquery/skyquery/internal/server/handler"
	"github.com/skyquery/skyquery/internal/server/ws"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the update
// loop and the query facade, and blocks until the context is cancelled. Call
// Close afterwards to release resources.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Bool("server", a.cfg.Server.Enabled),
		slog.Bool("archive", a.cfg.S3.Enabled),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, ctx := errgroup.WithContext(ctx)

	var hub *ws.Hub
	if a.cfg.Server.Enabled {
		hub = ws.NewHub(a.logger)
	}

	state := &pipeline.CycleState{}
	orch := pipeline.NewOrchestrator(pipeline.Deps{
		Fetcher:     deps.Feed,
		Engine:      pipeline.NewEngine(nbt.Decode, a.logger),
		Ended:       pipeline.NewEndedConsumer(nbt.Decode, a.logger),
		State:       state,
		Features:    a.cfg.Features,
		Update:      a.cfg.Update,
		Auctions:    deps.Auctions,
		Averages:    deps.Averages,
		Pets:        deps.Pets,
		Snapshot:    deps.Snapshot,
		Candidates:  deps.Candidates,
		Broadcaster: &candidateFanout{hub: hub, notifier: deps.Notifier},
		Reporter:    deps.Notifier,
		Logger:      a.logger,
	})

	g.Go(func() error {
		return orch.RunLoop(ctx, a.cfg.Update.Interval.Duration)
	})

	if a.cfg.S3.Enabled && deps.BlobWriter != nil {
		archiver := pipeline.NewArchiver(
			deps.Averages,
			deps.BlobWriter,
			a.cfg.Update.ArchiveRetentionDays,
			a.logger,
		)
		if err := archiver.Start(ctx, a.cfg.Update.ArchiveCron); err != nil {
			return fmt.Errorf("app: start archiver: %w", err)
		}
		a.closers = append(a.closers, archiver.Stop)
	}

	if a.cfg.Server.Enabled {
		a.startServer(ctx, g, deps, state, hub)
	}

	return g.Wait()
}

// startServer registers the HTTP facade goroutines on the given errgroup.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, state *pipeline.CycleState, hub *ws.Hub) {
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(),
		Status: handler.NewStatusHandler(state),
		Prices: handler.NewPricesHandler(
			deps.Snapshot,
			deps.Candidates,
			deps.Averages,
			deps.Pets,
			a.cfg.Update.AverageWindow.Duration,
			a.logger,
		),
	}
	if a.cfg.Features.Query {
		handlers.Query = handler.NewQueryHandler(deps.Auctions, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// candidateFanout delivers a fresh under-ask candidate list to websocket
// subscribers and to the configured notification channels.
type candidateFanout struct {
	hub      *ws.Hub
	notifier *notify.Notifier
}

var _ pipeline.Broadcaster = (*candidateFanout)(nil)

func (f *candidateFanout) BroadcastCandidates(candidates []domain.ArbitrageCandidate) {
	if f.hub != nil {
		f.hub.BroadcastCandidates(candidates)
	}
	if f.notifier != nil {
		f.notifier.CandidateAlert(context.Background(), candidates)
	}
}
