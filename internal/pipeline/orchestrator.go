package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/skyquery/skyquery/internal/aggregate"
	"github.com/skyquery/skyquery/internal/config"
	"github.com/skyquery/skyquery/internal/domain"
)

// maxPageFetchers bounds the concurrent page downloads during a full resync.
const maxPageFetchers = 8

// Fetcher retrieves the live and recently-ended feeds.
type Fetcher interface {
	GetPage(ctx context.Context, page int) (*domain.AuctionPage, error)
	GetEnded(ctx context.Context) (*domain.EndedPage, error)
}

// Broadcaster pushes a fresh candidate list to connected subscribers.
type Broadcaster interface {
	BroadcastCandidates(candidates []domain.ArbitrageCandidate)
}

// Reporter receives the per-cycle success and failure summaries.
type Reporter interface {
	CycleReport(ctx context.Context, ok, errs []string)
}

// Deps wires an Orchestrator. Stores and caches for disabled features may be
// nil; Broadcaster and Reporter are optional.
type Deps struct {
	Fetcher Fetcher
	Engine  *Engine
	Ended   *EndedConsumer
	State   *CycleState

	Features config.FeatureConfig
	Update   config.UpdateConfig

	Auctions   domain.AuctionStore
	Averages   domain.AverageStore
	Pets       domain.PetStore
	Snapshot   domain.SnapshotCache
	Candidates domain.CandidateCache

	Broadcaster Broadcaster
	Reporter    Reporter
	Logger      *slog.Logger
}

// Orchestrator drives update cycles: every Nth cycle rebuilds everything
// from the full feed, the cycles between walk pages newest-first and stop at
// the previous cycle's epoch.
type Orchestrator struct {
	deps   Deps
	logger *slog.Logger
}

// NewOrchestrator creates an orchestrator from its dependency set.
func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{
		deps:   deps,
		logger: deps.Logger.With(slog.String("component", "orchestrator")),
	}
}

// State exposes the cycle state for the query facade.
func (o *Orchestrator) State() *CycleState {
	return o.deps.State
}

// RunCycle executes one update cycle. It returns true when the cycle
// committed (the stores and caches reflect the new epoch) and false when it
// was skipped or aborted. A skipped cycle (feed epoch unchanged, or another
// cycle in flight) leaves no trace; an aborted one leaves the previous
// epoch's data intact so the next attempt retries with the same cutoff.
func (o *Orchestrator) RunCycle(ctx context.Context) (bool, error) {
	st := o.deps.State
	if !st.Begin() {
		return false, domain.ErrCycleBusy
	}

	full := st.FullResyncDue(o.deps.Update.FullResyncEvery)
	// Only the first cycle of the process walks pages concurrently; later
	// full resyncs visit every page in order.
	coldStart := full && st.Cycles() == 0
	var cutoff int64
	if !full {
		cutoff = st.LastEpoch()
	}

	logger := o.logger.With(
		slog.String("run_id", uuid.NewString()),
		slog.Bool("full_resync", full),
	)
	start := time.Now()

	first, err := o.deps.Fetcher.GetPage(ctx, 0)
	if err != nil {
		st.Abort()
		return false, fmt.Errorf("pipeline: probe page: %w", err)
	}
	if first.LastUpdated != 0 && first.LastUpdated == st.LastEpoch() {
		st.Abort()
		logger.Debug("feed epoch unchanged, skipping cycle",
			slog.Int64("epoch", first.LastUpdated))
		return false, nil
	}
	epoch := first.LastUpdated

	acc := NewAccumulator(o.newLowest(full), o.newUnder(ctx, logger), o.deps.Features.Query)

	covered, err := o.deps.Engine.ProcessPage(ctx, first, cutoff, acc)
	if err != nil {
		st.Abort()
		return false, fmt.Errorf("pipeline: page 0: %w", err)
	}

	var sinks EndedSinks
	if o.deps.Features.AverageAuction {
		sinks.AvgAuction = aggregate.NewAverages()
	}
	if o.deps.Features.AverageBIN {
		sinks.AvgBIN = aggregate.NewAverages()
	}
	if o.deps.Features.Pets {
		sinks.Pets = aggregate.NewPetPrices()
	}

	// The ended branch runs alongside the page walk. Its feed going away is
	// tolerated: averages just miss one epoch.
	var endedIDs []string
	endedGroup, endedCtx := errgroup.WithContext(ctx)
	if sinks.AvgAuction != nil || sinks.AvgBIN != nil || sinks.Pets != nil ||
		(o.deps.Features.Query && !full) {
		endedGroup.Go(func() error {
			page, err := o.deps.Fetcher.GetEnded(endedCtx)
			if err != nil {
				logger.Warn("ended feed unavailable", slog.String("error", err.Error()))
				return nil
			}
			endedIDs, err = o.deps.Ended.ProcessBatch(endedCtx, page, sinks)
			return err
		})
	}

	if err := o.walkPages(ctx, logger, first.TotalPages, coldStart, cutoff, covered, acc); err != nil {
		endedGroup.Wait()
		st.Abort()
		return false, err
	}
	if err := endedGroup.Wait(); err != nil {
		st.Abort()
		return false, fmt.Errorf("pipeline: ended branch: %w", err)
	}

	okLogs, errLogs, sinkErrs := o.persist(ctx, full, epoch, acc, sinks, endedIDs)

	// Commit regardless of sink failures: the feed was consumed and partial
	// results are live, so the next incremental cycle must use this epoch.
	st.Commit(epoch)

	okLogs = append([]string{
		fmt.Sprintf("Cycle %d finished in %s (%d listings)",
			st.Cycles(), time.Since(start).Round(time.Millisecond), acc.Seen()),
	}, okLogs...)
	if o.deps.Reporter != nil {
		o.deps.Reporter.CycleReport(ctx, okLogs, errLogs)
	}
	logger.Info("cycle committed",
		slog.Int64("epoch", epoch),
		slog.Int("listings", acc.Seen()),
		slog.Int("sink_errors", len(sinkErrs)),
		slog.Duration("elapsed", time.Since(start)),
	)

	if len(sinkErrs) > 0 {
		return true, errors.Join(sinkErrs...)
	}
	return true, nil
}

// newLowest returns a fresh snapshot accumulator only when this cycle may
// rebuild the snapshot wholesale.
func (o *Orchestrator) newLowest(full bool) *aggregate.LowestAsk {
	if !o.deps.Features.LowestBIN || !full {
		return nil
	}
	return aggregate.NewLowestAsk()
}

// newUnder loads the last committed snapshot as the arbitrage reference. An
// empty or unreadable snapshot disables detection for this cycle only.
func (o *Orchestrator) newUnder(ctx context.Context, logger *slog.Logger) *aggregate.UnderAsk {
	if !o.deps.Features.UnderBIN {
		return nil
	}
	past, err := o.deps.Snapshot.Load(ctx)
	if err != nil {
		logger.Warn("snapshot load failed, skipping arbitrage this cycle",
			slog.String("error", err.Error()))
		return nil
	}
	if len(past) == 0 {
		return nil
	}
	return aggregate.NewUnderAsk(past, nil, o.deps.Update.UnderBINMinProfit)
}

// walkPages consumes pages 1..totalPages-1. The very first cycle of the
// process fans out with bounded concurrency; every later cycle walks pages in
// order, stopping early only when an incremental cutoff is reached. A page
// that fails to fetch costs its listings, never the cycle: the failure is
// logged and the walk moves on.
func (o *Orchestrator) walkPages(ctx context.Context, logger *slog.Logger, totalPages int, coldStart bool, cutoff int64, covered bool, acc *Accumulator) error {
	if coldStart {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxPageFetchers)
		for p := 1; p < totalPages; p++ {
			g.Go(func() error {
				page, err := o.deps.Fetcher.GetPage(gctx, p)
				if err != nil {
					logger.Warn("page fetch failed, skipping",
						slog.Int("page", p), slog.String("error", err.Error()))
					return nil
				}
				_, err = o.deps.Engine.ProcessPage(gctx, page, 0, acc)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("pipeline: page fan-out: %w", err)
		}
		return nil
	}

	for p := 1; p < totalPages && !covered; p++ {
		page, err := o.deps.Fetcher.GetPage(ctx, p)
		if err != nil {
			logger.Warn("page fetch failed, skipping",
				slog.Int("page", p), slog.String("error", err.Error()))
			continue
		}
		covered, err = o.deps.Engine.ProcessPage(ctx, page, cutoff, acc)
		if err != nil {
			return fmt.Errorf("pipeline: page %d: %w", p, err)
		}
	}
	return nil
}

// persist flushes the cycle's accumulators to the stores and caches. Each
// sink fails independently; the summaries feed the cycle report.
func (o *Orchestrator) persist(ctx context.Context, full bool, epoch int64, acc *Accumulator, sinks EndedSinks, endedIDs []string) (okLogs, errLogs []string, sinkErrs []error) {
	step := func(name, ok string, fn func() error) {
		if err := fn(); err != nil {
			errLogs = append(errLogs, fmt.Sprintf("%s: %v", name, err))
			sinkErrs = append(sinkErrs, fmt.Errorf("%s: %w", name, err))
			return
		}
		okLogs = append(okLogs, ok)
	}

	if o.deps.Features.Query {
		records := acc.Records()
		if full {
			step("query replace", fmt.Sprintf("Replaced query table with %d records", len(records)), func() error {
				_, err := o.deps.Auctions.ReplaceAll(ctx, records)
				return err
			})
		} else {
			step("query upsert", fmt.Sprintf("Upserted %d records", len(records)), func() error {
				_, err := o.deps.Auctions.UpsertBatch(ctx, records)
				return err
			})
			if len(endedIDs) > 0 {
				step("query prune", fmt.Sprintf("Pruned %d ended records", len(endedIDs)), func() error {
					_, err := o.deps.Auctions.DeleteByUUIDs(ctx, endedIDs)
					return err
				})
			}
		}
	}

	if acc.Lowest != nil {
		snap := acc.Lowest.Snapshot()
		step("snapshot replace", fmt.Sprintf("Updated lowest asks for %d keys", len(snap)), func() error {
			return o.deps.Snapshot.Replace(ctx, snap)
		})
	}

	if acc.Under != nil {
		candidates := acc.Under.Candidates()
		step("candidates replace", fmt.Sprintf("Found %d underpriced listings", len(candidates)), func() error {
			return o.deps.Candidates.Replace(ctx, candidates)
		})
		if o.deps.Broadcaster != nil {
			o.deps.Broadcaster.BroadcastCandidates(candidates)
		}
	}

	if sinks.AvgAuction != nil {
		rows := sinks.AvgAuction.Finalize()
		step("average auction insert", fmt.Sprintf("Recorded %d auction averages", len(rows)), func() error {
			return o.deps.Averages.Insert(ctx, domain.AverageAuction, epoch, rows)
		})
	}
	if sinks.AvgBIN != nil {
		rows := sinks.AvgBIN.Finalize()
		step("average bin insert", fmt.Sprintf("Recorded %d bin averages", len(rows)), func() error {
			return o.deps.Averages.Insert(ctx, domain.AverageBIN, epoch, rows)
		})
	}
	if sinks.Pets != nil {
		rows := sinks.Pets.Finalize()
		step("pet upsert", fmt.Sprintf("Updated %d pet prices", len(rows)), func() error {
			_, err := o.deps.Pets.Upsert(ctx, rows)
			return err
		})
	}

	return okLogs, errLogs, sinkErrs
}

// RunLoop runs update cycles on a repeating interval until the context is
// cancelled. A cycle still in flight when the ticker fires is left alone.
func (o *Orchestrator) RunLoop(ctx context.Context, interval time.Duration) error {
	// Run immediately on start.
	if _, err := o.RunCycle(ctx); err != nil && !errors.Is(err, domain.ErrCycleBusy) {
		o.logger.Error("update cycle failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("update loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := o.RunCycle(ctx); err != nil {
				if errors.Is(err, domain.ErrCycleBusy) {
					o.logger.Debug("previous cycle still running")
					continue
				}
				o.logger.Error("update cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}
