package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/skyquery/skyquery/internal/domain"
)

// Archiver moves average-price epochs past the retention window out of the
// database and into blob cold storage, one JSON object per kind per run.
type Archiver struct {
	averages      domain.AverageStore
	blobs         domain.BlobWriter
	retentionDays int
	logger        *slog.Logger

	cron *cron.Cron
}

// NewArchiver creates an archiver over the given store and blob sink.
func NewArchiver(averages domain.AverageStore, blobs domain.BlobWriter, retentionDays int, logger *slog.Logger) *Archiver {
	return &Archiver{
		averages:      averages,
		blobs:         blobs,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "archiver")),
	}
}

// Run executes a single archive pass over both average kinds.
func (a *Archiver) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -a.retentionDays)
	a.logger.Info("starting archive run",
		slog.Time("cutoff", cutoff),
		slog.Int("retention_days", a.retentionDays),
	)

	for _, kind := range []domain.AverageKind{domain.AverageAuction, domain.AverageBIN} {
		n, err := a.archiveKind(ctx, kind, cutoff)
		if err != nil {
			return fmt.Errorf("pipeline: archive %s averages: %w", kind, err)
		}
		a.logger.Info("archived averages",
			slog.String("kind", string(kind)),
			slog.Int("rows", n),
		)
	}
	return nil
}

// archiveKind uploads the expired rows of one kind and deletes them only
// after the upload succeeded, so a failed run loses nothing.
func (a *Archiver) archiveKind(ctx context.Context, kind domain.AverageKind, cutoff time.Time) (int, error) {
	rows, err := a.averages.SelectBefore(ctx, kind, cutoff)
	if err != nil {
		return 0, fmt.Errorf("select: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		return 0, fmt.Errorf("marshal: %w", err)
	}

	path := fmt.Sprintf("averages/%s/%s.json", kind, cutoff.Format("2006-01-02"))
	if err := a.blobs.Put(ctx, path, payload, "application/json"); err != nil {
		return 0, fmt.Errorf("upload %s: %w", path, err)
	}

	if _, err := a.averages.DeleteBefore(ctx, kind, cutoff); err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}
	return len(rows), nil
}

// Start schedules archive runs on the given cron spec until Stop is called.
func (a *Archiver) Start(ctx context.Context, spec string) error {
	a.cron = cron.New()
	_, err := a.cron.AddFunc(spec, func() {
		if err := a.Run(ctx); err != nil {
			a.logger.Error("archive run failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("pipeline: schedule archiver: %w", err)
	}
	a.cron.Start()
	return nil
}

// Stop halts the schedule and waits for an in-flight run to finish.
func (a *Archiver) Stop() {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
}
