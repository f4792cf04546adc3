package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/skyquery/skyquery/internal/domain"
)

type archiveAverageStore struct {
	memAverageStore
	rows    map[domain.AverageKind][]domain.EpochAvgRow
	deleted []domain.AverageKind
}

func (s *archiveAverageStore) SelectBefore(_ context.Context, kind domain.AverageKind, _ time.Time) ([]domain.EpochAvgRow, error) {
	return s.rows[kind], nil
}

func (s *archiveAverageStore) DeleteBefore(_ context.Context, kind domain.AverageKind, _ time.Time) (int64, error) {
	s.deleted = append(s.deleted, kind)
	return int64(len(s.rows[kind])), nil
}

type memBlobWriter struct {
	mu   sync.Mutex
	puts map[string][]byte
	err  error
}

func (w *memBlobWriter) Put(_ context.Context, path string, data []byte, _ string) error {
	if w.err != nil {
		return w.err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.puts == nil {
		w.puts = make(map[string][]byte)
	}
	w.puts[path] = data
	return nil
}

func TestArchiverRun(t *testing.T) {
	store := &archiveAverageStore{rows: map[domain.AverageKind][]domain.EpochAvgRow{
		domain.AverageBIN: {
			{Epoch: 1000, Row: domain.AvgRow{Key: "HYPERION", Price: 1_000_000, Sales: 3}},
		},
	}}
	blobs := &memBlobWriter{}

	if err := NewArchiver(store, blobs, 7, discardLogger()).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(blobs.puts) != 1 {
		t.Fatalf("uploads = %d", len(blobs.puts))
	}
	for path, data := range blobs.puts {
		if !strings.HasPrefix(path, "averages/bin/") {
			t.Errorf("path = %q", path)
		}
		if !strings.Contains(string(data), "HYPERION") {
			t.Errorf("payload = %s", data)
		}
	}
	// Only the kind with rows gets deleted, and only after upload.
	if len(store.deleted) != 1 || store.deleted[0] != domain.AverageBIN {
		t.Errorf("deleted = %v", store.deleted)
	}
}

func TestArchiverUploadFailureKeepsRows(t *testing.T) {
	store := &archiveAverageStore{rows: map[domain.AverageKind][]domain.EpochAvgRow{
		domain.AverageAuction: {
			{Epoch: 1000, Row: domain.AvgRow{Key: "HYPERION", Price: 1_000_000, Sales: 3}},
		},
	}}
	blobs := &memBlobWriter{err: errors.New("bucket gone")}

	if err := NewArchiver(store, blobs, 7, discardLogger()).Run(context.Background()); err == nil {
		t.Fatal("Run succeeded despite upload failure")
	}
	if len(store.deleted) != 0 {
		t.Error("rows deleted before a successful upload")
	}
}
