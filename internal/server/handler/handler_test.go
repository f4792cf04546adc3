package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skyquery/skyquery/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSnapshot map[string]int64

func (f fakeSnapshot) Load(context.Context) (map[string]int64, error) { return f, nil }

func (f fakeSnapshot) Replace(context.Context, map[string]int64) error { return nil }

func (f fakeSnapshot) Get(_ context.Context, key string) (int64, error) {
	price, ok := f[key]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return price, nil
}

type fakeCandidates []domain.ArbitrageCandidate

func (f fakeCandidates) Replace(context.Context, []domain.ArbitrageCandidate) error { return nil }

func (f fakeCandidates) List(context.Context) ([]domain.ArbitrageCandidate, error) { return f, nil }

type fakeAverages struct {
	rows  map[string]domain.AvgRow
	since time.Time
}

func (f *fakeAverages) Insert(context.Context, domain.AverageKind, int64, []domain.AvgRow) error {
	return nil
}

func (f *fakeAverages) Averages(_ context.Context, _ domain.AverageKind, since time.Time) (map[string]domain.AvgRow, error) {
	f.since = since
	return f.rows, nil
}

func (f *fakeAverages) SelectBefore(context.Context, domain.AverageKind, time.Time) ([]domain.EpochAvgRow, error) {
	return nil, nil
}

func (f *fakeAverages) DeleteBefore(context.Context, domain.AverageKind, time.Time) (int64, error) {
	return 0, nil
}

type fakePets map[string]int64

func (f fakePets) Upsert(context.Context, []domain.PetRow) (int64, error) { return 0, nil }

func (f fakePets) Get(_ context.Context, name string) (domain.PetRow, error) {
	price, ok := f[name]
	if !ok {
		return domain.PetRow{}, domain.ErrNotFound
	}
	return domain.PetRow{Name: name, Price: price}, nil
}

func (f fakePets) List(context.Context) ([]domain.PetRow, error) {
	var out []domain.PetRow
	for name, price := range f {
		out = append(out, domain.PetRow{Name: name, Price: price})
	}
	return out, nil
}

type fakeStatus domain.CycleStatus

func (f fakeStatus) Status() domain.CycleStatus { return domain.CycleStatus(f) }

func pricesMux(h *PricesHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/lowestbin", h.ListLowestAsks)
	mux.HandleFunc("GET /api/lowestbin/{key}", h.GetLowestAsk)
	mux.HandleFunc("GET /api/underbin", h.ListCandidates)
	mux.HandleFunc("GET /api/average/{kind}", h.GetAverages)
	mux.HandleFunc("GET /api/pets", h.ListPets)
	mux.HandleFunc("GET /api/pets/{name}", h.GetPet)
	return mux
}

func newPricesHandler(averages *fakeAverages) *PricesHandler {
	return NewPricesHandler(
		fakeSnapshot{"HYPERION": 1_000_000},
		fakeCandidates{{UUID: "u1", Key: "HYPERION", Profit: 500_000}},
		averages,
		fakePets{"BLUE_WHALE_EPIC": 9_000},
		24*time.Hour,
		testLogger(),
	)
}

func TestGetLowestAsk(t *testing.T) {
	mux := pricesMux(newPricesHandler(&fakeAverages{}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lowestbin/HYPERION", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["HYPERION"] != 1_000_000 {
		t.Errorf("body = %v", got)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lowestbin/NOPE", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing key status = %d", rec.Code)
	}
}

func TestListCandidates(t *testing.T) {
	mux := pricesMux(newPricesHandler(&fakeAverages{}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/underbin", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []domain.ArbitrageCandidate
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Key != "HYPERION" {
		t.Errorf("candidates = %+v", got)
	}
}

func TestGetAverages(t *testing.T) {
	averages := &fakeAverages{rows: map[string]domain.AvgRow{
		"HYPERION": {Key: "HYPERION", Price: 950_000, Sales: 12},
	}}
	mux := pricesMux(newPricesHandler(averages))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/average/bin?hours=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// The hours override narrows the window.
	if since := time.Until(averages.since); since < -3*time.Hour {
		t.Errorf("since = %v, want about two hours ago", averages.since)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/average/weird", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad kind status = %d", rec.Code)
	}
}

func TestGetPet(t *testing.T) {
	mux := pricesMux(newPricesHandler(&fakeAverages{}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pets/BLUE_WHALE_EPIC", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got domain.PetRow
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Price != 9_000 {
		t.Errorf("pet = %+v", got)
	}
}

func TestGetStatus(t *testing.T) {
	h := NewStatusHandler(fakeStatus{Updating: true, TotalCycles: 7, LastEpoch: 1700000000000})

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got domain.CycleStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Updating || got.TotalCycles != 7 {
		t.Errorf("status = %+v", got)
	}
}

type fakeAuctionStore struct {
	got domain.AuctionQuery
}

func (f *fakeAuctionStore) ReplaceAll(context.Context, []domain.AuctionRecord) (int64, error) {
	return 0, nil
}

func (f *fakeAuctionStore) UpsertBatch(context.Context, []domain.AuctionRecord) (int64, error) {
	return 0, nil
}

func (f *fakeAuctionStore) DeleteByUUIDs(context.Context, []string) (int64, error) { return 0, nil }

func (f *fakeAuctionStore) Search(_ context.Context, q domain.AuctionQuery) ([]domain.AuctionRecord, error) {
	f.got = q
	return []domain.AuctionRecord{{UUID: "u1", ItemName: "Hyperion"}}, nil
}

func TestQuerySearch(t *testing.T) {
	store := &fakeAuctionStore{}
	h := NewQueryHandler(store, testLogger())

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet,
		"/api/query?item_name=Hyperion&tier=MYTHIC&bin=true&limit=10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if store.got.ItemName != "Hyperion" || store.got.Tier != "MYTHIC" || store.got.Limit != 10 {
		t.Errorf("query = %+v", store.got)
	}
	if store.got.BIN == nil || !*store.got.BIN {
		t.Error("bin filter not parsed")
	}

	rec = httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/query?bin=maybe", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad bin status = %d", rec.Code)
	}
}
