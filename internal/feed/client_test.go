package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skyquery/skyquery/internal/config"
	"github.com/skyquery/skyquery/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Defaults().Feed
	cfg.BaseURL = srv.URL
	return NewClient(cfg)
}

func TestGetPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auctions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("page = %q", got)
		}
		w.Write([]byte(`{
			"page": 2,
			"totalPages": 40,
			"totalAuctions": 80000,
			"lastUpdated": 1700000000000,
			"auctions": [
				{"uuid": "abc", "item_name": "Hyperion", "tier": "MYTHIC", "starting_bid": 5, "bin": true, "item_bytes": "AAAA"}
			]
		}`))
	})

	page, err := c.GetPage(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if page.Page != 2 || page.TotalPages != 40 || page.LastUpdated != 1700000000000 {
		t.Errorf("page header = %+v", page)
	}
	if len(page.Auctions) != 1 {
		t.Fatalf("auctions = %d", len(page.Auctions))
	}
	got := page.Auctions[0]
	if got.UUID != "abc" || got.ItemName != "Hyperion" || !got.BIN || got.ItemBytes.Data != "AAAA" {
		t.Errorf("auction = %+v", got)
	}
}

func TestGetPageServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	})

	_, err := c.GetPage(context.Background(), 0)
	if !errors.Is(err, domain.ErrFeedUnavailable) {
		t.Fatalf("err = %v, want ErrFeedUnavailable", err)
	}
}

func TestGetEnded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auctions_ended" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{
			"lastUpdated": 1700000060000,
			"auctions": [
				{"auction_id": "dead", "seller": "s1", "price": 1000, "bin": true, "item_bytes": "AAAA", "timestamp": 1700000050000}
			]
		}`))
	})

	ended, err := c.GetEnded(context.Background())
	if err != nil {
		t.Fatalf("GetEnded: %v", err)
	}
	if len(ended.Auctions) != 1 {
		t.Fatalf("auctions = %d", len(ended.Auctions))
	}
	got := ended.Auctions[0]
	if got.AuctionID != "dead" || got.Price != 1000 || !got.BIN {
		t.Errorf("ended = %+v", got)
	}
}

func TestGetEndedContextCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"auctions": []}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.GetEnded(ctx); err == nil {
		t.Fatal("GetEnded succeeded with canceled context")
	}
}
