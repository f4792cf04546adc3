package pipeline

import (
	"context"
	"testing"

	"github.com/skyquery/skyquery/internal/aggregate"
	"github.com/skyquery/skyquery/internal/domain"
)

func TestProcessPageDedupAcrossPages(t *testing.T) {
	engine := NewEngine(testDecode, discardLogger())
	acc := NewAccumulator(aggregate.NewLowestAsk(), nil, true)

	// The same listing appears on two pages, as happens when the feed
	// shifts mid-walk. It must contribute exactly once.
	listing := makeListing("dup", "HYPERION", 1000, 5_000, true)
	pageA := &domain.AuctionPage{Auctions: []domain.RawListing{listing}}
	pageB := &domain.AuctionPage{Auctions: []domain.RawListing{listing}}

	for _, page := range []*domain.AuctionPage{pageA, pageB} {
		if _, err := engine.ProcessPage(context.Background(), page, 0, acc); err != nil {
			t.Fatalf("ProcessPage: %v", err)
		}
	}

	if got := acc.Seen(); got != 1 {
		t.Errorf("Seen = %d, want 1", got)
	}
	if got := len(acc.Records()); got != 1 {
		t.Errorf("records = %d, want 1", got)
	}
}

func TestProcessPageSkipsUndecodable(t *testing.T) {
	engine := NewEngine(testDecode, discardLogger())
	acc := NewAccumulator(aggregate.NewLowestAsk(), nil, true)

	bad := makeListing("bad", "X", 1000, 100, true)
	bad.ItemBytes = domain.ItemBytes{Data: "not json"}
	good := makeListing("good", "HYPERION", 1000, 5_000, true)

	page := &domain.AuctionPage{Auctions: []domain.RawListing{bad, good}}
	if _, err := engine.ProcessPage(context.Background(), page, 0, acc); err != nil {
		t.Fatalf("ProcessPage: %v", err)
	}

	if got := len(acc.Records()); got != 1 {
		t.Fatalf("records = %d, want 1", got)
	}
	if acc.Records()[0].UUID != "good" {
		t.Errorf("kept record = %q", acc.Records()[0].UUID)
	}
}

func TestProcessPageCutoffCoverage(t *testing.T) {
	engine := NewEngine(testDecode, discardLogger())

	fresh := makeListing("fresh", "A", 2000, 100, true)
	stale := makeListing("stale", "B", 1000, 100, true)
	page := &domain.AuctionPage{Auctions: []domain.RawListing{fresh, stale}}

	acc := NewAccumulator(nil, nil, true)
	covered, err := engine.ProcessPage(context.Background(), page, 1000, acc)
	if err != nil {
		t.Fatalf("ProcessPage: %v", err)
	}
	if !covered {
		t.Error("covered = false with a listing at the cutoff")
	}
	if got := len(acc.Records()); got != 1 {
		t.Errorf("records = %d, want only the fresh listing", got)
	}

	// Cutoff zero means full resync: everything is fresh and coverage
	// never triggers.
	acc = NewAccumulator(nil, nil, true)
	covered, err = engine.ProcessPage(context.Background(), page, 0, acc)
	if err != nil {
		t.Fatalf("ProcessPage: %v", err)
	}
	if covered {
		t.Error("covered = true on full resync")
	}
	if got := len(acc.Records()); got != 2 {
		t.Errorf("records = %d, want 2", got)
	}
}

func TestProcessPageStackNormalization(t *testing.T) {
	engine := NewEngine(testDecode, discardLogger())
	lowest := aggregate.NewLowestAsk()
	acc := NewAccumulator(lowest, nil, false)

	stack := makeListing("s", "ENCHANTED_DIAMOND", 1000, 6_400, true)
	stack.ItemBytes = domain.ItemBytes{Data: `{"ID":"ENCHANTED_DIAMOND","Count":64}`}

	page := &domain.AuctionPage{Auctions: []domain.RawListing{stack}}
	if _, err := engine.ProcessPage(context.Background(), page, 0, acc); err != nil {
		t.Fatalf("ProcessPage: %v", err)
	}

	snap := lowest.Snapshot()
	if snap["ENCHANTED_DIAMOND"] != 100 {
		t.Errorf("unit ask = %d, want 100", snap["ENCHANTED_DIAMOND"])
	}
}

func TestProcessPageBookRecordNameFromLore(t *testing.T) {
	engine := NewEngine(testDecode, discardLogger())
	acc := NewAccumulator(nil, nil, true)

	// Every book is listed as the literal "Enchanted Book"; the lore's first
	// line is the name worth storing.
	book := makeListing("bk", "ENCHANTED_BOOK", 1000, 500_000, true)
	book.ItemName = "Enchanted Book"
	book.ItemLore = "§9Sharpness V\n§7Increases melee damage"
	book.ItemBytes = domain.ItemBytes{Data: `{"ID":"ENCHANTED_BOOK","Enchantments":{"sharpness":5}}`}

	page := &domain.AuctionPage{Auctions: []domain.RawListing{book}}
	if _, err := engine.ProcessPage(context.Background(), page, 0, acc); err != nil {
		t.Fatalf("ProcessPage: %v", err)
	}

	records := acc.Records()
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].ItemName != "Sharpness V" {
		t.Errorf("ItemName = %q, want lore first line", records[0].ItemName)
	}
}

func TestProcessPageBookSeedsPerEnchantAsks(t *testing.T) {
	engine := NewEngine(testDecode, discardLogger())
	lowest := aggregate.NewLowestAsk()
	acc := NewAccumulator(lowest, nil, false)

	book := makeListing("bk", "ENCHANTED_BOOK", 1000, 800_000, true)
	book.ItemBytes = domain.ItemBytes{Data: `{"ID":"ENCHANTED_BOOK","Enchantments":{"sharpness":5,"looting":3}}`}

	page := &domain.AuctionPage{Auctions: []domain.RawListing{book}}
	if _, err := engine.ProcessPage(context.Background(), page, 0, acc); err != nil {
		t.Fatalf("ProcessPage: %v", err)
	}

	snap := lowest.Snapshot()
	if snap["SHARPNESS;5"] != 800_000 || snap["LOOTING;3"] != 800_000 {
		t.Errorf("snapshot = %v, want per-enchant asks", snap)
	}
	if _, ok := snap["ENCHANTED_BOOK+LOOTING;3+SHARPNESS;5"]; ok {
		t.Error("combined book key reached the snapshot")
	}
}

func TestProcessPageExcludedFromUnderAsk(t *testing.T) {
	engine := NewEngine(testDecode, discardLogger())
	under := aggregate.NewUnderAsk(map[string]int64{"MINION_SKIN_X": 10_000_000}, nil, 1_000_000)
	acc := NewAccumulator(nil, under, false)

	skin := makeListing("m", "MINION_SKIN_X", 1000, 100, true)
	skin.ItemName = "Chicken Minion Skin"

	page := &domain.AuctionPage{Auctions: []domain.RawListing{skin}}
	if _, err := engine.ProcessPage(context.Background(), page, 0, acc); err != nil {
		t.Fatalf("ProcessPage: %v", err)
	}
	if got := under.Candidates(); len(got) != 0 {
		t.Errorf("candidates = %+v, want none for excluded categories", got)
	}
}
