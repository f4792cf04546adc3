package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/skyquery/skyquery/internal/aggregate"
	"github.com/skyquery/skyquery/internal/domain"
	"github.com/skyquery/skyquery/internal/identity"
)

// DecodeFunc turns a listing's attribute blob into decoded attributes.
type DecodeFunc func(domain.ItemBytes) (domain.ParsedAttributes, error)

// Accumulator collects one cycle's per-listing outputs. Page workers share a
// single accumulator; the seen set guarantees each listing uuid contributes
// at most once no matter how often the feed repeats it across pages.
type Accumulator struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	records []domain.AuctionRecord

	collectRecords bool

	// Lowest is nil on incremental cycles; the snapshot is only rebuilt
	// wholesale during a full resync.
	Lowest *aggregate.LowestAsk
	// Under is nil when the arbitrage feature is off.
	Under *aggregate.UnderAsk
}

// NewAccumulator creates an accumulator for one cycle. Either aggregator may
// be nil to disable its route; collectRecords enables full-record rows.
func NewAccumulator(lowest *aggregate.LowestAsk, under *aggregate.UnderAsk, collectRecords bool) *Accumulator {
	return &Accumulator{
		seen:           make(map[string]struct{}),
		collectRecords: collectRecords,
		Lowest:         lowest,
		Under:          under,
	}
}

// claim marks a uuid as processed and reports whether this caller won it.
func (a *Accumulator) claim(uuid string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.seen[uuid]; ok {
		return false
	}
	a.seen[uuid] = struct{}{}
	return true
}

func (a *Accumulator) addRecord(rec domain.AuctionRecord) {
	a.mu.Lock()
	a.records = append(a.records, rec)
	a.mu.Unlock()
}

// Records returns the full-record rows collected this cycle.
func (a *Accumulator) Records() []domain.AuctionRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.AuctionRecord, len(a.records))
	copy(out, a.records)
	return out
}

// Seen returns how many distinct listings the accumulator has claimed.
func (a *Accumulator) Seen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.seen)
}

// Engine folds feed pages into an accumulator.
type Engine struct {
	decode DecodeFunc
	logger *slog.Logger
}

// NewEngine creates an engine. A nil decode falls back to the NBT decoder
// wired by the caller; tests inject a stub.
func NewEngine(decode DecodeFunc, logger *slog.Logger) *Engine {
	return &Engine{
		decode: decode,
		logger: logger.With(slog.String("component", "engine")),
	}
}

// ProcessPage folds one page into the accumulator. cutoff is the previous
// cycle's feed epoch on incremental cycles and zero on a full resync. The
// returned flag is true when the page reached listings last updated at or
// before the cutoff, meaning later pages hold nothing newer.
//
// A listing that fails to decode is skipped; one malformed blob never aborts
// the page.
func (e *Engine) ProcessPage(ctx context.Context, page *domain.AuctionPage, cutoff int64, acc *Accumulator) (bool, error) {
	covered := false

	for i := range page.Auctions {
		if err := ctx.Err(); err != nil {
			return covered, err
		}
		l := &page.Auctions[i]

		if cutoff != 0 && l.LastUpdated <= cutoff {
			covered = true
			continue
		}
		if !acc.claim(l.UUID) {
			continue
		}

		attrs, err := e.decode(l.ItemBytes)
		if err != nil {
			e.logger.Debug("skipping undecodable listing",
				slog.String("uuid", l.UUID),
				slog.String("error", err.Error()),
			)
			continue
		}

		res := identity.Resolve(attrs, identity.ResolveContext{
			FixedPrice:  l.BIN,
			ListingTier: l.Tier,
			DisplayName: l.ItemName,
			Lore:        l.ItemLore,
		})

		if l.BIN && res.Key != "" {
			if acc.Lowest != nil {
				price := unitPrice(l.StartingBid, attrs.Count, res.PriceDivisor)
				if len(res.EnchantKeys) > 0 {
					// A book seeds the reference price of every enchant it
					// carries, not just its combined key.
					for _, enchantKey := range res.EnchantKeys {
						acc.Lowest.Observe(enchantKey, price)
					}
				} else {
					acc.Lowest.Observe(res.Key, price)
				}
			}
			if acc.Under != nil && !aggregate.Excluded(attrs.ID, l.ItemName, l.ItemLore) {
				acc.Under.Observe(*l, res.Key)
			}
		}

		if acc.collectRecords {
			acc.addRecord(domain.AuctionRecord{
				UUID:        l.UUID,
				Auctioneer:  l.Auctioneer,
				EndT:        l.End,
				ItemName:    recordName(attrs.ID, l.ItemName, l.ItemLore),
				Tier:        res.Tier,
				ItemID:      attrs.ID,
				StartingBid: l.StartingBid,
				Enchants:    res.Enchants,
				BIN:         l.BIN,
				Bids:        l.Bids,
			})
		}
	}

	return covered, nil
}

// recordName resolves the display name stored on a full-record row. Every
// enchanted book is listed under the literal name "Enchanted Book"; the lore's
// first line carries the name that actually identifies it.
func recordName(itemID, itemName, lore string) string {
	if itemID == "ENCHANTED_BOOK" {
		if line, _, _ := strings.Cut(lore, "\n"); line != "" {
			return identity.StripColorCodes(line)
		}
	}
	return identity.StripColorCodes(itemName)
}

// unitPrice normalizes a stack's ask to a single level-one unit.
func unitPrice(bid int64, count int32, divisor float64) int64 {
	if count > 1 {
		bid /= int64(count)
	}
	if divisor > 1 {
		bid = int64(float64(bid) / divisor)
	}
	return bid
}
