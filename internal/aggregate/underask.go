package aggregate

import (
	"sort"
	"strings"
	"sync"

	"github.com/skyquery/skyquery/internal/domain"
)

// UnderAsk detects fixed-price listings priced far enough below the previous
// cycle's recorded lowest ask, after the marketplace tax, to be worth
// reporting. It reads the persisted snapshot from the last full-resync cycle,
// never the in-progress cache, so incremental cycles compare against a
// periodically corrected reference.
type UnderAsk struct {
	mu         sync.Mutex
	candidates []domain.ArbitrageCandidate
	past       map[string]int64
	tax        TaxFunc
	minProfit  int64
}

// NewUnderAsk creates a detector comparing against the given snapshot. A nil
// tax function falls back to DefaultTax.
func NewUnderAsk(past map[string]int64, tax TaxFunc, minProfit int64) *UnderAsk {
	if tax == nil {
		tax = DefaultTax
	}
	return &UnderAsk{
		past:      past,
		tax:       tax,
		minProfit: minProfit,
	}
}

// Excluded reports whether a listing belongs to a category with unreliable
// pricing signals: pets and enchanted books (their keys don't map cleanly to
// the snapshot), furniture, cosmetic reskins, and unresolved display names.
func Excluded(itemID, itemName, lore string) bool {
	return itemID == "PET" ||
		itemID == "ENCHANTED_BOOK" ||
		itemName == "null" ||
		strings.Contains(itemName, "Minion Skin") ||
		strings.Contains(lore, "Furniture")
}

// Observe compares one fixed-price listing against the snapshot and records a
// candidate when tax(reference) - ask exceeds the profit threshold. Listings
// whose key is absent from the snapshot are ignored.
func (u *UnderAsk) Observe(listing domain.RawListing, key string) {
	past, ok := u.past[key]
	if !ok {
		return
	}
	profit := u.tax(past) - listing.StartingBid
	if profit <= u.minProfit {
		return
	}

	u.mu.Lock()
	u.candidates = append(u.candidates, domain.ArbitrageCandidate{
		UUID:        listing.UUID,
		ItemName:    listing.ItemName,
		Key:         key,
		Auctioneer:  listing.Auctioneer,
		StartingBid: listing.StartingBid,
		PastPrice:   past,
		Profit:      profit,
	})
	u.mu.Unlock()
}

// Candidates returns the recorded candidates, most profitable first.
func (u *UnderAsk) Candidates() []domain.ArbitrageCandidate {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]domain.ArbitrageCandidate, len(u.candidates))
	copy(out, u.candidates)
	sort.Slice(out, func(i, j int) bool { return out[i].Profit > out[j].Profit })
	return out
}
