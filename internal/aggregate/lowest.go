package aggregate

import "sync"

// LowestAsk tracks the lowest fixed-price ask per canonical key seen in the
// current cycle. It is only fed during full-resync cycles: incremental cycles
// see a strict subset of listings and would erase true minimums.
type LowestAsk struct {
	mu     sync.Mutex
	prices map[string]int64
}

// NewLowestAsk creates an empty lowest-ask accumulator.
func NewLowestAsk() *LowestAsk {
	return &LowestAsk{prices: make(map[string]int64)}
}

// Observe records price for key, keeping the minimum seen so far.
func (l *LowestAsk) Observe(key string, price int64) {
	if key == "" {
		return
	}
	l.mu.Lock()
	if cur, ok := l.prices[key]; !ok || price < cur {
		l.prices[key] = price
	}
	l.mu.Unlock()
}

// Snapshot returns a copy of the accumulated minimums.
func (l *LowestAsk) Snapshot() map[string]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int64, len(l.prices))
	for k, v := range l.prices {
		out[k] = v
	}
	return out
}

// Len returns the number of distinct keys observed.
func (l *LowestAsk) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prices)
}
