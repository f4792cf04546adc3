package aggregate

import (
	"sort"
	"sync"

	"github.com/skyquery/skyquery/internal/domain"
)

// avgSum is one running (sum, count) pair.
type avgSum struct {
	sum   float64
	count int64
}

// Averages accumulates observed sale prices per canonical key. Observe is a
// single read-modify-write under the lock, so concurrent page tasks never
// lose updates. The accumulator is discarded after Finalize.
type Averages struct {
	mu   sync.Mutex
	sums map[string]avgSum
}

// NewAverages creates an empty average-price accumulator.
func NewAverages() *Averages {
	return &Averages{sums: make(map[string]avgSum)}
}

// Observe adds price to the running sum for key and count to its observation
// count.
func (a *Averages) Observe(key string, price float64, count int64) {
	if key == "" || count <= 0 {
		return
	}
	a.mu.Lock()
	s := a.sums[key]
	s.sum += price
	s.count += count
	a.sums[key] = s
	a.mu.Unlock()
}

// Finalize yields one row per key with the mean observed price and total
// observation count, sorted by key.
func (a *Averages) Finalize() []domain.AvgRow {
	a.mu.Lock()
	defer a.mu.Unlock()

	rows := make([]domain.AvgRow, 0, len(a.sums))
	for key, s := range a.sums {
		rows = append(rows, domain.AvgRow{
			Key:   key,
			Price: s.sum / float64(s.count),
			Sales: s.count,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows
}

// Len returns the number of distinct keys observed.
func (a *Averages) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sums)
}
