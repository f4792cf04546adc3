package aggregate

import (
	"sort"
	"sync"

	"github.com/skyquery/skyquery/internal/domain"
)

// PetPrices accumulates ended pet sale prices keyed by the pet average key
// (NAME_TIER, with a _TB suffix when a tier-boost item is equipped). Same
// sum/count merge semantics as Averages; finalizes to an integer mean.
type PetPrices struct {
	mu   sync.Mutex
	sums map[string]avgSum
}

// NewPetPrices creates an empty pet-price accumulator.
func NewPetPrices() *PetPrices {
	return &PetPrices{sums: make(map[string]avgSum)}
}

// Observe adds one sale at price for the given pet key.
func (p *PetPrices) Observe(key string, price int64) {
	if key == "" {
		return
	}
	p.mu.Lock()
	s := p.sums[key]
	s.sum += float64(price)
	s.count++
	p.sums[key] = s
	p.mu.Unlock()
}

// Finalize yields one row per pet key with the mean sale price, sorted by
// name.
func (p *PetPrices) Finalize() []domain.PetRow {
	p.mu.Lock()
	defer p.mu.Unlock()

	rows := make([]domain.PetRow, 0, len(p.sums))
	for key, s := range p.sums {
		rows = append(rows, domain.PetRow{
			Name:  key,
			Price: int64(s.sum / float64(s.count)),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

// Len returns the number of distinct pet keys observed.
func (p *PetPrices) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sums)
}
