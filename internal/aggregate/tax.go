// Package aggregate implements the per-cycle price accumulators: the
// lowest-ask cache, the under-ask detector, and the average-price and
// pet-price accumulators. All of them support concurrent observation from
// multiple page tasks; each observation is a single atomic merge.
package aggregate

// TaxFunc models the marketplace claim tax applied to a reference price
// before comparing it against an asking price.
type TaxFunc func(price int64) int64

// DefaultTax is the marketplace claim tax: 1% below one million, 2% at or
// above.
func DefaultTax(price int64) int64 {
	if price < 1_000_000 {
		return int64(float64(price) * 0.99)
	}
	return int64(float64(price) * 0.98)
}
