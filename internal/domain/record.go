package domain

// AuctionRecord is one full-record row persisted per live listing, keyed by
// the feed-assigned listing uuid.
type AuctionRecord struct {
	UUID        string   `json:"uuid"`
	Auctioneer  string   `json:"auctioneer"`
	EndT        int64    `json:"end_t"`
	ItemName    string   `json:"item_name"`
	Tier        string   `json:"tier"`
	ItemID      string   `json:"item_id"`
	StartingBid int64    `json:"starting_bid"`
	Enchants    []string `json:"enchants"`
	BIN         bool     `json:"bin"`
	Bids        []Bid    `json:"bids"`
}

// ArbitrageCandidate is a fixed-price listing priced far enough below the
// previous cycle's lowest recorded ask, net of marketplace tax, to be
// reported.
type ArbitrageCandidate struct {
	UUID        string `json:"uuid"`
	ItemName    string `json:"name"`
	Key         string `json:"id"`
	Auctioneer  string `json:"auctioneer"`
	StartingBid int64  `json:"starting_bid"`
	PastPrice   int64  `json:"past_bin_price"`
	Profit      int64  `json:"profit"`
}

// AvgRow is one finalized average-price entry: the canonical key, the mean
// observed price, and how many sales contributed to it.
type AvgRow struct {
	Key   string  `json:"item_id"`
	Price float64 `json:"price"`
	Sales int64   `json:"sales"`
}

// PetRow is one finalized pet average-price entry.
type PetRow struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// AverageKind selects which average table a row belongs to.
type AverageKind string

const (
	// AverageAuction aggregates non-fixed-price sales.
	AverageAuction AverageKind = "auction"
	// AverageBIN aggregates fixed-price sales.
	AverageBIN AverageKind = "bin"
)

// CycleStatus is the read-only process status exposed to the query facade.
type CycleStatus struct {
	Updating    bool  `json:"is_updating"`
	TotalCycles int64 `json:"total_updates"`
	LastEpoch   int64 `json:"last_updated"`
}
