// Package domain defines the core types of the auction pipeline: feed
// listings, decoded item attributes, canonical records, and the store and
// cache interfaces implemented by the persistence layer.
package domain

import "encoding/json"

// RawListing is one live marketplace entry exactly as the feed delivers it.
// It is immutable once received; the fetch engine owns it for the duration of
// one page's processing.
type RawListing struct {
	UUID        string    `json:"uuid"`
	Auctioneer  string    `json:"auctioneer"`
	Start       int64     `json:"start"`
	End         int64     `json:"end"`
	ItemName    string    `json:"item_name"`
	ItemLore    string    `json:"item_lore"`
	Tier        string    `json:"tier"`
	StartingBid int64     `json:"starting_bid"`
	HighestBid  int64     `json:"highest_bid_amount"`
	Bids        []Bid     `json:"bids"`
	BIN         bool      `json:"bin"`
	ItemBytes   ItemBytes `json:"item_bytes"`
	LastUpdated int64     `json:"last_updated"`
}

// Bid is one (bidder, amount) pair on a listing.
type Bid struct {
	Bidder string `json:"bidder"`
	Amount int64  `json:"amount"`
}

// EndedListing is one entry from the recently-ended branch of the feed.
type EndedListing struct {
	AuctionID string    `json:"auction_id"`
	Seller    string    `json:"seller"`
	Price     int64     `json:"price"`
	BIN       bool      `json:"bin"`
	ItemBytes ItemBytes `json:"item_bytes"`
	Timestamp int64     `json:"timestamp"`
}

// AuctionPage is the feed's response for one listings page.
type AuctionPage struct {
	Page          int          `json:"page"`
	TotalPages    int          `json:"totalPages"`
	TotalAuctions int          `json:"totalAuctions"`
	LastUpdated   int64        `json:"lastUpdated"`
	Auctions      []RawListing `json:"auctions"`
}

// EndedPage is the feed's response for the recently-ended branch.
type EndedPage struct {
	LastUpdated int64          `json:"lastUpdated"`
	Auctions    []EndedListing `json:"auctions"`
}

// ItemBytes is the compressed attribute blob attached to a listing. The feed
// serializes it either as a bare base64 string or as {"type":"0","data":...};
// both shapes decode into Data.
type ItemBytes struct {
	Data string
}

// UnmarshalJSON accepts both wire shapes of the attribute blob.
func (b *ItemBytes) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &b.Data)
	}
	var wrapped struct {
		Type string `json:"type"`
		Data string `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	b.Data = wrapped.Data
	return nil
}

// MarshalJSON emits the bare-string form.
func (b ItemBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Data)
}
