package pipeline

import (
	"context"
	"log/slog"

	"github.com/skyquery/skyquery/internal/aggregate"
	"github.com/skyquery/skyquery/internal/domain"
	"github.com/skyquery/skyquery/internal/identity"
)

// EndedSinks holds the destinations for ended-listing routing. Any nil sink
// disables its route for the cycle.
type EndedSinks struct {
	AvgAuction *aggregate.Averages
	AvgBIN     *aggregate.Averages
	Pets       *aggregate.PetPrices
}

// EndedConsumer folds the recently-ended feed into the average and pet
// accumulators and reports which listings left the marketplace.
type EndedConsumer struct {
	decode DecodeFunc
	logger *slog.Logger
}

// NewEndedConsumer creates a consumer using the given blob decoder.
func NewEndedConsumer(decode DecodeFunc, logger *slog.Logger) *EndedConsumer {
	return &EndedConsumer{
		decode: decode,
		logger: logger.With(slog.String("component", "ended")),
	}
}

// ProcessBatch routes one ended-feed response: fixed-price sales to the BIN
// average, bid sales to the auction average, pets to the pet accumulator.
// It returns the uuids of every listing in the batch so the caller can drop
// them from the live-record store on incremental cycles.
//
// Undecodable entries still count as ended (their uuid is returned) but
// contribute no price observation.
func (c *EndedConsumer) ProcessBatch(ctx context.Context, page *domain.EndedPage, sinks EndedSinks) ([]string, error) {
	ended := make([]string, 0, len(page.Auctions))

	for i := range page.Auctions {
		if err := ctx.Err(); err != nil {
			return ended, err
		}
		l := &page.Auctions[i]
		ended = append(ended, l.AuctionID)

		attrs, err := c.decode(l.ItemBytes)
		if err != nil {
			c.logger.Debug("skipping undecodable sale",
				slog.String("auction_id", l.AuctionID),
				slog.String("error", err.Error()),
			)
			continue
		}

		// FixedPrice is forced so pet sales key by name and tier ordinal on
		// both average routes.
		res := identity.Resolve(attrs, identity.ResolveContext{FixedPrice: true})

		if res.IsPet && sinks.Pets != nil && res.PetKey != "" {
			sinks.Pets.Observe(res.PetKey, l.Price)
		}

		// A book with several enchantments has no stable price signal, so
		// it would skew its key's average.
		if res.Key == "" || len(res.EnchantKeys) > 1 {
			continue
		}

		if l.BIN {
			if sinks.AvgBIN != nil {
				sinks.AvgBIN.Observe(res.Key, float64(l.Price), 1)
			}
		} else if sinks.AvgAuction != nil {
			sinks.AvgAuction.Observe(res.Key, float64(l.Price), 1)
		}
	}

	return ended, nil
}
