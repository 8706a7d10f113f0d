// Package valuation reconciles the two market snapshots into sell-side price
// recommendations for single items and whole chests of loot.
package valuation

import (
	"math"
	"time"

	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/store"
)

// NoSalesData is the sales-per-day sentinel for "no signal at all", distinct
// from a measured rate of zero.
const NoSalesData float64 = -1

const velocityWindowDays = 7

// AuctionQuote is the auction house side of an item valuation.
type AuctionQuote struct {
	LowestBIN int64  `json:"lowest_bin"`
	Tier      string `json:"tier,omitempty"`
	Total     int64  `json:"total"`
}

// BazaarQuote is the bazaar side of an item valuation. Total uses the
// insta-sell price: what the stack fetches when dumped into resting buy
// orders right now, the conservative guaranteed-liquidity number.
type BazaarQuote struct {
	InstaSellPrice float64 `json:"insta_sell_price"`
	InstaBuyPrice  float64 `json:"insta_buy_price"`
	Total          float64 `json:"total"`
}

// ItemValue is the full valuation of one item stack.
type ItemValue struct {
	ItemName     string        `json:"item_name"`
	Quantity     int           `json:"quantity"`
	FoundIn      []string      `json:"found_in"`
	AuctionHouse *AuctionQuote `json:"auction_house"`
	Bazaar       *BazaarQuote  `json:"bazaar"`
	BestPrice    *float64      `json:"best_price"`
	TotalValue   float64       `json:"total_value"`
	Market       string        `json:"market,omitempty"`
	SalesPerDay  float64       `json:"sales_per_day"`
}

// ChestItem is one requested stack in a chest valuation.
type ChestItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Summary totals a chest valuation. Profit fields are only present when a
// chest cost was supplied.
type Summary struct {
	TotalItems    int      `json:"total_items"`
	ItemsFound    int      `json:"items_found"`
	ItemsNotFound int      `json:"items_not_found"`
	TotalValue    float64  `json:"total_value"`
	ChestCost     *float64 `json:"chest_cost"`
	Profit        *float64 `json:"profit"`
	IsProfitable  *bool    `json:"is_profitable,omitempty"`
	ROIPercent    *float64 `json:"roi_percent,omitempty"`
}

// MarketStatus reports when a market last completed a poll cycle. Both fields
// are null until the first successful ingest.
type MarketStatus struct {
	LastUpdateTimestamp *int64  `json:"last_update_timestamp"`
	LastUpdateDatetime  *string `json:"last_update_datetime"`
}

// LastUpdated carries staleness metadata for both markets.
type LastUpdated struct {
	AuctionHouse MarketStatus `json:"auction_house"`
	Bazaar       MarketStatus `json:"bazaar"`
}

// ChestResult is the aggregate valuation of a chest.
type ChestResult struct {
	Items       []ItemValue `json:"items"`
	Summary     Summary     `json:"summary"`
	LastUpdated LastUpdated `json:"last_updated"`
}

// Engine answers valuation queries against the injected snapshot stores.
// It is a pure reader; all methods are safe for concurrent use.
type Engine struct {
	auctions *store.AuctionStore
	bazaar   *store.BazaarStore
	velocity *store.VelocityEstimator
}

func NewEngine(auctions *store.AuctionStore, bazaar *store.BazaarStore, velocity *store.VelocityEstimator) *Engine {
	return &Engine{auctions: auctions, bazaar: bazaar, velocity: velocity}
}

// ItemValue values one item stack against both markets. An item found in
// neither market comes back with a nil BestPrice and zero total, not an
// error. The best price is whichever market pays the seller more; the
// auction house wins ties.
func (e *Engine) ItemValue(itemName string, quantity int) (*ItemValue, error) {
	if quantity <= 0 {
		quantity = 1
	}
	result := &ItemValue{
		ItemName:    itemName,
		Quantity:    quantity,
		FoundIn:     []string{},
		SalesPerDay: NoSalesData,
	}

	listing, err := e.auctions.LowestBIN(itemName)
	if err != nil {
		return nil, err
	}
	if listing != nil {
		result.FoundIn = append(result.FoundIn, "auction_house")
		result.AuctionHouse = &AuctionQuote{
			LowestBIN: listing.Price,
			Tier:      listing.Tier,
			Total:     listing.Price * int64(quantity),
		}
		stats, err := e.velocity.SalesPerDay(listing.ItemName, velocityWindowDays)
		if err != nil {
			return nil, err
		}
		if stats != nil {
			result.SalesPerDay = round2(stats.DailySales)
		}
	}

	quote, err := e.bazaar.Quote(itemName)
	if err != nil {
		return nil, err
	}
	if quote != nil {
		result.FoundIn = append(result.FoundIn, "bazaar")
		// Upstream naming: buy_price is the insta-sell side, sell_price the
		// insta-buy side.
		result.Bazaar = &BazaarQuote{
			InstaSellPrice: quote.BuyPrice,
			InstaBuyPrice:  quote.SellPrice,
			Total:          quote.BuyPrice * float64(quantity),
		}
		// A bazaar presence always yields a velocity signal, even a zero one:
		// zero moving-week volume is a measured "nothing traded", not missing
		// data.
		if result.SalesPerDay == NoSalesData {
			result.SalesPerDay = round2(float64(quote.BuyMovingWeek) / 7)
		}
	}

	switch {
	case result.AuctionHouse != nil && result.Bazaar != nil:
		ah := float64(result.AuctionHouse.LowestBIN)
		bz := result.Bazaar.InstaSellPrice
		if ah >= bz {
			result.BestPrice = &ah
			result.Market = "auction_house"
		} else {
			result.BestPrice = &bz
			result.Market = "bazaar"
		}
	case result.AuctionHouse != nil:
		ah := float64(result.AuctionHouse.LowestBIN)
		result.BestPrice = &ah
		result.Market = "auction_house"
	case result.Bazaar != nil:
		bz := result.Bazaar.InstaSellPrice
		result.BestPrice = &bz
		result.Market = "bazaar"
	}
	if result.BestPrice != nil {
		result.TotalValue = *result.BestPrice * float64(quantity)
	}
	return result, nil
}

// ChestValue values a list of item stacks and totals them. Items with an
// empty name are skipped entirely; items that resolve in neither market count
// toward items_not_found with zero value. When chestCost is given the summary
// also carries profit, a profitability flag and ROI (reported as 0 for a free
// chest rather than dividing by zero).
func (e *Engine) ChestValue(items []ChestItem, chestCost *float64) (*ChestResult, error) {
	lastUpdated, err := e.LastUpdateTimes()
	if err != nil {
		return nil, err
	}

	result := &ChestResult{
		Items: []ItemValue{},
		Summary: Summary{
			TotalItems: len(items),
			ChestCost:  chestCost,
		},
		LastUpdated: *lastUpdated,
	}

	for _, item := range items {
		if item.Name == "" {
			continue
		}
		value, err := e.ItemValue(item.Name, item.Quantity)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, *value)
		if value.BestPrice != nil {
			result.Summary.ItemsFound++
			result.Summary.TotalValue += value.TotalValue
		} else {
			result.Summary.ItemsNotFound++
		}
	}

	if chestCost != nil {
		profit := result.Summary.TotalValue - *chestCost
		profitable := profit > 0
		roi := 0.0
		if *chestCost > 0 {
			roi = profit / *chestCost * 100
		}
		result.Summary.Profit = &profit
		result.Summary.IsProfitable = &profitable
		result.Summary.ROIPercent = &roi
	}
	return result, nil
}

// LastUpdateTimes reports per-market staleness metadata.
func (e *Engine) LastUpdateTimes() (*LastUpdated, error) {
	ah, err := e.auctions.LastUpdate()
	if err != nil {
		return nil, err
	}
	bz, err := e.bazaar.LastUpdate()
	if err != nil {
		return nil, err
	}
	return &LastUpdated{
		AuctionHouse: marketStatus(ah),
		Bazaar:       marketStatus(bz),
	}, nil
}

func marketStatus(ts *int64) MarketStatus {
	status := MarketStatus{LastUpdateTimestamp: ts}
	if ts != nil {
		formatted := time.UnixMilli(*ts).Format(time.RFC3339)
		status.LastUpdateDatetime = &formatted
	}
	return status
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
