package models

// Auction is one row of the current auction house snapshot. The whole table
// is replaced on every poll, so a row only ever reflects the latest fetch.
type Auction struct {
	UUID           string `json:"uuid" gorm:"primaryKey;size:64"`
	Auctioneer     string `json:"auctioneer" gorm:"size:64"`
	ProfileID      string `json:"profile_id" gorm:"size:64"`
	ItemName       string `json:"item_name" gorm:"index:idx_bin_items"`
	Tier           string `json:"tier"`
	Category       string `json:"category"`
	StartingBid    int64  `json:"starting_bid" gorm:"index:idx_bin_items"`
	HighestBid     int64  `json:"highest_bid_amount"`
	BIN            bool   `json:"bin" gorm:"index:idx_bin_items"`
	StartTime      int64  `json:"start"`
	EndTime        int64  `json:"end"`
	LastUpdated    int64  `json:"last_updated"`
	Claimed        bool   `json:"claimed"`
	FetchTimestamp int64  `json:"fetch_timestamp"`
}

func (Auction) TableName() string { return "auctions" }

// AuctionHistory is an append-only audit row, one per (uuid, fetch) pair,
// kept for BIN auctions only. Written during ingest, never read back here.
type AuctionHistory struct {
	UUID           string `json:"uuid" gorm:"primaryKey;size:64"`
	FetchTimestamp int64  `json:"fetch_timestamp" gorm:"primaryKey;index:idx_history_item_time"`
	ItemName       string `json:"item_name" gorm:"index:idx_history_item_time"`
	Tier           string `json:"tier"`
	StartingBid    int64  `json:"starting_bid"`
	BIN            bool   `json:"bin"`
	Claimed        bool   `json:"claimed"`
	EndTime        int64  `json:"end_time"`
}

func (AuctionHistory) TableName() string { return "auction_history" }

// AuctionSale records a BIN auction that vanished between two polls, which we
// take to mean it sold. One row per auction uuid; re-detection overwrites.
// LastSeen is set equal to FirstSeen at detection time and is not updated.
type AuctionSale struct {
	UUID          string `json:"uuid" gorm:"primaryKey;size:64"`
	ItemName      string `json:"item_name" gorm:"index:idx_sales_item_time"`
	Tier          string `json:"tier"`
	Price         int64  `json:"price"`
	FirstSeen     int64  `json:"first_seen"`
	LastSeen      int64  `json:"last_seen"`
	SoldTimestamp int64  `json:"sold_timestamp" gorm:"index:idx_sales_item_time"`
}

func (AuctionSale) TableName() string { return "auction_sales" }

// BazaarProduct is the current quote for one bazaar product.
// SellPrice is the insta-buy price (lowest resting sell order) and BuyPrice
// the insta-sell price (highest resting buy order), matching upstream naming.
type BazaarProduct struct {
	ProductID      string  `json:"product_id" gorm:"primaryKey;size:128"`
	SellPrice      float64 `json:"sell_price"`
	SellVolume     int64   `json:"sell_volume"`
	SellMovingWeek int64   `json:"sell_moving_week"`
	SellOrders     int64   `json:"sell_orders"`
	BuyPrice       float64 `json:"buy_price"`
	BuyVolume      int64   `json:"buy_volume"`
	BuyMovingWeek  int64   `json:"buy_moving_week"`
	BuyOrders      int64   `json:"buy_orders"`
	Timestamp      int64   `json:"timestamp"`
}

func (BazaarProduct) TableName() string { return "bazaar_current" }

// BazaarProductHistory accumulates one row per (product, poll timestamp).
type BazaarProductHistory struct {
	ProductID      string  `json:"product_id" gorm:"primaryKey;size:128;index:idx_product_timestamp"`
	Timestamp      int64   `json:"timestamp" gorm:"primaryKey;index:idx_product_timestamp"`
	SellPrice      float64 `json:"sell_price"`
	SellVolume     int64   `json:"sell_volume"`
	SellMovingWeek int64   `json:"sell_moving_week"`
	SellOrders     int64   `json:"sell_orders"`
	BuyPrice       float64 `json:"buy_price"`
	BuyVolume      int64   `json:"buy_volume"`
	BuyMovingWeek  int64   `json:"buy_moving_week"`
	BuyOrders      int64   `json:"buy_orders"`
}

func (BazaarProductHistory) TableName() string { return "bazaar_products" }

// Markets recorded in the update log.
const (
	MarketAuctionHouse = "auction_house"
	MarketBazaar       = "bazaar"
)

// UpdateLog records one completed poll cycle per market. Observability only;
// nothing reads it back for correctness.
type UpdateLog struct {
	ID              uint    `json:"id" gorm:"primaryKey"`
	Market          string  `json:"market" gorm:"index;size:32"`
	Timestamp       int64   `json:"timestamp"`
	TotalPages      int     `json:"total_pages"`
	TotalItems      int     `json:"total_items"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (UpdateLog) TableName() string { return "update_log" }
