package store

import (
	"fmt"
	"time"

	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/models"
	"gorm.io/gorm"
)

// VelocityEstimator turns the accumulated sale events into a trailing-window
// daily sales rate with price statistics.
type VelocityEstimator struct {
	db *gorm.DB
}

func NewVelocityEstimator(db *gorm.DB) *VelocityEstimator {
	return &VelocityEstimator{db: db}
}

// SalesStats aggregates the sale events of one item over a trailing window.
type SalesStats struct {
	ItemName   string  `json:"item_name"`
	Tier       string  `json:"tier,omitempty"`
	TotalSales int64   `json:"total_sales"`
	DailySales float64 `json:"daily_sales"`
	AvgPrice   float64 `json:"avg_sale_price"`
	MinPrice   int64   `json:"min_sale_price"`
	MaxPrice   int64   `json:"max_sale_price"`
	PeriodDays int     `json:"period_days"`
}

// SalesPerDay aggregates sales of the exact item name over the trailing
// window. A nil result means zero recorded sales, no signal at all, which
// callers must treat differently from a measured rate of zero.
func (e *VelocityEstimator) SalesPerDay(itemName string, days int) (*SalesStats, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().AddDate(0, 0, -days).UnixMilli()

	var agg struct {
		Total int64
		Avg   float64
		Min   int64
		Max   int64
	}
	err := e.db.Model(&models.AuctionSale{}).
		Select("COUNT(*) AS total, COALESCE(AVG(price), 0) AS avg, COALESCE(MIN(price), 0) AS min, COALESCE(MAX(price), 0) AS max").
		Where("item_name = ? AND sold_timestamp >= ?", itemName, cutoff).
		Scan(&agg).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales: %w", err)
	}
	if agg.Total == 0 {
		return nil, nil
	}

	return &SalesStats{
		ItemName:   itemName,
		TotalSales: agg.Total,
		DailySales: float64(agg.Total) / float64(days),
		AvgPrice:   agg.Avg,
		MinPrice:   agg.Min,
		MaxPrice:   agg.Max,
		PeriodDays: days,
	}, nil
}

// ItemSalesStats aggregates sales per (item, tier) for every item whose name
// contains term, most traded first.
func (e *VelocityEstimator) ItemSalesStats(term string, days int) ([]SalesStats, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().AddDate(0, 0, -days).UnixMilli()

	var rows []SalesStats
	err := e.db.Model(&models.AuctionSale{}).
		Select("item_name, tier, COUNT(*) AS total_sales, AVG(price) AS avg_price, MIN(price) AS min_price, MAX(price) AS max_price").
		Where("LOWER(item_name) LIKE LOWER(?) AND sold_timestamp >= ?", "%"+term+"%", cutoff).
		Group("item_name, tier").
		Order("total_sales DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate item sales: %w", err)
	}
	for i := range rows {
		rows[i].DailySales = float64(rows[i].TotalSales) / float64(days)
		rows[i].PeriodDays = days
	}
	return rows, nil
}
