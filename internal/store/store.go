// Package store holds the two market snapshot stores and the sales velocity
// estimator. Each store owns its tables and its ingest lock; readers go
// straight to the committed snapshot and never block on an ingest in flight.
package store

import (
	"fmt"
	"time"

	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/models"
	"gorm.io/gorm"
)

func logUpdate(db *gorm.DB, market string, pages, items int, duration time.Duration) error {
	row := models.UpdateLog{
		Market:          market,
		Timestamp:       time.Now().UnixMilli(),
		TotalPages:      pages,
		TotalItems:      items,
		DurationSeconds: duration.Seconds(),
	}
	if err := db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to log update cycle: %w", err)
	}
	return nil
}

func lastUpdate(db *gorm.DB, market string) (*int64, error) {
	var ts *int64
	err := db.Model(&models.UpdateLog{}).
		Where("market = ?", market).
		Select("MAX(timestamp)").
		Scan(&ts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read update log: %w", err)
	}
	return ts, nil
}
