package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/logger"
	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/models"
	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/resolver"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BazaarStore maintains the current bazaar quote per product and an unbounded
// quote history. The continuous market has no discrete sold event, so there
// is no diff step here; the moving-week volume is the velocity analog and is
// consumed directly by the valuation engine.
type BazaarStore struct {
	db       *gorm.DB
	ingestMu sync.Mutex
	log      *logrus.Entry
}

func NewBazaarStore(db *gorm.DB) *BazaarStore {
	return &BazaarStore{
		db:  db,
		log: logger.WithComponent("bazaar_store"),
	}
}

// PricePoint is one historical quote sample.
type PricePoint struct {
	Timestamp int64   `json:"timestamp"`
	SellPrice float64 `json:"sell_price"`
	BuyPrice  float64 `json:"buy_price"`
}

// Ingest replaces the current quote table with the given poll and appends
// every quote to the history table, both inside one transaction. An empty
// poll is rejected without touching any table.
func (s *BazaarStore) Ingest(timestamp int64, products []models.BazaarProduct) error {
	if len(products) == 0 {
		return ErrEmptyPoll
	}

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		history := make([]models.BazaarProductHistory, 0, len(products))
		for i := range products {
			products[i].Timestamp = timestamp
			history = append(history, models.BazaarProductHistory{
				ProductID:      products[i].ProductID,
				Timestamp:      timestamp,
				SellPrice:      products[i].SellPrice,
				SellVolume:     products[i].SellVolume,
				SellMovingWeek: products[i].SellMovingWeek,
				SellOrders:     products[i].SellOrders,
				BuyPrice:       products[i].BuyPrice,
				BuyVolume:      products[i].BuyVolume,
				BuyMovingWeek:  products[i].BuyMovingWeek,
				BuyOrders:      products[i].BuyOrders,
			})
		}

		if err := tx.Exec("DELETE FROM bazaar_current").Error; err != nil {
			return fmt.Errorf("failed to clear bazaar snapshot: %w", err)
		}
		if err := tx.CreateInBatches(products, 500).Error; err != nil {
			return fmt.Errorf("failed to insert bazaar snapshot: %w", err)
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			CreateInBatches(history, 500).Error; err != nil {
			return fmt.Errorf("failed to insert bazaar history: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.WithField("products", len(products)).Debug("bazaar snapshot replaced")
	return nil
}

// Quote returns the current quote for a product, trying each resolver
// candidate in order. A nil result means the product is unknown.
func (s *BazaarStore) Quote(productID string) (*models.BazaarProduct, error) {
	for _, c := range resolver.Candidates(productID) {
		var row models.BazaarProduct
		q := s.db.Model(&models.BazaarProduct{})
		if c.Fold {
			q = q.Where("LOWER(product_id) = LOWER(?)", c.Key)
		} else {
			q = q.Where("product_id = ?", c.Key)
		}
		err := q.First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query bazaar quote: %w", err)
		}
		return &row, nil
	}
	return nil, nil
}

// Search returns current quotes whose product id contains term.
func (s *BazaarStore) Search(term string) ([]models.BazaarProduct, error) {
	var out []models.BazaarProduct
	err := s.db.
		Where("LOWER(product_id) LIKE LOWER(?)", "%"+term+"%").
		Order("product_id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search bazaar products: %w", err)
	}
	return out, nil
}

// AllProducts lists every product id in the current snapshot.
func (s *BazaarStore) AllProducts() ([]string, error) {
	var out []string
	err := s.db.Model(&models.BazaarProduct{}).
		Order("product_id").
		Pluck("product_id", &out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list bazaar products: %w", err)
	}
	return out, nil
}

// PriceHistory returns the trailing quote history for a product, oldest
// first. The product id must already be canonical (as returned by Quote).
func (s *BazaarStore) PriceHistory(productID string, hours int) ([]PricePoint, error) {
	if hours <= 0 {
		hours = 24
	}
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour).UnixMilli()

	var out []PricePoint
	err := s.db.Model(&models.BazaarProductHistory{}).
		Select("timestamp, sell_price, buy_price").
		Where("product_id = ? AND timestamp > ?", productID, cutoff).
		Order("timestamp ASC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	return out, nil
}

// LogUpdate records one completed bazaar poll cycle.
func (s *BazaarStore) LogUpdate(totalProducts int, duration time.Duration) error {
	return logUpdate(s.db, models.MarketBazaar, 1, totalProducts, duration)
}

// LastUpdate reports the timestamp of the most recent completed poll cycle,
// or nil when no cycle ever finished.
func (s *BazaarStore) LastUpdate() (*int64, error) {
	return lastUpdate(s.db, models.MarketBazaar)
}
