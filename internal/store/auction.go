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

// ErrEmptyPoll is returned when an ingest is attempted with no records.
// The previous snapshot is kept untouched in that case.
var ErrEmptyPoll = errors.New("store: refusing to ingest empty poll")

// AuctionStore maintains the current auction house snapshot plus the derived
// sale events and the BIN audit history. Each poll replaces the snapshot
// wholesale inside one transaction; ingest is serialized so the vanish-diff
// always runs against a fully committed previous snapshot.
type AuctionStore struct {
	db       *gorm.DB
	ingestMu sync.Mutex
	log      *logrus.Entry
}

func NewAuctionStore(db *gorm.DB) *AuctionStore {
	return &AuctionStore{
		db:  db,
		log: logger.WithComponent("auction_store"),
	}
}

// BINListing is the cheapest-offer view of one item on the auction house.
type BINListing struct {
	UUID       string `json:"uuid"`
	ItemName   string `json:"item_name"`
	Price      int64  `json:"price"`
	Tier       string `json:"tier"`
	Auctioneer string `json:"auctioneer"`
	EndTime    int64  `json:"end_time,omitempty"`
}

// ItemSummary groups the current unclaimed BIN listings of one item.
type ItemSummary struct {
	ItemName       string `json:"item_name"`
	LowestBIN      int64  `json:"lowest_bin"`
	Tier           string `json:"tier"`
	AvailableCount int64  `json:"available_count"`
}

// Ingest replaces the current snapshot with the given poll and emits a sale
// event for every BIN, unclaimed auction that was present before and is gone
// now. Sale events carry the previous record's price, tier and first-seen
// timestamp, and the new poll's timestamp as sold time; re-detecting the same
// uuid overwrites rather than duplicates. Returns the number of sales
// detected. An empty poll is rejected without touching any table.
func (s *AuctionStore) Ingest(fetchTimestamp int64, auctions []models.Auction) (int, error) {
	if len(auctions) == 0 {
		return 0, ErrEmptyPoll
	}

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	soldCount := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var previous []models.Auction
		if err := tx.
			Select("uuid", "item_name", "tier", "starting_bid", "fetch_timestamp").
			Where("bin = ? AND claimed = ?", true, false).
			Find(&previous).Error; err != nil {
			return fmt.Errorf("failed to read previous snapshot: %w", err)
		}
		prevByUUID := make(map[string]models.Auction, len(previous))
		for _, a := range previous {
			prevByUUID[a.UUID] = a
		}

		current := make(map[string]struct{}, len(auctions))
		history := make([]models.AuctionHistory, 0, len(auctions))
		for i := range auctions {
			auctions[i].FetchTimestamp = fetchTimestamp
			current[auctions[i].UUID] = struct{}{}
			if auctions[i].BIN && !auctions[i].Claimed {
				history = append(history, models.AuctionHistory{
					UUID:           auctions[i].UUID,
					FetchTimestamp: fetchTimestamp,
					ItemName:       auctions[i].ItemName,
					Tier:           auctions[i].Tier,
					StartingBid:    auctions[i].StartingBid,
					BIN:            auctions[i].BIN,
					Claimed:        auctions[i].Claimed,
					EndTime:        auctions[i].EndTime,
				})
			}
		}

		var sales []models.AuctionSale
		for uuid, prev := range prevByUUID {
			if _, ok := current[uuid]; ok {
				continue
			}
			sales = append(sales, models.AuctionSale{
				UUID:          uuid,
				ItemName:      prev.ItemName,
				Tier:          prev.Tier,
				Price:         prev.StartingBid,
				FirstSeen:     prev.FetchTimestamp,
				LastSeen:      prev.FetchTimestamp,
				SoldTimestamp: fetchTimestamp,
			})
		}

		if err := tx.Exec("DELETE FROM auctions").Error; err != nil {
			return fmt.Errorf("failed to clear snapshot: %w", err)
		}
		if err := tx.CreateInBatches(auctions, 500).Error; err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
		if len(history) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				CreateInBatches(history, 500).Error; err != nil {
				return fmt.Errorf("failed to insert history: %w", err)
			}
		}
		if len(sales) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "uuid"}},
				UpdateAll: true,
			}).CreateInBatches(sales, 500).Error; err != nil {
				return fmt.Errorf("failed to record sales: %w", err)
			}
		}
		soldCount = len(sales)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if soldCount > 0 {
		s.log.WithField("sold", soldCount).Info("detected sold auctions")
	}
	s.log.WithFields(logrus.Fields{
		"auctions": len(auctions),
		"history":  "bin-only",
	}).Debug("snapshot replaced")
	return soldCount, nil
}

// LowestBIN returns the cheapest current unclaimed BIN listing for an item,
// trying each resolver candidate in order. A nil result means the item is not
// listed right now; that is not an error.
func (s *AuctionStore) LowestBIN(itemName string) (*BINListing, error) {
	for _, c := range resolver.Candidates(itemName) {
		var row models.Auction
		q := s.db.Where("bin = ? AND claimed = ?", true, false)
		if c.Fold {
			q = q.Where("LOWER(item_name) = LOWER(?)", c.Key)
		} else {
			q = q.Where("item_name = ?", c.Key)
		}
		err := q.Order("starting_bid ASC, uuid ASC").First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query lowest bin: %w", err)
		}
		return &BINListing{
			UUID:       row.UUID,
			ItemName:   row.ItemName,
			Price:      row.StartingBid,
			Tier:       row.Tier,
			Auctioneer: row.Auctioneer,
		}, nil
	}
	return nil, nil
}

// CheapestListings returns up to limit current BIN listings for an item,
// cheapest first. Name resolution follows the same candidate order as
// LowestBIN.
func (s *AuctionStore) CheapestListings(itemName string, limit int) ([]BINListing, error) {
	if limit <= 0 {
		limit = 10
	}
	for _, c := range resolver.Candidates(itemName) {
		var rows []models.Auction
		q := s.db.Where("bin = ? AND claimed = ?", true, false)
		if c.Fold {
			q = q.Where("LOWER(item_name) = LOWER(?)", c.Key)
		} else {
			q = q.Where("item_name = ?", c.Key)
		}
		if err := q.Order("starting_bid ASC, uuid ASC").Limit(limit).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to query cheapest listings: %w", err)
		}
		if len(rows) == 0 {
			continue
		}
		out := make([]BINListing, 0, len(rows))
		for _, row := range rows {
			out = append(out, BINListing{
				UUID:       row.UUID,
				ItemName:   row.ItemName,
				Price:      row.StartingBid,
				Tier:       row.Tier,
				Auctioneer: row.Auctioneer,
				EndTime:    row.EndTime,
			})
		}
		return out, nil
	}
	return nil, nil
}

// AllItems groups every current unclaimed BIN listing by item name.
func (s *AuctionStore) AllItems() ([]ItemSummary, error) {
	var out []ItemSummary
	err := s.db.Model(&models.Auction{}).
		Select("item_name, MIN(starting_bid) AS lowest_bin, MIN(tier) AS tier, COUNT(*) AS available_count").
		Where("bin = ? AND claimed = ?", true, false).
		Group("item_name").
		Order("item_name").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return out, nil
}

// Search returns per-item summaries for names containing term, cheapest first.
func (s *AuctionStore) Search(term string) ([]ItemSummary, error) {
	var out []ItemSummary
	err := s.db.Model(&models.Auction{}).
		Select("item_name, MIN(starting_bid) AS lowest_bin, MIN(tier) AS tier, COUNT(*) AS available_count").
		Where("bin = ? AND claimed = ? AND LOWER(item_name) LIKE LOWER(?)", true, false, "%"+term+"%").
		Group("item_name").
		Order("lowest_bin ASC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}
	return out, nil
}

// LogUpdate records one completed auction poll cycle.
func (s *AuctionStore) LogUpdate(totalPages, totalAuctions int, duration time.Duration) error {
	return logUpdate(s.db, models.MarketAuctionHouse, totalPages, totalAuctions, duration)
}

// LastUpdate reports the timestamp of the most recent completed poll cycle,
// or nil when no cycle ever finished.
func (s *AuctionStore) LastUpdate() (*int64, error) {
	return lastUpdate(s.db, models.MarketAuctionHouse)
}
