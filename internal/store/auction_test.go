package store

import (
	"fmt"
	"testing"

	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func binAuction(uuid, itemName string, price int64) models.Auction {
	return models.Auction{
		UUID:        uuid,
		ItemName:    itemName,
		Tier:        "RARE",
		StartingBid: price,
		BIN:         true,
	}
}

func TestIngestRejectsEmptyPoll(t *testing.T) {
	s := NewAuctionStore(newTestDB(t))

	_, err := s.Ingest(1000, []models.Auction{binAuction("a1", "Aspect of the End", 100)})
	require.NoError(t, err)

	_, err = s.Ingest(2000, nil)
	assert.ErrorIs(t, err, ErrEmptyPoll)

	// Prior snapshot untouched.
	listing, err := s.LowestBIN("Aspect of the End")
	require.NoError(t, err)
	require.NotNil(t, listing)
	assert.Equal(t, "a1", listing.UUID)
}

func TestSaleDetection(t *testing.T) {
	s := NewAuctionStore(newTestDB(t))

	auction := binAuction("gone-bin", "Necron's Handle", 5000)
	pureAuction := models.Auction{UUID: "gone-auction", ItemName: "Necron's Handle", StartingBid: 10, BIN: false}
	claimed := models.Auction{UUID: "gone-claimed", ItemName: "Necron's Handle", StartingBid: 20, BIN: true, Claimed: true}
	surviving := binAuction("stays", "Wither Catalyst", 300)

	_, err := s.Ingest(1000, []models.Auction{auction, pureAuction, claimed, surviving})
	require.NoError(t, err)

	sold, err := s.Ingest(2000, []models.Auction{surviving})
	require.NoError(t, err)
	assert.Equal(t, 1, sold)

	var sales []models.AuctionSale
	require.NoError(t, s.db.Find(&sales).Error)
	require.Len(t, sales, 1)
	assert.Equal(t, "gone-bin", sales[0].UUID)
	assert.Equal(t, "Necron's Handle", sales[0].ItemName)
	assert.Equal(t, int64(5000), sales[0].Price)
	assert.Equal(t, int64(1000), sales[0].FirstSeen)
	assert.Equal(t, int64(1000), sales[0].LastSeen)
	assert.Equal(t, int64(2000), sales[0].SoldTimestamp)
}

func TestSaleRedetectionOverwrites(t *testing.T) {
	s := NewAuctionStore(newTestDB(t))

	a := binAuction("a1", "Spirit Wing", 777)
	other := binAuction("a2", "Spirit Bone", 50)

	_, err := s.Ingest(1000, []models.Auction{a, other})
	require.NoError(t, err)
	_, err = s.Ingest(2000, []models.Auction{other})
	require.NoError(t, err)

	// The listing reappears (e.g. upstream hiccup) and vanishes again.
	_, err = s.Ingest(3000, []models.Auction{a, other})
	require.NoError(t, err)
	_, err = s.Ingest(4000, []models.Auction{other})
	require.NoError(t, err)

	var sales []models.AuctionSale
	require.NoError(t, s.db.Where("uuid = ?", "a1").Find(&sales).Error)
	require.Len(t, sales, 1)
	assert.Equal(t, int64(4000), sales[0].SoldTimestamp)
	assert.Equal(t, int64(3000), sales[0].FirstSeen)
}

func TestRoundTripIdenticalPoll(t *testing.T) {
	s := NewAuctionStore(newTestDB(t))

	poll := []models.Auction{
		binAuction("a1", "Premium Flesh", 100),
		binAuction("a2", "Premium Flesh", 120),
	}
	_, err := s.Ingest(1000, poll)
	require.NoError(t, err)

	sold, err := s.Ingest(2000, []models.Auction{
		binAuction("a1", "Premium Flesh", 100),
		binAuction("a2", "Premium Flesh", 120),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, sold)

	var count int64
	require.NoError(t, s.db.Model(&models.Auction{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	var saleCount int64
	require.NoError(t, s.db.Model(&models.AuctionSale{}).Count(&saleCount).Error)
	assert.Equal(t, int64(0), saleCount)
}

func TestIngestFailureLeavesSnapshotIntact(t *testing.T) {
	s := NewAuctionStore(newTestDB(t))

	_, err := s.Ingest(1000, []models.Auction{binAuction("a1", "Wither Catalyst", 300)})
	require.NoError(t, err)

	// Duplicate primary key inside one poll forces the insert to fail; the
	// whole ingest must roll back.
	_, err = s.Ingest(2000, []models.Auction{
		binAuction("dup", "Spirit Wing", 10),
		binAuction("dup", "Spirit Wing", 20),
	})
	require.Error(t, err)

	var rows []models.Auction
	require.NoError(t, s.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "a1", rows[0].UUID)
	assert.Equal(t, int64(1000), rows[0].FetchTimestamp)

	var saleCount int64
	require.NoError(t, s.db.Model(&models.AuctionSale{}).Count(&saleCount).Error)
	assert.Equal(t, int64(0), saleCount)
}

func TestConcurrentReaderSeesWholeSnapshots(t *testing.T) {
	s := NewAuctionStore(newTestDB(t))

	const pollSize = 1500
	makePoll := func() []models.Auction {
		poll := make([]models.Auction, 0, pollSize)
		for i := 0; i < pollSize; i++ {
			poll = append(poll, binAuction(fmt.Sprintf("u%d", i), "Warped Stone", 10))
		}
		return poll
	}

	_, err := s.Ingest(1000, makePoll())
	require.NoError(t, err)

	// Replace the snapshot several times in the background while reads keep
	// hitting the table.
	done := make(chan struct{})
	var ingestErr error
	go func() {
		defer close(done)
		for ts := int64(2000); ts <= 6000; ts += 1000 {
			if _, err := s.Ingest(ts, makePoll()); err != nil {
				ingestErr = err
				return
			}
		}
	}()

	// Every successful scan must observe exactly one complete snapshot:
	// a single fetch timestamp and the full row count, never the cleared or
	// half-inserted state inside an in-flight replace. Reads that lose the
	// lock race return an error and are retried.
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}

		var groups []struct {
			FetchTimestamp int64
			N              int64
		}
		err := s.db.Model(&models.Auction{}).
			Select("fetch_timestamp, COUNT(*) AS n").
			Group("fetch_timestamp").
			Scan(&groups).Error
		if err != nil {
			continue
		}
		require.Len(t, groups, 1)
		require.Equal(t, int64(pollSize), groups[0].N)
	}
	require.NoError(t, ingestErr)

	var stamps []int64
	require.NoError(t, s.db.Model(&models.Auction{}).
		Distinct("fetch_timestamp").
		Pluck("fetch_timestamp", &stamps).Error)
	require.Equal(t, []int64{6000}, stamps)
}

func TestLowestBINOrderingAndFilters(t *testing.T) {
	s := NewAuctionStore(newTestDB(t))

	_, err := s.Ingest(1000, []models.Auction{
		binAuction("b2", "Aspect of the End", 150),
		binAuction("b1", "Aspect of the End", 150),
		binAuction("b3", "Aspect of the End", 90),
		{UUID: "b4", ItemName: "Aspect of the End", StartingBid: 5, BIN: false},
		{UUID: "b5", ItemName: "Aspect of the End", StartingBid: 1, BIN: true, Claimed: true},
	})
	require.NoError(t, err)

	listing, err := s.LowestBIN("Aspect of the End")
	require.NoError(t, err)
	require.NotNil(t, listing)
	assert.Equal(t, int64(90), listing.Price)
	assert.Equal(t, "b3", listing.UUID)
}

func TestLowestBINNameFallbacks(t *testing.T) {
	s := NewAuctionStore(newTestDB(t))

	_, err := s.Ingest(1000, []models.Auction{
		binAuction("d1", "Enchanted Diamond", 88),
	})
	require.NoError(t, err)

	// Underscore key resolves through the spaced, case-insensitive variant.
	listing, err := s.LowestBIN("ENCHANTED_DIAMOND")
	require.NoError(t, err)
	require.NotNil(t, listing)
	assert.Equal(t, "Enchanted Diamond", listing.ItemName)

	// Plain case-insensitive match.
	listing, err = s.LowestBIN("enchanted diamond")
	require.NoError(t, err)
	require.NotNil(t, listing)
	assert.Equal(t, int64(88), listing.Price)
}

func TestLowestBINEnchantmentKeyKeepsUnderscores(t *testing.T) {
	s := NewAuctionStore(newTestDB(t))

	_, err := s.Ingest(1000, []models.Auction{
		binAuction("e1", "ENCHANTMENT ULTIMATE WISE 5", 999),
	})
	require.NoError(t, err)

	// The sentinel prefix forbids separator conversion, so the spaced row
	// must not be reachable from the underscore key.
	listing, err := s.LowestBIN("ENCHANTMENT_ULTIMATE_WISE_5")
	require.NoError(t, err)
	assert.Nil(t, listing)
}

func TestCheapestListings(t *testing.T) {
	s := NewAuctionStore(newTestDB(t))

	_, err := s.Ingest(1000, []models.Auction{
		binAuction("c1", "Spirit Bone", 300),
		binAuction("c2", "Spirit Bone", 100),
		binAuction("c3", "Spirit Bone", 200),
		binAuction("c4", "Spirit Wing", 1),
	})
	require.NoError(t, err)

	listings, err := s.CheapestListings("Spirit Bone", 2)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, int64(100), listings[0].Price)
	assert.Equal(t, int64(200), listings[1].Price)

	none, err := s.CheapestListings("No Such Item", 5)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestAllItemsAndSearch(t *testing.T) {
	s := NewAuctionStore(newTestDB(t))

	_, err := s.Ingest(1000, []models.Auction{
		binAuction("s1", "Warped Aspect of the Void", 500),
		binAuction("s2", "Warped Aspect of the Void", 400),
		binAuction("s3", "Aspect of the End", 90),
	})
	require.NoError(t, err)

	items, err := s.AllItems()
	require.NoError(t, err)
	require.Len(t, items, 2)

	results, err := s.Search("aspect")
	require.NoError(t, err)
	require.Len(t, results, 2)
	// Cheapest first.
	assert.Equal(t, "Aspect of the End", results[0].ItemName)
	assert.Equal(t, int64(90), results[0].LowestBIN)
	assert.Equal(t, int64(400), results[1].LowestBIN)
	assert.Equal(t, int64(2), results[1].AvailableCount)
}

func TestHistoryAppendOnly(t *testing.T) {
	s := NewAuctionStore(newTestDB(t))

	bin := binAuction("h1", "Wither Catalyst", 300)
	auction := models.Auction{UUID: "h2", ItemName: "Wither Catalyst", StartingBid: 10, BIN: false}

	_, err := s.Ingest(1000, []models.Auction{bin, auction})
	require.NoError(t, err)
	_, err = s.Ingest(2000, []models.Auction{bin, auction})
	require.NoError(t, err)

	var history []models.AuctionHistory
	require.NoError(t, s.db.Order("fetch_timestamp").Find(&history).Error)
	require.Len(t, history, 2)
	assert.Equal(t, int64(1000), history[0].FetchTimestamp)
	assert.Equal(t, int64(2000), history[1].FetchTimestamp)
	for _, row := range history {
		assert.Equal(t, "h1", row.UUID)
	}
}

func TestLastUpdate(t *testing.T) {
	s := NewAuctionStore(newTestDB(t))

	ts, err := s.LastUpdate()
	require.NoError(t, err)
	assert.Nil(t, ts)

	require.NoError(t, s.LogUpdate(120, 90000, 0))
	ts, err = s.LastUpdate()
	require.NoError(t, err)
	require.NotNil(t, ts)
	assert.Greater(t, *ts, int64(0))
}
