// Package hypixel wraps the two upstream Skyblock market endpoints: the paged
// auctions listing and the single-shot bazaar quote map.
package hypixel

import (
	"context"
	"fmt"
	"time"

	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/logger"
	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Auction is one listing as the upstream API returns it.
type Auction struct {
	UUID             string `json:"uuid"`
	Auctioneer       string `json:"auctioneer"`
	ProfileID        string `json:"profile_id"`
	ItemName         string `json:"item_name"`
	Tier             string `json:"tier"`
	Category         string `json:"category"`
	StartingBid      int64  `json:"starting_bid"`
	HighestBidAmount int64  `json:"highest_bid_amount"`
	BIN              bool   `json:"bin"`
	Start            int64  `json:"start"`
	End              int64  `json:"end"`
	LastUpdated      int64  `json:"last_updated"`
	Claimed          bool   `json:"claimed"`
}

type auctionsPage struct {
	Success       bool      `json:"success"`
	Page          int       `json:"page"`
	TotalPages    int       `json:"totalPages"`
	TotalAuctions int       `json:"totalAuctions"`
	Auctions      []Auction `json:"auctions"`
}

type quickStatus struct {
	SellPrice      float64 `json:"sellPrice"`
	SellVolume     int64   `json:"sellVolume"`
	SellMovingWeek int64   `json:"sellMovingWeek"`
	SellOrders     int64   `json:"sellOrders"`
	BuyPrice       float64 `json:"buyPrice"`
	BuyVolume      int64   `json:"buyVolume"`
	BuyMovingWeek  int64   `json:"buyMovingWeek"`
	BuyOrders      int64   `json:"buyOrders"`
}

type bazaarResponse struct {
	Success     bool  `json:"success"`
	LastUpdated int64 `json:"lastUpdated"`
	Products    map[string]struct {
		QuickStatus quickStatus `json:"quick_status"`
	} `json:"products"`
}

// AuctionBatch is one complete auctions poll.
type AuctionBatch struct {
	Auctions      []models.Auction
	TotalPages    int
	TotalAuctions int
}

// BazaarBatch is one complete bazaar poll.
type BazaarBatch struct {
	Timestamp int64
	Products  []models.BazaarProduct
}

// Client talks to the upstream API. The auctions endpoint is rate limited,
// so pages are fetched sequentially with a delay in between; a full sweep can
// take minutes and must not hold anything the stores need.
type Client struct {
	http      *resty.Client
	baseURL   string
	pageDelay time.Duration
	log       *logrus.Entry
}

func NewClient(baseURL string, pageDelay time.Duration) *Client {
	http := resty.New()
	http.SetTimeout(10 * time.Second)

	return &Client{
		http:      http,
		baseURL:   baseURL,
		pageDelay: pageDelay,
		log:       logger.WithComponent("hypixel"),
	}
}

func (c *Client) fetchAuctionsPage(ctx context.Context, page int) (*auctionsPage, error) {
	var body auctionsPage
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("page", fmt.Sprintf("%d", page)).
		SetResult(&body).
		Get(c.baseURL + "/auctions")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch auctions page %d: %w", page, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("auctions page %d returned status %d", page, resp.StatusCode())
	}
	if !body.Success {
		return nil, fmt.Errorf("auctions page %d returned success=false", page)
	}
	return &body, nil
}

// FetchAllAuctions sweeps every auctions page. The first page is mandatory
// since it carries the page count; later pages may fail individually and are
// skipped with a warning, yielding a partial but usable poll.
func (c *Client) FetchAllAuctions(ctx context.Context) (*AuctionBatch, error) {
	first, err := c.fetchAuctionsPage(ctx, 0)
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"total_pages":    first.TotalPages,
		"total_auctions": first.TotalAuctions,
	}).Info("starting auction sweep")

	raw := make([]Auction, 0, first.TotalAuctions)
	raw = append(raw, first.Auctions...)

	for page := 1; page < first.TotalPages; page++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pageDelay):
		}

		body, err := c.fetchAuctionsPage(ctx, page)
		if err != nil {
			c.log.WithError(err).WithField("page", page).Warn("skipping failed page")
			continue
		}
		raw = append(raw, body.Auctions...)
	}

	batch := &AuctionBatch{
		Auctions:      make([]models.Auction, 0, len(raw)),
		TotalPages:    first.TotalPages,
		TotalAuctions: first.TotalAuctions,
	}
	for _, a := range raw {
		batch.Auctions = append(batch.Auctions, models.Auction{
			UUID:        a.UUID,
			Auctioneer:  a.Auctioneer,
			ProfileID:   a.ProfileID,
			ItemName:    a.ItemName,
			Tier:        a.Tier,
			Category:    a.Category,
			StartingBid: a.StartingBid,
			HighestBid:  a.HighestBidAmount,
			BIN:         a.BIN,
			StartTime:   a.Start,
			EndTime:     a.End,
			LastUpdated: a.LastUpdated,
			Claimed:     a.Claimed,
		})
	}
	return batch, nil
}

// FetchBazaar fetches the full bazaar quote map. All-or-nothing: any failure
// or a missing success flag aborts the poll.
func (c *Client) FetchBazaar(ctx context.Context) (*BazaarBatch, error) {
	var body bazaarResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get(c.baseURL + "/bazaar")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bazaar: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("bazaar returned status %d", resp.StatusCode())
	}
	if !body.Success {
		return nil, fmt.Errorf("bazaar returned success=false")
	}

	timestamp := body.LastUpdated
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}

	batch := &BazaarBatch{
		Timestamp: timestamp,
		Products:  make([]models.BazaarProduct, 0, len(body.Products)),
	}
	for productID, p := range body.Products {
		batch.Products = append(batch.Products, models.BazaarProduct{
			ProductID:      productID,
			SellPrice:      p.QuickStatus.SellPrice,
			SellVolume:     p.QuickStatus.SellVolume,
			SellMovingWeek: p.QuickStatus.SellMovingWeek,
			SellOrders:     p.QuickStatus.SellOrders,
			BuyPrice:       p.QuickStatus.BuyPrice,
			BuyVolume:      p.QuickStatus.BuyVolume,
			BuyMovingWeek:  p.QuickStatus.BuyMovingWeek,
			BuyOrders:      p.QuickStatus.BuyOrders,
		})
	}
	return batch, nil
}
