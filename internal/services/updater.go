// Package services hosts the background poll loop that keeps the snapshot
// stores current.
package services

import (
	"context"
	"sync"
	"time"

	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/logger"
	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/services/hypixel"
	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/store"
	"github.com/sirupsen/logrus"
)

// Updater periodically fetches both markets and ingests them. A failed cycle
// leaves the previous snapshots untouched and is retried after a fixed delay;
// the slow auction sweep happens entirely outside any store lock, so queries
// keep serving the prior snapshot until the final transactional replace.
type Updater struct {
	client   *hypixel.Client
	auctions *store.AuctionStore
	bazaar   *store.BazaarStore

	interval   time.Duration
	retryDelay time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	running bool
	log     *logrus.Entry
}

func NewUpdater(client *hypixel.Client, auctions *store.AuctionStore, bazaar *store.BazaarStore, interval, retryDelay time.Duration) *Updater {
	ctx, cancel := context.WithCancel(context.Background())
	return &Updater{
		client:     client,
		auctions:   auctions,
		bazaar:     bazaar,
		interval:   interval,
		retryDelay: retryDelay,
		ctx:        ctx,
		cancel:     cancel,
		log:        logger.WithComponent("updater"),
	}
}

// Start launches the update loop. Calling Start twice is a no-op.
func (u *Updater) Start() {
	u.mu.Lock()
	if u.running {
		u.mu.Unlock()
		return
	}
	u.running = true
	u.mu.Unlock()

	u.log.WithField("interval", u.interval).Info("starting background updater")
	go u.loop()
}

// Stop cancels the update loop. An in-flight fetch finishes or fails; no
// partially ingested snapshot can result either way.
func (u *Updater) Stop() {
	u.cancel()
}

func (u *Updater) loop() {
	for {
		if err := u.RunCycle(u.ctx); err != nil {
			if u.ctx.Err() != nil {
				u.log.Info("updater stopped")
				return
			}
			u.log.WithError(err).Error("update cycle failed, backing off")
			select {
			case <-u.ctx.Done():
				return
			case <-time.After(u.retryDelay):
			}
			continue
		}

		select {
		case <-u.ctx.Done():
			u.log.Info("updater stopped")
			return
		case <-time.After(u.interval):
		}
	}
}

// RunCycle refreshes both markets once. The bazaar is fetched first because
// it is cheap; the auction sweep can take minutes.
func (u *Updater) RunCycle(ctx context.Context) error {
	if err := u.UpdateBazaar(ctx); err != nil {
		return err
	}
	return u.UpdateAuctions(ctx)
}

// UpdateBazaar fetches and ingests one bazaar poll.
func (u *Updater) UpdateBazaar(ctx context.Context) error {
	start := time.Now()
	batch, err := u.client.FetchBazaar(ctx)
	if err != nil {
		return err
	}
	if err := u.bazaar.Ingest(batch.Timestamp, batch.Products); err != nil {
		return err
	}
	if err := u.bazaar.LogUpdate(len(batch.Products), time.Since(start)); err != nil {
		return err
	}
	u.log.WithFields(logrus.Fields{
		"products": len(batch.Products),
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("bazaar updated")
	return nil
}

// UpdateAuctions sweeps and ingests one auctions poll.
func (u *Updater) UpdateAuctions(ctx context.Context) error {
	start := time.Now()
	batch, err := u.client.FetchAllAuctions(ctx)
	if err != nil {
		return err
	}
	sold, err := u.auctions.Ingest(time.Now().UnixMilli(), batch.Auctions)
	if err != nil {
		return err
	}
	if err := u.auctions.LogUpdate(batch.TotalPages, len(batch.Auctions), time.Since(start)); err != nil {
		return err
	}
	u.log.WithFields(logrus.Fields{
		"auctions": len(batch.Auctions),
		"sold":     sold,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("auction house updated")
	return nil
}
