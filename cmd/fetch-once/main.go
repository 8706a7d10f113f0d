// fetch-once runs a single poll of both markets and exits. Useful for cron
// setups where the long-running updater is not wanted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/config"
	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/database"
	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/logger"
	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/services"
	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/services/hypixel"
	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/store"
	"github.com/joho/godotenv"
)

var (
	bazaarOnly   = flag.Bool("bazaar-only", false, "only refresh the bazaar snapshot")
	auctionsOnly = flag.Bool("auctions-only", false, "only refresh the auction snapshot")
	timeout      = flag.Duration("timeout", 15*time.Minute, "overall fetch timeout")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFile)
	log := logger.WithComponent("fetch-once")

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("database initialization failed")
	}

	client := hypixel.NewClient(cfg.HypixelAPIURL, time.Duration(cfg.PageDelaySeconds*float64(time.Second)))
	updater := services.NewUpdater(
		client,
		store.NewAuctionStore(db),
		store.NewBazaarStore(db),
		time.Duration(cfg.FetchIntervalMinutes)*time.Minute,
		time.Duration(cfg.RetryDelaySeconds)*time.Second,
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch {
	case *bazaarOnly && *auctionsOnly:
		fmt.Fprintln(os.Stderr, "at most one of -bazaar-only and -auctions-only may be set")
		os.Exit(2)
	case *bazaarOnly:
		err = updater.UpdateBazaar(ctx)
	case *auctionsOnly:
		err = updater.UpdateAuctions(ctx)
	default:
		err = updater.RunCycle(ctx)
	}
	if err != nil {
		log.WithError(err).Fatal("poll failed")
	}
	log.Info("poll complete")
}
