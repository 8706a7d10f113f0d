package main

import (
	"net/http"
	"time"

	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/api"
	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/config"
	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/database"
	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/logger"
	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/services"
	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/services/hypixel"
	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/store"
	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/valuation"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	envLoaded := godotenv.Load() == nil

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFile)
	log := logger.WithComponent("main")
	if !envLoaded {
		log.Info("no .env file found, using environment defaults")
	}

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}

	auctions := store.NewAuctionStore(db)
	bazaar := store.NewBazaarStore(db)
	velocity := store.NewVelocityEstimator(db)
	engine := valuation.NewEngine(auctions, bazaar, velocity)

	client := hypixel.NewClient(cfg.HypixelAPIURL, time.Duration(cfg.PageDelaySeconds*float64(time.Second)))
	updater := services.NewUpdater(
		client,
		auctions,
		bazaar,
		time.Duration(cfg.FetchIntervalMinutes)*time.Minute,
		time.Duration(cfg.RetryDelaySeconds)*time.Second,
	)
	updater.Start()
	defer updater.Stop()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// API documentation page
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    "Hypixel Skyblock Chest Calculator API",
			"version": "1.0.0",
			"endpoints": gin.H{
				"/api/v1/calculate": "POST: calculate total chest value",
				"/api/v1/item":      "POST: get value for a single item",
				"/api/v1/batch":     "POST: get values for multiple items",
				"/api/v1/status":    "GET: last market update times",
				"/api/v1/health":    "GET: health check",
			},
		})
	})

	apiGroup := r.Group("/api/v1")
	api.SetupRoutes(apiGroup, engine, auctions, bazaar, velocity)

	log.WithField("port", cfg.Port).Info("server starting")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
