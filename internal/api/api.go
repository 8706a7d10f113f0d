// Package api exposes the valuation engine and the raw snapshot lookups over
// HTTP. Input validation lives here; the engine and stores only ever see
// well-typed calls and report domain-level not-found, never transport errors.
package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/store"
	"github.com/SlickTorpedo/Dungeons-Profit-Calculator/internal/valuation"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

type Handler struct {
	engine   *valuation.Engine
	auctions *store.AuctionStore
	bazaar   *store.BazaarStore
	velocity *store.VelocityEstimator
}

func SetupRoutes(r *gin.RouterGroup, engine *valuation.Engine, auctions *store.AuctionStore, bazaar *store.BazaarStore, velocity *store.VelocityEstimator) *Handler {
	h := &Handler{
		engine:   engine,
		auctions: auctions,
		bazaar:   bazaar,
		velocity: velocity,
	}

	r.GET("/health", h.Health)
	r.GET("/status", h.Status)
	r.GET("/export", h.ExportReport)

	r.POST("/calculate", h.CalculateChest)
	r.POST("/item", h.ItemValue)
	r.POST("/batch", h.BatchItems)

	auctionsGroup := r.Group("/auctions")
	{
		auctionsGroup.GET("/lowest", h.LowestBIN)
		auctionsGroup.GET("/cheapest", h.CheapestListings)
		auctionsGroup.GET("/items", h.AllItems)
		auctionsGroup.GET("/search", h.SearchAuctions)
		auctionsGroup.GET("/sales", h.SalesPerDay)
		auctionsGroup.GET("/sales/search", h.SalesStatsSearch)
	}

	bazaarGroup := r.Group("/bazaar")
	{
		bazaarGroup.GET("/product", h.BazaarProduct)
		bazaarGroup.GET("/products", h.BazaarProducts)
		bazaarGroup.GET("/search", h.SearchBazaar)
		bazaarGroup.GET("/history", h.BazaarHistory)
	}

	return h
}

func errorResponse(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"error": msg, "status": "error"})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "Chest Calculator API",
	})
}

// Status reports when each market last completed a poll cycle. Null values
// mean the store has never successfully ingested.
func (h *Handler) Status(c *gin.Context) {
	lastUpdated, err := h.engine.LastUpdateTimes()
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"last_updated": lastUpdated,
		"status":       "success",
	})
}

type calculateRequest struct {
	Items     *[]valuation.ChestItem `json:"items"`
	ChestCost *float64               `json:"chest_cost"`
}

type chestResponse struct {
	*valuation.ChestResult
	Status string `json:"status"`
}

// CalculateChest values a chest of items, optionally against an opening cost.
func (h *Handler) CalculateChest(c *gin.Context) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.Items == nil {
		errorResponse(c, http.StatusBadRequest, "missing 'items' field in request")
		return
	}

	result, err := h.engine.ChestValue(*req.Items, req.ChestCost)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, chestResponse{ChestResult: result, Status: "success"})
}

type itemRequest struct {
	Name     *string `json:"name"`
	Quantity int     `json:"quantity"`
}

type itemResponse struct {
	*valuation.ItemValue
	Status string `json:"status"`
}

// ItemValue values a single item stack.
func (h *Handler) ItemValue(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.Name == nil || *req.Name == "" {
		errorResponse(c, http.StatusBadRequest, "missing 'name' field in request")
		return
	}

	result, err := h.engine.ItemValue(*req.Name, req.Quantity)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, itemResponse{ItemValue: result, Status: "success"})
}

type batchRequest struct {
	Items *[]string `json:"items"`
}

// BatchItems values several items at quantity one, without chest totals.
func (h *Handler) BatchItems(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.Items == nil {
		errorResponse(c, http.StatusBadRequest, "missing 'items' field in request")
		return
	}

	results := make([]valuation.ItemValue, 0, len(*req.Items))
	for _, name := range *req.Items {
		value, err := h.engine.ItemValue(name, 1)
		if err != nil {
			errorResponse(c, http.StatusInternalServerError, err.Error())
			return
		}
		results = append(results, *value)
	}
	c.JSON(http.StatusOK, gin.H{
		"results":     results,
		"total_items": len(results),
		"status":      "success",
	})
}

func (h *Handler) LowestBIN(c *gin.Context) {
	item := c.Query("item")
	if item == "" {
		errorResponse(c, http.StatusBadRequest, "missing 'item' query parameter")
		return
	}
	listing, err := h.auctions.LowestBIN(item)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	if listing == nil {
		errorResponse(c, http.StatusNotFound, "item not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": listing, "status": "success"})
}

func (h *Handler) CheapestListings(c *gin.Context) {
	item := c.Query("item")
	if item == "" {
		errorResponse(c, http.StatusBadRequest, "missing 'item' query parameter")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	listings, err := h.auctions.CheapestListings(item, limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"listings": listings,
		"count":    len(listings),
		"status":   "success",
	})
}

func (h *Handler) AllItems(c *gin.Context) {
	items, err := h.auctions.AllItems()
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items), "status": "success"})
}

func (h *Handler) SearchAuctions(c *gin.Context) {
	term := c.Query("q")
	if term == "" {
		errorResponse(c, http.StatusBadRequest, "missing 'q' query parameter")
		return
	}
	items, err := h.auctions.Search(term)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items), "status": "success"})
}

func (h *Handler) SalesPerDay(c *gin.Context) {
	item := c.Query("item")
	if item == "" {
		errorResponse(c, http.StatusBadRequest, "missing 'item' query parameter")
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	stats, err := h.velocity.SalesPerDay(item, days)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	if stats == nil {
		errorResponse(c, http.StatusNotFound, "no recorded sales for item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": stats, "status": "success"})
}

func (h *Handler) SalesStatsSearch(c *gin.Context) {
	term := c.Query("q")
	if term == "" {
		errorResponse(c, http.StatusBadRequest, "missing 'q' query parameter")
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	stats, err := h.velocity.ItemSalesStats(term, days)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": stats, "count": len(stats), "status": "success"})
}

func (h *Handler) BazaarProduct(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		errorResponse(c, http.StatusBadRequest, "missing 'id' query parameter")
		return
	}
	quote, err := h.bazaar.Quote(id)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	if quote == nil {
		errorResponse(c, http.StatusNotFound, "product not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": quote, "status": "success"})
}

func (h *Handler) BazaarProducts(c *gin.Context) {
	products, err := h.bazaar.AllProducts()
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products), "status": "success"})
}

func (h *Handler) SearchBazaar(c *gin.Context) {
	term := c.Query("q")
	if term == "" {
		errorResponse(c, http.StatusBadRequest, "missing 'q' query parameter")
		return
	}
	products, err := h.bazaar.Search(term)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products), "status": "success"})
}

func (h *Handler) BazaarHistory(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		errorResponse(c, http.StatusBadRequest, "missing 'id' query parameter")
		return
	}
	hours, _ := strconv.Atoi(c.DefaultQuery("hours", "24"))

	// Resolve to the canonical product id first so history lookups accept the
	// same name forms as quote lookups.
	quote, err := h.bazaar.Quote(id)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	if quote == nil {
		errorResponse(c, http.StatusNotFound, "product not found")
		return
	}

	history, err := h.bazaar.PriceHistory(quote.ProductID, hours)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product_id": quote.ProductID,
		"history":    history,
		"count":      len(history),
		"status":     "success",
	})
}

// ExportReport streams an xlsx workbook of the current lowest-BIN table.
func (h *Handler) ExportReport(c *gin.Context) {
	items, err := h.auctions.AllItems()
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	headers := []string{"Item", "Lowest BIN", "Tier", "Available"}
	for i, hdr := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, hdr)
	}
	for row, item := range items {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row+2), item.ItemName)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row+2), item.LowestBIN)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row+2), item.Tier)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row+2), item.AvailableCount)
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="market_report.xlsx"`)
	if err := f.Write(c.Writer); err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
	}
}
