// Package controllers holds the gin HTTP handlers.
package controllers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"marketpulse/models"
	"marketpulse/services/archive"
	"marketpulse/services/store"
)

// collector is the collection pipeline the manual-trigger endpoint runs.
type collector interface {
	Collect(ctx context.Context) (*models.MarketSnapshot, error)
	Persist(ctx context.Context, snap *models.MarketSnapshot) (uint, error)
}

// APIController serves the market-data API.
type APIController struct {
	stocks    *store.StockStore
	snapshots *store.SnapshotStore
	collector collector
	archive   *archive.SnapshotArchive
}

// NewAPIController creates the controller with its backing stores and
// collection pipeline.
func NewAPIController(stocks *store.StockStore, snapshots *store.SnapshotStore, col collector, arc *archive.SnapshotArchive) *APIController {
	return &APIController{
		stocks:    stocks,
		snapshots: snapshots,
		collector: col,
		archive:   arc,
	}
}

// GetIndex lists the available endpoints.
func (ac *APIController) GetIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "marketpulse",
		"endpoints": gin.H{
			"dashboard":    "GET /api/dashboard",
			"stocks":       "GET /api/stocks",
			"presets":      "GET /api/screener/presets",
			"snapshots":    "GET /api/snapshots",
			"collect_data": "POST /api/collect-data",
		},
	})
}

// GetDashboard returns the latest snapshot, the top stocks by volume and
// the size of the stock cache.
func (ac *APIController) GetDashboard(c *gin.Context) {
	snap, err := ac.snapshots.GetLatest(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load latest snapshot"})
		return
	}

	topStocks, err := ac.stocks.TopByVolume(c.Request.Context(), 10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load top stocks"})
		return
	}

	total, err := ac.stocks.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count stocks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"snapshot":     snap,
		"top_stocks":   topStocks,
		"total_stocks": total,
	})
}

// GetStocks runs the screener. Query parameters map onto the screener
// request; ?preset=<id> loads a named preset first, with any explicit
// parameters layered on top.
func (ac *APIController) GetStocks(c *gin.Context) {
	var req models.ScreenerRequest
	if presetID := c.Query("preset"); presetID != "" {
		preset, ok := models.PresetRequest(presetID)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown screener preset: " + presetID})
			return
		}
		req = preset
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid screener parameters: " + err.Error()})
		return
	}

	result, err := ac.stocks.Search(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Screener query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stocks":      result.Stocks,
		"total_count": result.TotalCount,
		"page":        result.Page,
		"page_size":   result.PageSize,
		"total_pages": result.TotalPages,
	})
}

// GetPresets lists the named screener presets.
func (ac *APIController) GetPresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"presets": models.ScreenerPresets()})
}

// GetSnapshots returns recent snapshot headers, newest first. ?count=N
// bounds the result, defaulting to 10.
func (ac *APIController) GetSnapshots(c *gin.Context) {
	count := 10
	if raw := c.Query("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "count must be a positive integer"})
			return
		}
		count = parsed
	}

	snaps, err := ac.snapshots.GetRecent(c.Request.Context(), count)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load snapshots"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"snapshots": snaps, "count": len(snaps)})
}

// CollectData triggers one collection cycle outside the schedule.
func (ac *APIController) CollectData(c *gin.Context) {
	ctx := c.Request.Context()

	snap, err := ac.collector.Collect(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Collection failed: " + err.Error()})
		return
	}

	id, err := ac.collector.Persist(ctx, snap)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to persist snapshot: " + err.Error()})
		return
	}

	if ac.archive.Enabled() {
		if err := ac.archive.ArchiveSnapshot(ctx, snap); err != nil {
			log.Printf("Warning: failed to archive snapshot %d: %v", id, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"snapshot_id":   id,
		"timestamp":     snap.Timestamp,
		"market_status": snap.MarketStatus,
		"spy_price":     snap.SpyPrice,
		"qqq_price":     snap.QqqPrice,
		"dia_price":     snap.DiaPrice,
		"vix_level":     snap.VixLevel,
		"total_stocks":  snap.TotalStocks,
		"sector_count":  len(snap.Sectors),
	})
}
