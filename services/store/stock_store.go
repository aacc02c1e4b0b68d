// Package store persists the stock cache and market snapshots.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketpulse/models"
)

// screenerSortColumns is the allow-list of sortable stock attributes. The
// sort column is always resolved through this map, never taken from caller
// input directly.
var screenerSortColumns = map[string]string{
	"symbol":             "symbol",
	"name":               "name",
	"price":              "price",
	"volume":             "volume",
	"market_cap":         "market_cap",
	"pe_ratio":           "pe_ratio",
	"day_change":         "day_change",
	"day_change_percent": "day_change_percent",
	"last_updated":       "last_updated",
}

const defaultSortColumn = "symbol"

// StockStore is the durable current-state cache of stocks, keyed by symbol.
type StockStore struct {
	db *gorm.DB
}

// NewStockStore creates a stock store backed by db.
func NewStockStore(db *gorm.DB) *StockStore {
	return &StockStore{db: db}
}

// UpsertBatch writes all stocks in one transaction. Each row fully
// replaces the prior row for its symbol; an empty batch is a no-op.
func (s *StockStore) UpsertBatch(ctx context.Context, stocks []models.Stock) error {
	if len(stocks) == 0 {
		return nil
	}

	for i := range stocks {
		stocks[i].Symbol = strings.ToUpper(strings.TrimSpace(stocks[i].Symbol))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}},
			UpdateAll: true,
		}).Create(&stocks).Error
	})
	if err != nil {
		return fmt.Errorf("upsert batch of %d stocks: %w", len(stocks), err)
	}
	return nil
}

// Search runs the screener: predicates built only from bounds present in
// the request, sort resolved through the column allow-list, then count +
// offset/limit pagination.
func (s *StockStore) Search(ctx context.Context, req *models.ScreenerRequest) (*models.ScreenerResult, error) {
	req.Normalize()

	query := s.db.WithContext(ctx).Model(&models.Stock{})

	if req.MinPrice != nil {
		query = query.Where("price >= ?", *req.MinPrice)
	}
	if req.MaxPrice != nil {
		query = query.Where("price <= ?", *req.MaxPrice)
	}
	if req.MinPE != nil {
		query = query.Where("pe_ratio >= ?", *req.MinPE)
	}
	if req.MaxPE != nil {
		query = query.Where("pe_ratio <= ?", *req.MaxPE)
	}
	if req.MinVolume != nil {
		query = query.Where("volume >= ?", *req.MinVolume)
	}
	if req.MinMarketCap != nil {
		query = query.Where("market_cap >= ?", *req.MinMarketCap)
	}
	if req.MaxMarketCap != nil {
		query = query.Where("market_cap <= ?", *req.MaxMarketCap)
	}
	if req.Sector != "" {
		query = query.Where("sector = ?", req.Sector)
	}
	if req.Industry != "" {
		query = query.Where("industry = ?", req.Industry)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count screener matches: %w", err)
	}

	direction := "ASC"
	if req.SortDesc {
		direction = "DESC"
	}
	offset := (req.Page - 1) * req.PageSize

	var stocks []models.Stock
	err := query.
		Order(resolveSortColumn(req.SortBy) + " " + direction).
		Limit(req.PageSize).
		Offset(offset).
		Find(&stocks).Error
	if err != nil {
		return nil, fmt.Errorf("fetch screener page: %w", err)
	}

	totalPages := int((total + int64(req.PageSize) - 1) / int64(req.PageSize))

	return &models.ScreenerResult{
		Stocks:     stocks,
		TotalCount: total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	}, nil
}

// GetAll returns all cached stocks ordered by symbol.
func (s *StockStore) GetAll(ctx context.Context) ([]models.Stock, error) {
	var stocks []models.Stock
	if err := s.db.WithContext(ctx).Order("symbol").Find(&stocks).Error; err != nil {
		return nil, fmt.Errorf("fetch all stocks: %w", err)
	}
	return stocks, nil
}

// GetBySymbol returns one cached stock, or (nil, nil) when absent.
func (s *StockStore) GetBySymbol(ctx context.Context, symbol string) (*models.Stock, error) {
	var stock models.Stock
	err := s.db.WithContext(ctx).
		Where("symbol = ?", strings.ToUpper(strings.TrimSpace(symbol))).
		First(&stock).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch stock %s: %w", symbol, err)
	}
	return &stock, nil
}

// TopByVolume returns the limit highest-volume cached stocks.
func (s *StockStore) TopByVolume(ctx context.Context, limit int) ([]models.Stock, error) {
	if limit < 1 {
		limit = 10
	}
	var stocks []models.Stock
	if err := s.db.WithContext(ctx).Order("volume DESC").Limit(limit).Find(&stocks).Error; err != nil {
		return nil, fmt.Errorf("fetch top stocks by volume: %w", err)
	}
	return stocks, nil
}

// Count returns the number of cached stocks.
func (s *StockStore) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Stock{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count stocks: %w", err)
	}
	return total, nil
}

// resolveSortColumn maps a caller-supplied sort key onto the allow-list,
// falling back to the default column for anything unknown.
func resolveSortColumn(key string) string {
	if col, ok := screenerSortColumns[strings.ToLower(strings.TrimSpace(key))]; ok {
		return col
	}
	return defaultSortColumn
}
