package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Stock is the current-state cache of one watched symbol. Rows are
// overwritten whole on every collection cycle; no history is kept here.
type Stock struct {
	Symbol           string          `gorm:"primaryKey;size:12" json:"symbol"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `gorm:"type:decimal(15,2)" json:"price"`
	DayChange        decimal.Decimal `gorm:"type:decimal(15,2)" json:"day_change"`
	DayChangePercent decimal.Decimal `gorm:"type:decimal(10,4)" json:"day_change_percent"`
	Volume           int64           `json:"volume"`
	MarketCap        decimal.Decimal `gorm:"type:decimal(20,2)" json:"market_cap"`
	PERatio          decimal.Decimal `gorm:"type:decimal(10,4)" json:"pe_ratio"`
	Sector           string          `gorm:"index" json:"sector"`
	Industry         string          `json:"industry"`
	LastUpdated      time.Time       `json:"last_updated"`
}

// MarketSnapshot is one point-in-time capture of the market: benchmark
// index prices, volatility level, market status and the sector breakdown
// collected in that cycle. Append-only; never mutated after creation.
type MarketSnapshot struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	Timestamp    time.Time           `gorm:"index" json:"timestamp"`
	SpyPrice     decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"spy_price"`
	QqqPrice     decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"qqq_price"`
	DiaPrice     decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"dia_price"`
	VixLevel     decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"vix_level"`
	MarketStatus string              `json:"market_status"`
	TotalStocks  int                 `json:"total_stocks"`
	Sectors      []SectorPerformance `gorm:"foreignKey:SnapshotID" json:"sectors,omitempty"`
}

// SectorPerformance is one sector's percent change inside a snapshot.
// One row per (snapshot, sector) pair; written in the same transaction
// as its parent and never created independently.
type SectorPerformance struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	SnapshotID    uint            `gorm:"uniqueIndex:idx_snapshot_sector" json:"snapshot_id"`
	Sector        string          `gorm:"uniqueIndex:idx_snapshot_sector" json:"sector"`
	ChangePercent decimal.Decimal `gorm:"type:decimal(10,4)" json:"change_percent"`
}

// Market status labels written into MarketSnapshot.MarketStatus.
const (
	MarketStatusOpen          = "Open"
	MarketStatusPreMarket     = "Pre-Market"
	MarketStatusAfterHours    = "After-Hours"
	MarketStatusClosedWeekend = "Closed (Weekend)"
)

// MigrateMarketModels runs database migrations for the market tables
func MigrateMarketModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&Stock{},
		&MarketSnapshot{},
		&SectorPerformance{},
	)
}
