// Package aggregator collects market data from the upstream provider and
// turns it into the cached stock universe and market snapshots.
package aggregator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"marketpulse/models"
	"marketpulse/services/marketdata"
)

// MajorIndices are the ETF / index symbols captured on every snapshot.
var MajorIndices = []string{"SPY", "QQQ", "DIA", "^VIX"}

// WatchList is the fixed universe of stocks refreshed on every cycle.
var WatchList = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA",
	"META", "TSLA", "BRK-B", "JPM", "V",
	"UNH", "JNJ", "WMT", "XOM", "MA",
	"PG", "HD", "CVX", "ABBV", "PFE",
}

const defaultProfileWorkers = 5

// StockWriter is the slice of the stock store the aggregator needs.
type StockWriter interface {
	UpsertBatch(ctx context.Context, stocks []models.Stock) error
}

// SnapshotWriter is the slice of the snapshot store the aggregator needs.
type SnapshotWriter interface {
	Create(ctx context.Context, snap *models.MarketSnapshot) (uint, error)
}

// Aggregator runs the collection cycle: index quotes, sector performance
// and the watch-list refresh, each phase independent of the others.
type Aggregator struct {
	client         marketdata.Client
	stocks         StockWriter
	snapshots      SnapshotWriter
	market         *time.Location
	profileWorkers int
}

// New creates an aggregator. Market-hours derivation uses US eastern
// time; if the zone database is unavailable it falls back to UTC.
func New(client marketdata.Client, stocks StockWriter, snapshots SnapshotWriter) *Aggregator {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		log.Printf("Warning: failed to load America/New_York timezone, using UTC: %v", err)
		loc = time.UTC
	}
	return &Aggregator{
		client:         client,
		stocks:         stocks,
		snapshots:      snapshots,
		market:         loc,
		profileWorkers: defaultProfileWorkers,
	}
}

// Collect runs one collection cycle and returns the resulting snapshot.
// A failed index or sector phase is logged and leaves the corresponding
// snapshot fields empty; a failed stock-cache write fails the cycle.
func (a *Aggregator) Collect(ctx context.Context) (*models.MarketSnapshot, error) {
	now := time.Now().In(a.market)
	snap := &models.MarketSnapshot{
		Timestamp:    now.UTC(),
		MarketStatus: marketStatus(now),
	}

	a.collectIndices(ctx, snap)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("collection cancelled: %w", err)
	}

	a.collectSectors(ctx, snap)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("collection cancelled: %w", err)
	}

	count, err := a.collectWatchList(ctx)
	if err != nil {
		return nil, err
	}
	snap.TotalStocks = count

	return snap, nil
}

// Persist writes the snapshot atomically and returns its ID.
func (a *Aggregator) Persist(ctx context.Context, snap *models.MarketSnapshot) (uint, error) {
	return a.snapshots.Create(ctx, snap)
}

func (a *Aggregator) collectIndices(ctx context.Context, snap *models.MarketSnapshot) {
	quotes, err := a.client.GetQuotes(ctx, MajorIndices)
	if err != nil {
		log.Printf("Warning: failed to fetch index quotes: %v", err)
		return
	}

	if q, ok := quotes["SPY"]; ok {
		snap.SpyPrice = decimal.NewNullDecimal(decimal.NewFromFloat(q.Price))
	}
	if q, ok := quotes["QQQ"]; ok {
		snap.QqqPrice = decimal.NewNullDecimal(decimal.NewFromFloat(q.Price))
	}
	if q, ok := quotes["DIA"]; ok {
		snap.DiaPrice = decimal.NewNullDecimal(decimal.NewFromFloat(q.Price))
	}
	if q, ok := quotes["^VIX"]; ok {
		snap.VixLevel = decimal.NewNullDecimal(decimal.NewFromFloat(q.Price))
	}
}

func (a *Aggregator) collectSectors(ctx context.Context, snap *models.MarketSnapshot) {
	changes, err := a.client.GetSectorPerformance(ctx)
	if err != nil {
		log.Printf("Warning: failed to fetch sector performance: %v", err)
		return
	}

	seen := make(map[string]bool, len(changes))
	for _, c := range changes {
		if c.Sector == "" || seen[c.Sector] {
			continue
		}
		seen[c.Sector] = true
		snap.Sectors = append(snap.Sectors, models.SectorPerformance{
			Sector:        c.Sector,
			ChangePercent: parseChangePercent(c.ChangesPercentage),
		})
	}
}

// collectWatchList fetches the watch list in one batched quote call,
// enriches each stock with its company profile, then upserts the batch.
// Enrichment is best effort; the cache write is not.
func (a *Aggregator) collectWatchList(ctx context.Context) (int, error) {
	quotes, err := a.client.GetQuotes(ctx, WatchList)
	if err != nil {
		log.Printf("Warning: failed to fetch watch list quotes: %v", err)
		return 0, nil
	}

	now := time.Now().UTC()
	stocks := make([]models.Stock, 0, len(WatchList))
	for _, symbol := range WatchList {
		q, ok := quotes[strings.ToUpper(symbol)]
		if !ok {
			continue
		}
		stock := models.Stock{
			Symbol:           strings.ToUpper(symbol),
			Name:             q.Name,
			Price:            decimal.NewFromFloat(q.Price),
			DayChange:        decimal.NewFromFloat(q.Change),
			DayChangePercent: decimal.NewFromFloat(q.ChangesPercentage),
			Volume:           q.Volume,
			MarketCap:        decimal.NewFromFloat(q.MarketCap),
			LastUpdated:      now,
		}
		if q.PE != nil {
			stock.PERatio = decimal.NewFromFloat(*q.PE)
		}
		stocks = append(stocks, stock)
	}

	a.enrichProfiles(ctx, stocks)

	if err := a.stocks.UpsertBatch(ctx, stocks); err != nil {
		return 0, fmt.Errorf("persist watch list: %w", err)
	}
	return len(stocks), nil
}

// enrichProfiles fills sector and industry from company profiles, a few
// at a time. Each worker writes only its own slice index.
func (a *Aggregator) enrichProfiles(ctx context.Context, stocks []models.Stock) {
	sem := make(chan struct{}, a.profileWorkers)
	var wg sync.WaitGroup

	for i := range stocks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			profile, err := a.client.GetCompanyProfile(ctx, stocks[i].Symbol)
			if err != nil {
				log.Printf("Warning: failed to fetch profile for %s: %v", stocks[i].Symbol, err)
				return
			}
			if profile == nil {
				return
			}
			stocks[i].Sector = profile.Sector
			stocks[i].Industry = profile.Industry
			if profile.CompanyName != "" {
				stocks[i].Name = profile.CompanyName
			}
		}(i)
	}

	wg.Wait()
}

// parseChangePercent parses upstream sector change strings such as
// "1.25%" or "+0.5". Anything unparseable counts as zero change.
func parseChangePercent(raw string) decimal.Decimal {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimSuffix(cleaned, "%")
	cleaned = strings.TrimPrefix(cleaned, "+")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// marketStatus derives the exchange session label for t, which must be
// in market-local time. Regular hours run 09:30 through 16:00 inclusive.
func marketStatus(t time.Time) string {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return models.MarketStatusClosedWeekend
	}

	minutes := t.Hour()*60 + t.Minute()
	switch {
	case minutes < 9*60+30:
		return models.MarketStatusPreMarket
	case minutes <= 16*60:
		return models.MarketStatusOpen
	default:
		return models.MarketStatusAfterHours
	}
}
