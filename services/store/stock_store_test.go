package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"marketpulse/models"
)

func testStock(symbol string, price float64, volume int64) models.Stock {
	return models.Stock{
		Symbol:      symbol,
		Name:        symbol + " Inc.",
		Price:       decimal.NewFromFloat(price),
		Volume:      volume,
		LastUpdated: time.Now().UTC(),
	}
}

func TestUpsertBatchInsertsAndUpdates(t *testing.T) {
	s := NewStockStore(newTestDB(t))
	ctx := context.Background()

	first := []models.Stock{
		testStock("AAPL", 190, 1000),
		testStock("msft", 420, 2000),
	}
	if err := s.UpsertBatch(ctx, first); err != nil {
		t.Fatalf("initial upsert failed: %v", err)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	// Same symbols again with new values: still two rows, values replaced.
	second := []models.Stock{
		testStock("AAPL", 195, 1500),
		testStock("MSFT", 425, 2500),
	}
	if err := s.UpsertBatch(ctx, second); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	count, _ = s.Count(ctx)
	if count != 2 {
		t.Fatalf("count after re-upsert = %d, want 2", count)
	}

	got, err := s.GetBySymbol(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetBySymbol failed: %v", err)
	}
	if got == nil {
		t.Fatal("AAPL not found after upsert")
	}
	if !got.Price.Equal(decimal.NewFromInt(195)) {
		t.Errorf("AAPL price = %s, want 195", got.Price)
	}
	if got.Volume != 1500 {
		t.Errorf("AAPL volume = %d, want 1500", got.Volume)
	}
}

func TestUpsertBatchEmptyIsNoOp(t *testing.T) {
	s := NewStockStore(newTestDB(t))
	if err := s.UpsertBatch(context.Background(), nil); err != nil {
		t.Fatalf("empty upsert should succeed: %v", err)
	}
}

func TestUpsertBatchNormalizesSymbols(t *testing.T) {
	s := NewStockStore(newTestDB(t))
	ctx := context.Background()

	if err := s.UpsertBatch(ctx, []models.Stock{testStock(" nvda ", 880, 100)}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	got, err := s.GetBySymbol(ctx, "nvda")
	if err != nil {
		t.Fatalf("GetBySymbol failed: %v", err)
	}
	if got == nil || got.Symbol != "NVDA" {
		t.Fatalf("got %+v, want symbol NVDA", got)
	}
}

func TestSearchPriceRange(t *testing.T) {
	s := NewStockStore(newTestDB(t))
	ctx := context.Background()

	stocks := []models.Stock{
		testStock("AAA", 10, 100),
		testStock("BBB", 20, 200),
		testStock("CCC", 30, 300),
		testStock("DDD", 40, 400),
	}
	if err := s.UpsertBatch(ctx, stocks); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	min, max := 15.0, 35.0
	result, err := s.Search(ctx, &models.ScreenerRequest{MinPrice: &min, MaxPrice: &max})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if result.TotalCount != 2 {
		t.Errorf("TotalCount = %d, want 2", result.TotalCount)
	}
	if len(result.Stocks) != 2 {
		t.Fatalf("got %d stocks, want 2", len(result.Stocks))
	}
	for _, stock := range result.Stocks {
		if stock.Symbol != "BBB" && stock.Symbol != "CCC" {
			t.Errorf("unexpected match %s", stock.Symbol)
		}
	}
}

func TestSearchSectorFilter(t *testing.T) {
	s := NewStockStore(newTestDB(t))
	ctx := context.Background()

	tech := testStock("AAPL", 190, 100)
	tech.Sector = "Technology"
	energy := testStock("XOM", 110, 200)
	energy.Sector = "Energy"
	if err := s.UpsertBatch(ctx, []models.Stock{tech, energy}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	result, err := s.Search(ctx, &models.ScreenerRequest{Sector: "Technology"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if result.TotalCount != 1 || result.Stocks[0].Symbol != "AAPL" {
		t.Errorf("sector filter returned %+v", result.Stocks)
	}
}

func TestSearchPagination(t *testing.T) {
	s := NewStockStore(newTestDB(t))
	ctx := context.Background()

	var stocks []models.Stock
	for i := 0; i < 25; i++ {
		stocks = append(stocks, testStock(fmt.Sprintf("S%02d", i), float64(i+1), int64(i)))
	}
	if err := s.UpsertBatch(ctx, stocks); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	page1, err := s.Search(ctx, &models.ScreenerRequest{Page: 1, PageSize: 10, SortBy: "symbol"})
	if err != nil {
		t.Fatalf("page 1 failed: %v", err)
	}
	if page1.TotalCount != 25 || page1.TotalPages != 3 {
		t.Errorf("TotalCount=%d TotalPages=%d, want 25 and 3", page1.TotalCount, page1.TotalPages)
	}
	if len(page1.Stocks) != 10 {
		t.Errorf("page 1 has %d stocks, want 10", len(page1.Stocks))
	}
	if page1.Stocks[0].Symbol != "S00" {
		t.Errorf("page 1 starts at %s, want S00", page1.Stocks[0].Symbol)
	}

	page3, err := s.Search(ctx, &models.ScreenerRequest{Page: 3, PageSize: 10, SortBy: "symbol"})
	if err != nil {
		t.Fatalf("page 3 failed: %v", err)
	}
	if len(page3.Stocks) != 5 {
		t.Errorf("page 3 has %d stocks, want 5", len(page3.Stocks))
	}
	if page3.Stocks[0].Symbol != "S20" {
		t.Errorf("page 3 starts at %s, want S20", page3.Stocks[0].Symbol)
	}
}

func TestSearchSortDescending(t *testing.T) {
	s := NewStockStore(newTestDB(t))
	ctx := context.Background()

	if err := s.UpsertBatch(ctx, []models.Stock{
		testStock("LOW", 10, 100),
		testStock("HIGH", 99, 900),
		testStock("MID", 50, 500),
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	result, err := s.Search(ctx, &models.ScreenerRequest{SortBy: "volume", SortDesc: true})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if result.Stocks[0].Symbol != "HIGH" || result.Stocks[2].Symbol != "LOW" {
		t.Errorf("descending volume order wrong: %s, %s, %s",
			result.Stocks[0].Symbol, result.Stocks[1].Symbol, result.Stocks[2].Symbol)
	}
}

func TestSearchUnknownSortKeyFallsBack(t *testing.T) {
	s := NewStockStore(newTestDB(t))
	ctx := context.Background()

	if err := s.UpsertBatch(ctx, []models.Stock{
		testStock("BBB", 20, 200),
		testStock("AAA", 10, 100),
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// "price; DROP TABLE stocks" must never reach the query as SQL.
	result, err := s.Search(ctx, &models.ScreenerRequest{SortBy: "price; DROP TABLE stocks"})
	if err != nil {
		t.Fatalf("Search with unknown sort key failed: %v", err)
	}
	if result.Stocks[0].Symbol != "AAA" {
		t.Errorf("fallback sort did not order by symbol: %+v", result.Stocks)
	}

	if _, err := s.Count(ctx); err != nil {
		t.Fatalf("stocks table unusable after search: %v", err)
	}
}

func TestGetAllOrdersBySymbol(t *testing.T) {
	s := NewStockStore(newTestDB(t))
	ctx := context.Background()

	if err := s.UpsertBatch(ctx, []models.Stock{
		testStock("ZZZ", 1, 1),
		testStock("AAA", 2, 2),
		testStock("MMM", 3, 3),
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d stocks, want 3", len(all))
	}
	if all[0].Symbol != "AAA" || all[2].Symbol != "ZZZ" {
		t.Errorf("not symbol-ordered: %s, %s, %s", all[0].Symbol, all[1].Symbol, all[2].Symbol)
	}
}

func TestGetBySymbolMissing(t *testing.T) {
	s := NewStockStore(newTestDB(t))

	got, err := s.GetBySymbol(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("GetBySymbol failed: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for missing symbol", got)
	}
}

func TestTopByVolume(t *testing.T) {
	s := NewStockStore(newTestDB(t))
	ctx := context.Background()

	if err := s.UpsertBatch(ctx, []models.Stock{
		testStock("A", 1, 300),
		testStock("B", 1, 100),
		testStock("C", 1, 200),
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	top, err := s.TopByVolume(ctx, 2)
	if err != nil {
		t.Fatalf("TopByVolume failed: %v", err)
	}
	if len(top) != 2 || top[0].Symbol != "A" || top[1].Symbol != "C" {
		t.Errorf("unexpected top stocks: %+v", top)
	}
}
