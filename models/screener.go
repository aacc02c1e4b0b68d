package models

// ScreenerRequest describes one filtered/sorted/paginated query over the
// stock cache. Absent bounds impose no constraint. Not persisted.
type ScreenerRequest struct {
	MinPrice     *float64 `form:"min_price" json:"min_price,omitempty"`
	MaxPrice     *float64 `form:"max_price" json:"max_price,omitempty"`
	MinPE        *float64 `form:"min_pe" json:"min_pe,omitempty"`
	MaxPE        *float64 `form:"max_pe" json:"max_pe,omitempty"`
	MinVolume    *int64   `form:"min_volume" json:"min_volume,omitempty"`
	MinMarketCap *float64 `form:"min_market_cap" json:"min_market_cap,omitempty"`
	MaxMarketCap *float64 `form:"max_market_cap" json:"max_market_cap,omitempty"`
	Sector       string   `form:"sector" json:"sector,omitempty"`
	Industry     string   `form:"industry" json:"industry,omitempty"`
	SortBy       string   `form:"sort_by" json:"sort_by"`
	SortDesc     bool     `form:"sort_desc" json:"sort_desc"`
	Page         int      `form:"page" json:"page"`
	PageSize     int      `form:"page_size" json:"page_size"`
}

// Normalize applies page/size floors before the request reaches the store.
func (r *ScreenerRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = 20
	}
	if r.PageSize > 100 {
		r.PageSize = 100
	}
}

// ScreenerResult is one page of matching stocks plus paging metadata.
type ScreenerResult struct {
	Stocks     []Stock `json:"stocks"`
	TotalCount int64   `json:"total_count"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
}

// ScreenerPreset is a named shortcut mapping to a canned request.
type ScreenerPreset struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Request     ScreenerRequest `json:"request"`
}

// ScreenerPresets returns the predefined screener shortcuts.
func ScreenerPresets() []ScreenerPreset {
	return []ScreenerPreset{
		{
			ID:          "value",
			Name:        "Value Stocks",
			Description: "P/E between 5 and 15, market cap $1B+",
			Request: ScreenerRequest{
				MinPE:        floatPtr(5),
				MaxPE:        floatPtr(15),
				MinMarketCap: floatPtr(1_000_000_000),
				SortBy:       "pe_ratio",
			},
		},
		{
			ID:          "tech",
			Name:        "Large Tech",
			Description: "Technology sector, market cap $10B+",
			Request: ScreenerRequest{
				Sector:       "Technology",
				MinMarketCap: floatPtr(10_000_000_000),
				SortBy:       "market_cap",
				SortDesc:     true,
			},
		},
		{
			ID:          "volume",
			Name:        "High Volume",
			Description: "Trading volume 10M+ shares",
			Request: ScreenerRequest{
				MinVolume: int64Ptr(10_000_000),
				SortBy:    "volume",
				SortDesc:  true,
			},
		},
		{
			ID:          "growth",
			Name:        "Growth",
			Description: "Market cap $2B+ with 1M+ volume",
			Request: ScreenerRequest{
				MinMarketCap: floatPtr(2_000_000_000),
				MinVolume:    int64Ptr(1_000_000),
				SortBy:       "market_cap",
				SortDesc:     true,
			},
		},
		{
			ID:          "large-cap",
			Name:        "Mega Cap",
			Description: "Market cap $200B+",
			Request: ScreenerRequest{
				MinMarketCap: floatPtr(200_000_000_000),
				SortBy:       "market_cap",
				SortDesc:     true,
			},
		},
	}
}

// PresetRequest resolves a preset id to its request.
func PresetRequest(id string) (ScreenerRequest, bool) {
	for _, p := range ScreenerPresets() {
		if p.ID == id {
			return p.Request, true
		}
	}
	return ScreenerRequest{}, false
}

func floatPtr(v float64) *float64 { return &v }

func int64Ptr(v int64) *int64 { return &v }
