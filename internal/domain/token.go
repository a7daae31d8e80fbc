package domain

// TokenSummary is derived display data for one token. It is recomputed from
// the current retained trade set plus the static token table; there is no
// persistence guarantee beyond the last write.
type TokenSummary struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Icon      string  `json:"icon"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change24h"`
	Volume24h float64 `json:"volume24h"`
}
