package domain

// Stats is the headline summary shown above the trade feed.
type Stats struct {
	TotalTrades    int     `json:"totalTrades"`
	TotalVolume    float64 `json:"totalVolume"`
	ActiveMakers   int     `json:"activeMakers"`
	TotalLiquidity float64 `json:"totalLiquidity"`
}
