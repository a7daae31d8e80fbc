package domain

import "fmt"

// Side is the direction label of a trade. It reflects how the venue
// displayed the trade, not the authoritative on-chain side.
type Side string

// Trade side constants.
const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// Status is the settlement state reported by the venue.
type Status string

// Trade status constants.
const (
	StatusSuccess Status = "Success"
	StatusPending Status = "Pending"
)

// Provenance tags identifying where a record came from.
// Used for debugging and display only, never for correctness.
const (
	SourceScraped  = "scraped"
	SourceUpstream = "upstream"
	SourceDatabase = "database"
	SourceLiveFeed = "livefeed"
	SourceStub     = "stub"
)

// TradeRecord is the canonical normalized unit flowing through the system.
// Records are immutable after normalization; they leave the retained set
// only by falling outside the retention cap.
//
// Price is quoted one-directionally: ADA-denominated units of TokenIn paid
// per single unit of TokenOut.
type TradeRecord struct {
	ID          string `json:"id"`
	TimestampMs int64  `json:"timestamp"`
	Type        Side   `json:"type"`
	TokenIn     string `json:"tokenIn"`
	TokenOut    string `json:"tokenOut"`
	AmountIn    string `json:"inAmount"`  // decimal string, K/M/B suffix allowed
	AmountOut   string `json:"outAmount"` // decimal string, K/M/B suffix allowed
	Price       string `json:"price"`
	Status      Status `json:"status"`
	Venue       string `json:"dex"`
	MakerRef    string `json:"maker"` // opaque, possibly redacted; not a verified address
	Source      string `json:"source"`
}

// Pair renders the ordered token pair the way the frontend displays it.
func (t *TradeRecord) Pair() string {
	return fmt.Sprintf("%s > %s", t.TokenIn, t.TokenOut)
}

// RawTrade is the untyped hand-off shape produced by data source adapters.
// Every field is optional and untrusted; the normalizer decides whether the
// row amounts to a valid TradeRecord or gets dropped.
type RawTrade struct {
	ID          string // source-provided id, may be empty
	Time        string // relative time string ("5m ago") or empty
	TimestampMs int64  // absolute epoch ms if the source provided one, else 0
	Type        string // side indicator
	Pair        string // "ADA > SNEK", "ADA/SNEK", etc.
	AmountIn    string
	AmountOut   string
	Price       string
	Status      string
	Venue       string
	Maker       string
	Text        string // free-form row text for extraction sources
	Source      string // provenance tag
}
