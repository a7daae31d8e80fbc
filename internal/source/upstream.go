package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"dexy/internal/domain"
)

// upstreamTrade mirrors the row shape the upstream trade API exposes. Every
// field is optional; absent values stay zero and the normalizer decides what
// the row is worth.
type upstreamTrade struct {
	ID        string `json:"id"`
	Time      string `json:"time"`
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
	Pair      string `json:"pair"`
	InAmount  string `json:"inAmount"`
	OutAmount string `json:"outAmount"`
	Price     string `json:"price"`
	Status    string `json:"status"`
	Dex       string `json:"dex"`
	Maker     string `json:"maker"`
}

// upstreamResponse allows both a bare array and a {"trades": [...]} wrapper.
type upstreamResponse struct {
	Trades []upstreamTrade `json:"trades"`
}

// UpstreamAPI fetches rows from the upstream trade JSON endpoint.
type UpstreamAPI struct {
	url    string
	client *http.Client
}

// NewUpstreamAPI creates an UpstreamAPI adapter. A non-positive timeout
// defaults to 10s.
func NewUpstreamAPI(url string, timeout time.Duration) *UpstreamAPI {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &UpstreamAPI{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Name implements Source.
func (u *UpstreamAPI) Name() string { return "upstream" }

// Fetch implements Source.
func (u *UpstreamAPI) Fetch(ctx context.Context) ([]domain.RawTrade, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrSourceUnavailable, u.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch %s: status %d", ErrSourceUnavailable, u.url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrSourceUnavailable, u.url, err)
	}

	var items []upstreamTrade
	if err := json.Unmarshal(body, &items); err != nil {
		var wrapped upstreamResponse
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", ErrSourceUnavailable, u.url, err)
		}
		items = wrapped.Trades
	}

	rows := make([]domain.RawTrade, 0, len(items))
	for _, t := range items {
		rows = append(rows, domain.RawTrade{
			ID:          t.ID,
			Time:        t.Time,
			TimestampMs: t.Timestamp,
			Type:        t.Type,
			Pair:        t.Pair,
			AmountIn:    t.InAmount,
			AmountOut:   t.OutAmount,
			Price:       t.Price,
			Status:      t.Status,
			Venue:       t.Dex,
			Maker:       t.Maker,
			Source:      domain.SourceUpstream,
		})
	}

	return rows, nil
}
