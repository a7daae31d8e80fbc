package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"dexy/internal/domain"
)

// DefaultRowPattern recognizes one rendered trade row: an optional relative
// time, a side, and two amount+ticker columns. Selector and markup drift is
// an operational concern: when nothing matches anymore the fetch fails as
// unavailable and gets logged, it does not degrade into guesswork.
var DefaultRowPattern = regexp.MustCompile(
	`(?i)(\d+[smhd](?:\s*ago)?)?\s*(Buy|Sell)\s+([\d.,]+[KMB]?)\s*([A-Z]{2,10})\s*(?:>|→|/)?\s*([\d.,]+[KMB]?)\s*([A-Z]{2,10})`)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// ExtractionConfig configures a WebExtraction adapter.
type ExtractionConfig struct {
	URL        string
	Venue      string         // venue label stamped on extracted rows
	RowPattern *regexp.Regexp // defaults to DefaultRowPattern
	Timeout    time.Duration  // defaults to 15s
	MaxRows    int            // defaults to 50
	UserAgent  string
}

// WebExtraction fetches an upstream HTML page and extracts trade-shaped rows
// from its text content.
type WebExtraction struct {
	cfg    ExtractionConfig
	client *http.Client
}

// NewWebExtraction creates a WebExtraction adapter.
func NewWebExtraction(cfg ExtractionConfig) *WebExtraction {
	if cfg.RowPattern == nil {
		cfg.RowPattern = DefaultRowPattern
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 50
	}
	return &WebExtraction{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name implements Source.
func (w *WebExtraction) Name() string { return "webextract" }

// Fetch downloads the page and extracts raw rows. Zero extracted rows means
// the expected structure is gone and the source counts as unavailable.
func (w *WebExtraction) Fetch(ctx context.Context) ([]domain.RawTrade, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrSourceUnavailable, err)
	}
	if w.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", w.cfg.UserAgent)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrSourceUnavailable, w.cfg.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch %s: status %d", ErrSourceUnavailable, w.cfg.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrSourceUnavailable, w.cfg.URL, err)
	}

	rows := w.extract(string(body))
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no trade rows found at %s", ErrSourceUnavailable, w.cfg.URL)
	}

	return rows, nil
}

// extract pulls raw rows out of page HTML. Markup is flattened to text and
// matched against the row pattern; all semantic parsing stays in the
// normalizer.
func (w *WebExtraction) extract(html string) []domain.RawTrade {
	text := tagPattern.ReplaceAllString(html, " ")

	matches := w.cfg.RowPattern.FindAllStringSubmatch(text, w.cfg.MaxRows)
	rows := make([]domain.RawTrade, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, domain.RawTrade{
			Time:      m[1],
			Type:      m[2],
			AmountIn:  fmt.Sprintf("%s %s", m[3], m[4]),
			AmountOut: fmt.Sprintf("%s %s", m[5], m[6]),
			Pair:      fmt.Sprintf("%s > %s", m[4], m[6]),
			Venue:     w.cfg.Venue,
			Text:      m[0],
			Source:    domain.SourceScraped,
		})
	}
	return rows
}
