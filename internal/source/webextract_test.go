package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"dexy/internal/domain"
)

const samplePage = `
<html><body>
<table>
<tr><td>5m ago</td><td>Buy</td><td>2.9K ADA</td><td>3.3M SNEK</td></tr>
<tr><td>12m ago</td><td>Sell</td><td>95.7K SNEK</td><td>85 ADA</td></tr>
</table>
</body></html>`

func TestWebExtraction_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	src := NewWebExtraction(ExtractionConfig{URL: srv.URL, Venue: "Minswap"})

	rows, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.Type != "Buy" {
		t.Errorf("Expected Buy, got %s", first.Type)
	}
	if first.AmountIn != "2.9K ADA" || first.AmountOut != "3.3M SNEK" {
		t.Errorf("Unexpected amounts: in=%q out=%q", first.AmountIn, first.AmountOut)
	}
	if first.Pair != "ADA > SNEK" {
		t.Errorf("Expected pair ADA > SNEK, got %q", first.Pair)
	}
	if first.Venue != "Minswap" || first.Source != domain.SourceScraped {
		t.Errorf("Unexpected provenance: venue=%q source=%q", first.Venue, first.Source)
	}

	if rows[1].Type != "Sell" || rows[1].Pair != "SNEK > ADA" {
		t.Errorf("Unexpected second row: %+v", rows[1])
	}
}

func TestWebExtraction_NoRowsIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>maintenance</body></html>"))
	}))
	defer srv.Close()

	src := NewWebExtraction(ExtractionConfig{URL: srv.URL})
	if _, err := src.Fetch(context.Background()); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Expected ErrSourceUnavailable for structure drift, got %v", err)
	}
}

func TestWebExtraction_HTTPErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewWebExtraction(ExtractionConfig{URL: srv.URL})
	if _, err := src.Fetch(context.Background()); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Expected ErrSourceUnavailable for status 502, got %v", err)
	}
}

func TestWebExtraction_MaxRows(t *testing.T) {
	page := ""
	for i := 0; i < 20; i++ {
		page += "<tr><td>5m ago</td><td>Buy</td><td>10 ADA</td><td>100 SNEK</td></tr>\n"
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	src := NewWebExtraction(ExtractionConfig{URL: srv.URL, MaxRows: 5})
	rows, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(rows) != 5 {
		t.Errorf("Expected 5 rows, got %d", len(rows))
	}
}
