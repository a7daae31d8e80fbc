package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"dexy/internal/domain"
)

func TestUpstreamAPI_BareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":"u1","timestamp":1704067200000,"type":"Buy","pair":"ADA > SNEK","inAmount":"2.9K","outAmount":"3.3M","price":"0.000892","status":"Success","dex":"Minswap","maker":"addr1"},
			{"id":"u2","type":"Sell","pair":"MIN/ADA"}
		]`))
	}))
	defer srv.Close()

	src := NewUpstreamAPI(srv.URL, 0)

	rows, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.ID != "u1" || first.TimestampMs != 1704067200000 {
		t.Errorf("Unexpected identity fields: %+v", first)
	}
	if first.Price != "0.000892" || first.Maker != "addr1" || first.Venue != "Minswap" {
		t.Errorf("Unexpected detail fields: %+v", first)
	}
	if first.Source != domain.SourceUpstream {
		t.Errorf("Expected upstream provenance, got %q", first.Source)
	}
}

func TestUpstreamAPI_WrappedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"trades":[{"id":"w1","type":"Buy","pair":"ADA > HOSKY"}]}`))
	}))
	defer srv.Close()

	src := NewUpstreamAPI(srv.URL, 0)
	rows, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "w1" {
		t.Errorf("Expected single wrapped row, got %+v", rows)
	}
}

func TestUpstreamAPI_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/down":
			w.WriteHeader(http.StatusInternalServerError)
		case "/garbage":
			w.Write([]byte("not json"))
		}
	}))
	defer srv.Close()

	for _, path := range []string{"/down", "/garbage"} {
		src := NewUpstreamAPI(srv.URL+path, 0)
		if _, err := src.Fetch(context.Background()); !errors.Is(err, ErrSourceUnavailable) {
			t.Errorf("%s: expected ErrSourceUnavailable, got %v", path, err)
		}
	}
}
