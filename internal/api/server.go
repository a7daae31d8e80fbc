// Package api exposes the frontend read contract over HTTP.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dexy/internal/aggregate"
	"dexy/internal/ingest"
	"dexy/internal/observability"
)

// Server serves the aggregate store contents to the polling frontend.
type Server struct {
	store  *aggregate.Store
	runner *ingest.Runner
	logger *log.Logger
	router chi.Router
}

// NewServer wires the routes onto a chi router.
func NewServer(store *aggregate.Store, runner *ingest.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stdout, "[api] ", log.LstdFlags)
	}

	s := &Server{store: store, runner: runner, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/trades", s.handleTrades)
	r.Get("/tokens", s.handleTokens)
	r.Get("/stats", s.handleStats)
	r.Get("/data", s.handleData)
	r.Post("/trigger-refresh", s.handleTriggerRefresh)
	r.Handle("/metrics", observability.Handler())

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// dataPayload is the combined response shape the frontend polls for.
type dataPayload struct {
	Trades      any    `json:"trades"`
	Tokens      any    `json:"tokens"`
	Stats       any    `json:"stats"`
	Timestamp   string `json:"timestamp"`
	TradesCount int    `json:"tradesCount"`
	TokensCount int    `json:"tokensCount"`
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	trades := s.store.GetTrades(r.Context())
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	tokens := s.store.GetTokens(r.Context())
	writeJSON(w, http.StatusOK, tokens)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.store.GetStats(r.Context())
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.combined(r))
}

func (s *Server) combined(r *http.Request) dataPayload {
	trades := s.store.GetTrades(r.Context())
	tokens := s.store.GetTokens(r.Context())
	stats := s.store.GetStats(r.Context())

	return dataPayload{
		Trades:      trades,
		Tokens:      tokens,
		Stats:       stats,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		TradesCount: len(trades),
		TokensCount: len(tokens),
	}
}

// handleTriggerRefresh forces one adapter pass and returns the refreshed
// combined payload, or an error object when the pass failed outright.
func (s *Server) handleTriggerRefresh(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"success": false,
			"error":   "refresh runner not configured",
		})
		return
	}

	result, err := s.runner.Refresh(r.Context())
	if err != nil {
		s.logger.Printf("trigger-refresh failed: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	payload := s.combined(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"refresh": result,
		"data":    payload,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status": "ok",
	}
	if s.runner != nil {
		running, lastRun, runs := s.runner.Status()
		resp["refreshRunning"] = running
		resp["refreshRuns"] = runs
		if !lastRun.IsZero() {
			resp["lastRefresh"] = lastRun.UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already gone; nothing left to do but note it.
		log.Printf("[api] encode response: %v", err)
	}
}
