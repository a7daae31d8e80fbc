// Package poll implements the frontend polling loop against the HTTP read
// API: Idle -> Loading -> {Ready, Error}, with Ready/Error returning to
// Loading on each tick. A transient failure never blanks previously fetched
// data; it is retried with capped exponential backoff.
package poll

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"dexy/internal/domain"
	"dexy/internal/observability"
)

// State is the client's lifecycle state.
type State string

// Client states.
const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Payload is the combined document served by GET /data.
type Payload struct {
	Trades      []domain.TradeRecord  `json:"trades"`
	Tokens      []domain.TokenSummary `json:"tokens"`
	Stats       domain.Stats          `json:"stats"`
	Timestamp   string                `json:"timestamp"`
	TradesCount int                   `json:"tradesCount"`
	TokensCount int                   `json:"tokensCount"`
}

// Snapshot is the externally visible client state. The payload is the last
// successful one even while in StateError, so a renderer can distinguish
// "no data yet" from "data present but stale".
type Snapshot struct {
	State       State
	Payload     *Payload
	LastUpdated time.Time // time of last successful fetch
	Failures    int       // consecutive failures since last success
	LastError   string
}

// Config holds polling parameters.
type Config struct {
	BaseURL     string
	Interval    time.Duration // poll interval (default: 5s)
	Timeout     time.Duration // per-fetch timeout (default: 10s)
	BackoffBase time.Duration // first retry delay (default: 1s)
	BackoffMax  time.Duration // retry delay cap (default: 30s)
	MaxRetries  int           // retries before waiting for the next tick (default: 5)
}

// DefaultConfig returns the intervals the frontend shipped with.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:     baseURL,
		Interval:    5 * time.Second,
		Timeout:     10 * time.Second,
		BackoffBase: time.Second,
		BackoffMax:  30 * time.Second,
		MaxRetries:  5,
	}
}

// Client is the polling loop.
type Client struct {
	cfg      Config
	client   *http.Client
	logger   *log.Logger
	onUpdate func(Snapshot)

	mu   sync.Mutex
	snap Snapshot

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Client. onUpdate, when non-nil, is invoked after every state
// transition with the new snapshot.
func New(cfg Config, logger *log.Logger, onUpdate func(Snapshot)) *Client {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[poll] ", log.LstdFlags)
	}
	return &Client{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
		onUpdate: onUpdate,
		snap:     Snapshot{State: StateIdle},
	}
}

// Start launches the polling loop.
func (c *Client) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(ctx)
}

// Stop cancels the loop and all pending timers, then waits for it to exit.
func (c *Client) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

// Snapshot returns the current client state.
func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	for {
		// Each scheduled tick starts a fresh retry budget.
		c.pollWithRetries(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.Interval):
		}
	}
}

// pollWithRetries performs one poll, retrying transient failures with
// exponential backoff until the retry budget is exhausted.
func (c *Client) pollWithRetries(ctx context.Context) {
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return
		}

		c.transition(StateLoading, nil, "")
		payload, err := c.fetch(ctx)
		if err == nil {
			c.transition(StateReady, payload, "")
			return
		}

		observability.RecordPollFailure()
		c.transition(StateError, nil, err.Error())

		if attempt >= c.cfg.MaxRetries {
			c.logger.Printf("poll retries exhausted after %d attempts: %v", attempt+1, err)
			return
		}

		delay := c.backoffDelay(attempt)
		c.logger.Printf("poll failed (attempt %d), retrying in %v: %v", attempt+1, delay, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// backoffDelay returns the delay before retry attempt n (0-based):
// base, 2*base, 4*base, ... capped at BackoffMax.
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.cfg.BackoffBase
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= c.cfg.BackoffMax {
			return c.cfg.BackoffMax
		}
	}
	if delay > c.cfg.BackoffMax {
		delay = c.cfg.BackoffMax
	}
	return delay
}

func (c *Client) fetch(ctx context.Context) (*Payload, error) {
	url := c.cfg.BaseURL + "/data"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	var payload Payload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return &payload, nil
}

// transition updates the snapshot. Ready replaces the payload; Error and
// Loading keep the last successful one.
func (c *Client) transition(state State, payload *Payload, errMsg string) {
	c.mu.Lock()
	c.snap.State = state
	c.snap.LastError = errMsg
	switch state {
	case StateReady:
		c.snap.Payload = payload
		c.snap.LastUpdated = time.Now()
		c.snap.Failures = 0
	case StateError:
		c.snap.Failures++
	}
	snap := c.snap
	c.mu.Unlock()

	if c.onUpdate != nil {
		c.onUpdate(snap)
	}
}
