package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dexy/internal/domain"
)

const (
	liveFeedBufferCap  = 256
	liveFeedBaseDelay  = time.Second
	liveFeedMaxDelay   = 30 * time.Second
	liveFeedReadLimit  = 1 << 20
	liveFeedDialWindow = 10 * time.Second
)

// LiveFeed subscribes to an upstream websocket trade feed and buffers pushed
// rows. Fetch drains the buffer, so each row is handed to the pipeline once.
type LiveFeed struct {
	url    string
	logger *log.Logger

	mu     sync.Mutex
	buf    []domain.RawTrade
	opened bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewLiveFeed creates a LiveFeed adapter for the given ws:// or wss:// URL.
func NewLiveFeed(url string, logger *log.Logger) *LiveFeed {
	if logger == nil {
		logger = log.New(log.Writer(), "[livefeed] ", log.LstdFlags)
	}
	return &LiveFeed{url: url, logger: logger}
}

// Name implements Source.
func (l *LiveFeed) Name() string { return "livefeed" }

// Start launches the subscription loop. The loop reconnects with capped
// exponential backoff until ctx is cancelled.
func (l *LiveFeed) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	go l.run(ctx)
}

// Stop terminates the subscription loop and waits for it to exit.
func (l *LiveFeed) Stop() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
}

// Fetch drains the buffered rows. An empty result with a healthy
// subscription means "nothing new", not a failure; a feed that is not
// currently connected and has nothing buffered is unavailable.
func (l *LiveFeed) Fetch(_ context.Context) ([]domain.RawTrade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.opened && len(l.buf) == 0 {
		return nil, fmt.Errorf("%w: live feed not connected to %s", ErrSourceUnavailable, l.url)
	}

	rows := l.buf
	l.buf = nil
	return rows, nil
}

func (l *LiveFeed) run(ctx context.Context) {
	defer close(l.done)

	delay := liveFeedBaseDelay
	for {
		if ctx.Err() != nil {
			return
		}

		err := l.readOnce(ctx)

		l.mu.Lock()
		l.opened = false
		l.mu.Unlock()

		if err != nil && ctx.Err() == nil {
			l.logger.Printf("feed disconnected, retrying in %v: %v", delay, err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if delay *= 2; delay > liveFeedMaxDelay {
			delay = liveFeedMaxDelay
		}
	}
}

// readOnce dials the feed and consumes messages until the connection drops.
func (l *LiveFeed) readOnce(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, liveFeedDialWindow)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, l.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", l.url, err)
	}
	defer conn.Close()
	conn.SetReadLimit(liveFeedReadLimit)

	l.mu.Lock()
	l.opened = true
	l.mu.Unlock()
	l.logger.Printf("subscribed to %s", l.url)

	// Unblock the read loop on cancellation.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}
		l.handleMessage(data)
	}
}

// handleMessage decodes one pushed payload: either a single row or a
// {"trades": [...]} batch. Undecodable payloads are dropped and counted
// against no one; the normalizer never sees them.
func (l *LiveFeed) handleMessage(data []byte) {
	var batch upstreamResponse
	if err := json.Unmarshal(data, &batch); err == nil && len(batch.Trades) > 0 {
		for _, t := range batch.Trades {
			l.push(t)
		}
		return
	}

	var single upstreamTrade
	if err := json.Unmarshal(data, &single); err == nil && (single.Pair != "" || single.Type != "") {
		l.push(single)
	}
}

func (l *LiveFeed) push(t upstreamTrade) {
	raw := domain.RawTrade{
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
		Source:      domain.SourceLiveFeed,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf = append(l.buf, raw)
	if len(l.buf) > liveFeedBufferCap {
		l.buf = l.buf[len(l.buf)-liveFeedBufferCap:]
	}
}

var _ Source = (*LiveFeed)(nil)
