// Package source defines the data source adapter contract and its variants.
// An adapter's only responsibility is to obtain raw trade-like rows from one
// origin and hand them to the normalizer; it never parses semantics and never
// invents data.
package source

import (
	"context"
	"errors"

	"dexy/internal/domain"
)

// ErrSourceUnavailable is returned when an upstream fetch failed entirely:
// network error, timeout, or expected structure not found. The aggregate
// store is left untouched on this error.
var ErrSourceUnavailable = errors.New("source unavailable")

// Source produces raw trade-like rows from one origin.
type Source interface {
	// Name identifies the adapter in logs and metrics.
	Name() string

	// Fetch returns the currently observable raw rows. Every field of every
	// row is untrusted and optional. A complete failure returns an error
	// wrapping ErrSourceUnavailable.
	Fetch(ctx context.Context) ([]domain.RawTrade, error)
}
