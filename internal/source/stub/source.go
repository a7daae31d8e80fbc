// Package stub provides a fixed in-memory data source for tests.
package stub

import (
	"context"

	"dexy/internal/domain"
	"dexy/internal/source"
)

// Source returns fixed in-memory raw rows.
// Implements source.Source.
type Source struct {
	name string
	rows []domain.RawTrade
	err  error
}

// New creates a stub source with the given rows.
func New(name string, rows []domain.RawTrade) *Source {
	return &Source{name: name, rows: rows}
}

// NewFailing creates a stub source whose Fetch always fails with err.
func NewFailing(name string, err error) *Source {
	return &Source{name: name, err: err}
}

// Name implements source.Source.
func (s *Source) Name() string { return s.name }

// SetRows replaces the rows returned by subsequent fetches.
func (s *Source) SetRows(rows []domain.RawTrade) {
	s.rows = rows
}

// Fetch returns copies of the configured rows.
func (s *Source) Fetch(_ context.Context) ([]domain.RawTrade, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.RawTrade, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

var _ source.Source = (*Source)(nil)
