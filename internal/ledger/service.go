package ledger

import (
	"context"
	"strings"
	"sync"
	"time"

	"pos-service/internal/database"

	"go.uber.org/zap"
)

// Summary aggregates the visible ledger rows
type Summary struct {
	TotalSales       float64 `json:"total_sales"`
	TotalItemsSold   int     `json:"total_items_sold"`
	TransactionCount int     `json:"transaction_count"`
}

// Filter narrows the ledger view. Nil dates leave that bound open; both
// bounds are inclusive. Product matches are case-insensitive substring.
type Filter struct {
	From    *time.Time
	To      *time.Time
	Product string
}

// Service keeps the sales ledger: the persisted append-only rows plus an
// in-memory view in most-recent-first order. Each register instance owns its
// own Service; there is no shared global.
type Service struct {
	db     *database.SingleWriterDB
	logger *zap.Logger

	mu   sync.RWMutex
	rows []database.SaleRow
}

// NewService creates a ledger over the given store
func NewService(db *database.SingleWriterDB, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
		rows:   make([]database.SaleRow, 0),
	}
}

// Reload replaces the in-memory view with the persisted ledger
func (s *Service) Reload(ctx context.Context) error {
	rows, err := s.db.ListSales(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.rows = rows
	s.mu.Unlock()

	s.logger.Info("Sales ledger loaded", zap.Int("rows", len(rows)))
	return nil
}

// Append puts newly committed rows at the front of the view. The rows are
// already persisted by the checkout transaction; this only updates the
// in-memory ordering.
func (s *Service) Append(rows []database.SaleRow) {
	if len(rows) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]database.SaleRow, 0, len(rows)+len(s.rows))
	merged = append(merged, rows...)
	merged = append(merged, s.rows...)
	s.rows = merged
}

// All returns the current view, most recent first
func (s *Service) All() []database.SaleRow {
	return s.Query(Filter{})
}

// Query returns the rows matching the filter, preserving view order
func (s *Service) Query(f Filter) []database.SaleRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(f.Product))

	out := make([]database.SaleRow, 0, len(s.rows))
	for _, row := range s.rows {
		if !matchesDate(row.SaleDate, f.From, f.To) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(row.Product), needle) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// Summarize totals the filtered rows. Every ledger row counts as one
// transaction, so a multi-line checkout contributes one per line.
func (s *Service) Summarize(f Filter) Summary {
	rows := s.Query(f)

	var summary Summary
	for _, row := range rows {
		summary.TotalSales += row.Total
		summary.TotalItemsSold += row.Quantity
	}
	summary.TransactionCount = len(rows)
	return summary
}

// matchesDate checks a YYYY-MM-DD sale date against inclusive bounds. Rows
// whose date fails to parse are kept only when no bounds are set.
func matchesDate(saleDate string, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}

	d, err := time.Parse("2006-01-02", saleDate)
	if err != nil {
		return false
	}

	if from != nil && d.Before(truncateDay(*from)) {
		return false
	}
	if to != nil && d.After(truncateDay(*to)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
