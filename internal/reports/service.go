package reports

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/stockroom/internal/inventory"
)

// TransactionLister supplies the recent movements shown in the summary.
type TransactionLister interface {
	RecentTransactions(ctx context.Context, limit int) ([]inventory.TransactionView, error)
}

// Service builds report payloads, caching the summary per version and day.
type Service struct {
	repo   Repository
	txs    TransactionLister
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewService wires the report queries with the cache. cache may be nil.
func NewService(repo Repository, txs TransactionLister, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, txs: txs, cache: cache, logger: logger, now: time.Now}
}

// Summary returns the report overview. Concurrent cache misses share one
// build.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	today := s.now().UTC().Format(dateLayout)
	key, err := s.cache.BuildKey(ctx, "reports", "summary", today)
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.Any("error", err))
		return s.buildSummary(ctx)
	}
	var out Summary
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		v, err, _ := s.group.Do(key, func() (any, error) {
			return s.buildSummary(ctx)
		})
		return v, err
	})
	if err != nil {
		return Summary{}, err
	}
	return out, nil
}

// LowStock lists components at or below their minimum quantity.
func (s *Service) LowStock(ctx context.Context) ([]LowStockItem, error) {
	return s.repo.LowStock(ctx)
}

func (s *Service) buildSummary(ctx context.Context) (Summary, error) {
	totals, err := s.repo.Totals(ctx)
	if err != nil {
		return Summary{}, err
	}
	low, err := s.repo.LowStock(ctx)
	if err != nil {
		return Summary{}, err
	}
	categories, err := s.repo.CategoryValues(ctx)
	if err != nil {
		return Summary{}, err
	}
	if len(categories) == 0 {
		categories = []CategoryValue{{Category: uncategorizedKey, Value: decimal.Zero}}
	}
	recent := []inventory.TransactionView{}
	if s.txs != nil {
		if recent, err = s.txs.RecentTransactions(ctx, recentLimit); err != nil {
			return Summary{}, err
		}
	}
	end := truncateDay(s.now())
	movement, err := s.movement(ctx, end.AddDate(0, 0, -summaryDays), end)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Totals:             totals,
		LowStock:           low,
		CategoryValues:     categories,
		RecentTransactions: recent,
		StockMovement:      movement,
		GeneratedAt:        s.now().UTC(),
	}, nil
}

// StockMovement parses YYYY-MM-DD bounds and returns the daily net change
// for every day from start to end inclusive.
func (s *Service) StockMovement(ctx context.Context, start, end string) (Movement, error) {
	if start == "" || end == "" {
		return Movement{}, ErrDateRequired
	}
	from, err := time.Parse(dateLayout, start)
	if err != nil {
		return Movement{}, ErrInvalidDate
	}
	to, err := time.Parse(dateLayout, end)
	if err != nil {
		return Movement{}, ErrInvalidDate
	}
	if to.Before(from) || to.Sub(from) > maxMovementDays*24*time.Hour {
		return Movement{}, ErrInvalidRange
	}
	return s.movement(ctx, from, to)
}

func (s *Service) movement(ctx context.Context, from, to time.Time) (Movement, error) {
	totals, err := s.repo.DailyNetChange(ctx, from, to.AddDate(0, 0, 1))
	if err != nil {
		return Movement{}, err
	}
	m := Movement{Labels: []string{}, Data: []int64{}}
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		label := day.Format(dateLayout)
		m.Labels = append(m.Labels, label)
		m.Data = append(m.Data, totals[label])
	}
	return m, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
