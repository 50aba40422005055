package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListComponents(ctx context.Context) ([]ComponentDetail, error)
	FindByPartNumber(ctx context.Context, partNumber string) (ComponentDetail, error)
	Search(ctx context.Context, term string, limit int) ([]SearchResult, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]TransactionView, error)
}

// CacheInvalidator is notified after stock changes so cached reports rebuild.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service coordinates inventory operations.
type Service struct {
	repo     RepositoryPort
	cache    CacheInvalidator
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewService builds Service. cache and logger may be nil.
func NewService(repo RepositoryPort, cache CacheInvalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

const searchLimit = 10

// ComponentDetails bundles a component with its movement history.
type ComponentDetails struct {
	Component    ComponentDetail   `json:"component"`
	Transactions []TransactionView `json:"transactions"`
}

// UpdateQuantity sets the component quantity to input.Quantity and logs the
// change. The recorded quantity is the absolute difference.
func (s *Service) UpdateQuantity(ctx context.Context, input UpdateInput) (Transaction, error) {
	if input.Type != "" && !input.Type.Valid() {
		return Transaction{}, ErrInvalidTransactionType
	}
	if err := s.validate.Struct(input); err != nil {
		return Transaction{}, err
	}
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		userID = DefaultUserID
	}
	var recorded Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		component, err := tx.GetComponentForUpdate(ctx, input.ComponentID)
		if err != nil {
			return err
		}
		diff := input.Quantity - component.CurrentQuantity
		if diff < 0 {
			diff = -diff
		}
		recorded = Transaction{
			ComponentID:      component.ID,
			Type:             input.Type,
			Quantity:         diff,
			PreviousQuantity: component.CurrentQuantity,
			NewQuantity:      input.Quantity,
			Date:             s.now(),
			UserID:           userID,
			BarcodeScanned:   input.BarcodeScanned,
			Notes:            input.Notes,
		}
		id, err := tx.InsertTransaction(ctx, recorded)
		if err != nil {
			return fmt.Errorf("inventory: insert transaction: %w", err)
		}
		recorded.ID = id
		return tx.SetQuantity(ctx, component.ID, input.Quantity)
	})
	if err != nil {
		return Transaction{}, err
	}
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("report cache bump failed", slog.Int64("component_id", input.ComponentID), slog.Any("error", err))
		}
	}
	return recorded, nil
}

// Search returns at most ten matches; a blank term yields an empty slice.
func (s *Service) Search(ctx context.Context, term string) ([]SearchResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []SearchResult{}, nil
	}
	return s.repo.Search(ctx, term, searchLimit)
}

// Details loads a component by supplier part number with its transactions.
func (s *Service) Details(ctx context.Context, partNumber string) (ComponentDetails, error) {
	component, err := s.repo.FindByPartNumber(ctx, partNumber)
	if err != nil {
		return ComponentDetails{}, err
	}
	txs, err := s.repo.ListTransactions(ctx, TransactionFilter{ComponentID: component.ID, Limit: 500})
	if err != nil {
		return ComponentDetails{}, err
	}
	return ComponentDetails{Component: component, Transactions: txs}, nil
}

// Components lists every component with supplier and location labels.
func (s *Service) Components(ctx context.Context) ([]ComponentDetail, error) {
	return s.repo.ListComponents(ctx)
}

// RecentTransactions returns the latest movements, newest first.
func (s *Service) RecentTransactions(ctx context.Context, limit int) ([]TransactionView, error) {
	return s.repo.ListTransactions(ctx, TransactionFilter{Limit: limit})
}
