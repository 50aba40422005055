package suppliers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/odyssey-erp/stockroom/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	return s.repo.List(ctx, filters.Normalize())
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// Create adds a supplier unless one with the same name already exists.
func (s *Service) Create(ctx context.Context, input CreateInput) (Supplier, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validate(input); err != nil {
		return Supplier{}, err
	}
	existing, err := s.repo.FindByName(ctx, input.Name)
	switch {
	case err == nil:
		return existing, fmt.Errorf("supplier %q: %w", input.Name, shared.ErrDuplicate)
	case !errors.Is(err, shared.ErrNotFound):
		return Supplier{}, err
	}
	return s.repo.Create(ctx, input.Name)
}
