package locations

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/stockroom/internal/masterdata/shared"
)

type Service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error) {
	return s.repo.List(ctx, filters.Normalize())
}

func (s *Service) Get(ctx context.Context, id int64) (Location, error) {
	if id <= 0 {
		return Location{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// Create stores a new location; duplicate codes are rejected by the unique
// constraint and surface as shared.ErrDuplicate.
func (s *Service) Create(ctx context.Context, input CreateInput) (Location, error) {
	input.Code = strings.TrimSpace(input.Code)
	if err := s.validate.Struct(input); err != nil {
		return Location{}, err
	}
	return s.repo.Create(ctx, Location{Code: input.Code, Description: input.Description})
}
