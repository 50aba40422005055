package shared

import (
	"fmt"

	"github.com/odyssey-erp/stockroom/internal/platform/httpx"
)

var (
	ErrNotFound   = fmt.Errorf("masterdata: %w", httpx.ErrNotFound)
	ErrDuplicate  = fmt.Errorf("masterdata: %w", httpx.ErrDuplicate)
	ErrValidation = fmt.Errorf("masterdata: %w", httpx.ErrValidation)
	ErrInvalidID  = fmt.Errorf("masterdata: invalid ID: %w", httpx.ErrValidation)
)
