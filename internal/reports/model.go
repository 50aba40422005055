package reports

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockroom/internal/inventory"
	"github.com/odyssey-erp/stockroom/internal/platform/httpx"
)

// Totals are the headline figures of the summary.
type Totals struct {
	TotalItems    int             `json:"total_items"`
	TotalValue    decimal.Decimal `json:"total_value"`
	SupplierCount int             `json:"supplier_count"`
}

// LowStockItem is a component at or below its minimum quantity.
type LowStockItem struct {
	ComponentID        int64  `json:"component_id"`
	SupplierPartNumber string `json:"supplier_part_number"`
	Description        string `json:"description"`
	CurrentQuantity    int    `json:"current_quantity"`
	MinimumQuantity    int    `json:"minimum_quantity"`
	LocationCode       string `json:"location_code"`
}

// CategoryValue is stock value grouped by owner category.
type CategoryValue struct {
	Category string          `json:"category"`
	Value    decimal.Decimal `json:"value"`
}

// Movement is a zero-filled daily series of net stock change. IN counts
// positive, OUT negative, ADJUST not at all.
type Movement struct {
	Labels []string `json:"labels"`
	Data   []int64  `json:"data"`
}

// Summary is the payload of the reports page.
type Summary struct {
	Totals
	LowStock           []LowStockItem              `json:"low_stock"`
	CategoryValues     []CategoryValue             `json:"category_values"`
	RecentTransactions []inventory.TransactionView `json:"recent_transactions"`
	StockMovement      Movement                    `json:"stock_movement"`
	GeneratedAt        time.Time                   `json:"generated_at"`
}

const (
	dateLayout       = "2006-01-02"
	summaryDays      = 30
	recentLimit      = 10
	maxMovementDays  = 366
	uncategorizedKey = "Uncategorized"
)

var (
	// ErrDateRequired indicates a missing start or end date.
	ErrDateRequired = fmt.Errorf("reports: start and end dates are required: %w", httpx.ErrValidation)
	// ErrInvalidDate indicates a date not in YYYY-MM-DD form.
	ErrInvalidDate = fmt.Errorf("reports: dates must be YYYY-MM-DD: %w", httpx.ErrValidation)
	// ErrInvalidRange indicates an end before the start or a range over a year.
	ErrInvalidRange = fmt.Errorf("reports: invalid date range: %w", httpx.ErrValidation)
)
