package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockroom/internal/platform/httpx"
)

// Owner is the Mechanical/Electrical classification of a component.
type Owner string

const (
	OwnerMechanical Owner = "Mechanical"
	OwnerElectrical Owner = "Electrical"
)

// TransactionType enumerates supported inventory movements.
type TransactionType string

const (
	// TransactionTypeIn represents an inbound movement.
	TransactionTypeIn TransactionType = "IN"
	// TransactionTypeOut represents an outbound movement.
	TransactionTypeOut TransactionType = "OUT"
	// TransactionTypeAdjust indicates manual adjustments.
	TransactionTypeAdjust TransactionType = "ADJUST"
)

// Valid reports whether t is one of the known movement types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIn, TransactionTypeOut, TransactionTypeAdjust:
		return true
	}
	return false
}

// Component is a stocked part. (SupplierID, SupplierPartNumber) is unique.
type Component struct {
	ID                 int64           `json:"component_id"`
	SupplierID         int64           `json:"supplier_id"`
	Owner              Owner           `json:"owner"`
	SupplierPartNumber string          `json:"supplier_part_number"`
	InternalPartNumber string          `json:"internal_part_number"`
	Description        string          `json:"description"`
	CurrentQuantity    int             `json:"current_quantity"`
	MinimumQuantity    int             `json:"minimum_quantity"`
	LocationID         int64           `json:"location_id"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ComponentDetail joins a component with its supplier name and location code.
type ComponentDetail struct {
	Component
	SupplierName string `json:"supplier_name"`
	LocationCode string `json:"location_code"`
}

// Transaction records one quantity change of a component.
type Transaction struct {
	ID               int64           `json:"transaction_id"`
	ComponentID      int64           `json:"component_id"`
	Type             TransactionType `json:"transaction_type"`
	Quantity         int             `json:"quantity"`
	PreviousQuantity int             `json:"previous_quantity"`
	NewQuantity      int             `json:"new_quantity"`
	Date             time.Time       `json:"transaction_date"`
	UserID           string          `json:"user_id"`
	BarcodeScanned   bool            `json:"barcode_scanned"`
	Notes            string          `json:"notes"`
}

// TransactionView adds the component's part number and description.
type TransactionView struct {
	Transaction
	SupplierPartNumber string `json:"supplier_part_number"`
	Description        string `json:"description"`
}

// UpdateInput sets a component's quantity and logs the change.
type UpdateInput struct {
	ComponentID    int64           `json:"component_id" validate:"required,gt=0"`
	Quantity       int             `json:"quantity"`
	Type           TransactionType `json:"type" validate:"required,oneof=IN OUT ADJUST"`
	UserID         string          `json:"user_id" validate:"max=50"`
	Notes          string          `json:"notes"`
	BarcodeScanned bool            `json:"barcode_scanned"`
}

// SearchResult is the compact row returned by the search endpoint.
type SearchResult struct {
	ID          int64  `json:"id"`
	PartNumber  string `json:"part_number"`
	Description string `json:"description"`
	Supplier    string `json:"supplier"`
	Location    string `json:"location"`
	Quantity    int    `json:"quantity"`
	Type        Owner  `json:"type"`
}

// DefaultUserID is recorded when an update carries no user.
const DefaultUserID = "system"

// ErrComponentNotFound indicates an unknown component id or part number.
var ErrComponentNotFound = fmt.Errorf("inventory: component %w", httpx.ErrNotFound)

// ErrInvalidTransactionType indicates a type outside IN/OUT/ADJUST.
var ErrInvalidTransactionType = fmt.Errorf("inventory: transaction type must be IN, OUT or ADJUST: %w", httpx.ErrValidation)

var errRepositoryMissing = errors.New("inventory repository not initialised")
