package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockroom/internal/platform/db"
)

// ComponentStore reads and writes component rows by natural key. It is bound
// to whatever connection it is given, so the importer runs it inside its
// import transaction.
type ComponentStore struct {
	db db.DBTX
}

// NewComponentStore binds a store to a pool or transaction.
func NewComponentStore(conn db.DBTX) *ComponentStore {
	return &ComponentStore{db: conn}
}

const selectComponent = `SELECT id, COALESCE(supplier_id, 0), owner::text, supplier_part_number, internal_part_number, description,
       current_quantity, minimum_quantity, COALESCE(location_id, 0), unit_price::text, created_at, updated_at
FROM components `

// FindByKey looks a component up by (supplier id, supplier part number).
func (s *ComponentStore) FindByKey(ctx context.Context, supplierID int64, partNumber string) (Component, error) {
	return s.get(ctx, `WHERE supplier_id = $1 AND supplier_part_number = $2`, supplierID, partNumber)
}

// Create inserts a component and returns it with its generated id.
// Prices travel as text so NUMERIC precision is kept end to end.
func (s *ComponentStore) Create(ctx context.Context, c Component) (Component, error) {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	err := s.db.QueryRow(ctx, `INSERT INTO components
    (supplier_id, owner, supplier_part_number, internal_part_number, description, current_quantity, minimum_quantity, location_id, unit_price, created_at, updated_at)
VALUES ($1, $2::component_type, $3, $4, $5, $6, $7, $8, $9::text::numeric, $10, $10) RETURNING id`,
		c.SupplierID, string(c.Owner), c.SupplierPartNumber, c.InternalPartNumber, c.Description,
		c.CurrentQuantity, c.MinimumQuantity, c.LocationID, c.UnitPrice.String(), now).Scan(&c.ID)
	if err != nil {
		return Component{}, err
	}
	return c, nil
}

// UpdateStock overwrites quantity and unit price only.
func (s *ComponentStore) UpdateStock(ctx context.Context, id int64, qty int, price decimal.Decimal) error {
	tag, err := s.db.Exec(ctx, `UPDATE components SET current_quantity = $2, unit_price = $3::text::numeric, updated_at = NOW() WHERE id = $1`,
		id, qty, price.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrComponentNotFound
	}
	return nil
}

func (s *ComponentStore) get(ctx context.Context, where string, args ...any) (Component, error) {
	var c Component
	var price string
	err := s.db.QueryRow(ctx, selectComponent+where, args...).Scan(&c.ID, &c.SupplierID, &c.Owner, &c.SupplierPartNumber,
		&c.InternalPartNumber, &c.Description, &c.CurrentQuantity, &c.MinimumQuantity, &c.LocationID, &price,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Component{}, ErrComponentNotFound
	}
	if err != nil {
		return Component{}, err
	}
	c.UnitPrice = parsePrice(price)
	return c, nil
}
