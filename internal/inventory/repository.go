package inventory

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockroom/internal/platform/db"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	GetComponentForUpdate(ctx context.Context, id int64) (Component, error)
	InsertTransaction(ctx context.Context, tx Transaction) (int64, error)
	SetQuantity(ctx context.Context, componentID int64, qty int) error
}

type txRepository struct {
	tx     pgx.Tx
	schema *ComponentStore
}

// WithTx executes the callback inside a read-committed transaction; the
// component row is locked with FOR UPDATE.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errRepositoryMissing
	}
	return db.WithTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, schema: NewComponentStore(tx)})
	})
}

const selectDetail = `SELECT c.id, COALESCE(c.supplier_id, 0), c.owner::text, c.supplier_part_number, c.internal_part_number,
       c.description, c.current_quantity, c.minimum_quantity, COALESCE(c.location_id, 0), c.unit_price::text,
       c.created_at, c.updated_at, COALESCE(s.supplier_name, ''), COALESCE(l.location_code, '')
FROM components c
LEFT JOIN suppliers s ON s.id = c.supplier_id
LEFT JOIN locations l ON l.id = c.location_id`

// ListComponents returns every component ordered by supplier part number.
func (r *Repository) ListComponents(ctx context.Context) ([]ComponentDetail, error) {
	if r == nil {
		return nil, errRepositoryMissing
	}
	rows, err := r.pool.Query(ctx, selectDetail+` ORDER BY c.supplier_part_number, c.id`)
	if err != nil {
		return nil, err
	}
	return collectDetails(rows)
}

// FindByPartNumber returns the first component with the supplier part number.
func (r *Repository) FindByPartNumber(ctx context.Context, partNumber string) (ComponentDetail, error) {
	if r == nil {
		return ComponentDetail{}, errRepositoryMissing
	}
	rows, err := r.pool.Query(ctx, selectDetail+` WHERE c.supplier_part_number = $1 ORDER BY c.id LIMIT 1`, partNumber)
	if err != nil {
		return ComponentDetail{}, err
	}
	details, err := collectDetails(rows)
	if err != nil {
		return ComponentDetail{}, err
	}
	if len(details) == 0 {
		return ComponentDetail{}, ErrComponentNotFound
	}
	return details[0], nil
}

// Search matches the term against part numbers, description, supplier name
// and location code. Suppliers and locations are inner joined.
func (r *Repository) Search(ctx context.Context, term string, limit int) ([]SearchResult, error) {
	if r == nil {
		return nil, errRepositoryMissing
	}
	rows, err := r.pool.Query(ctx, `SELECT c.id, c.supplier_part_number, c.description, s.supplier_name, l.location_code, c.current_quantity, c.owner::text
FROM components c
JOIN suppliers s ON s.id = c.supplier_id
JOIN locations l ON l.id = c.location_id
WHERE c.supplier_part_number ILIKE $1
   OR c.description ILIKE $1
   OR c.internal_part_number ILIKE $1
   OR s.supplier_name ILIKE $1
   OR l.location_code ILIKE $1
ORDER BY c.id
LIMIT $2`, "%"+term+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := []SearchResult{}
	for rows.Next() {
		var res SearchResult
		if err := rows.Scan(&res.ID, &res.PartNumber, &res.Description, &res.Supplier, &res.Location, &res.Quantity, &res.Type); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	ComponentID int64
	Limit       int
}

// ListTransactions returns transactions newest first.
func (r *Repository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]TransactionView, error) {
	if r == nil {
		return nil, errRepositoryMissing
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT t.id, t.component_id, t.transaction_type, t.quantity, t.previous_quantity, t.new_quantity,
       t.transaction_date, t.user_id, t.barcode_scanned, t.notes, c.supplier_part_number, c.description
FROM inventory_transactions t
JOIN components c ON c.id = t.component_id
WHERE ($1::bigint = 0 OR t.component_id = $1)
ORDER BY t.transaction_date DESC, t.id DESC
LIMIT $2`, filter.ComponentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []TransactionView{}
	for rows.Next() {
		var v TransactionView
		if err := rows.Scan(&v.ID, &v.ComponentID, &v.Type, &v.Quantity, &v.PreviousQuantity, &v.NewQuantity,
			&v.Date, &v.UserID, &v.BarcodeScanned, &v.Notes, &v.SupplierPartNumber, &v.Description); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *txRepository) GetComponentForUpdate(ctx context.Context, id int64) (Component, error) {
	return r.schema.get(ctx, `WHERE id = $1 FOR UPDATE`, id)
}

func (r *txRepository) InsertTransaction(ctx context.Context, t Transaction) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_transactions
    (component_id, transaction_type, quantity, previous_quantity, new_quantity, transaction_date, user_id, barcode_scanned, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		t.ComponentID, string(t.Type), t.Quantity, t.PreviousQuantity, t.NewQuantity, t.Date, t.UserID, t.BarcodeScanned, t.Notes).Scan(&id)
	return id, err
}

func (r *txRepository) SetQuantity(ctx context.Context, componentID int64, qty int) error {
	_, err := r.tx.Exec(ctx, `UPDATE components SET current_quantity = $2, updated_at = NOW() WHERE id = $1`, componentID, qty)
	return err
}

func collectDetails(rows pgx.Rows) ([]ComponentDetail, error) {
	defer rows.Close()
	out := []ComponentDetail{}
	for rows.Next() {
		var d ComponentDetail
		var price string
		if err := rows.Scan(&d.ID, &d.SupplierID, &d.Owner, &d.SupplierPartNumber, &d.InternalPartNumber,
			&d.Description, &d.CurrentQuantity, &d.MinimumQuantity, &d.LocationID, &price,
			&d.CreatedAt, &d.UpdatedAt, &d.SupplierName, &d.LocationCode); err != nil {
			return nil, err
		}
		d.UnitPrice = parsePrice(price)
		out = append(out, d)
	}
	return out, rows.Err()
}

func parsePrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

