package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockroom/internal/platform/db"
)

// Repository runs the aggregate queries behind the reports.
type Repository interface {
	Totals(ctx context.Context) (Totals, error)
	LowStock(ctx context.Context) ([]LowStockItem, error)
	CategoryValues(ctx context.Context) ([]CategoryValue, error)
	// DailyNetChange sums movements per UTC day in [from, to), keyed YYYY-MM-DD.
	DailyNetChange(ctx context.Context, from, to time.Time) (map[string]int64, error)
}

type repository struct {
	db db.DBTX
}

// NewRepository binds the report queries to a pool.
func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

func (r *repository) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	var value string
	err := r.db.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(current_quantity * unit_price), 0)::text FROM components`).
		Scan(&t.TotalItems, &value)
	if err != nil {
		return Totals{}, err
	}
	t.TotalValue = parseDecimal(value)
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers`).Scan(&t.SupplierCount); err != nil {
		return Totals{}, err
	}
	return t, nil
}

func (r *repository) LowStock(ctx context.Context) ([]LowStockItem, error) {
	rows, err := r.db.Query(ctx, `SELECT c.id, c.supplier_part_number, c.description, c.current_quantity, c.minimum_quantity,
       COALESCE(l.location_code, '')
FROM components c
LEFT JOIN locations l ON l.id = c.location_id
WHERE c.current_quantity <= c.minimum_quantity
ORDER BY c.current_quantity - c.minimum_quantity, c.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LowStockItem{}
	for rows.Next() {
		var it LowStockItem
		if err := rows.Scan(&it.ComponentID, &it.SupplierPartNumber, &it.Description, &it.CurrentQuantity,
			&it.MinimumQuantity, &it.LocationCode); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) CategoryValues(ctx context.Context) ([]CategoryValue, error) {
	rows, err := r.db.Query(ctx, `SELECT owner::text, COALESCE(SUM(current_quantity * unit_price), 0)::text
FROM components GROUP BY owner ORDER BY owner`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CategoryValue
	for rows.Next() {
		var cv CategoryValue
		var value string
		if err := rows.Scan(&cv.Category, &value); err != nil {
			return nil, err
		}
		cv.Value = parseDecimal(value)
		out = append(out, cv)
	}
	return out, rows.Err()
}

func (r *repository) DailyNetChange(ctx context.Context, from, to time.Time) (map[string]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT to_char(date_trunc('day', transaction_date AT TIME ZONE 'UTC'), 'YYYY-MM-DD'),
       COALESCE(SUM(CASE transaction_type WHEN 'IN' THEN quantity WHEN 'OUT' THEN -quantity ELSE 0 END), 0)
FROM inventory_transactions
WHERE transaction_date >= $1 AND transaction_date < $2
GROUP BY 1`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var day string
		var net int64
		if err := rows.Scan(&day, &net); err != nil {
			return nil, err
		}
		out[day] = net
	}
	return out, rows.Err()
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
