package suppliers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/stockroom/internal/masterdata/shared"
	"github.com/odyssey-erp/stockroom/internal/platform/db"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	FindByName(ctx context.Context, name string) (Supplier, error)
	Create(ctx context.Context, name string) (Supplier, error)
}

type repository struct {
	db db.DBTX
}

// NewRepository binds the repository to a pool or an open transaction.
func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

const selectSupplier = `SELECT id, supplier_name, created_at, updated_at FROM suppliers`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	filters = filters.Normalize()
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND supplier_name ILIKE $1`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := selectSupplier + where + " ORDER BY " + sortOrder(filters.SortBy, filters.SortDir)
	args = append(args, filters.Limit, filters.Offset())
	query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	suppliers := []Supplier{}
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	return r.scanOne(ctx, selectSupplier+` WHERE id = $1`, id)
}

// FindByName returns the oldest supplier with exactly this name.
func (r *repository) FindByName(ctx context.Context, name string) (Supplier, error) {
	return r.scanOne(ctx, selectSupplier+` WHERE supplier_name = $1 ORDER BY id LIMIT 1`, name)
}

func (r *repository) Create(ctx context.Context, name string) (Supplier, error) {
	now := time.Now().UTC()
	s := Supplier{Name: name, CreatedAt: now, UpdatedAt: now}
	err := r.db.QueryRow(ctx, `INSERT INTO suppliers (supplier_name, created_at, updated_at) VALUES ($1, $2, $2) RETURNING id`, name, now).Scan(&s.ID)
	if err != nil {
		return Supplier{}, err
	}
	return s, nil
}

func (r *repository) scanOne(ctx context.Context, query string, args ...any) (Supplier, error) {
	var s Supplier
	err := r.db.QueryRow(ctx, query, args...).Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, shared.ErrNotFound
	}
	return s, err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == shared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "id":
		return "id " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "supplier_name " + dir + ", id"
	}
}
