package locations

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/stockroom/internal/masterdata/shared"
	"github.com/odyssey-erp/stockroom/internal/platform/db"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error)
	Get(ctx context.Context, id int64) (Location, error)
	FindByCode(ctx context.Context, code string) (Location, error)
	Create(ctx context.Context, loc Location) (Location, error)
}

type repository struct {
	db db.DBTX
}

// NewRepository binds the repository to a pool or an open transaction.
func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

const selectLocation = `SELECT id, location_code, description, created_at, updated_at FROM locations`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error) {
	filters = filters.Normalize()
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND (location_code ILIKE $1 OR description ILIKE $1)`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM locations`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if filters.SortDir == shared.SortDesc {
		dir = "DESC"
	}
	args = append(args, filters.Limit, filters.Offset())
	query := selectLocation + where + ` ORDER BY location_code ` + dir +
		` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Location{}
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.Code, &l.Description, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Location, error) {
	return r.scanOne(ctx, selectLocation+` WHERE id = $1`, id)
}

func (r *repository) FindByCode(ctx context.Context, code string) (Location, error) {
	return r.scanOne(ctx, selectLocation+` WHERE location_code = $1`, code)
}

func (r *repository) Create(ctx context.Context, loc Location) (Location, error) {
	now := time.Now().UTC()
	loc.CreatedAt, loc.UpdatedAt = now, now
	err := r.db.QueryRow(ctx, `INSERT INTO locations (location_code, description, created_at, updated_at) VALUES ($1, $2, $3, $3) RETURNING id`,
		loc.Code, loc.Description, now).Scan(&loc.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Location{}, fmt.Errorf("location %q: %w", loc.Code, shared.ErrDuplicate)
		}
		return Location{}, err
	}
	return loc, nil
}

func (r *repository) scanOne(ctx context.Context, query string, args ...any) (Location, error) {
	var l Location
	err := r.db.QueryRow(ctx, query, args...).Scan(&l.ID, &l.Code, &l.Description, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Location{}, shared.ErrNotFound
	}
	return l, err
}
