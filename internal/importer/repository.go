package importer

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockroom/internal/inventory"
	"github.com/odyssey-erp/stockroom/internal/masterdata/locations"
	"github.com/odyssey-erp/stockroom/internal/masterdata/suppliers"
	"github.com/odyssey-erp/stockroom/internal/platform/db"
)

// PGRepository runs each import in one PostgreSQL transaction.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, newTxRepository(tx))
	})
}

type txRepository struct {
	tx         pgx.Tx
	suppliers  suppliers.Repository
	locations  locations.Repository
	components *inventory.ComponentStore
}

func newTxRepository(tx pgx.Tx) *txRepository {
	return &txRepository{
		tx:         tx,
		suppliers:  suppliers.NewRepository(tx),
		locations:  locations.NewRepository(tx),
		components: inventory.NewComponentStore(tx),
	}
}

func (t *txRepository) FindSupplierByName(ctx context.Context, name string) (suppliers.Supplier, error) {
	return t.suppliers.FindByName(ctx, name)
}

func (t *txRepository) CreateSupplier(ctx context.Context, name string) (suppliers.Supplier, error) {
	return t.suppliers.Create(ctx, name)
}

func (t *txRepository) FindLocationByCode(ctx context.Context, code string) (locations.Location, error) {
	return t.locations.FindByCode(ctx, code)
}

func (t *txRepository) CreateLocation(ctx context.Context, code string) (locations.Location, error) {
	return t.locations.Create(ctx, locations.Location{Code: code})
}

func (t *txRepository) FindComponentByKey(ctx context.Context, supplierID int64, partNumber string) (inventory.Component, error) {
	return t.components.FindByKey(ctx, supplierID, partNumber)
}

func (t *txRepository) CreateComponent(ctx context.Context, c inventory.Component) (inventory.Component, error) {
	return t.components.Create(ctx, c)
}

func (t *txRepository) UpdateComponentStock(ctx context.Context, id int64, qty int, price decimal.Decimal) error {
	return t.components.UpdateStock(ctx, id, qty, price)
}

// Savepoint isolates one row: a failure rolls back that row's writes only.
func (t *txRepository) Savepoint(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithSavepoint(ctx, t.tx, func(sp pgx.Tx) error {
		return fn(ctx, newTxRepository(sp))
	})
}
