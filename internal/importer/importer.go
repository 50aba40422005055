package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockroom/internal/inventory"
	"github.com/odyssey-erp/stockroom/internal/masterdata/locations"
	"github.com/odyssey-erp/stockroom/internal/masterdata/shared"
	"github.com/odyssey-erp/stockroom/internal/masterdata/suppliers"
)

// DefaultResetDelay is how long a terminal status stays visible.
const DefaultResetDelay = 5 * time.Second

// Repository opens the unit of work an import runs in. WithTx commits once
// after fn returns nil and returns commit errors unchanged.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository is the persistence surface used inside an import. Lookups
// return shared.ErrNotFound or inventory.ErrComponentNotFound on a miss.
type TxRepository interface {
	FindSupplierByName(ctx context.Context, name string) (suppliers.Supplier, error)
	CreateSupplier(ctx context.Context, name string) (suppliers.Supplier, error)
	FindLocationByCode(ctx context.Context, code string) (locations.Location, error)
	CreateLocation(ctx context.Context, code string) (locations.Location, error)
	FindComponentByKey(ctx context.Context, supplierID int64, partNumber string) (inventory.Component, error)
	CreateComponent(ctx context.Context, c inventory.Component) (inventory.Component, error)
	UpdateComponentStock(ctx context.Context, id int64, qty int, price decimal.Decimal) error
	// Savepoint runs fn so that its writes are discarded on error while the
	// enclosing unit of work stays usable.
	Savepoint(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// MetricsRecorder receives the outcome of each run.
type MetricsRecorder interface {
	ObserveImport(success, failed int, err error)
}

// Invalidator is bumped after a committed run so cached reports rebuild.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Options configures an Importer. Zero values select defaults.
type Options struct {
	Status     StatusStore
	ResetDelay time.Duration
	// RowHook runs after the status moves to a row, before the row is written.
	RowHook func(ctx context.Context, row int)
	Logger  *slog.Logger
	Metrics MetricsRecorder
	Cache   Invalidator
}

// Result tallies a finished run; SuccessCount+ErrorCount equals rows read.
type Result struct {
	SuccessCount int `json:"success_count"`
	ErrorCount   int `json:"error_count"`
}

// Importer loads component spreadsheets into the inventory.
type Importer struct {
	repo       Repository
	status     StatusStore
	resetDelay time.Duration
	rowHook    func(ctx context.Context, row int)
	logger     *slog.Logger
	metrics    MetricsRecorder
	cache      Invalidator

	// resetMu guards the pending idle reset. run increments per Import so a
	// reset scheduled by an earlier run never clears a later one.
	resetMu    sync.Mutex
	resetTimer *time.Timer
	run        uint64
}

// New builds an Importer over repo.
func New(repo Repository, opts Options) *Importer {
	im := &Importer{
		repo:       repo,
		status:     opts.Status,
		resetDelay: opts.ResetDelay,
		rowHook:    opts.RowHook,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		cache:      opts.Cache,
	}
	if im.status == nil {
		im.status = NewMemoryStatusStore()
	}
	if im.resetDelay <= 0 {
		im.resetDelay = DefaultResetDelay
	}
	if im.logger == nil {
		im.logger = slog.Default()
	}
	return im
}

// Status returns the current progress snapshot.
func (im *Importer) Status(ctx context.Context) (Status, error) {
	return im.status.Get(ctx)
}

// Import reads a CSV upload and upserts its rows. Per-row failures are
// counted, not returned; the error is non-nil only when the file is unreadable
// (*ImportError) or the unit of work fails.
func (im *Importer) Import(ctx context.Context, r io.Reader) (result Result, err error) {
	logger := im.logger.With(slog.String("import_id", uuid.NewString()))
	run := im.beginRun()
	im.setStatus(ctx, logger, IdleStatus())
	defer func() { im.finish(ctx, logger, run, result, err) }()

	im.setStatus(ctx, logger, Status{Status: PhaseReading, Message: "Reading CSV file..."})
	rows, err := ReadRows(r)
	if err != nil {
		return Result{}, err
	}
	total := len(rows)
	logger.Info("import started", slog.Int("rows", total))
	im.setStatus(ctx, logger, Status{TotalRows: total, Status: PhaseProcessing, Message: fmt.Sprintf("Processing %d rows...", total)})

	var counts Result
	err = im.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		counts = Result{}
		supplierIDs, err := resolveSuppliers(ctx, tx, rows)
		if err != nil {
			return err
		}
		locationIDs, err := resolveLocations(ctx, tx, rows)
		if err != nil {
			return err
		}
		for i, row := range rows {
			n := i + 1
			im.setStatus(ctx, logger, Status{
				TotalRows:  total,
				CurrentRow: n,
				Status:     PhaseProcessing,
				Message:    fmt.Sprintf("Processing row %d of %d", n, total),
			})
			if im.rowHook != nil {
				im.rowHook(ctx, n)
			}
			if err := upsertRow(ctx, tx, row, supplierIDs, locationIDs); err != nil {
				counts.ErrorCount++
				logger.Warn("import row failed", slog.Int("row", n), slog.Any("error", err))
				continue
			}
			counts.SuccessCount++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if im.cache != nil {
		if err := im.cache.Bump(ctx); err != nil {
			logger.Warn("report cache bump failed", slog.Any("error", err))
		}
	}
	return counts, nil
}

// beginRun cancels the idle reset left pending by the previous run.
func (im *Importer) beginRun() uint64 {
	im.resetMu.Lock()
	defer im.resetMu.Unlock()
	if im.resetTimer != nil {
		im.resetTimer.Stop()
		im.resetTimer = nil
	}
	im.run++
	return im.run
}

func (im *Importer) finish(ctx context.Context, logger *slog.Logger, run uint64, result Result, err error) {
	if im.metrics != nil {
		im.metrics.ObserveImport(result.SuccessCount, result.ErrorCount, err)
	}
	if err != nil {
		logger.Error("import failed", slog.Any("error", err))
		current, _ := im.status.Get(ctx)
		im.setStatus(ctx, logger, Status{
			TotalRows:  current.TotalRows,
			CurrentRow: current.CurrentRow,
			Status:     PhaseError,
			Message:    err.Error(),
		})
	} else {
		logger.Info("import completed", slog.Int("success", result.SuccessCount), slog.Int("errors", result.ErrorCount))
		total := result.SuccessCount + result.ErrorCount
		im.setStatus(ctx, logger, Status{
			TotalRows:  total,
			CurrentRow: total,
			Status:     PhaseCompleted,
			Message:    fmt.Sprintf("Import completed: %d successful, %d errors", result.SuccessCount, result.ErrorCount),
		})
	}
	im.scheduleReset(context.WithoutCancel(ctx), logger, run)
}

func (im *Importer) scheduleReset(ctx context.Context, logger *slog.Logger, run uint64) {
	im.resetMu.Lock()
	defer im.resetMu.Unlock()
	if im.run != run {
		return
	}
	im.resetTimer = time.AfterFunc(im.resetDelay, func() {
		im.resetMu.Lock()
		defer im.resetMu.Unlock()
		if im.run != run {
			return
		}
		im.resetTimer = nil
		im.setStatus(ctx, logger, IdleStatus())
	})
}

func (im *Importer) setStatus(ctx context.Context, logger *slog.Logger, status Status) {
	if err := im.status.Set(ctx, status); err != nil {
		logger.Warn("import status update failed", slog.Any("error", err), slog.String("status", string(status.Status)))
	}
}

func resolveSuppliers(ctx context.Context, tx TxRepository, rows []Row) (map[string]int64, error) {
	ids := make(map[string]int64)
	for _, row := range rows {
		name := row.Supplier
		if name == "" {
			continue
		}
		if _, ok := ids[name]; ok {
			continue
		}
		supplier, err := tx.FindSupplierByName(ctx, name)
		if errors.Is(err, shared.ErrNotFound) {
			supplier, err = tx.CreateSupplier(ctx, name)
		}
		if err != nil {
			return nil, fmt.Errorf("importer: resolve supplier %q: %w", name, err)
		}
		ids[name] = supplier.ID
	}
	return ids, nil
}

func resolveLocations(ctx context.Context, tx TxRepository, rows []Row) (map[string]int64, error) {
	ids := make(map[string]int64)
	for _, row := range rows {
		code := row.Location
		if code == "" {
			continue
		}
		if _, ok := ids[code]; ok {
			continue
		}
		location, err := tx.FindLocationByCode(ctx, code)
		if errors.Is(err, shared.ErrNotFound) {
			location, err = tx.CreateLocation(ctx, code)
		}
		if err != nil {
			return nil, fmt.Errorf("importer: resolve location %q: %w", code, err)
		}
		ids[code] = location.ID
	}
	return ids, nil
}

func upsertRow(ctx context.Context, tx TxRepository, row Row, supplierIDs, locationIDs map[string]int64) error {
	supplierID, ok := supplierIDs[row.Supplier]
	if !ok {
		return errMissingSupplier
	}
	locationID, ok := locationIDs[row.Location]
	if !ok {
		return errMissingLocation
	}
	return tx.Savepoint(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.FindComponentByKey(ctx, supplierID, row.SupplierPartNumber)
		switch {
		case err == nil:
			return tx.UpdateComponentStock(ctx, existing.ID, row.Quantity, row.UnitPrice)
		case errors.Is(err, inventory.ErrComponentNotFound):
			_, err = tx.CreateComponent(ctx, row.component(supplierID, locationID))
			return err
		default:
			return err
		}
	})
}
