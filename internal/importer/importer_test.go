package importer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockroom/internal/inventory"
	"github.com/odyssey-erp/stockroom/internal/masterdata/locations"
	"github.com/odyssey-erp/stockroom/internal/masterdata/shared"
	"github.com/odyssey-erp/stockroom/internal/masterdata/suppliers"
)

type memoryState struct {
	suppliers  []suppliers.Supplier
	locations  []locations.Location
	components []inventory.Component
	nextID     int64
}

func (s memoryState) clone() memoryState {
	s.suppliers = append([]suppliers.Supplier(nil), s.suppliers...)
	s.locations = append([]locations.Location(nil), s.locations...)
	s.components = append([]inventory.Component(nil), s.components...)
	return s
}

type memoryRepo struct {
	state      memoryState
	failPart   string
	failCommit error
	commits    int
}

type memoryTx struct {
	repo  *memoryRepo
	state *memoryState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{}
}

// WithTx works on a copy and publishes it only on commit.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	working := r.state.clone()
	if err := fn(ctx, &memoryTx{repo: r, state: &working}); err != nil {
		return err
	}
	if r.failCommit != nil {
		return r.failCommit
	}
	r.commits++
	r.state = working
	return nil
}

func (tx *memoryTx) FindSupplierByName(_ context.Context, name string) (suppliers.Supplier, error) {
	for _, s := range tx.state.suppliers {
		if s.Name == name {
			return s, nil
		}
	}
	return suppliers.Supplier{}, shared.ErrNotFound
}

func (tx *memoryTx) CreateSupplier(_ context.Context, name string) (suppliers.Supplier, error) {
	tx.state.nextID++
	s := suppliers.Supplier{ID: tx.state.nextID, Name: name}
	tx.state.suppliers = append(tx.state.suppliers, s)
	return s, nil
}

func (tx *memoryTx) FindLocationByCode(_ context.Context, code string) (locations.Location, error) {
	for _, l := range tx.state.locations {
		if l.Code == code {
			return l, nil
		}
	}
	return locations.Location{}, shared.ErrNotFound
}

func (tx *memoryTx) CreateLocation(_ context.Context, code string) (locations.Location, error) {
	tx.state.nextID++
	l := locations.Location{ID: tx.state.nextID, Code: code}
	tx.state.locations = append(tx.state.locations, l)
	return l, nil
}

func (tx *memoryTx) FindComponentByKey(_ context.Context, supplierID int64, partNumber string) (inventory.Component, error) {
	for _, c := range tx.state.components {
		if c.SupplierID == supplierID && c.SupplierPartNumber == partNumber {
			return c, nil
		}
	}
	return inventory.Component{}, inventory.ErrComponentNotFound
}

func (tx *memoryTx) CreateComponent(_ context.Context, c inventory.Component) (inventory.Component, error) {
	tx.state.nextID++
	c.ID = tx.state.nextID
	tx.state.components = append(tx.state.components, c)
	if tx.repo.failPart != "" && c.SupplierPartNumber == tx.repo.failPart {
		return inventory.Component{}, errors.New("value too long for type character varying(8)")
	}
	return c, nil
}

func (tx *memoryTx) UpdateComponentStock(_ context.Context, id int64, qty int, price decimal.Decimal) error {
	for i := range tx.state.components {
		if tx.state.components[i].ID == id {
			tx.state.components[i].CurrentQuantity = qty
			tx.state.components[i].UnitPrice = price
			return nil
		}
	}
	return inventory.ErrComponentNotFound
}

func (tx *memoryTx) Savepoint(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	working := tx.state.clone()
	if err := fn(ctx, &memoryTx{repo: tx.repo, state: &working}); err != nil {
		return err
	}
	*tx.state = working
	return nil
}

func (r *memoryRepo) component(partNumber string) (inventory.Component, bool) {
	for _, c := range r.state.components {
		if c.SupplierPartNumber == partNumber {
			return c, true
		}
	}
	return inventory.Component{}, false
}

type recordingMetrics struct {
	success, failed int
	err             error
	runs            int
}

func (m *recordingMetrics) ObserveImport(success, failed int, err error) {
	m.runs++
	m.success, m.failed, m.err = success, failed, err
}

type countingCache struct{ bumps int }

func (c *countingCache) Bump(context.Context) error {
	c.bumps++
	return nil
}

func newTestImporter(repo *memoryRepo, opts Options) *Importer {
	if opts.ResetDelay == 0 {
		opts.ResetDelay = time.Hour
	}
	return New(repo, opts)
}

func TestImportCountsEveryRow(t *testing.T) {
	repo := newMemoryRepo()
	im := newTestImporter(repo, Options{})
	csv := header +
		"Acme,A1,P-1,11111111,Bolt,5,1.00,M\n" +
		",A1,P-2,22222222,Nut,5,1.00,M\n" +
		"Acme,,P-3,33333333,Washer,5,1.00,M\n" +
		"Acme,A2,P-4,44444444,Screw,5,1.00,E\n"

	res, err := im.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 4, res.SuccessCount+res.ErrorCount)
	require.Equal(t, Result{SuccessCount: 2, ErrorCount: 2}, res)
	require.Equal(t, 1, repo.commits)

	_, found := repo.component("P-2")
	require.False(t, found, "row without supplier must not create a component")
	p4, found := repo.component("P-4")
	require.True(t, found)
	require.Equal(t, inventory.OwnerElectrical, p4.Owner)
}

func TestImportIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	im := newTestImporter(repo, Options{})
	csv := header +
		"Acme,A1,P-1,11111111,Bolt,5,\"$1,234.50\",M\n" +
		"Acme,A2,P-2,22222222,Nut,abc,0.10,E\n"

	first, err := im.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	snapshot := repo.state.clone()

	second, err := im.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, repo.state.suppliers, len(snapshot.suppliers))
	require.Len(t, repo.state.locations, len(snapshot.locations))
	require.Len(t, repo.state.components, len(snapshot.components))
	for i, c := range repo.state.components {
		require.Equal(t, snapshot.components[i].CurrentQuantity, c.CurrentQuantity)
		require.True(t, snapshot.components[i].UnitPrice.Equal(c.UnitPrice))
	}

	p1, _ := repo.component("P-1")
	require.True(t, decimal.RequireFromString("1234.50").Equal(p1.UnitPrice))
	p2, _ := repo.component("P-2")
	require.Equal(t, 0, p2.CurrentQuantity)
}

func TestImportUpdateTouchesOnlyQuantityAndPrice(t *testing.T) {
	repo := newMemoryRepo()
	im := newTestImporter(repo, Options{})
	_, err := im.Import(context.Background(), strings.NewReader(header+"Acme,A1,P-1,11111111,Bolt,5,1.00,M\n"))
	require.NoError(t, err)

	_, err = im.Import(context.Background(), strings.NewReader(header+"Acme,B9,P-1,99999999,Renamed,8,2.25,E\n"))
	require.NoError(t, err)

	c, _ := repo.component("P-1")
	require.Equal(t, 8, c.CurrentQuantity)
	require.True(t, decimal.RequireFromString("2.25").Equal(c.UnitPrice))
	require.Equal(t, "Bolt", c.Description)
	require.Equal(t, "11111111", c.InternalPartNumber)
	require.Equal(t, inventory.OwnerMechanical, c.Owner)
	require.Len(t, repo.state.components, 1)
}

func TestImportThreeRowScenario(t *testing.T) {
	repo := newMemoryRepo()
	repo.state = memoryState{
		suppliers:  []suppliers.Supplier{{ID: 1, Name: "Legacy"}},
		locations:  []locations.Location{{ID: 2, Code: "SHELF-1"}},
		components: []inventory.Component{{ID: 3, SupplierID: 1, SupplierPartNumber: "P2", LocationID: 2, CurrentQuantity: 1}},
		nextID:     3,
	}
	im := newTestImporter(repo, Options{})
	csv := header +
		"NewCo,BIN-9,P1,11111111,Gear,4,3.00,M\n" +
		"Legacy,SHELF-1,P2,22222222,Spring,9,0.50,M\n" +
		"NewCo,,P3,33333333,Cam,1,1.00,M\n"

	res, err := im.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, Result{SuccessCount: 2, ErrorCount: 1}, res)
	require.Len(t, repo.state.suppliers, 2)
	require.Len(t, repo.state.locations, 2)
	require.Len(t, repo.state.components, 2)

	p2, _ := repo.component("P2")
	require.Equal(t, 9, p2.CurrentQuantity)
	_, found := repo.component("P3")
	require.False(t, found)
}

func TestImportRowFailureIsIsolated(t *testing.T) {
	repo := newMemoryRepo()
	repo.failPart = "BAD"
	im := newTestImporter(repo, Options{})
	csv := header +
		"Acme,A1,BAD,123456789,Too long,1,1,M\n" +
		"Acme,A1,GOOD,12345678,Fine,1,1,M\n"

	res, err := im.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, Result{SuccessCount: 1, ErrorCount: 1}, res)
	_, found := repo.component("BAD")
	require.False(t, found, "savepoint must discard the failed row")
	_, found = repo.component("GOOD")
	require.True(t, found)
}

func TestImportFatalErrors(t *testing.T) {
	repo := newMemoryRepo()
	metrics := &recordingMetrics{}
	status := NewMemoryStatusStore()
	im := newTestImporter(repo, Options{Metrics: metrics, Status: status})

	_, err := im.Import(context.Background(), strings.NewReader("SUPPLIER\nAcme\n"))
	var importErr *ImportError
	require.True(t, errors.As(err, &importErr))
	require.ErrorIs(t, err, ErrMissingColumns)
	require.Equal(t, 0, repo.commits)
	require.Equal(t, 1, metrics.runs)
	require.Error(t, metrics.err)

	snap, _ := status.Get(context.Background())
	require.Equal(t, PhaseError, snap.Status)
	require.Contains(t, snap.Message, "missing required columns")

	repo.failCommit = errors.New("connection reset")
	res, err := im.Import(context.Background(), strings.NewReader(header+"Acme,A1,P-1,1,Bolt,1,1,M\n"))
	require.ErrorIs(t, err, repo.failCommit)
	require.Equal(t, Result{}, res)
	require.Empty(t, repo.state.components)
}

func TestImportProgressAndReset(t *testing.T) {
	repo := newMemoryRepo()
	status := NewMemoryStatusStore()
	cache := &countingCache{}
	var mu sync.Mutex
	var seen []Status
	im := New(repo, Options{
		Status:     status,
		ResetDelay: 50 * time.Millisecond,
		Cache:      cache,
		RowHook: func(ctx context.Context, row int) {
			snap, err := status.Get(ctx)
			require.NoError(t, err)
			require.Equal(t, row, snap.CurrentRow)
			mu.Lock()
			seen = append(seen, snap)
			mu.Unlock()
		},
	})
	csv := header +
		"Acme,A1,P-1,1,Bolt,1,1,M\n" +
		"Acme,A1,P-2,2,Nut,1,1,M\n" +
		"Acme,A1,P-3,3,Cam,1,1,M\n"

	res, err := im.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 3, res.SuccessCount)
	require.Equal(t, 1, cache.bumps)

	mu.Lock()
	require.Len(t, seen, 3)
	for i, snap := range seen {
		require.Equal(t, PhaseProcessing, snap.Status)
		require.Equal(t, 3, snap.TotalRows)
		require.Equal(t, i+1, snap.CurrentRow)
	}
	mu.Unlock()

	snap, _ := status.Get(context.Background())
	require.Equal(t, PhaseCompleted, snap.Status)

	require.Eventually(t, func() bool {
		snap, _ := status.Get(context.Background())
		return snap.Status == PhaseIdle
	}, 2*time.Second, 10*time.Millisecond)
}

func TestImportBackToBackKeepsLaterStatus(t *testing.T) {
	repo := newMemoryRepo()
	status := NewMemoryStatusStore()
	var second atomic.Bool
	var midRun Status
	im := New(repo, Options{
		Status:     status,
		ResetDelay: 50 * time.Millisecond,
		RowHook: func(ctx context.Context, row int) {
			if !second.Load() {
				return
			}
			time.Sleep(80 * time.Millisecond)
			midRun, _ = status.Get(ctx)
		},
	})
	csv := header + "Acme,A1,P-1,1,Bolt,1,1,M\n"

	_, err := im.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)

	second.Store(true)
	_, err = im.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, PhaseProcessing, midRun.Status)
	require.Equal(t, 1, midRun.CurrentRow)

	snap, _ := status.Get(context.Background())
	require.Equal(t, PhaseCompleted, snap.Status)

	require.Eventually(t, func() bool {
		snap, _ := status.Get(context.Background())
		return snap.Status == PhaseIdle
	}, 2*time.Second, 10*time.Millisecond)
}
