package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockroom/internal/masterdata/locations"
	"github.com/odyssey-erp/stockroom/internal/masterdata/shared"
	"github.com/odyssey-erp/stockroom/internal/masterdata/suppliers"
)

type memoryRepo struct {
	components map[int64]ComponentDetail
	txs        []Transaction
	nextID     int64
	failInsert error
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo(components ...ComponentDetail) *memoryRepo {
	repo := &memoryRepo{components: make(map[int64]ComponentDetail)}
	for _, c := range components {
		repo.components[c.ID] = c
	}
	return repo
}

// WithTx applies writes to a copy and keeps them only when fn succeeds.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := make(map[int64]ComponentDetail, len(r.components))
	for k, v := range r.components {
		snapshot[k] = v
	}
	txCount := len(r.txs)
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.components = snapshot
		r.txs = r.txs[:txCount]
		return err
	}
	return nil
}

func (r *memoryRepo) ListComponents(ctx context.Context) ([]ComponentDetail, error) {
	out := make([]ComponentDetail, 0, len(r.components))
	for _, c := range r.components {
		out = append(out, c)
	}
	return out, nil
}

func (r *memoryRepo) FindByPartNumber(ctx context.Context, partNumber string) (ComponentDetail, error) {
	for _, c := range r.components {
		if c.SupplierPartNumber == partNumber {
			return c, nil
		}
	}
	return ComponentDetail{}, ErrComponentNotFound
}

func (r *memoryRepo) Search(ctx context.Context, term string, limit int) ([]SearchResult, error) {
	out := []SearchResult{}
	needle := strings.ToLower(term)
	for _, c := range r.components {
		if strings.Contains(strings.ToLower(c.SupplierPartNumber), needle) || strings.Contains(strings.ToLower(c.Description), needle) {
			out = append(out, SearchResult{ID: c.ID, PartNumber: c.SupplierPartNumber, Description: c.Description, Quantity: c.CurrentQuantity, Type: c.Owner})
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memoryRepo) ListTransactions(ctx context.Context, filter TransactionFilter) ([]TransactionView, error) {
	out := []TransactionView{}
	for i := len(r.txs) - 1; i >= 0; i-- {
		t := r.txs[i]
		if filter.ComponentID != 0 && t.ComponentID != filter.ComponentID {
			continue
		}
		out = append(out, TransactionView{Transaction: t})
	}
	return out, nil
}

func (tx *memoryTx) GetComponentForUpdate(ctx context.Context, id int64) (Component, error) {
	c, ok := tx.repo.components[id]
	if !ok {
		return Component{}, ErrComponentNotFound
	}
	return c.Component, nil
}

func (tx *memoryTx) InsertTransaction(ctx context.Context, t Transaction) (int64, error) {
	if tx.repo.failInsert != nil {
		return 0, tx.repo.failInsert
	}
	tx.repo.nextID++
	t.ID = tx.repo.nextID
	tx.repo.txs = append(tx.repo.txs, t)
	return t.ID, nil
}

func (tx *memoryTx) SetQuantity(ctx context.Context, componentID int64, qty int) error {
	c := tx.repo.components[componentID]
	c.CurrentQuantity = qty
	tx.repo.components[componentID] = c
	return nil
}

type countingCache struct{ bumps int }

func (c *countingCache) Bump(context.Context) error {
	c.bumps++
	return nil
}

func resistor() ComponentDetail {
	return ComponentDetail{
		Component: Component{
			ID:                 7,
			SupplierID:         1,
			Owner:              OwnerElectrical,
			SupplierPartNumber: "RES-10K",
			Description:        "10k resistor",
			CurrentQuantity:    20,
			MinimumQuantity:    5,
			UnitPrice:          decimal.RequireFromString("0.05"),
		},
		SupplierName: "Digi",
		LocationCode: "A1",
	}
}

func TestUpdateQuantityRecordsDifference(t *testing.T) {
	repo := newMemoryRepo(resistor())
	cache := &countingCache{}
	svc := NewService(repo, cache, nil)
	ctx := context.Background()

	tx, err := svc.UpdateQuantity(ctx, UpdateInput{ComponentID: 7, Quantity: 12, Type: TransactionTypeOut})
	require.NoError(t, err)
	require.Equal(t, 8, tx.Quantity)
	require.Equal(t, 20, tx.PreviousQuantity)
	require.Equal(t, 12, tx.NewQuantity)
	require.Equal(t, DefaultUserID, tx.UserID)
	require.Equal(t, 12, repo.components[7].CurrentQuantity)
	require.Equal(t, 1, cache.bumps)

	tx, err = svc.UpdateQuantity(ctx, UpdateInput{ComponentID: 7, Quantity: 30, Type: TransactionTypeIn, UserID: "kim"})
	require.NoError(t, err)
	require.Equal(t, 18, tx.Quantity)
	require.Equal(t, "kim", tx.UserID)
	require.Len(t, repo.txs, 2)
}

type failingCache struct{}

func (failingCache) Bump(context.Context) error { return errors.New("redis down") }

func TestUpdateQuantityLogsCacheBumpFailure(t *testing.T) {
	var logs strings.Builder
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	repo := newMemoryRepo(resistor())
	svc := NewService(repo, failingCache{}, logger)

	tx, err := svc.UpdateQuantity(context.Background(), UpdateInput{ComponentID: 7, Quantity: 15, Type: TransactionTypeOut})
	require.NoError(t, err)
	require.Equal(t, 5, tx.Quantity)
	require.Equal(t, 15, repo.components[7].CurrentQuantity)
	require.Contains(t, logs.String(), "report cache bump failed")
	require.Contains(t, logs.String(), "redis down")
}

func TestUpdateQuantityUnknownComponent(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	_, err := svc.UpdateQuantity(context.Background(), UpdateInput{ComponentID: 99, Quantity: 1, Type: TransactionTypeAdjust})
	require.ErrorIs(t, err, ErrComponentNotFound)
}

func TestUpdateQuantityRejectsBadType(t *testing.T) {
	svc := NewService(newMemoryRepo(resistor()), nil, nil)
	_, err := svc.UpdateQuantity(context.Background(), UpdateInput{ComponentID: 7, Quantity: 1, Type: "MOVE"})
	require.ErrorIs(t, err, ErrInvalidTransactionType)

	_, err = svc.UpdateQuantity(context.Background(), UpdateInput{Quantity: 1, Type: TransactionTypeIn})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
}

func TestUpdateQuantityRollsBackOnInsertFailure(t *testing.T) {
	repo := newMemoryRepo(resistor())
	repo.failInsert = errors.New("disk full")
	svc := NewService(repo, nil, nil)

	_, err := svc.UpdateQuantity(context.Background(), UpdateInput{ComponentID: 7, Quantity: 1, Type: TransactionTypeOut})
	require.Error(t, err)
	require.Equal(t, 20, repo.components[7].CurrentQuantity)
	require.Empty(t, repo.txs)
}

func TestSearchBlankTermReturnsEmpty(t *testing.T) {
	svc := NewService(newMemoryRepo(resistor()), nil, nil)
	results, err := svc.Search(context.Background(), "   ")
	require.NoError(t, err)
	require.NotNil(t, results)
	require.Empty(t, results)

	results, err = svc.Search(context.Background(), "res")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "RES-10K", results[0].PartNumber)
}

type staticSuppliers []suppliers.Supplier

func (s staticSuppliers) List(context.Context, shared.ListFilters) ([]suppliers.Supplier, int, error) {
	return s, len(s), nil
}

type staticLocations []locations.Location

func (l staticLocations) List(context.Context, shared.ListFilters) ([]locations.Location, int, error) {
	return l, len(l), nil
}

func newTestRouter(repo *memoryRepo) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, NewService(repo, nil, nil),
		staticSuppliers{{ID: 1, Name: "Digi"}},
		staticLocations{{ID: 1, Code: "A1"}})
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestHandlerComponentDetails(t *testing.T) {
	repo := newMemoryRepo(resistor())
	router := newTestRouter(repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/inventory/update",
		strings.NewReader(`{"component_id":7,"quantity":25,"type":"IN","notes":"restock"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/inventory/component/RES-10K", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Component    ComponentDetail   `json:"component"`
		Transactions []TransactionView `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 25, body.Component.CurrentQuantity)
	require.Len(t, body.Transactions, 1)
	require.Equal(t, "restock", body.Transactions[0].Notes)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/inventory/component/NOPE", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerUpdateErrors(t *testing.T) {
	router := newTestRouter(newMemoryRepo(resistor()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/inventory/update",
		strings.NewReader(`{"component_id":42,"quantity":1,"type":"IN"}`)))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/inventory/update", strings.NewReader(`{`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/inventory/update",
		strings.NewReader(`{"component_id":7,"quantity":1,"type":"LOST"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerOverview(t *testing.T) {
	router := newTestRouter(newMemoryRepo(resistor()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inventory", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body["components"], 1)
	require.Len(t, body["suppliers"], 1)
	require.Len(t, body["locations"], 1)
}
