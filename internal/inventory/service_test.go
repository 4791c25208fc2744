package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/apierr"
	"github.com/shopforge/commerce-backend/internal/platform/testutil"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	db := testutil.DB(t, &InventoryItem{}, &InventoryEvent{})
	repo := NewInventoryRepo(db, testutil.Logger(t))
	return NewService(db, testutil.Logger(t), repo, observability.NewForTest())
}

func newItem(t *testing.T, svc Service, sku string, location *string, onHand int) *ItemView {
	t.Helper()
	view, err := svc.CreateItem(context.Background(), CreateItemRequest{
		SKU:            sku,
		Location:       location,
		QuantityOnHand: onHand,
		SafetyStock:    2,
	})
	require.NoError(t, err)
	return view
}

func TestCreateItemRejectsDuplicates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	warehouse := "WH-1"
	newItem(t, svc, "SKU-1", &warehouse, 10)

	_, err := svc.CreateItem(ctx, CreateItemRequest{SKU: "SKU-1", Location: &warehouse})
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 409, status)
	assert.Equal(t, "item_exists", code)

	// same SKU in another location is fine
	other := "WH-2"
	newItem(t, svc, "SKU-1", &other, 5)
	newItem(t, svc, "SKU-1", nil, 3)

	_, err = svc.CreateItem(ctx, CreateItemRequest{SKU: "SKU-1"})
	status, _ = apierr.StatusCode(err)
	assert.Equal(t, 409, status)
}

func TestReserveReleaseCommitLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created := newItem(t, svc, "SKU-1", nil, 10)

	view, err := svc.Reserve(ctx, created.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, view.QuantityReserved)
	assert.Equal(t, 4, view.Available)

	_, err = svc.Reserve(ctx, created.ID, 5)
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 409, status)
	assert.Equal(t, "insufficient_stock", code)

	view, err = svc.Release(ctx, created.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, view.QuantityReserved)

	_, err = svc.Release(ctx, created.ID, 5)
	status, code = apierr.StatusCode(err)
	assert.Equal(t, 409, status)
	assert.Equal(t, "insufficient_reservation", code)

	view, err = svc.Commit(ctx, created.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, view.QuantityOnHand)
	assert.Equal(t, 0, view.QuantityReserved)
	assert.Equal(t, 6, view.Available)

	events, err := svc.GetEvents(ctx, created.ID)
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, event := range events {
		types = append(types, event.Type)
	}
	assert.Equal(t, []string{"created", "reserved", "released", "committed"}, types)
}

func TestAdjustStockGuardsReservedQuantity(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created := newItem(t, svc, "SKU-1", nil, 10)
	_, err := svc.Reserve(ctx, created.ID, 4)
	require.NoError(t, err)

	_, err = svc.AdjustStock(ctx, created.ID, AdjustRequest{QuantityOnHand: 3})
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 400, status)
	assert.Equal(t, "invalid_adjustment", code)

	safety := 5
	view, err := svc.AdjustStock(ctx, created.ID, AdjustRequest{QuantityOnHand: 8, SafetyStock: &safety})
	require.NoError(t, err)
	assert.Equal(t, 8, view.QuantityOnHand)
	assert.Equal(t, 5, view.SafetyStock)

	events, err := svc.GetEvents(ctx, created.ID)
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, event := range events {
		types = append(types, event.Type)
	}
	assert.Contains(t, types, "adjusted")
	assert.Contains(t, types, "safety_stock_updated")
}

func TestRestock(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created := newItem(t, svc, "SKU-1", nil, 2)
	view, err := svc.Restock(ctx, created.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, 10, view.QuantityOnHand)

	_, err = svc.Restock(ctx, created.ID, 0)
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 400, status)
	assert.Equal(t, "validation_error", code)
}

func TestListItemsFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	warehouse := "WH-1"
	newItem(t, svc, "SKU-1", &warehouse, 10)
	newItem(t, svc, "SKU-2", &warehouse, 5)
	newItem(t, svc, "SKU-1", nil, 1)

	views, total, err := svc.ListItems(ctx, ListItemsFilter{SKU: "SKU-1", Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, views, 2)

	views, total, err = svc.ListItems(ctx, ListItemsFilter{Location: "WH-1", Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	views, total, err = svc.ListItems(ctx, ListItemsFilter{SKU: "SKU-2", Location: "WH-1", Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "SKU-2", views[0].SKU)
}

func TestDeleteItemIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created := newItem(t, svc, "SKU-1", nil, 1)
	require.NoError(t, svc.DeleteItem(ctx, created.ID))
	require.NoError(t, svc.DeleteItem(ctx, created.ID))

	_, err := svc.GetItem(ctx, created.ID)
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 404, status)
	assert.Equal(t, "item_not_found", code)
}
