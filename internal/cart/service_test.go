package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/commerce-backend/internal/platform/apierr"
	"github.com/shopforge/commerce-backend/internal/platform/testutil"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	db := testutil.DB(t, &Cart{}, &CartItem{})
	repo := NewCartRepo(db, testutil.Logger(t))
	return NewService(db, testutil.Logger(t), repo)
}

func addWidget(t *testing.T, svc Service, customerID int64, sku string, price string, qty int) *CartView {
	t.Helper()
	view, err := svc.AddItem(context.Background(), customerID, AddItemRequest{
		SKU:       sku,
		Name:      "Item " + sku,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  qty,
	})
	require.NoError(t, err)
	return view
}

func TestGetCartCreatesOnFirstAccess(t *testing.T) {
	svc := newTestService(t)

	view, err := svc.GetCart(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), view.CustomerID)
	assert.Equal(t, "USD", view.Currency)
	assert.Empty(t, view.Items)
	assert.Equal(t, "0.00", view.Total)
}

func TestAddItemAccumulatesQuantity(t *testing.T) {
	svc := newTestService(t)

	addWidget(t, svc, 1, "SKU-1", "10.00", 2)
	view := addWidget(t, svc, 1, "SKU-1", "12.50", 3)

	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.Equal(t, "12.50", view.Items[0].UnitPrice)
	assert.Equal(t, "62.50", view.Total)
}

func TestUpdateItem(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	addWidget(t, svc, 1, "SKU-1", "10.00", 2)

	qty := 4
	view, err := svc.UpdateItem(ctx, 1, "SKU-1", UpdateItemRequest{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 4, view.Items[0].Quantity)
	assert.Equal(t, "40.00", view.Total)

	_, err = svc.UpdateItem(ctx, 1, "MISSING", UpdateItemRequest{Quantity: &qty})
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 404, status)
	assert.Equal(t, "item_not_found", code)

	_, err = svc.UpdateItem(ctx, 77, "SKU-1", UpdateItemRequest{Quantity: &qty})
	status, code = apierr.StatusCode(err)
	assert.Equal(t, 404, status)
	assert.Equal(t, "cart_not_found", code)
}

func TestRemoveItem(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	addWidget(t, svc, 1, "SKU-1", "10.00", 1)
	addWidget(t, svc, 1, "SKU-2", "5.00", 1)

	view, err := svc.RemoveItem(ctx, 1, "SKU-1")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "SKU-2", view.Items[0].SKU)

	_, err = svc.RemoveItem(ctx, 1, "SKU-1")
	status, _ := apierr.StatusCode(err)
	assert.Equal(t, 404, status)
}

func TestClearCartIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	addWidget(t, svc, 1, "SKU-1", "10.00", 1)
	require.NoError(t, svc.ClearCart(ctx, 1))

	view, err := svc.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	require.NoError(t, svc.ClearCart(ctx, 999))
}

func TestGetTotals(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	totals, err := svc.GetTotals(ctx, 55)
	require.NoError(t, err)
	assert.Equal(t, 0, totals.TotalItems)
	assert.Equal(t, "0.00", totals.TotalAmount)

	addWidget(t, svc, 55, "SKU-1", "19.99", 2)
	addWidget(t, svc, 55, "SKU-2", "0.01", 3)

	totals, err = svc.GetTotals(ctx, 55)
	require.NoError(t, err)
	assert.Equal(t, 5, totals.TotalItems)
	assert.Equal(t, "40.01", totals.TotalAmount)
}

func TestMergeCarts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	addWidget(t, svc, 1, "SKU-1", "10.00", 2)
	addWidget(t, svc, 2, "SKU-1", "9.00", 1)
	addWidget(t, svc, 2, "SKU-2", "4.00", 4)

	view, err := svc.MergeCarts(ctx, MergeRequest{FromCustomerID: 2, ToCustomerID: 1})
	require.NoError(t, err)
	require.Len(t, view.Items, 2)

	bySKU := map[string]CartItemView{}
	for _, item := range view.Items {
		bySKU[item.SKU] = item
	}
	assert.Equal(t, 3, bySKU["SKU-1"].Quantity)
	assert.Equal(t, "9.00", bySKU["SKU-1"].UnitPrice)
	assert.Equal(t, 4, bySKU["SKU-2"].Quantity)

	source, err := svc.GetCart(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, source.Items)
}

func TestMergeCartsMissingSource(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	addWidget(t, svc, 1, "SKU-1", "10.00", 2)

	view, err := svc.MergeCarts(ctx, MergeRequest{FromCustomerID: 404, ToCustomerID: 1})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
}
