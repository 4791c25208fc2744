package order

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/apierr"
	"github.com/shopforge/commerce-backend/internal/platform/broker"
	"github.com/shopforge/commerce-backend/internal/platform/testutil"
)

func newTestService(t *testing.T, opts ...ServiceOption) Service {
	t.Helper()
	db := testutil.DB(t, &Order{}, &OrderItem{}, &OrderEvent{})
	repo := NewOrderRepo(db, testutil.Logger(t))
	bus := broker.New(testutil.Logger(t))
	return NewService(db, testutil.Logger(t), repo, observability.NewForTest(), bus, opts...)
}

func sampleRequest() CreateOrderRequest {
	return CreateOrderRequest{
		CustomerID: 7,
		Currency:   "usd",
		Items: []OrderItemInput{
			{
				SKU:            "SKU-1",
				Name:           "Widget",
				Quantity:       2,
				UnitPrice:      decimal.RequireFromString("19.99"),
				DiscountAmount: decimal.RequireFromString("2.00"),
				TaxAmount:      decimal.RequireFromString("1.50"),
			},
			{
				SKU:       "SKU-2",
				Name:      "Gadget",
				Quantity:  1,
				UnitPrice: decimal.RequireFromString("5.00"),
			},
		},
		ShippingTotal: decimal.RequireFromString("4.99"),
		TaxTotal:      decimal.RequireFromString("3.50"),
		DiscountTotal: decimal.RequireFromString("1.00"),
	}
}

func TestCreateOrderComputesTotals(t *testing.T) {
	svc := newTestService(t)

	view, err := svc.CreateOrder(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, "pending", view.Status)
	assert.Equal(t, "USD", view.Currency)
	assert.False(t, view.IsPaid)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "19.99", view.Items[0].UnitPrice)

	// subtotal = (19.99-2.00)*2 + 5.00 = 40.98
	assert.Equal(t, "40.98", view.Subtotal)
	// grand = 40.98 - 1.00 + 4.99 + 3.50 = 48.47
	assert.Equal(t, "48.47", view.GrandTotal)
}

func TestCreateOrderValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateOrderRequest)
	}{
		{"missing customer", func(r *CreateOrderRequest) { r.CustomerID = 0 }},
		{"bad currency", func(r *CreateOrderRequest) { r.Currency = "DOLLARS" }},
		{"no items", func(r *CreateOrderRequest) { r.Items = nil }},
		{"blank sku", func(r *CreateOrderRequest) { r.Items[0].SKU = "  " }},
		{"zero quantity", func(r *CreateOrderRequest) { r.Items[0].Quantity = 0 }},
		{"free item", func(r *CreateOrderRequest) { r.Items[0].UnitPrice = decimal.Zero }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := sampleRequest()
			tc.mutate(&req)
			_, err := svc.CreateOrder(ctx, req)
			status, code := apierr.StatusCode(err)
			assert.Equal(t, 400, status)
			assert.Equal(t, "validation_error", code)
		})
	}
}

type stubPricing struct {
	price    decimal.Decimal
	currency string
	calls    int
}

func (p *stubPricing) ResolvePrice(_ context.Context, _ string, _ int) (decimal.Decimal, string, error) {
	p.calls++
	return p.price, p.currency, nil
}

type stubInventory struct {
	reserved map[string]int
}

func (i *stubInventory) Reserve(_ context.Context, sku string, quantity int) error {
	if i.reserved == nil {
		i.reserved = map[string]int{}
	}
	i.reserved[sku] += quantity
	return nil
}

func TestCreateOrderWithPricingProvider(t *testing.T) {
	pricing := &stubPricing{price: decimal.RequireFromString("10.00"), currency: "USD"}
	inventory := &stubInventory{}
	svc := newTestService(t, WithPricing(pricing), WithInventory(inventory))

	req := sampleRequest()
	view, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, pricing.calls)
	assert.Equal(t, "10.00", view.Items[0].UnitPrice)
	// subtotal = (10.00-2.00)*2 + 10.00 = 26.00
	assert.Equal(t, "26.00", view.Subtotal)
	assert.Equal(t, map[string]int{"SKU-1": 2, "SKU-2": 1}, inventory.reserved)
}

func TestCreateOrderCurrencyMismatch(t *testing.T) {
	pricing := &stubPricing{price: decimal.RequireFromString("10.00"), currency: "EUR"}
	svc := newTestService(t, WithPricing(pricing))

	_, err := svc.CreateOrder(context.Background(), sampleRequest())
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 400, status)
	assert.Equal(t, "currency_mismatch", code)
}

func TestUpdateStatusAppendsEvent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, sampleRequest())
	require.NoError(t, err)

	view, err := svc.UpdateStatus(ctx, created.ID, "shipped")
	require.NoError(t, err)
	assert.Equal(t, "shipped", view.Status)

	events, err := svc.GetEvents(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "status_changed", events[0].Type)
	assert.Equal(t, "shipped", events[0].Payload)

	_, err = svc.UpdateStatus(ctx, 999, "shipped")
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 404, status)
	assert.Equal(t, "order_not_found", code)
}

func TestCapturePayment(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, sampleRequest())
	require.NoError(t, err)

	view, err := svc.CapturePayment(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, view.IsPaid)

	events, err := svc.GetEvents(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "payment_captured", events[0].Type)
	assert.Equal(t, "paid", events[0].Payload)
}

func TestListOrdersFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateOrder(ctx, sampleRequest())
	require.NoError(t, err)

	other := sampleRequest()
	other.CustomerID = 8
	_, err = svc.CreateOrder(ctx, other)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, first.ID, "shipped")
	require.NoError(t, err)

	views, total, err := svc.ListOrders(ctx, ListOrdersFilter{CustomerID: 7, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, views, 1)
	assert.Equal(t, first.ID, views[0].ID)

	views, total, err = svc.ListOrders(ctx, ListOrdersFilter{Status: "pending", Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(8), views[0].CustomerID)
}

func TestDeleteOrderIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, sampleRequest())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOrder(ctx, created.ID))
	require.NoError(t, svc.DeleteOrder(ctx, created.ID))

	_, err = svc.GetOrder(ctx, created.ID)
	status, _ := apierr.StatusCode(err)
	assert.Equal(t, 404, status)
}
