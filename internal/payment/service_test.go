package payment

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/apierr"
	"github.com/shopforge/commerce-backend/internal/platform/testutil"
)

type stubGateway struct {
	reference string
	captured  []string
	refunded  []string
}

func (g *stubGateway) Authorize(_ context.Context, _ decimal.Decimal, _, _ string, _ map[string]interface{}) (string, error) {
	return g.reference, nil
}

func (g *stubGateway) Capture(_ context.Context, providerReference string) error {
	g.captured = append(g.captured, providerReference)
	return nil
}

func (g *stubGateway) Refund(_ context.Context, providerReference string, _ *decimal.Decimal) error {
	g.refunded = append(g.refunded, providerReference)
	return nil
}

func newTestService(t *testing.T, gateway Gateway) Service {
	t.Helper()
	db := testutil.DB(t, &Payment{}, &PaymentEvent{})
	repo := NewPaymentRepo(db, testutil.Logger(t))
	return NewService(db, testutil.Logger(t), repo, observability.NewForTest(), gateway)
}

func newPayment(t *testing.T, svc Service) *PaymentView {
	t.Helper()
	orderID := int64(10)
	view, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{
		CustomerID:    3,
		OrderID:       &orderID,
		Amount:        decimal.RequireFromString("25.50"),
		Currency:      "usd",
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	return view
}

func TestCreatePaymentRecordsEvents(t *testing.T) {
	svc := newTestService(t, nil)

	view := newPayment(t, svc)
	assert.Equal(t, "pending", view.Status)
	assert.Equal(t, "25.50", view.Amount)
	assert.Equal(t, "USD", view.Currency)
	assert.Nil(t, view.ProviderReference)

	events, err := svc.GetEvents(context.Background(), view.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "created", events[0].Type)
	assert.Equal(t, "pending", events[0].Payload)
}

func TestCreatePaymentAuthorizesThroughGateway(t *testing.T) {
	gateway := &stubGateway{reference: "ref-123"}
	svc := newTestService(t, gateway)

	view := newPayment(t, svc)
	require.NotNil(t, view.ProviderReference)
	assert.Equal(t, "ref-123", *view.ProviderReference)

	events, err := svc.GetEvents(context.Background(), view.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "provider_linked", events[1].Type)
	assert.Equal(t, "ref-123", events[1].Payload)
}

func TestCreatePaymentValidation(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		req  CreatePaymentRequest
	}{
		{"missing customer", CreatePaymentRequest{Amount: decimal.RequireFromString("1.00"), Currency: "USD", PaymentMethod: "card"}},
		{"zero amount", CreatePaymentRequest{CustomerID: 1, Currency: "USD", PaymentMethod: "card"}},
		{"bad currency", CreatePaymentRequest{CustomerID: 1, Amount: decimal.RequireFromString("1.00"), Currency: "US", PaymentMethod: "card"}},
		{"blank method", CreatePaymentRequest{CustomerID: 1, Amount: decimal.RequireFromString("1.00"), Currency: "USD", PaymentMethod: "  "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreatePayment(ctx, tc.req)
			status, code := apierr.StatusCode(err)
			assert.Equal(t, 400, status)
			assert.Equal(t, "validation_error", code)
		})
	}
}

func TestCaptureMarksCapturedAndCallsGateway(t *testing.T) {
	gateway := &stubGateway{reference: "ref-9"}
	svc := newTestService(t, gateway)
	ctx := context.Background()

	created := newPayment(t, svc)
	view, err := svc.Capture(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "captured", view.Status)
	assert.Equal(t, []string{"ref-9"}, gateway.captured)

	events, err := svc.GetEvents(ctx, created.ID)
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, event := range events {
		types = append(types, event.Type)
	}
	assert.Contains(t, types, "payment_captured")
	assert.Contains(t, types, "status_changed")
}

func TestRefundFullAndPartial(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	created := newPayment(t, svc)
	view, err := svc.Refund(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "refunded", view.Status)

	events, err := svc.GetEvents(ctx, created.ID)
	require.NoError(t, err)
	var refundPayload string
	for _, event := range events {
		if event.Type == "payment_refunded" {
			refundPayload = event.Payload
		}
	}
	assert.Equal(t, "full", refundPayload)

	partial := newPayment(t, svc)
	amount := decimal.RequireFromString("5.25")
	_, err = svc.Refund(ctx, partial.ID, &amount)
	require.NoError(t, err)

	events, err = svc.GetEvents(ctx, partial.ID)
	require.NoError(t, err)
	for _, event := range events {
		if event.Type == "payment_refunded" {
			refundPayload = event.Payload
		}
	}
	assert.Equal(t, "5.25", refundPayload)
}

func TestUpdateProviderReference(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	created := newPayment(t, svc)
	reference := "psp-42"
	view, err := svc.UpdateProviderReference(ctx, created.ID, &reference)
	require.NoError(t, err)
	require.NotNil(t, view.ProviderReference)
	assert.Equal(t, "psp-42", *view.ProviderReference)

	view, err = svc.UpdateProviderReference(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, view.ProviderReference)
}

func TestListPaymentsFilters(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	first := newPayment(t, svc)
	_, err := svc.CreatePayment(ctx, CreatePaymentRequest{
		CustomerID:    4,
		Amount:        decimal.RequireFromString("9.99"),
		Currency:      "EUR",
		PaymentMethod: "paypal",
	})
	require.NoError(t, err)

	_, err = svc.Capture(ctx, first.ID)
	require.NoError(t, err)

	views, total, err := svc.ListPayments(ctx, ListPaymentsFilter{CustomerID: 3, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, first.ID, views[0].ID)

	views, total, err = svc.ListPayments(ctx, ListPaymentsFilter{Status: "captured", Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, first.ID, views[0].ID)

	views, total, err = svc.ListPayments(ctx, ListPaymentsFilter{OrderID: 10, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, views, 1)
}

func TestDeletePaymentIsIdempotent(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	created := newPayment(t, svc)
	require.NoError(t, svc.DeletePayment(ctx, created.ID))
	require.NoError(t, svc.DeletePayment(ctx, created.ID))

	_, err := svc.GetPayment(ctx, created.ID)
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 404, status)
	assert.Equal(t, "payment_not_found", code)
}
