package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/broker"
	"github.com/shopforge/commerce-backend/internal/platform/testutil"
)

func newTestConsumer(t *testing.T) (serviceDeps, *Consumer) {
	t.Helper()
	deps := newTestDeps(t, 0)
	consumer := NewConsumer(testutil.Logger(t), observability.NewForTest(), deps.svc, deps.repo)
	return deps, consumer
}

func TestConsumerOrderStatusCreatesNotification(t *testing.T) {
	deps, consumer := newTestConsumer(t)
	ctx := context.Background()

	consumer.Handle(ctx, broker.Message{
		Topic: "order.status.changed.v1",
		Payload: map[string]interface{}{
			"order_id":    int64(42),
			"customer_id": int64(7),
			"status":      "shipped",
		},
	})

	views, total, err := deps.svc.ListNotifications(ctx, ListNotificationsFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, views, 1)
	assert.Equal(t, "email", views[0].Channel)
	assert.Equal(t, "customer-7@example.com", views[0].Recipient)
	assert.Equal(t, "sent", views[0].Status)
	require.NotNil(t, views[0].Subject)
	assert.Equal(t, "Order 42 status updated to Shipped", *views[0].Subject)
}

func TestConsumerHonorsOptOut(t *testing.T) {
	deps, consumer := newTestConsumer(t)
	ctx := context.Background()

	_, err := deps.svc.UpdatePreferences(ctx, 7, []PreferenceEntry{{Channel: "email", OptIn: false}})
	require.NoError(t, err)

	consumer.Handle(ctx, broker.Message{
		Topic: "order.status.changed.v1",
		Payload: map[string]interface{}{
			"order_id":    int64(42),
			"customer_id": int64(7),
			"status":      "shipped",
		},
	})

	_, total, err := deps.svc.ListNotifications(ctx, ListNotificationsFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestConsumerDropsWithoutCustomer(t *testing.T) {
	deps, consumer := newTestConsumer(t)
	ctx := context.Background()

	consumer.Handle(ctx, broker.Message{
		Topic:   "fulfillment.shipment.updated.v1",
		Payload: map[string]interface{}{"status": "shipped"},
	})
	// sms needs an explicit phone number
	consumer.Handle(ctx, broker.Message{
		Topic: "fulfillment.shipment.updated.v1",
		Payload: map[string]interface{}{
			"customer_id": int64(9),
			"channel":     "sms",
			"status":      "shipped",
		},
	})

	_, total, err := deps.svc.ListNotifications(ctx, ListNotificationsFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestConsumerSupportCaseMessage(t *testing.T) {
	deps, consumer := newTestConsumer(t)
	ctx := context.Background()

	consumer.Handle(ctx, broker.Message{
		Topic: "support.case.message.v1",
		Payload: map[string]interface{}{
			"changeType": "conversation.added",
			"ticket": map[string]interface{}{
				"id":            "tick-1",
				"customerId":    "customer-15",
				"customerEmail": "pat@example.com",
				"subject":       "Broken widget",
			},
			"conversation": map[string]interface{}{
				"authorType": "agent",
				"message":    "We shipped a replacement.",
			},
		},
	})

	views, total, err := deps.svc.ListNotifications(ctx, ListNotificationsFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "pat@example.com", views[0].Recipient)
	assert.Equal(t, "Agent wrote: We shipped a replacement.", views[0].Body)
	require.NotNil(t, views[0].Subject)
	assert.Equal(t, "Update for support case tick-1", *views[0].Subject)
}
