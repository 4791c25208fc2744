package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/apierr"
	"github.com/shopforge/commerce-backend/internal/platform/broker"
	"github.com/shopforge/commerce-backend/internal/platform/testutil"
)

type stubProvider struct {
	sent []string
	err  error
}

func (p *stubProvider) Send(ctx context.Context, recipient, channel string, subject *string, body string, metadata map[string]interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, recipient)
	return nil
}

type serviceDeps struct {
	svc      Service
	repo     NotificationRepo
	provider *stubProvider
	limiter  *RateLimiter
	bus      *broker.Broker
}

func newTestDeps(t *testing.T, limit int64) serviceDeps {
	t.Helper()
	db := testutil.DB(t,
		&Notification{},
		&NotificationEvent{},
		&NotificationTemplate{},
		&NotificationJob{},
		&Preference{},
	)
	repo := NewNotificationRepo(db, testutil.Logger(t))
	provider := &stubProvider{}
	var limiter *RateLimiter
	if limit > 0 {
		limiter = NewRateLimiter(newFakeRedis(), testutil.Logger(t), observability.NewForTest(), limit, time.Minute)
	}
	bus := broker.New(testutil.Logger(t))
	svc := NewService(db, testutil.Logger(t), repo, observability.NewForTest(), limiter, provider, bus)
	return serviceDeps{svc: svc, repo: repo, provider: provider, limiter: limiter, bus: bus}
}

func sampleNotification(t *testing.T, svc Service) *NotificationView {
	t.Helper()
	subject := "Your order shipped"
	view, err := svc.CreateNotification(context.Background(), CreateNotificationRequest{
		Recipient: "jamie@example.com",
		Channel:   "email",
		Subject:   &subject,
		Body:      "Order 42 is on its way.",
		Metadata:  map[string]interface{}{"orderId": 42},
	})
	require.NoError(t, err)
	return view
}

func TestCreateNotificationValidation(t *testing.T) {
	deps := newTestDeps(t, 0)
	ctx := context.Background()

	cases := []struct {
		name string
		req  CreateNotificationRequest
	}{
		{"missing recipient", CreateNotificationRequest{Channel: "email", Body: "hi"}},
		{"missing channel", CreateNotificationRequest{Recipient: "a@b.c", Body: "hi"}},
		{"missing body", CreateNotificationRequest{Recipient: "a@b.c", Channel: "email"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := deps.svc.CreateNotification(ctx, tc.req)
			status, code := apierr.StatusCode(err)
			assert.Equal(t, 400, status)
			assert.Equal(t, "validation_error", code)
		})
	}
}

func TestSendNotificationLifecycle(t *testing.T) {
	deps := newTestDeps(t, 0)
	ctx := context.Background()

	created := sampleNotification(t, deps.svc)
	assert.Equal(t, "pending", created.Status)

	sent, err := deps.svc.SendNotification(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "sent", sent.Status)
	require.NotNil(t, sent.SentAt)
	assert.Equal(t, []string{"jamie@example.com"}, deps.provider.sent)

	_, err = deps.svc.SendNotification(ctx, created.ID)
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 409, status)
	assert.Equal(t, "already_sent", code)

	events, err := deps.svc.GetEvents(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "created", events[0].Type)
	assert.Equal(t, "sent", events[1].Type)
}

func TestSendNotificationRateLimited(t *testing.T) {
	deps := newTestDeps(t, 1)
	ctx := context.Background()

	first := sampleNotification(t, deps.svc)
	second := sampleNotification(t, deps.svc)

	_, err := deps.svc.SendNotification(ctx, first.ID)
	require.NoError(t, err)

	_, err = deps.svc.SendNotification(ctx, second.ID)
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 429, status)
	assert.Equal(t, "rate_limit_exceeded", code)
	assert.Len(t, deps.provider.sent, 1)
}

func TestFailAndRescheduleNotification(t *testing.T) {
	deps := newTestDeps(t, 0)
	ctx := context.Background()

	created := sampleNotification(t, deps.svc)

	failed, err := deps.svc.FailNotification(ctx, created.ID, "smtp timeout")
	require.NoError(t, err)
	assert.Equal(t, "failed", failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.Equal(t, "smtp timeout", *failed.ErrorMessage)

	_, err = deps.svc.FailNotification(ctx, created.ID, "  ")
	status, _ := apierr.StatusCode(err)
	assert.Equal(t, 400, status)

	sendAfter := time.Now().UTC().Add(time.Hour)
	rescheduled, err := deps.svc.RescheduleNotification(ctx, created.ID, &sendAfter)
	require.NoError(t, err)
	require.NotNil(t, rescheduled.SendAfter)

	cleared, err := deps.svc.RescheduleNotification(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, cleared.SendAfter)

	events, err := deps.svc.GetEvents(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, "rescheduled", events[3].Type)
	assert.Equal(t, "cleared", events[3].Payload)
}

func TestDeleteNotificationIdempotent(t *testing.T) {
	deps := newTestDeps(t, 0)
	ctx := context.Background()

	created := sampleNotification(t, deps.svc)
	require.NoError(t, deps.svc.DeleteNotification(ctx, created.ID))
	require.NoError(t, deps.svc.DeleteNotification(ctx, created.ID))

	_, err := deps.svc.GetNotification(ctx, created.ID)
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 404, status)
	assert.Equal(t, "notification_not_found", code)
}

func sampleTemplate(t *testing.T, svc Service) *TemplateView {
	t.Helper()
	subject := "Hello {name}"
	view, err := svc.CreateTemplate(context.Background(), CreateTemplateRequest{
		Name:     "order-shipped",
		Channel:  "Email",
		Subject:  &subject,
		Body:     "Hi {name}, order {orderId} shipped via {carrier}.",
		Metadata: map[string]interface{}{"carrier": "UPS"},
	})
	require.NoError(t, err)
	return view
}

func TestCreateTemplateRejectsDuplicates(t *testing.T) {
	deps := newTestDeps(t, 0)
	ctx := context.Background()

	created := sampleTemplate(t, deps.svc)
	assert.Equal(t, "email", created.Channel)
	assert.Equal(t, "en-us", created.Locale)
	assert.Equal(t, 1, created.Version)

	_, err := deps.svc.CreateTemplate(ctx, CreateTemplateRequest{
		Name:    "order-shipped",
		Channel: "email",
		Body:    "other body",
	})
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 409, status)
	assert.Equal(t, "template_exists", code)

	// a new version of the same template is fine
	version := 2
	_, err = deps.svc.CreateTemplate(ctx, CreateTemplateRequest{
		Name:    "order-shipped",
		Channel: "email",
		Version: &version,
		Body:    "other body",
	})
	require.NoError(t, err)
}

func TestUpdateTemplateGuardsVersionClash(t *testing.T) {
	deps := newTestDeps(t, 0)
	ctx := context.Background()

	first := sampleTemplate(t, deps.svc)
	version := 2
	second, err := deps.svc.CreateTemplate(ctx, CreateTemplateRequest{
		Name:    "order-shipped",
		Channel: "email",
		Version: &version,
		Body:    "v2 body",
	})
	require.NoError(t, err)

	one := 1
	_, err = deps.svc.UpdateTemplate(ctx, second.ID, UpdateTemplateRequest{Version: &one})
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 409, status)
	assert.Equal(t, "template_exists", code)

	newBody := "updated body"
	updated, err := deps.svc.UpdateTemplate(ctx, first.ID, UpdateTemplateRequest{Body: &newBody})
	require.NoError(t, err)
	assert.Equal(t, "updated body", updated.Body)
}

func TestDeleteTemplateRequiresExisting(t *testing.T) {
	deps := newTestDeps(t, 0)
	ctx := context.Background()

	created := sampleTemplate(t, deps.svc)
	require.NoError(t, deps.svc.DeleteTemplate(ctx, created.ID))

	err := deps.svc.DeleteTemplate(ctx, created.ID)
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 404, status)
	assert.Equal(t, "template_not_found", code)
}

func TestScheduleBatchRendersTemplates(t *testing.T) {
	deps := newTestDeps(t, 0)
	ctx := context.Background()

	template := sampleTemplate(t, deps.svc)

	job, err := deps.svc.ScheduleBatch(ctx, BatchRequest{
		TemplateID: template.ID,
		Recipients: []BatchRecipient{
			{Recipient: "jamie@example.com", Metadata: map[string]interface{}{"name": "Jamie", "orderId": 42}},
			{Recipient: "alex@example.com", Metadata: map[string]interface{}{"name": "Alex"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "completed", job.Status)
	assert.Equal(t, 2, job.TotalCount)
	assert.Equal(t, 2, job.ProcessedCount)

	detail, err := deps.svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, detail.Notifications, 2)
	first := detail.Notifications[0]
	require.NotNil(t, first.Subject)
	assert.Equal(t, "Hello Jamie", *first.Subject)
	assert.Equal(t, "Hi Jamie, order 42 shipped via UPS.", first.Body)
	// unknown keys stay literal
	assert.Equal(t, "Hi Alex, order {orderId} shipped via UPS.", detail.Notifications[1].Body)
}

func TestScheduleBatchErrors(t *testing.T) {
	deps := newTestDeps(t, 0)
	ctx := context.Background()

	_, err := deps.svc.ScheduleBatch(ctx, BatchRequest{TemplateID: "missing", Recipients: []BatchRecipient{{Recipient: "a@b.c"}}})
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 404, status)
	assert.Equal(t, "template_not_found", code)

	template := sampleTemplate(t, deps.svc)
	_, err = deps.svc.ScheduleBatch(ctx, BatchRequest{TemplateID: template.ID})
	status, code = apierr.StatusCode(err)
	assert.Equal(t, 400, status)
	assert.Equal(t, "empty_batch", code)
}

func TestScheduleBatchRateLimited(t *testing.T) {
	deps := newTestDeps(t, 1)
	ctx := context.Background()

	template := sampleTemplate(t, deps.svc)
	_, err := deps.svc.ScheduleBatch(ctx, BatchRequest{
		TemplateID: template.ID,
		Recipients: []BatchRecipient{
			{Recipient: "jamie@example.com"},
			{Recipient: "alex@example.com"},
		},
	})
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 429, status)
	assert.Equal(t, "rate_limit_exceeded", code)
}

func TestPreferencesUpsertAndSort(t *testing.T) {
	deps := newTestDeps(t, 0)
	ctx := context.Background()

	view, err := deps.svc.UpdatePreferences(ctx, 7, []PreferenceEntry{
		{Channel: "SMS", OptIn: false},
		{Channel: "email", OptIn: true},
	})
	require.NoError(t, err)
	require.Len(t, view.Preferences, 2)
	assert.Equal(t, "email", view.Preferences[0].Channel)
	assert.Equal(t, "sms", view.Preferences[1].Channel)
	assert.False(t, view.Preferences[1].OptIn)

	view, err = deps.svc.UpdatePreferences(ctx, 7, []PreferenceEntry{
		{Channel: "sms", OptIn: true},
	})
	require.NoError(t, err)
	require.Len(t, view.Preferences, 2)
	assert.True(t, view.Preferences[1].OptIn)

	_, err = deps.svc.UpdatePreferences(ctx, 7, []PreferenceEntry{
		{Channel: "email", OptIn: true},
		{Channel: "Email", OptIn: false},
	})
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 400, status)
	assert.Equal(t, "duplicate_channel", code)
}

func TestMaskRecipient(t *testing.T) {
	assert.Equal(t, "j***e@example.com", maskRecipient("jamie@example.com"))
	assert.Equal(t, "a*@example.com", maskRecipient("ab@example.com"))
	assert.Equal(t, "+15550100", maskRecipient("+15550100"))
}
