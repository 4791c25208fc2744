package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/apierr"
	"github.com/shopforge/commerce-backend/internal/platform/testutil"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	db := testutil.DB(t, &PriceRule{})
	repo := NewPricingRepo(db, testutil.Logger(t))
	return NewService(db, testutil.Logger(t), repo, observability.NewForTest())
}

func newRule(t *testing.T, svc Service, sku string, region *string, price string, priority int, startAt time.Time) *RuleView {
	t.Helper()
	view, err := svc.CreateRule(context.Background(), CreateRuleRequest{
		SKU:      sku,
		Region:   region,
		Currency: "USD",
		Price:    decimal.RequireFromString(price),
		Priority: &priority,
		StartAt:  &startAt,
	})
	require.NoError(t, err)
	return view
}

func TestCreateRuleRejectsDuplicateWindow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	startAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	region := "EU"
	newRule(t, svc, "SKU-1", &region, "10.00", 100, startAt)

	lower := "eu"
	_, err := svc.CreateRule(ctx, CreateRuleRequest{
		SKU:      "SKU-1",
		Region:   &lower,
		Currency: "USD",
		Price:    decimal.RequireFromString("12.00"),
		StartAt:  &startAt,
	})
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 409, status)
	assert.Equal(t, "rule_exists", code)

	// same window for a different region is allowed
	other := "us"
	newRule(t, svc, "SKU-1", &other, "11.00", 100, startAt)
}

func TestResolvePrefersRegionalRule(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	startAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	region := "eu"
	newRule(t, svc, "SKU-1", nil, "20.00", 100, startAt)
	newRule(t, svc, "SKU-1", &region, "18.00", 100, startAt)

	view, err := svc.ResolvePrice(ctx, "SKU-1", "EU", nil)
	require.NoError(t, err)
	assert.Equal(t, "18.00", view.Price)
	require.NotNil(t, view.Rule.Region)
	assert.Equal(t, "eu", *view.Rule.Region)

	// without a region only the global rule matches
	view, err = svc.ResolvePrice(ctx, "SKU-1", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "20.00", view.Price)
}

func TestResolveHonorsPriorityAndWindow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newRule(t, svc, "SKU-1", nil, "20.00", 100, base)
	newRule(t, svc, "SKU-1", nil, "15.00", 10, base.Add(24*time.Hour))

	// before the promo window starts the base rule wins
	early := base.Add(time.Hour)
	view, err := svc.ResolvePrice(ctx, "SKU-1", "", &early)
	require.NoError(t, err)
	assert.Equal(t, "20.00", view.Price)

	late := base.Add(48 * time.Hour)
	view, err = svc.ResolvePrice(ctx, "SKU-1", "", &late)
	require.NoError(t, err)
	assert.Equal(t, "15.00", view.Price)
}

func TestResolveMissReturns404(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ResolvePrice(context.Background(), "UNKNOWN", "", nil)
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 404, status)
	assert.Equal(t, "rule_not_found", code)
}

func TestResolveSkipsInactiveAndExpired(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	startAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	created := newRule(t, svc, "SKU-1", nil, "20.00", 100, startAt)

	inactive := false
	_, err := svc.UpdateRule(ctx, created.ID, UpdateRuleRequest{IsActive: &inactive})
	require.NoError(t, err)

	_, err = svc.ResolvePrice(ctx, "SKU-1", "", nil)
	status, _ := apierr.StatusCode(err)
	assert.Equal(t, 404, status)
}

func TestListRulesRegionIncludesGlobal(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	startAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	region := "eu"
	other := "us"
	newRule(t, svc, "SKU-1", nil, "20.00", 100, startAt)
	newRule(t, svc, "SKU-1", &region, "18.00", 50, startAt)
	newRule(t, svc, "SKU-1", &other, "22.00", 50, startAt)

	views, total, err := svc.ListRules(ctx, ListRulesFilter{SKU: "SKU-1", Region: "EU", Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, views, 2)
	// priority ascending puts the regional rule first
	assert.Equal(t, 50, views[0].Priority)
}

func TestDeleteRuleRequiresExisting(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	startAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	created := newRule(t, svc, "SKU-1", nil, "20.00", 100, startAt)

	require.NoError(t, svc.DeleteRule(ctx, created.ID))

	err := svc.DeleteRule(ctx, created.ID)
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 404, status)
	assert.Equal(t, "rule_not_found", code)
}
