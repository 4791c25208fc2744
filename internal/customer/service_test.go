package customer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/commerce-backend/internal/platform/apierr"
	"github.com/shopforge/commerce-backend/internal/platform/testutil"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	db := testutil.DB(t, &CustomerProfile{}, &CustomerAddress{}, &CustomerSegment{})
	repo := NewCustomerRepo(db, testutil.Logger(t))
	return NewService(db, testutil.Logger(t), repo)
}

func strPtr(s string) *string { return &s }

func TestCreateCustomer(t *testing.T) {
	svc := newTestService(t)

	view, err := svc.CreateCustomer(context.Background(), CreateCustomerRequest{
		Email:    "Ada@Example.COM",
		FullName: "Ada Lovelace",
		Addresses: []AddressInput{
			{Line1: "1 Analytical Way", City: "London", Country: "gb"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", view.Email)
	require.Len(t, view.Addresses, 1)
	assert.Equal(t, "GB", view.Addresses[0].Country)
}

func TestCreateCustomerDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := CreateCustomerRequest{Email: "ada@example.com", FullName: "Ada"}
	_, err := svc.CreateCustomer(ctx, req)
	require.NoError(t, err)

	_, err = svc.CreateCustomer(ctx, req)
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 409, status)
	assert.Equal(t, "email_exists", code)
}

func TestUpdateCustomerReplacesAddresses(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateCustomer(ctx, CreateCustomerRequest{
		Email:    "ada@example.com",
		FullName: "Ada",
		Addresses: []AddressInput{
			{Line1: "1 Old St", City: "London", Country: "GB"},
		},
	})
	require.NoError(t, err)

	newAddrs := []AddressInput{
		{Line1: "2 New St", City: "Paris", Country: "FR"},
		{Line1: "3 Side St", City: "Lyon", Country: "FR"},
	}
	updated, err := svc.UpdateCustomer(ctx, created.ID, UpdateCustomerRequest{
		FullName:  strPtr("Ada L."),
		Addresses: &newAddrs,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.FullName)
	require.Len(t, updated.Addresses, 2)
	assert.Equal(t, "Paris", updated.Addresses[0].City)
}

func TestSegments(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateCustomer(ctx, CreateCustomerRequest{Email: "a@b.co", FullName: "A"})
	require.NoError(t, err)

	segment, err := svc.AssignSegment(ctx, created.ID, SegmentAssignment{Segment: "vip"})
	require.NoError(t, err)
	assert.Equal(t, "vip", segment.Segment)
	assert.Equal(t, created.ID, segment.CustomerID)

	_, err = svc.AssignSegment(ctx, created.ID, SegmentAssignment{Segment: "loyal"})
	require.NoError(t, err)

	view, err := svc.GetCustomer(ctx, created.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vip", "loyal"}, view.Segments)

	require.NoError(t, svc.ClearSegments(ctx, created.ID))
	view, err = svc.GetCustomer(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Segments)
}

func TestCustomerNotFound(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetCustomer(ctx, 12345)
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 404, status)
	assert.Equal(t, "customer_not_found", code)

	err = svc.DeleteCustomer(ctx, 12345)
	status, _ = apierr.StatusCode(err)
	assert.Equal(t, 404, status)

	_, err = svc.AssignSegment(ctx, 12345, SegmentAssignment{Segment: "vip"})
	status, _ = apierr.StatusCode(err)
	assert.Equal(t, 404, status)
}
