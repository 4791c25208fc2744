package catalog

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
	db := testutil.DB(t, &Product{}, &ProductCategory{})
	repo := NewProductRepo(db, testutil.Logger(t))
	return NewService(db, testutil.Logger(t), repo, nil)
}

func strPtr(s string) *string { return &s }

func TestCreateProduct(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	view, err := svc.CreateProduct(ctx, CreateProductRequest{
		SKU:        "WIDGET-1",
		Name:       "  Widget  ",
		Price:      decimal.RequireFromString("19.99"),
		Currency:   "usd",
		Categories: []string{"tools", "home"},
	})
	require.NoError(t, err)
	assert.Equal(t, "WIDGET-1", view.SKU)
	assert.Equal(t, "Widget", view.Name)
	assert.Equal(t, "19.99", view.Price)
	assert.Equal(t, "USD", view.Currency)
	assert.True(t, view.IsActive)
	assert.ElementsMatch(t, []string{"tools", "home"}, view.Categories)
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := CreateProductRequest{
		SKU:      "WIDGET-1",
		Name:     "Widget",
		Price:    decimal.RequireFromString("5.00"),
		Currency: "USD",
	}
	_, err := svc.CreateProduct(ctx, req)
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, req)
	require.Error(t, err)
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 409, status)
	assert.Equal(t, "sku_exists", code)
}

func TestCreateProductValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []CreateProductRequest{
		{SKU: "", Name: "Widget", Price: decimal.RequireFromString("1.00"), Currency: "USD"},
		{SKU: "A", Name: "  ", Price: decimal.RequireFromString("1.00"), Currency: "USD"},
		{SKU: "A", Name: "Widget", Price: decimal.Zero, Currency: "USD"},
		{SKU: "A", Name: "Widget", Price: decimal.RequireFromString("1.00"), Currency: "US"},
		{SKU: "A", Name: "Widget", Price: decimal.RequireFromString("1.00"), Currency: "USD", Categories: []string{" "}},
	}
	for i, req := range cases {
		_, err := svc.CreateProduct(ctx, req)
		require.Error(t, err, "case %d", i)
		status, _ := apierr.StatusCode(err)
		assert.Equal(t, 400, status, "case %d", i)
	}
}

func TestGetProductNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetProduct(context.Background(), 9999)
	require.Error(t, err)
	status, code := apierr.StatusCode(err)
	assert.Equal(t, 404, status)
	assert.Equal(t, "product_not_found", code)
}

func TestListProductsFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	inactive := false
	mustCreate := func(sku string, active *bool, categories ...string) {
		t.Helper()
		_, err := svc.CreateProduct(ctx, CreateProductRequest{
			SKU:        sku,
			Name:       "Product " + sku,
			Price:      decimal.RequireFromString("10.00"),
			Currency:   "USD",
			IsActive:   active,
			Categories: categories,
		})
		require.NoError(t, err)
	}
	mustCreate("A-1", nil, "tools")
	mustCreate("A-2", nil, "garden")
	mustCreate("A-3", &inactive, "tools")

	all, total, err := svc.ListProducts(ctx, ListProductsFilter{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)

	tools, total, err := svc.ListProducts(ctx, ListProductsFilter{Category: "tools", Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, tools, 2)

	activeTools, total, err := svc.ListProducts(ctx, ListProductsFilter{Category: "tools", OnlyActive: true, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, activeTools, 1)
	assert.Equal(t, "A-1", activeTools[0].SKU)
}

func TestUpdateProduct(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductRequest{
		SKU:        "WIDGET-1",
		Name:       "Widget",
		Price:      decimal.RequireFromString("19.99"),
		Currency:   "USD",
		Categories: []string{"tools"},
	})
	require.NoError(t, err)

	price := decimal.RequireFromString("25.00")
	newCategories := []string{"home", "garden"}
	updated, err := svc.UpdateProduct(ctx, created.ID, UpdateProductRequest{
		Name:       strPtr("Deluxe Widget"),
		Price:      &price,
		Categories: &newCategories,
	})
	require.NoError(t, err)
	assert.Equal(t, "Deluxe Widget", updated.Name)
	assert.Equal(t, "25.00", updated.Price)
	assert.ElementsMatch(t, []string{"home", "garden"}, updated.Categories)
}

func TestDeleteProduct(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductRequest{
		SKU:      "WIDGET-1",
		Name:     "Widget",
		Price:    decimal.RequireFromString("19.99"),
		Currency: "USD",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, created.ID))

	_, err = svc.GetProduct(ctx, created.ID)
	status, _ := apierr.StatusCode(err)
	assert.Equal(t, 404, status)

	err = svc.DeleteProduct(ctx, created.ID)
	status, _ = apierr.StatusCode(err)
	assert.Equal(t, 404, status)
}
