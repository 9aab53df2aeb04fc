package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokobuku/backend/internal/domain"
	"tokobuku/backend/internal/store"
)

func TestDecreaseStockNeverGoesNegative(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	widget := createWidget(t, s)

	require.NoError(t, s.DecreaseStock(ctx, widget.ID, 45))
	assert.Equal(t, 5, productQuantity(t, s, widget.ID))

	err := s.DecreaseStock(ctx, widget.ID, 6)
	require.ErrorIs(t, err, store.ErrInsufficientStock)
	assert.Equal(t, 5, productQuantity(t, s, widget.ID))

	require.NoError(t, s.DecreaseStock(ctx, widget.ID, 5))
	assert.Equal(t, 0, productQuantity(t, s, widget.ID))

	err = s.DecreaseStock(ctx, widget.ID, 1)
	require.ErrorIs(t, err, store.ErrInsufficientStock)
	assert.Equal(t, 0, productQuantity(t, s, widget.ID))
}

func TestStockOperationsOnMissingProduct(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.DecreaseStock(ctx, 404, 1), store.ErrNotFound)
	assert.ErrorIs(t, s.IncreaseStock(ctx, 404, 1), store.ErrNotFound)
	assert.ErrorIs(t, s.SetStock(ctx, 404, 1), store.ErrNotFound)
}

func TestStockOperationsRejectBadQuantities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	widget := createWidget(t, s)

	assert.ErrorIs(t, s.DecreaseStock(ctx, widget.ID, 0), store.ErrInvalidTransaction)
	assert.ErrorIs(t, s.IncreaseStock(ctx, widget.ID, -3), store.ErrInvalidTransaction)
	assert.ErrorIs(t, s.SetStock(ctx, widget.ID, -1), store.ErrInvalidTransaction)
	assert.Equal(t, 50, productQuantity(t, s, widget.ID))
}

func TestIncreaseAndSetStock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	widget := createWidget(t, s)

	require.NoError(t, s.IncreaseStock(ctx, widget.ID, 7))
	assert.Equal(t, 57, productQuantity(t, s, widget.ID))

	require.NoError(t, s.SetStock(ctx, widget.ID, 3))
	p, err := s.GetProduct(ctx, widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Quantity)
	assert.Equal(t, domain.StockStatusLow, p.StockStatus)

	require.NoError(t, s.SetStock(ctx, widget.ID, 0))
	p, err = s.GetProduct(ctx, widget.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StockStatusOut, p.StockStatus)
}

func TestStockSequenceMatchesRunningTotal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	widget := createWidget(t, s)

	type step struct {
		increase bool
		qty      int
	}
	steps := []step{
		{false, 20}, {true, 4}, {false, 40}, {false, 34}, {true, 1}, {false, 2}, {false, 1}, {true, 10},
	}

	expected := 50
	for _, st := range steps {
		var err error
		if st.increase {
			err = s.IncreaseStock(ctx, widget.ID, st.qty)
		} else {
			err = s.DecreaseStock(ctx, widget.ID, st.qty)
		}
		switch {
		case st.increase:
			require.NoError(t, err)
			expected += st.qty
		case st.qty <= expected:
			require.NoError(t, err)
			expected -= st.qty
		default:
			require.ErrorIs(t, err, store.ErrInsufficientStock)
		}
		require.Equal(t, expected, productQuantity(t, s, widget.ID))
		require.GreaterOrEqual(t, expected, 0)
	}
}

func TestCreateProductRejectsDuplicateSKU(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createWidget(t, s)

	_, err := s.CreateProduct(ctx, domain.Product{Name: "Widget copy", SKU: "WID-001", PriceCents: 100})
	require.ErrorIs(t, err, store.ErrConflict)

	// products without a SKU never collide
	_, err = s.CreateProduct(ctx, domain.Product{Name: "Loose nails"})
	require.NoError(t, err)
	_, err = s.CreateProduct(ctx, domain.Product{Name: "Loose screws"})
	require.NoError(t, err)
}

func TestUpdateProductKeepsQuantity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	widget := createWidget(t, s)

	widget.Name = "Widget XL"
	widget.PriceCents = 1250
	widget.Quantity = 999
	updated, err := s.UpdateProduct(ctx, *widget)
	require.NoError(t, err)
	assert.Equal(t, "Widget XL", updated.Name)
	assert.Equal(t, int64(1250), updated.PriceCents)
	assert.Equal(t, 50, updated.Quantity)

	_, err = s.UpdateProduct(ctx, domain.Product{ID: 404, Name: "ghost"})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestListProductsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createWidget(t, s)

	_, err := s.CreateProduct(ctx, domain.Product{Name: "Notebook A5", SKU: "NB-A5", Category: "stationery", PriceCents: 450, Quantity: 2, MinStock: 10})
	require.NoError(t, err)
	_, err = s.CreateProduct(ctx, domain.Product{Name: "Pencil", Category: "stationery", PriceCents: 100, Quantity: 0, MinStock: 10, Description: "HB graphite"})
	require.NoError(t, err)

	all, err := s.ListProducts(ctx, domain.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byCategory, err := s.ListProducts(ctx, domain.ProductFilter{Category: "stationery"})
	require.NoError(t, err)
	assert.Len(t, byCategory, 2)

	bySKU, err := s.ListProducts(ctx, domain.ProductFilter{Search: "nb-a5"})
	require.NoError(t, err)
	require.Len(t, bySKU, 1)
	assert.Equal(t, "Notebook A5", bySKU[0].Name)

	byDescription, err := s.ListProducts(ctx, domain.ProductFilter{Search: "GRAPHITE"})
	require.NoError(t, err)
	require.Len(t, byDescription, 1)
	assert.Equal(t, "Pencil", byDescription[0].Name)

	low, err := s.ListProducts(ctx, domain.ProductFilter{StockStatus: "low"})
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Notebook A5", low[0].Name)

	out, err := s.ListProducts(ctx, domain.ProductFilter{Category: "stationery", StockStatus: "out"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Pencil", out[0].Name)

	lowOrOut, err := s.LowStockProducts(ctx)
	require.NoError(t, err)
	require.Len(t, lowOrOut, 2)
	assert.Equal(t, "Pencil", lowOrOut[0].Name)

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hardware", "stationery"}, categories)

	count, err := s.CountProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
