package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokobuku/backend/internal/domain"
	"tokobuku/backend/internal/store"
)

func TestCreateReturnScenario(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acme := createAcme(t, s)
	widget := createWidget(t, s)
	invoice := createScenarioInvoice(t, s, acme, widget)

	ret, err := s.CreateReturn(ctx, domain.Return{
		InvoiceID:   invoice.ID,
		ReturnDate:  scenarioDate,
		RefundCents: 2000,
		Reason:      "damaged",
		Items: []domain.ReturnItem{
			{ProductID: widget.ID, Quantity: 2, PriceCents: 1000},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, acme.ID, ret.CustomerID)
	assert.Equal(t, domain.ReturnStatusPending, ret.Status)
	assert.Equal(t, int64(2000), ret.TotalCents)
	assert.Equal(t, 47, productQuantity(t, s, widget.ID))

	updated, err := s.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), updated.TotalCents)
	assert.Equal(t, int64(1000), updated.PaidCents)
	assert.Equal(t, int64(0), updated.RemainingCents)
	assert.Equal(t, domain.PaymentStatusPaid, updated.PaymentStatus)

	stored, err := s.GetReturn(ctx, ret.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", stored.CustomerName)
	assert.Equal(t, "damaged", stored.Reason)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "Widget", stored.Items[0].ProductName)
	assert.Equal(t, 2, stored.Items[0].Quantity)
}

func TestItemsKeepProductNameFromTimeOfSale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acme := createAcme(t, s)
	widget := createWidget(t, s)
	invoice := createScenarioInvoice(t, s, acme, widget)

	ret, err := s.CreateReturn(ctx, domain.Return{
		InvoiceID: invoice.ID,
		Items:     []domain.ReturnItem{{ProductID: widget.ID, Quantity: 1, PriceCents: 1000}},
	})
	require.NoError(t, err)

	renamed := *widget
	renamed.Name = "Widget Pro"
	renamed.SKU = "WID-PRO"
	_, err = s.UpdateProduct(ctx, renamed)
	require.NoError(t, err)

	storedInvoice, err := s.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	require.Len(t, storedInvoice.Items, 1)
	assert.Equal(t, "Widget", storedInvoice.Items[0].ProductName)
	assert.Equal(t, "WID-001", storedInvoice.Items[0].ProductSKU)

	storedReturn, err := s.GetReturn(ctx, ret.ID)
	require.NoError(t, err)
	require.Len(t, storedReturn.Items, 1)
	assert.Equal(t, "Widget", storedReturn.Items[0].ProductName)
	assert.Equal(t, "WID-001", storedReturn.Items[0].ProductSKU)
}

func TestCreateReturnWithoutRefundLeavesInvoice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acme := createAcme(t, s)
	widget := createWidget(t, s)
	invoice := createScenarioInvoice(t, s, acme, widget)

	_, err := s.CreateReturn(ctx, domain.Return{
		InvoiceID: invoice.ID,
		Items:     []domain.ReturnItem{{ProductID: widget.ID, Quantity: 1, PriceCents: 1000}},
	})
	require.NoError(t, err)
	assert.Equal(t, 46, productQuantity(t, s, widget.ID))

	updated, err := s.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), updated.PaidCents)
	assert.Equal(t, int64(2000), updated.RemainingCents)
}

func TestCreateReturnRollsBackOnMissingProduct(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acme := createAcme(t, s)
	widget := createWidget(t, s)
	invoice := createScenarioInvoice(t, s, acme, widget)

	_, err := s.CreateReturn(ctx, domain.Return{
		InvoiceID:   invoice.ID,
		RefundCents: 2000,
		Items: []domain.ReturnItem{
			{ProductID: widget.ID, Quantity: 2, PriceCents: 1000},
			{ProductID: 4242, Quantity: 1, PriceCents: 500},
		},
	})
	require.ErrorIs(t, err, store.ErrNotFound)

	assert.Equal(t, 45, productQuantity(t, s, widget.ID))
	assert.Zero(t, tableCount(t, s, "returns"))
	assert.Zero(t, tableCount(t, s, "return_items"))

	unchanged, err := s.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), unchanged.PaidCents)
	assert.Equal(t, int64(2000), unchanged.RemainingCents)
}

func TestCreateReturnUnknownInvoice(t *testing.T) {
	s := newTestStore(t)
	widget := createWidget(t, s)

	_, err := s.CreateReturn(context.Background(), domain.Return{
		InvoiceID: 31,
		Items:     []domain.ReturnItem{{ProductID: widget.ID, Quantity: 1}},
	})
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 50, productQuantity(t, s, widget.ID))
}

func TestCreateReturnRejectsForeignCustomer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acme := createAcme(t, s)
	widget := createWidget(t, s)
	invoice := createScenarioInvoice(t, s, acme, widget)
	globex, err := s.CreateCustomer(ctx, domain.Customer{Name: "Globex", Phone: "0200000000"})
	require.NoError(t, err)

	_, err = s.CreateReturn(ctx, domain.Return{
		InvoiceID:  invoice.ID,
		CustomerID: globex.ID,
		Items:      []domain.ReturnItem{{ProductID: widget.ID, Quantity: 1, PriceCents: 1000}},
	})
	require.ErrorIs(t, err, store.ErrInvalidTransaction)
	assert.Equal(t, 45, productQuantity(t, s, widget.ID))
	assert.Zero(t, tableCount(t, s, "returns"))
}

func TestCreateReturnRejectsMalformedInput(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cases := map[string]domain.Return{
		"no invoice":      {Items: []domain.ReturnItem{{ProductID: 1, Quantity: 1}}},
		"no items":        {InvoiceID: 1},
		"negative refund": {InvoiceID: 1, RefundCents: -1, Items: []domain.ReturnItem{{ProductID: 1, Quantity: 1}}},
		"zero quantity":   {InvoiceID: 1, Items: []domain.ReturnItem{{ProductID: 1, Quantity: 0}}},
		"total overflow":  {InvoiceID: 1, Items: []domain.ReturnItem{{ProductID: 1, Quantity: 4, PriceCents: 1 << 62}}},
	}
	for name, ret := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.CreateReturn(ctx, ret)
			require.ErrorIs(t, err, store.ErrInvalidTransaction)
		})
	}
}

func TestReturnStatusLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acme := createAcme(t, s)
	widget := createWidget(t, s)
	invoice := createScenarioInvoice(t, s, acme, widget)

	ret, err := s.CreateReturn(ctx, domain.Return{
		InvoiceID: invoice.ID,
		Items:     []domain.ReturnItem{{ProductID: widget.ID, Quantity: 1, PriceCents: 1000}},
	})
	require.NoError(t, err)

	accepted, err := s.UpdateReturnStatus(ctx, ret.ID, domain.ReturnStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, domain.ReturnStatusAccepted, accepted.Status)

	_, err = s.UpdateReturnStatus(ctx, ret.ID, "lost")
	require.ErrorIs(t, err, store.ErrInvalidTransaction)

	_, err = s.UpdateReturnStatus(ctx, 999, domain.ReturnStatusRejected)
	require.ErrorIs(t, err, store.ErrNotFound)

	byInvoice, err := s.ListReturnsByInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	require.Len(t, byInvoice, 1)
	assert.Equal(t, domain.ReturnStatusAccepted, byInvoice[0].Status)

	all, err := s.ListReturns(ctx, domain.DateRange{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	before := scenarioDate.AddDate(-1, 0, 0)
	none, err := s.ListReturns(ctx, domain.DateRange{End: &before})
	require.NoError(t, err)
	assert.Empty(t, none)
}
