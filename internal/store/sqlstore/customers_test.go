package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokobuku/backend/internal/domain"
	"tokobuku/backend/internal/store"
)

func TestCreateCustomerRejectsDuplicatePhone(t *testing.T) {
	s := newTestStore(t)
	createAcme(t, s)

	_, err := s.CreateCustomer(context.Background(), domain.Customer{Name: "Acme Two", Phone: "0100000000"})
	require.ErrorIs(t, err, store.ErrConflict)
}

func TestGetCustomerNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetCustomer(context.Background(), 5)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSearchCustomers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createAcme(t, s)
	_, err := s.CreateCustomer(ctx, domain.Customer{Name: "Budi", Phone: "0812", Company: "Toko Maju"})
	require.NoError(t, err)

	byName, err := s.SearchCustomers(ctx, "ACME")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Acme", byName[0].Name)

	byCompany, err := s.SearchCustomers(ctx, "maju")
	require.NoError(t, err)
	require.Len(t, byCompany, 1)
	assert.Equal(t, "Budi", byCompany[0].Name)

	byPhone, err := s.SearchCustomers(ctx, "081")
	require.NoError(t, err)
	assert.Len(t, byPhone, 1)

	all, err := s.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Acme", all[0].Name)

	count, err := s.CountCustomers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acme := createAcme(t, s)
	createScenarioInvoice(t, s, acme, createWidget(t, s))
	_, err := s.CreateCustomer(ctx, domain.Customer{Name: "Toko 100% Jaya", Phone: "0813"})
	require.NoError(t, err)

	percent, err := s.SearchCustomers(ctx, "%")
	require.NoError(t, err)
	require.Len(t, percent, 1)
	assert.Equal(t, "Toko 100% Jaya", percent[0].Name)

	underscore, err := s.SearchCustomers(ctx, "_")
	require.NoError(t, err)
	assert.Empty(t, underscore)

	products, err := s.ListProducts(ctx, domain.ProductFilter{Search: "_"})
	require.NoError(t, err)
	assert.Empty(t, products)

	invoices, err := s.ListInvoices(ctx, domain.InvoiceFilter{CustomerName: "%"})
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestCustomerStatement(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acme := createAcme(t, s)
	widget := createWidget(t, s)

	createScenarioInvoice(t, s, acme, widget)
	_, err := s.CreateInvoice(ctx, domain.Invoice{
		CustomerID: acme.ID,
		Date:       scenarioDate.AddDate(0, 0, 1),
		PaidCents:  1000,
		Items:      []domain.InvoiceItem{{ProductID: widget.ID, Quantity: 1, PriceCents: 1000}},
	})
	require.NoError(t, err)

	statement, err := s.CustomerStatement(ctx, acme.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Acme", statement.Customer.Name)
	assert.Equal(t, int64(2), statement.InvoiceCount)
	assert.Equal(t, int64(6000), statement.TotalPurchasesCents)
	assert.Equal(t, int64(4000), statement.TotalPaidCents)
	assert.Equal(t, int64(2000), statement.BalanceCents)
	require.Len(t, statement.RecentInvoices, 1)
	assert.True(t, statement.RecentInvoices[0].Date.Equal(scenarioDate.AddDate(0, 0, 1)))

	_, err = s.CustomerStatement(ctx, 404, 0)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, domain.UserAccount{Username: " Kasir ", Password: "hash-1", Active: true}))
	require.ErrorIs(t, s.CreateUser(ctx, domain.UserAccount{Username: "kasir", Password: "hash-2"}), store.ErrConflict)
	require.ErrorIs(t, s.CreateUser(ctx, domain.UserAccount{Username: "", Password: "x"}), store.ErrInvalidTransaction)
	require.NoError(t, s.CreateUser(ctx, domain.UserAccount{Username: "admin", Password: "hash-a", Role: domain.RoleAdmin, Active: true, CreatedAt: time.Now()}))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "admin", users[0].Username)
	assert.Equal(t, domain.RoleAdmin, users[0].Role)
	assert.Equal(t, "kasir", users[1].Username)
	assert.Equal(t, domain.RoleClerk, users[1].Role)
	assert.True(t, users[1].Active)

	require.NoError(t, s.UpdateUserPassword(ctx, "KASIR", "hash-3"))
	users, err = s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hash-3", users[1].Password)

	require.ErrorIs(t, s.UpdateUserPassword(ctx, "ghost", "x"), store.ErrNotFound)
}
