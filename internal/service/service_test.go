package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"tokobuku/backend/internal/cache"
	"tokobuku/backend/internal/domain"
	"tokobuku/backend/internal/store"
	"tokobuku/backend/internal/store/sqlstore"
)

var fixedNow = time.Date(2024, time.May, 20, 14, 30, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	store *sqlstore.Store
	logs  *observer.ObservedLogs
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	st, err := sqlstore.Open(context.Background(), sqlstore.Options{
		Dialect: sqlstore.DialectSQLite,
		DSN:     filepath.Join(t.TempDir(), "ledger.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})

	core, logs := observer.New(zapcore.DebugLevel)
	svc := New(st, Options{
		Cache:    cache.NewMemoryReportCache(),
		CacheTTL: time.Hour,
		Logger:   zap.New(core),
	})
	svc.now = func() time.Time { return fixedNow }
	return fixture{svc: svc, store: st, logs: logs}
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: domain.RoleAdmin})
}

func clerkCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "kasir", Role: domain.RoleClerk})
}

func intPtr(v int) *int { return &v }

// seedScenario creates Acme, the Widget and the five-unit invoice paid 30.00.
func seedScenario(t *testing.T, f fixture) (domain.Customer, domain.Product, domain.Invoice) {
	t.Helper()

	acme, err := f.svc.CreateCustomer(clerkCtx(), domain.CustomerCreateRequest{Name: "Acme", Phone: "0100000000"})
	require.NoError(t, err)

	widget, err := f.svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Name:           "Widget",
		Category:       "hardware",
		PriceCents:     1000,
		CostPriceCents: 600,
		Quantity:       50,
		MinStock:       intPtr(5),
	})
	require.NoError(t, err)

	invoice, err := f.svc.CreateInvoice(clerkCtx(), domain.InvoiceCreateRequest{
		CustomerID: acme.ID,
		Date:       "2024-05-02",
		PaidCents:  3000,
		Items:      []domain.InvoiceLineRequest{{ProductID: widget.ID, Quantity: 5, PriceCents: 1000}},
	})
	require.NoError(t, err)
	return acme, widget, invoice
}

func TestScenarioEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := clerkCtx()
	acme, widget, invoice := seedScenario(t, f)

	assert.Equal(t, int64(5000), invoice.TotalCents)
	assert.Equal(t, int64(2000), invoice.RemainingCents)
	p, err := f.svc.GetProduct(ctx, widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 45, p.Quantity)

	sales, err := f.svc.SalesReport(ctx, domain.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), sales.TotalInvoices)
	assert.Equal(t, int64(5000), sales.TotalSalesCents)
	assert.Equal(t, int64(3000), sales.TotalPaidCents)

	pl, err := f.svc.ProfitLoss(ctx, domain.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, int64(3000), pl.TotalCostCents)
	assert.Equal(t, int64(2000), pl.GrossProfitCents)

	ret, err := f.svc.CreateReturn(ctx, domain.ReturnCreateRequest{
		InvoiceID:   invoice.ID,
		ReturnDate:  "2024-05-03",
		RefundCents: 2000,
		Items:       []domain.ReturnLineRequest{{ProductID: widget.ID, Quantity: 2, PriceCents: 1000}},
	})
	require.NoError(t, err)
	assert.Equal(t, acme.ID, ret.CustomerID)

	p, err = f.svc.GetProduct(ctx, widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 47, p.Quantity)

	after, err := f.svc.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), after.PaidCents)
	assert.Equal(t, int64(0), after.RemainingCents)

	returns, err := f.svc.ListInvoiceReturns(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Len(t, returns, 1)
}

func TestCreateInvoiceValidation(t *testing.T) {
	f := newFixture(t)
	ctx := clerkCtx()

	cases := map[string]domain.InvoiceCreateRequest{
		"missing customer": {Items: []domain.InvoiceLineRequest{{ProductID: 1, Quantity: 1}}},
		"no items":         {CustomerID: 1},
		"zero quantity":    {CustomerID: 1, Items: []domain.InvoiceLineRequest{{ProductID: 1, Quantity: 0}}},
		"negative paid":    {CustomerID: 1, PaidCents: -1, Items: []domain.InvoiceLineRequest{{ProductID: 1, Quantity: 1}}},
		"bad date":         {CustomerID: 1, Date: "02/05/2024", Items: []domain.InvoiceLineRequest{{ProductID: 1, Quantity: 1}}},
		"huge price":       {CustomerID: 1, Items: []domain.InvoiceLineRequest{{ProductID: 1, Quantity: 2, PriceCents: 1 << 62}}},
		"huge quantity":    {CustomerID: 1, Items: []domain.InvoiceLineRequest{{ProductID: 1, Quantity: 1_000_001}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateInvoice(ctx, req)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestCreateReturnRefundCannotExceedItems(t *testing.T) {
	f := newFixture(t)
	_, widget, invoice := seedScenario(t, f)

	_, err := f.svc.CreateReturn(clerkCtx(), domain.ReturnCreateRequest{
		InvoiceID:   invoice.ID,
		Items:       []domain.ReturnLineRequest{{ProductID: widget.ID, Quantity: 2, PriceCents: 1000}},
		RefundCents: 2001,
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "20.00")

	p, err := f.svc.GetProduct(clerkCtx(), widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 45, p.Quantity)
}

func TestValidationMessagesUseJSONNames(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateInvoice(clerkCtx(), domain.InvoiceCreateRequest{
		CustomerID: 1,
		Items:      []domain.InvoiceLineRequest{{ProductID: 1, Quantity: 0}},
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "items[0].quantity must be greater than 0")

	_, err = f.svc.CreateInvoice(clerkCtx(), domain.InvoiceCreateRequest{
		CustomerID: 1,
		Items:      []domain.InvoiceLineRequest{{ProductID: 1, Quantity: 1, PriceCents: 1 << 62}},
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "items[0].price_cents must be at most 1000000000000")
}

func TestCreateInvoiceInsufficientStockIsLoggedAsRejection(t *testing.T) {
	f := newFixture(t)
	acme, widget, _ := seedScenario(t, f)

	_, err := f.svc.CreateInvoice(clerkCtx(), domain.InvoiceCreateRequest{
		CustomerID: acme.ID,
		Items:      []domain.InvoiceLineRequest{{ProductID: widget.ID, Quantity: 46, PriceCents: 1000}},
	})
	require.ErrorIs(t, err, store.ErrInsufficientStock)

	rejected := f.logs.FilterMessage("operation rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, zapcore.WarnLevel, rejected[0].Level)
	assert.Equal(t, "create invoice", rejected[0].ContextMap()["op"])
	assert.Equal(t, "kasir", rejected[0].ContextMap()["actor"])
}

func TestAdminOnlyOperations(t *testing.T) {
	f := newFixture(t)
	_, widget, invoice := seedScenario(t, f)
	ctx := clerkCtx()

	_, err := f.svc.CreateProduct(ctx, domain.ProductCreateRequest{Name: "Gadget"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.UpdateProduct(ctx, widget.ID, domain.ProductUpdateRequest{})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.SetStock(ctx, widget.ID, domain.StockAdjustRequest{Quantity: 1})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.CreateProduct(context.Background(), domain.ProductCreateRequest{Name: "Gadget"})
	assert.ErrorIs(t, err, ErrForbidden)

	ret, err := f.svc.CreateReturn(ctx, domain.ReturnCreateRequest{
		InvoiceID: invoice.ID,
		Items:     []domain.ReturnLineRequest{{ProductID: widget.ID, Quantity: 1, PriceCents: 1000}},
	})
	require.NoError(t, err)
	_, err = f.svc.UpdateReturnStatus(ctx, ret.ID, domain.ReturnStatusRequest{Status: domain.ReturnStatusAccepted})
	assert.ErrorIs(t, err, ErrForbidden)

	accepted, err := f.svc.UpdateReturnStatus(adminCtx(), ret.ID, domain.ReturnStatusRequest{Status: domain.ReturnStatusAccepted})
	require.NoError(t, err)
	assert.Equal(t, domain.ReturnStatusAccepted, accepted.Status)

	_, err = f.svc.UpdateReturnStatus(adminCtx(), ret.ID, domain.ReturnStatusRequest{Status: "lost"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProductDefaultsAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	p, err := f.svc.CreateProduct(ctx, domain.ProductCreateRequest{Name: " Pencil ", SKU: "pcl-1", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, "Pencil", p.Name)
	assert.Equal(t, "PCL-1", p.SKU)
	assert.Equal(t, domain.DefaultMinStock, p.MinStock)
	assert.Equal(t, domain.StockStatusLow, p.StockStatus)

	name := "Pencil HB"
	cost := int64(40)
	updated, err := f.svc.UpdateProduct(ctx, p.ID, domain.ProductUpdateRequest{Name: &name, CostPriceCents: &cost})
	require.NoError(t, err)
	assert.Equal(t, "Pencil HB", updated.Name)
	assert.Equal(t, int64(40), updated.CostPriceCents)
	assert.Equal(t, "PCL-1", updated.SKU)

	_, err = f.svc.UpdateProduct(ctx, 999, domain.ProductUpdateRequest{Name: &name})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.svc.ListProducts(ctx, domain.ProductFilter{StockStatus: "plenty"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStockAdjustments(t *testing.T) {
	f := newFixture(t)
	_, widget, _ := seedScenario(t, f)
	ctx := adminCtx()

	p, err := f.svc.IncreaseStock(ctx, widget.ID, domain.StockAdjustRequest{Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 50, p.Quantity)

	p, err = f.svc.DecreaseStock(ctx, widget.ID, domain.StockAdjustRequest{Quantity: 50})
	require.NoError(t, err)
	assert.Equal(t, 0, p.Quantity)
	assert.Equal(t, domain.StockStatusOut, p.StockStatus)

	_, err = f.svc.DecreaseStock(ctx, widget.ID, domain.StockAdjustRequest{Quantity: 1})
	assert.ErrorIs(t, err, store.ErrInsufficientStock)

	_, err = f.svc.DecreaseStock(ctx, widget.ID, domain.StockAdjustRequest{Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)

	p, err = f.svc.SetStock(ctx, widget.ID, domain.StockAdjustRequest{Quantity: 12})
	require.NoError(t, err)
	assert.Equal(t, 12, p.Quantity)

	_, err = f.svc.SetStock(ctx, widget.ID, domain.StockAdjustRequest{Quantity: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDuplicatePhoneIsConflict(t *testing.T) {
	f := newFixture(t)
	seedScenario(t, f)

	_, err := f.svc.CreateCustomer(clerkCtx(), domain.CustomerCreateRequest{Name: "Acme II", Phone: " 0100000000 "})
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = f.svc.CreateCustomer(clerkCtx(), domain.CustomerCreateRequest{Name: "  ", Phone: "0999"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReportCacheIsInvalidatedByWrites(t *testing.T) {
	f := newFixture(t)
	acme, widget, _ := seedScenario(t, f)
	ctx := clerkCtx()

	first, err := f.svc.SalesReport(ctx, domain.DateRange{})
	require.NoError(t, err)
	require.Equal(t, int64(1), first.TotalInvoices)

	// a write that bypasses the service is invisible until the cache is dropped
	_, err = f.store.CreateInvoice(context.Background(), domain.Invoice{
		CustomerID: acme.ID,
		Date:       fixedNow,
		Items:      []domain.InvoiceItem{{ProductID: widget.ID, Quantity: 1, PriceCents: 1000}},
	})
	require.NoError(t, err)

	stale, err := f.svc.SalesReport(ctx, domain.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stale.TotalInvoices)

	_, err = f.svc.CreateInvoice(ctx, domain.InvoiceCreateRequest{
		CustomerID: acme.ID,
		Items:      []domain.InvoiceLineRequest{{ProductID: widget.ID, Quantity: 1, PriceCents: 1000}},
	})
	require.NoError(t, err)

	fresh, err := f.svc.SalesReport(ctx, domain.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), fresh.TotalInvoices)
	assert.Equal(t, int64(7000), fresh.TotalSalesCents)
}

// slowSalesRepo runs afterLoad once, after the sales aggregate was read and
// before the service caches it.
type slowSalesRepo struct {
	*sqlstore.Store
	afterLoad func()
}

func (r *slowSalesRepo) SalesReport(ctx context.Context, dr domain.DateRange) (domain.SalesReport, error) {
	report, err := r.Store.SalesReport(ctx, dr)
	if hook := r.afterLoad; hook != nil {
		r.afterLoad = nil
		hook()
	}
	return report, err
}

func TestReportLoadedBeforeWriteIsNotCached(t *testing.T) {
	f := newFixture(t)
	acme, widget, _ := seedScenario(t, f)
	ctx := clerkCtx()

	repo := &slowSalesRepo{Store: f.store}
	svc := New(repo, Options{Cache: cache.NewMemoryReportCache(), CacheTTL: time.Hour})
	repo.afterLoad = func() {
		_, err := svc.CreateInvoice(ctx, domain.InvoiceCreateRequest{
			CustomerID: acme.ID,
			Items:      []domain.InvoiceLineRequest{{ProductID: widget.ID, Quantity: 1, PriceCents: 1000}},
		})
		require.NoError(t, err)
	}

	raced, err := svc.SalesReport(ctx, domain.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), raced.TotalInvoices)

	next, err := svc.SalesReport(ctx, domain.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.TotalInvoices)
	assert.Equal(t, int64(6000), next.TotalSalesCents)
}

func TestDebtAgingUsesCurrentDate(t *testing.T) {
	f := newFixture(t)
	acme, widget, _ := seedScenario(t, f)

	_, err := f.svc.CreateInvoice(clerkCtx(), domain.InvoiceCreateRequest{
		CustomerID: acme.ID,
		Date:       "2024-01-15",
		Items:      []domain.InvoiceLineRequest{{ProductID: widget.ID, Quantity: 1, PriceCents: 1000}},
	})
	require.NoError(t, err)

	report, err := f.svc.DebtAging(clerkCtx())
	require.NoError(t, err)
	assert.True(t, report.AsOf.Equal(domain.DateOnly(fixedNow)))
	assert.Equal(t, int64(3000), report.TotalCents)

	require.Len(t, report.Buckets, 4)
	assert.Equal(t, 1, report.Buckets[0].Count, "18 days old")
	assert.Equal(t, int64(2000), report.Buckets[0].AmountCents)
	assert.Equal(t, 1, report.Buckets[3].Count, "126 days old")
	assert.Equal(t, int64(1000), report.Buckets[3].AmountCents)
	assert.Zero(t, report.Buckets[1].Count)
	assert.Zero(t, report.Buckets[2].Count)
}

func TestMonthlyComparisonZeroFills(t *testing.T) {
	f := newFixture(t)
	seedScenario(t, f)

	report, err := f.svc.MonthlyComparison(clerkCtx(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2024, report.Year)
	require.Len(t, report.Months, 12)
	for i, m := range report.Months {
		assert.Equal(t, i+1, m.Month)
	}
	assert.Equal(t, int64(5000), report.Months[4].SalesCents)
	assert.Equal(t, int64(2000), report.Months[4].ProfitCents)
	assert.Equal(t, int64(2000), report.Months[4].RemainingCents)
	assert.Zero(t, report.Months[0].SalesCents)

	empty, err := f.svc.MonthlyComparison(clerkCtx(), 2023)
	require.NoError(t, err)
	require.Len(t, empty.Months, 12)
	assert.Zero(t, empty.Months[4].InvoiceCount)

	_, err = f.svc.MonthlyComparison(clerkCtx(), 12)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	acme, widget, _ := seedScenario(t, f)

	// an April invoice counts toward pending payments but not this month's sales
	_, err := f.svc.CreateInvoice(clerkCtx(), domain.InvoiceCreateRequest{
		CustomerID: acme.ID,
		Date:       "2024-04-30",
		Items:      []domain.InvoiceLineRequest{{ProductID: widget.ID, Quantity: 41, PriceCents: 100}},
	})
	require.NoError(t, err)

	d, err := f.svc.Dashboard(clerkCtx())
	require.NoError(t, err)
	assert.Equal(t, domain.Dashboard{
		TotalCustomers:       1,
		TotalProducts:        1,
		MonthInvoices:        1,
		MonthSalesCents:      5000,
		PendingPaymentsCents: 2000 + 4100,
		LowStockCount:        1,
	}, d)
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	require.NotNil(t, r.Start)
	require.NotNil(t, r.End)
	assert.Equal(t, time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC), *r.End)

	r, err = ParseRange("", "")
	require.NoError(t, err)
	assert.Nil(t, r.Start)
	assert.Nil(t, r.End)

	_, err = ParseRange("2024-13-01", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseRange("2024-02-01", "2024-01-01")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
