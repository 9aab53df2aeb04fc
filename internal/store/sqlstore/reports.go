package sqlstore

import (
	"context"
	"sort"
	"strconv"
	"time"

	"tokobuku/backend/internal/domain"
)

type invoiceTotals struct {
	count     int64
	sales     int64
	paid      int64
	remaining int64
}

func (s *Store) invoiceTotals(ctx context.Context, dateRange domain.DateRange) (invoiceTotals, error) {
	var f filter
	f.addRange("i.invoice_date", dateRange)

	var t invoiceTotals
	err := s.queryRow(ctx, s.db, "invoice totals", `
		SELECT COUNT(*),
			CAST(COALESCE(SUM(i.total_cents), 0) AS BIGINT),
			CAST(COALESCE(SUM(i.paid_cents), 0) AS BIGINT),
			CAST(COALESCE(SUM(i.remaining_cents), 0) AS BIGINT)
		FROM invoices i`+f.where(), f.args, &t.count, &t.sales, &t.paid, &t.remaining)
	return t, err
}

// costOfSales values the units sold in range at the products' current cost price.
func (s *Store) costOfSales(ctx context.Context, dateRange domain.DateRange) (int64, error) {
	var f filter
	f.addRange("i.invoice_date", dateRange)

	var cost int64
	err := s.queryRow(ctx, s.db, "cost of sales", `
		SELECT CAST(COALESCE(SUM(ii.quantity * p.cost_price_cents), 0) AS BIGINT)
		FROM invoice_items ii
		JOIN invoices i ON i.id = ii.invoice_id
		JOIN products p ON p.id = ii.product_id`+f.where(), f.args, &cost)
	return cost, err
}

func (s *Store) refundTotal(ctx context.Context, dateRange domain.DateRange) (int64, error) {
	var f filter
	f.addRange("r.return_date", dateRange)

	var refunds int64
	err := s.queryRow(ctx, s.db, "refund total", `
		SELECT CAST(COALESCE(SUM(r.refund_cents), 0) AS BIGINT)
		FROM returns r`+f.where(), f.args, &refunds)
	return refunds, err
}

func (s *Store) SalesReport(ctx context.Context, dateRange domain.DateRange) (domain.SalesReport, error) {
	totals, err := s.invoiceTotals(ctx, dateRange)
	if err != nil {
		return domain.SalesReport{}, err
	}
	invoices, err := s.ListInvoices(ctx, domain.InvoiceFilter{Range: dateRange})
	if err != nil {
		return domain.SalesReport{}, err
	}

	report := domain.SalesReport{
		TotalInvoices:       totals.count,
		TotalSalesCents:     totals.sales,
		TotalPaidCents:      totals.paid,
		TotalRemainingCents: totals.remaining,
		PaymentRate:         domain.Percentage(totals.paid, totals.sales),
		Invoices:            invoices,
	}
	if totals.count > 0 {
		report.AverageInvoiceCents = totals.sales / totals.count
	}
	return report, nil
}

func (s *Store) ProfitLossReport(ctx context.Context, dateRange domain.DateRange) (domain.ProfitLossReport, error) {
	totals, err := s.invoiceTotals(ctx, dateRange)
	if err != nil {
		return domain.ProfitLossReport{}, err
	}
	cost, err := s.costOfSales(ctx, dateRange)
	if err != nil {
		return domain.ProfitLossReport{}, err
	}
	refunds, err := s.refundTotal(ctx, dateRange)
	if err != nil {
		return domain.ProfitLossReport{}, err
	}

	net := totals.paid - cost - refunds
	return domain.ProfitLossReport{
		TotalSalesCents:   totals.sales,
		TotalRevenueCents: totals.paid,
		TotalCostCents:    cost,
		TotalReturnsCents: refunds,
		GrossProfitCents:  totals.sales - cost,
		NetProfitCents:    net,
		ProfitMargin:      domain.Percentage(net, totals.paid),
	}, nil
}

func (s *Store) CashFlowReport(ctx context.Context, dateRange domain.DateRange) (domain.CashFlowReport, error) {
	totals, err := s.invoiceTotals(ctx, dateRange)
	if err != nil {
		return domain.CashFlowReport{}, err
	}
	refunds, err := s.refundTotal(ctx, dateRange)
	if err != nil {
		return domain.CashFlowReport{}, err
	}
	return domain.CashFlowReport{
		InflowCents:  totals.paid,
		OutflowCents: refunds,
		NetCents:     totals.paid - refunds,
	}, nil
}

func (s *Store) TopSellingProducts(ctx context.Context, dateRange domain.DateRange, limit int) ([]domain.ProductSales, error) {
	if limit < 1 {
		limit = 10
	}
	var f filter
	f.addRange("i.invoice_date", dateRange)

	query := `
		SELECT p.id, p.name, COALESCE(p.sku, ''), p.category,
			CAST(COALESCE(SUM(ii.quantity), 0) AS BIGINT) AS total_sold,
			CAST(COALESCE(SUM(ii.total_cents), 0) AS BIGINT) AS revenue,
			CAST(COALESCE(SUM(ii.quantity * p.cost_price_cents), 0) AS BIGINT) AS cost
		FROM invoice_items ii
		JOIN invoices i ON i.id = ii.invoice_id
		JOIN products p ON p.id = ii.product_id` + f.where() + `
		GROUP BY p.id, p.name, p.sku, p.category
		ORDER BY total_sold DESC, p.id ASC
		LIMIT $` + strconv.Itoa(f.next())
	args := append(f.args, limit)

	rows := make([]domain.ProductSales, 0, limit)
	err := s.queryRows(ctx, s.db, "top selling products", query, args, func(row scanner) error {
		var ps domain.ProductSales
		if err := row.Scan(&ps.ProductID, &ps.Name, &ps.SKU, &ps.Category, &ps.TotalSold, &ps.RevenueCents, &ps.CostCents); err != nil {
			return err
		}
		ps.ProfitCents = ps.RevenueCents - ps.CostCents
		rows = append(rows, ps)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CategoryPerformance(ctx context.Context, dateRange domain.DateRange) ([]domain.CategoryPerformance, error) {
	var f filter
	f.clauses = append(f.clauses, "p.category <> ''")
	f.addRange("i.invoice_date", dateRange)

	rows := make([]domain.CategoryPerformance, 0, 16)
	err := s.queryRows(ctx, s.db, "category performance", `
		SELECT p.category,
			COUNT(DISTINCT p.id),
			CAST(COALESCE(SUM(ii.quantity), 0) AS BIGINT),
			CAST(COALESCE(SUM(ii.total_cents), 0) AS BIGINT) AS revenue,
			CAST(COALESCE(SUM(ii.quantity * p.cost_price_cents), 0) AS BIGINT)
		FROM invoice_items ii
		JOIN invoices i ON i.id = ii.invoice_id
		JOIN products p ON p.id = ii.product_id`+f.where()+`
		GROUP BY p.category
		ORDER BY revenue DESC, p.category ASC
	`, f.args, func(row scanner) error {
		var cp domain.CategoryPerformance
		if err := row.Scan(&cp.Category, &cp.ProductCount, &cp.TotalSold, &cp.RevenueCents, &cp.CostCents); err != nil {
			return err
		}
		cp.ProfitCents = cp.RevenueCents - cp.CostCents
		rows = append(rows, cp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) DebtorCustomers(ctx context.Context) ([]domain.DebtorCustomer, error) {
	rows := make([]domain.DebtorCustomer, 0, 16)
	err := s.queryRows(ctx, s.db, "debtor customers", `
		SELECT c.id, c.name, c.phone, c.company,
			COUNT(i.id),
			CAST(SUM(i.remaining_cents) AS BIGINT) AS balance
		FROM customers c
		JOIN invoices i ON i.customer_id = c.id
		GROUP BY c.id, c.name, c.phone, c.company
		HAVING SUM(i.remaining_cents) > 0
		ORDER BY balance DESC, c.id ASC
	`, nil, func(row scanner) error {
		var d domain.DebtorCustomer
		if err := row.Scan(&d.CustomerID, &d.Name, &d.Phone, &d.Company, &d.InvoiceCount, &d.BalanceCents); err != nil {
			return err
		}
		rows = append(rows, d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) TopCustomers(ctx context.Context, limit int) ([]domain.TopCustomer, error) {
	if limit < 1 {
		limit = 10
	}
	rows := make([]domain.TopCustomer, 0, limit)
	err := s.queryRows(ctx, s.db, "top customers", `
		SELECT c.id, c.name, c.phone,
			COUNT(i.id),
			CAST(COALESCE(SUM(i.total_cents), 0) AS BIGINT) AS total_purchases,
			CAST(COALESCE(SUM(i.paid_cents), 0) AS BIGINT)
		FROM customers c
		JOIN invoices i ON i.customer_id = c.id
		GROUP BY c.id, c.name, c.phone
		ORDER BY total_purchases DESC, c.id ASC
		LIMIT $1
	`, []any{limit}, func(row scanner) error {
		var tc domain.TopCustomer
		if err := row.Scan(&tc.CustomerID, &tc.Name, &tc.Phone, &tc.InvoiceCount, &tc.TotalPurchasesCents, &tc.TotalPaidCents); err != nil {
			return err
		}
		rows = append(rows, tc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MonthlySales groups invoices dated in [from, to) by calendar month. Months
// without invoices are absent from the result.
func (s *Store) MonthlySales(ctx context.Context, from time.Time, to time.Time) ([]domain.MonthlySales, error) {
	byMonth := make(map[int]*domain.MonthlySales)
	err := s.queryRows(ctx, s.db, "monthly sales", `
		SELECT i.invoice_date, i.total_cents, i.paid_cents, i.remaining_cents,
			CAST(COALESCE((
				SELECT SUM(ii.quantity * p.cost_price_cents)
				FROM invoice_items ii
				JOIN products p ON p.id = ii.product_id
				WHERE ii.invoice_id = i.id
			), 0) AS BIGINT)
		FROM invoices i
		WHERE i.invoice_date >= $1 AND i.invoice_date < $2
	`, []any{domain.DateOnly(from), domain.DateOnly(to)}, func(row scanner) error {
		var (
			date                         time.Time
			total, paid, remaining, cost int64
		)
		if err := row.Scan(&date, &total, &paid, &remaining, &cost); err != nil {
			return err
		}
		month := int(date.UTC().Month())
		entry, ok := byMonth[month]
		if !ok {
			entry = &domain.MonthlySales{Month: month}
			byMonth[month] = entry
		}
		entry.InvoiceCount++
		entry.SalesCents += total
		entry.PaidCents += paid
		entry.RemainingCents += remaining
		entry.CostCents += cost
		entry.ProfitCents += total - cost
		return nil
	})
	if err != nil {
		return nil, err
	}

	months := make([]domain.MonthlySales, 0, len(byMonth))
	for _, entry := range byMonth {
		months = append(months, *entry)
	}
	sort.Slice(months, func(i, j int) bool {
		return months[i].Month < months[j].Month
	})
	return months, nil
}

func (s *Store) InventoryReport(ctx context.Context) (domain.InventoryReport, error) {
	var report domain.InventoryReport
	err := s.queryRow(ctx, s.db, "inventory report", `
		SELECT COUNT(*),
			CAST(COALESCE(SUM(quantity), 0) AS BIGINT),
			CAST(COALESCE(SUM(price_cents * quantity), 0) AS BIGINT),
			CAST(COALESCE(SUM(cost_price_cents * quantity), 0) AS BIGINT),
			CAST(COALESCE(SUM(CASE WHEN quantity <= min_stock AND quantity > 0 THEN 1 ELSE 0 END), 0) AS BIGINT),
			CAST(COALESCE(SUM(CASE WHEN quantity = 0 THEN 1 ELSE 0 END), 0) AS BIGINT)
		FROM products
	`, nil, &report.ProductCount, &report.TotalUnits, &report.InventoryValueCents, &report.CostValueCents,
		&report.LowStockCount, &report.OutOfStockCount)
	if err != nil {
		return domain.InventoryReport{}, err
	}

	report.ByCategory = make([]domain.CategoryStock, 0, 16)
	err = s.queryRows(ctx, s.db, "inventory by category", `
		SELECT category,
			COUNT(*),
			CAST(COALESCE(SUM(quantity), 0) AS BIGINT),
			CAST(COALESCE(SUM(price_cents * quantity), 0) AS BIGINT)
		FROM products
		GROUP BY category
		ORDER BY category
	`, nil, func(row scanner) error {
		var cs domain.CategoryStock
		if err := row.Scan(&cs.Category, &cs.ProductCount, &cs.Units, &cs.ValueCents); err != nil {
			return err
		}
		report.ByCategory = append(report.ByCategory, cs)
		return nil
	})
	if err != nil {
		return domain.InventoryReport{}, err
	}
	return report, nil
}
