package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tokobuku/backend/internal/domain"
)

// cachedReport serves key from the report cache, loading and storing it on a
// miss. Cache errors degrade to a direct load that is not stored.
func cachedReport[T any](ctx context.Context, s *Service, key string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	gen, hit, readErr := s.reports.Get(ctx, key, &cached)
	if readErr != nil {
		s.logger(ctx).Warn("report cache read failed", zap.String("key", key), zap.Error(readErr))
	}
	if readErr == nil && hit {
		return cached, nil
	}

	fresh, err := load(ctx)
	if err != nil {
		var zero T
		return zero, s.fail(ctx, "report "+key, err)
	}
	if readErr != nil {
		return fresh, nil
	}
	if err := s.reports.Set(ctx, gen, key, fresh, s.cacheTTL); err != nil {
		s.logger(ctx).Warn("report cache write failed", zap.String("key", key), zap.Error(err))
	}
	return fresh, nil
}

func rangeKey(r domain.DateRange) string {
	start, end := "-", "-"
	if r.Start != nil {
		start = domain.FormatDate(*r.Start)
	}
	if r.End != nil {
		end = domain.FormatDate(*r.End)
	}
	return start + ":" + end
}

func (s *Service) SalesReport(ctx context.Context, r domain.DateRange) (domain.SalesReport, error) {
	return cachedReport(ctx, s, "sales:"+rangeKey(r), func(ctx context.Context) (domain.SalesReport, error) {
		return s.repo.SalesReport(ctx, r)
	})
}

func (s *Service) ProfitLoss(ctx context.Context, r domain.DateRange) (domain.ProfitLossReport, error) {
	return cachedReport(ctx, s, "profit-loss:"+rangeKey(r), func(ctx context.Context) (domain.ProfitLossReport, error) {
		return s.repo.ProfitLossReport(ctx, r)
	})
}

func (s *Service) CashFlow(ctx context.Context, r domain.DateRange) (domain.CashFlowReport, error) {
	return cachedReport(ctx, s, "cash-flow:"+rangeKey(r), func(ctx context.Context) (domain.CashFlowReport, error) {
		return s.repo.CashFlowReport(ctx, r)
	})
}

func (s *Service) TopSellingProducts(ctx context.Context, r domain.DateRange, limit int) ([]domain.ProductSales, error) {
	limit = clampLimit(limit)
	key := fmt.Sprintf("top-products:%s:%d", rangeKey(r), limit)
	return cachedReport(ctx, s, key, func(ctx context.Context) ([]domain.ProductSales, error) {
		return s.repo.TopSellingProducts(ctx, r, limit)
	})
}

func (s *Service) CategoryPerformance(ctx context.Context, r domain.DateRange) ([]domain.CategoryPerformance, error) {
	return cachedReport(ctx, s, "categories:"+rangeKey(r), func(ctx context.Context) ([]domain.CategoryPerformance, error) {
		return s.repo.CategoryPerformance(ctx, r)
	})
}

func (s *Service) DebtorCustomers(ctx context.Context) ([]domain.DebtorCustomer, error) {
	return cachedReport(ctx, s, "debtors", func(ctx context.Context) ([]domain.DebtorCustomer, error) {
		return s.repo.DebtorCustomers(ctx)
	})
}

// DebtAging ages every open balance against today's date.
func (s *Service) DebtAging(ctx context.Context) (domain.DebtAgingReport, error) {
	now := s.now()
	return cachedReport(ctx, s, "debt-aging:"+domain.FormatDate(now), func(ctx context.Context) (domain.DebtAgingReport, error) {
		open, err := s.repo.OpenInvoices(ctx)
		if err != nil {
			return domain.DebtAgingReport{}, err
		}
		return domain.NewDebtAgingReport(open, now), nil
	})
}

func (s *Service) TopCustomers(ctx context.Context, limit int) ([]domain.TopCustomer, error) {
	limit = clampLimit(limit)
	return cachedReport(ctx, s, fmt.Sprintf("top-customers:%d", limit), func(ctx context.Context) ([]domain.TopCustomer, error) {
		return s.repo.TopCustomers(ctx, limit)
	})
}

// MonthlyComparison returns all twelve months of year; months without invoices
// are zero. Year 0 means the current year.
func (s *Service) MonthlyComparison(ctx context.Context, year int) (domain.MonthlyComparisonReport, error) {
	if year == 0 {
		year = s.now().UTC().Year()
	}
	if year < 1970 || year > 9999 {
		return domain.MonthlyComparisonReport{}, s.fail(ctx, "monthly comparison", invalidf("year %d is out of range", year))
	}

	return cachedReport(ctx, s, fmt.Sprintf("monthly:%d", year), func(ctx context.Context) (domain.MonthlyComparisonReport, error) {
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		rows, err := s.repo.MonthlySales(ctx, from, from.AddDate(1, 0, 0))
		if err != nil {
			return domain.MonthlyComparisonReport{}, err
		}

		report := domain.MonthlyComparisonReport{Year: year, Months: make([]domain.MonthlySales, 12)}
		for i := range report.Months {
			report.Months[i].Month = i + 1
		}
		for _, row := range rows {
			if row.Month >= 1 && row.Month <= 12 {
				report.Months[row.Month-1] = row
			}
		}
		return report, nil
	})
}

func (s *Service) InventoryReport(ctx context.Context) (domain.InventoryReport, error) {
	return cachedReport(ctx, s, "inventory", func(ctx context.Context) (domain.InventoryReport, error) {
		return s.repo.InventoryReport(ctx)
	})
}

func (s *Service) LowStockProducts(ctx context.Context) ([]domain.Product, error) {
	return cachedReport(ctx, s, "low-stock", func(ctx context.Context) ([]domain.Product, error) {
		return s.repo.LowStockProducts(ctx)
	})
}

func (s *Service) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	now := domain.DateOnly(s.now())
	return cachedReport(ctx, s, "dashboard:"+domain.FormatDate(now), func(ctx context.Context) (domain.Dashboard, error) {
		var d domain.Dashboard
		var err error

		if d.TotalCustomers, err = s.repo.CountCustomers(ctx); err != nil {
			return d, err
		}
		if d.TotalProducts, err = s.repo.CountProducts(ctx); err != nil {
			return d, err
		}

		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		sales, err := s.repo.SalesReport(ctx, domain.DateRange{Start: &monthStart, End: &now})
		if err != nil {
			return d, err
		}
		d.MonthInvoices = sales.TotalInvoices
		d.MonthSalesCents = sales.TotalSalesCents

		open, err := s.repo.OpenInvoices(ctx)
		if err != nil {
			return d, err
		}
		for _, inv := range open {
			d.PendingPaymentsCents += inv.RemainingCents
		}

		low, err := s.repo.LowStockProducts(ctx)
		if err != nil {
			return d, err
		}
		d.LowStockCount = int64(len(low))
		return d, nil
	})
}

func clampLimit(limit int) int {
	switch {
	case limit < 1:
		return 10
	case limit > 100:
		return 100
	default:
		return limit
	}
}
