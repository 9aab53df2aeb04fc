package httpapi

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tokobuku/backend/internal/domain"
	"tokobuku/backend/internal/logger"
	"tokobuku/backend/internal/service"
)

func (a *API) reportRoutes(r chi.Router) {
	r.Get("/sales", a.handleSalesReport)
	r.Get("/profit-loss", a.handleProfitLoss)
	r.Get("/cash-flow", a.handleCashFlow)
	r.Get("/top-products", a.handleTopProducts)
	r.Get("/categories", a.handleCategoryPerformance)
	r.Get("/debtors", a.handleDebtors)
	r.Get("/debt-aging", a.handleDebtAging)
	r.Get("/top-customers", a.handleTopCustomers)
	r.Get("/monthly", a.handleMonthly)
	r.Get("/inventory", a.handleInventory)
	r.Get("/low-stock", a.handleLowStock)
	r.Get("/dashboard", a.handleDashboard)
}

// reportRange reads the optional start/end query parameters. It writes the
// error response itself and reports whether the handler may continue.
func reportRange(w http.ResponseWriter, r *http.Request) (domain.DateRange, bool) {
	dateRange, err := service.ParseRange(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		writeServiceError(w, r, err)
		return dateRange, false
	}
	return dateRange, true
}

func (a *API) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	dateRange, ok := reportRange(w, r)
	if !ok {
		return
	}

	report, err := a.service.SalesReport(r.Context(), dateRange)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("format")), "csv") {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", salesReportFilename(dateRange)))
		w.WriteHeader(http.StatusOK)
		if err := writeSalesCSV(w, report); err != nil {
			logger.FromContext(r.Context()).Error("sales csv export failed", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func salesReportFilename(r domain.DateRange) string {
	name := "sales-report"
	if r.Start != nil {
		name += "-" + domain.FormatDate(*r.Start)
	}
	if r.End != nil {
		name += "-" + domain.FormatDate(*r.End)
	}
	return name + ".csv"
}

// writeSalesCSV writes one row per invoice followed by a totals row. Amounts
// are formatted in currency units with two decimals.
func writeSalesCSV(out io.Writer, report domain.SalesReport) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"number", "date", "customer", "total", "paid", "remaining", "payment_status"}); err != nil {
		return err
	}
	for _, inv := range report.Invoices {
		err := w.Write([]string{
			inv.Number,
			domain.FormatDate(inv.Date),
			inv.CustomerName,
			domain.FormatCents(inv.TotalCents),
			domain.FormatCents(inv.PaidCents),
			domain.FormatCents(inv.RemainingCents),
			inv.PaymentStatus,
		})
		if err != nil {
			return err
		}
	}
	err := w.Write([]string{
		"TOTAL",
		"",
		strconv.FormatInt(report.TotalInvoices, 10) + " invoices",
		domain.FormatCents(report.TotalSalesCents),
		domain.FormatCents(report.TotalPaidCents),
		domain.FormatCents(report.TotalRemainingCents),
		"",
	})
	if err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (a *API) handleProfitLoss(w http.ResponseWriter, r *http.Request) {
	dateRange, ok := reportRange(w, r)
	if !ok {
		return
	}
	report, err := a.service.ProfitLoss(r.Context(), dateRange)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	dateRange, ok := reportRange(w, r)
	if !ok {
		return
	}
	report, err := a.service.CashFlow(r.Context(), dateRange)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	dateRange, ok := reportRange(w, r)
	if !ok {
		return
	}
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 10, 100)
	products, err := a.service.TopSellingProducts(r.Context(), dateRange, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleCategoryPerformance(w http.ResponseWriter, r *http.Request) {
	dateRange, ok := reportRange(w, r)
	if !ok {
		return
	}
	categories, err := a.service.CategoryPerformance(r.Context(), dateRange)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (a *API) handleDebtors(w http.ResponseWriter, r *http.Request) {
	debtors, err := a.service.DebtorCustomers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"debtors": debtors})
}

func (a *API) handleDebtAging(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.DebtAging(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleTopCustomers(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 10, 100)
	customers, err := a.service.TopCustomers(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (a *API) handleMonthly(w http.ResponseWriter, r *http.Request) {
	year := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid year %q", raw))
			return
		}
		year = parsed
	}

	report, err := a.service.MonthlyComparison(r.Context(), year)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleInventory(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.InventoryReport(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.LowStockProducts(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := a.service.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}
