package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Debt aging bucket names, youngest first.
const (
	AgingCurrent   = "current"
	AgingOverdue30 = "overdue_30"
	AgingOverdue60 = "overdue_60"
	AgingOverdue90 = "overdue_90"
)

var hundred = decimal.NewFromInt(100)

func StockStatusOf(quantity int, minStock int) string {
	switch {
	case quantity <= 0:
		return StockStatusOut
	case quantity <= minStock:
		return StockStatusLow
	default:
		return StockStatusIn
	}
}

func PaymentStatusOf(paidCents int64, remainingCents int64) string {
	switch {
	case remainingCents <= 0:
		return PaymentStatusPaid
	case paidCents <= 0:
		return PaymentStatusUnpaid
	default:
		return PaymentStatusPartial
	}
}

// InvoiceNumber renders the display number, e.g. INV-2024-000042.
func InvoiceNumber(id int64, date time.Time) string {
	return fmt.Sprintf("INV-%d-%06d", date.Year(), id)
}

// LineTotal multiplies a non-negative quantity and price. ok is false when
// either is negative or the product does not fit in an int64.
func LineTotal(quantity int, priceCents int64) (total int64, ok bool) {
	if quantity < 0 || priceCents < 0 {
		return 0, false
	}
	if quantity > 0 && priceCents > math.MaxInt64/int64(quantity) {
		return 0, false
	}
	return int64(quantity) * priceCents, true
}

// AddCents sums two non-negative amounts, reporting false on overflow.
func AddCents(a int64, b int64) (int64, bool) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

// Percentage returns part/whole*100 rounded to two places, or zero when whole is zero.
func Percentage(part int64, whole int64) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).
		Div(decimal.NewFromInt(whole)).
		Mul(hundred).
		Round(2)
}

// FormatCents renders minor units as a fixed two-place amount ("1234.50").
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// DateOnly truncates t to midnight UTC of its UTC calendar day.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses YYYY-MM-DD. An empty string yields nil.
func ParseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return &t, nil
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// AgeInDays counts whole calendar days from since to now.
func AgeInDays(since time.Time, now time.Time) int {
	return int(DateOnly(now).Sub(DateOnly(since)).Hours() / 24)
}

func AgingBucketFor(days int) string {
	switch {
	case days < 30:
		return AgingCurrent
	case days < 60:
		return AgingOverdue30
	case days < 90:
		return AgingOverdue60
	default:
		return AgingOverdue90
	}
}

// NewDebtAgingReport partitions invoices with an open balance into the aging buckets.
// Invoices without a remaining balance are skipped.
func NewDebtAgingReport(invoices []Invoice, now time.Time) DebtAgingReport {
	report := DebtAgingReport{
		AsOf: DateOnly(now),
		Buckets: []DebtAgingBucket{
			{Name: AgingCurrent, MinDays: 0, MaxDays: 29, Invoices: []Invoice{}},
			{Name: AgingOverdue30, MinDays: 30, MaxDays: 59, Invoices: []Invoice{}},
			{Name: AgingOverdue60, MinDays: 60, MaxDays: 89, Invoices: []Invoice{}},
			{Name: AgingOverdue90, MinDays: 90, MaxDays: -1, Invoices: []Invoice{}},
		},
	}
	index := map[string]int{
		AgingCurrent:   0,
		AgingOverdue30: 1,
		AgingOverdue60: 2,
		AgingOverdue90: 3,
	}

	for _, inv := range invoices {
		if inv.RemainingCents <= 0 {
			continue
		}
		bucket := &report.Buckets[index[AgingBucketFor(AgeInDays(inv.Date, now))]]
		bucket.Count++
		bucket.AmountCents += inv.RemainingCents
		bucket.Invoices = append(bucket.Invoices, inv)
		report.TotalCents += inv.RemainingCents
	}
	return report
}

// DecorateInvoice fills the derived display fields.
func DecorateInvoice(inv *Invoice) {
	inv.Number = InvoiceNumber(inv.ID, inv.Date)
	inv.PaymentStatus = PaymentStatusOf(inv.PaidCents, inv.RemainingCents)
}
