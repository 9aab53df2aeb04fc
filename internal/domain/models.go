package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin = "admin"
	RoleClerk = "clerk"

	InvoiceStatusActive = "active"

	ReturnStatusPending  = "pending"
	ReturnStatusAccepted = "accepted"
	ReturnStatusRejected = "rejected"

	StockStatusIn  = "in_stock"
	StockStatusLow = "low_stock"
	StockStatusOut = "out_of_stock"

	PaymentStatusPaid    = "paid"
	PaymentStatusPartial = "partial"
	PaymentStatusUnpaid  = "unpaid"

	DefaultMinStock = 10
)

type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Company   string    `json:"company"`
	Address   string    `json:"address"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Phone   string `json:"phone" validate:"required,max=40"`
	Email   string `json:"email" validate:"max=200"`
	Company string `json:"company" validate:"max=200"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

type CustomerStatement struct {
	Customer            Customer  `json:"customer"`
	InvoiceCount        int64     `json:"invoice_count"`
	TotalPurchasesCents int64     `json:"total_purchases_cents"`
	TotalPaidCents      int64     `json:"total_paid_cents"`
	BalanceCents        int64     `json:"balance_cents"`
	RecentInvoices      []Invoice `json:"recent_invoices"`
}

type Product struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	SKU            string    `json:"sku"`
	Category       string    `json:"category"`
	PriceCents     int64     `json:"price_cents"`
	CostPriceCents int64     `json:"cost_price_cents"`
	Quantity       int       `json:"quantity"`
	MinStock       int       `json:"min_stock"`
	Description    string    `json:"description"`
	StockStatus    string    `json:"stock_status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ProductCreateRequest struct {
	Name           string `json:"name" validate:"required,max=200"`
	SKU            string `json:"sku" validate:"max=64"`
	Category       string `json:"category" validate:"max=100"`
	PriceCents     int64  `json:"price_cents" validate:"gte=0,lte=1000000000000"`
	CostPriceCents int64  `json:"cost_price_cents" validate:"gte=0,lte=1000000000000"`
	Quantity       int    `json:"quantity" validate:"gte=0,lte=1000000"`
	MinStock       *int   `json:"min_stock,omitempty" validate:"omitempty,gte=0,lte=1000000"`
	Description    string `json:"description"`
}

type ProductUpdateRequest struct {
	Name           *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	SKU            *string `json:"sku,omitempty" validate:"omitempty,max=64"`
	Category       *string `json:"category,omitempty" validate:"omitempty,max=100"`
	PriceCents     *int64  `json:"price_cents,omitempty" validate:"omitempty,gte=0,lte=1000000000000"`
	CostPriceCents *int64  `json:"cost_price_cents,omitempty" validate:"omitempty,gte=0,lte=1000000000000"`
	MinStock       *int    `json:"min_stock,omitempty" validate:"omitempty,gte=0,lte=1000000"`
	Description    *string `json:"description,omitempty"`
}

type ProductFilter struct {
	Search      string
	Category    string
	StockStatus string
}

type StockAdjustRequest struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=1000000"`
}

type Invoice struct {
	ID             int64         `json:"id"`
	Number         string        `json:"number"`
	CustomerID     int64         `json:"customer_id"`
	CustomerName   string        `json:"customer_name,omitempty"`
	CustomerPhone  string        `json:"customer_phone,omitempty"`
	Date           time.Time     `json:"date"`
	TotalCents     int64         `json:"total_cents"`
	PaidCents      int64         `json:"paid_cents"`
	RemainingCents int64         `json:"remaining_cents"`
	PaymentStatus  string        `json:"payment_status"`
	Status         string        `json:"status"`
	Notes          string        `json:"notes"`
	Items          []InvoiceItem `json:"items,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

type InvoiceItem struct {
	ID          int64  `json:"id"`
	InvoiceID   int64  `json:"invoice_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	ProductSKU  string `json:"product_sku,omitempty"`
	Quantity    int    `json:"quantity"`
	PriceCents  int64  `json:"price_cents"`
	TotalCents  int64  `json:"total_cents"`
}

type InvoiceLineRequest struct {
	ProductID  int64 `json:"product_id" validate:"required,gt=0"`
	Quantity   int   `json:"quantity" validate:"gt=0,lte=1000000"`
	PriceCents int64 `json:"price_cents" validate:"gte=0,lte=1000000000000"`
}

type InvoiceCreateRequest struct {
	CustomerID int64                `json:"customer_id" validate:"required,gt=0"`
	Date       string               `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Items      []InvoiceLineRequest `json:"items" validate:"required,min=1,dive"`
	PaidCents  int64                `json:"paid_cents" validate:"gte=0,lte=1000000000000000"`
	Status     string               `json:"status" validate:"max=40"`
	Notes      string               `json:"notes"`
}

type InvoiceFilter struct {
	CustomerID   int64
	CustomerName string
	Range        DateRange
}

type Return struct {
	ID           int64        `json:"id"`
	InvoiceID    int64        `json:"invoice_id"`
	CustomerID   int64        `json:"customer_id"`
	CustomerName string       `json:"customer_name,omitempty"`
	ReturnDate   time.Time    `json:"return_date"`
	TotalCents   int64        `json:"total_cents"`
	RefundCents  int64        `json:"refund_cents"`
	Status       string       `json:"status"`
	Reason       string       `json:"reason"`
	Notes        string       `json:"notes"`
	Items        []ReturnItem `json:"items,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

type ReturnItem struct {
	ID          int64  `json:"id"`
	ReturnID    int64  `json:"return_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	ProductSKU  string `json:"product_sku,omitempty"`
	Quantity    int    `json:"quantity"`
	PriceCents  int64  `json:"price_cents"`
	TotalCents  int64  `json:"total_cents"`
}

type ReturnLineRequest struct {
	ProductID  int64 `json:"product_id" validate:"required,gt=0"`
	Quantity   int   `json:"quantity" validate:"gt=0,lte=1000000"`
	PriceCents int64 `json:"price_cents" validate:"gte=0,lte=1000000000000"`
}

type ReturnCreateRequest struct {
	InvoiceID   int64               `json:"invoice_id" validate:"required,gt=0"`
	CustomerID  int64               `json:"customer_id" validate:"gte=0"`
	ReturnDate  string              `json:"return_date" validate:"omitempty,datetime=2006-01-02"`
	Items       []ReturnLineRequest `json:"items" validate:"required,min=1,dive"`
	RefundCents int64               `json:"refund_cents" validate:"gte=0,lte=1000000000000000"`
	Status      string              `json:"status" validate:"omitempty,oneof=pending accepted rejected"`
	Reason      string              `json:"reason"`
	Notes       string              `json:"notes"`
}

type ReturnStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending accepted rejected"`
}

type DateRange struct {
	Start *time.Time
	End   *time.Time
}

type SalesReport struct {
	TotalInvoices       int64           `json:"total_invoices"`
	TotalSalesCents     int64           `json:"total_sales_cents"`
	TotalPaidCents      int64           `json:"total_paid_cents"`
	TotalRemainingCents int64           `json:"total_remaining_cents"`
	AverageInvoiceCents int64           `json:"average_invoice_cents"`
	PaymentRate         decimal.Decimal `json:"payment_rate"`
	Invoices            []Invoice       `json:"invoices"`
}

type ProfitLossReport struct {
	TotalSalesCents   int64           `json:"total_sales_cents"`
	TotalRevenueCents int64           `json:"total_revenue_cents"`
	TotalCostCents    int64           `json:"total_cost_cents"`
	TotalReturnsCents int64           `json:"total_returns_cents"`
	GrossProfitCents  int64           `json:"gross_profit_cents"`
	NetProfitCents    int64           `json:"net_profit_cents"`
	ProfitMargin      decimal.Decimal `json:"profit_margin"`
}

type CashFlowReport struct {
	InflowCents  int64 `json:"inflow_cents"`
	OutflowCents int64 `json:"outflow_cents"`
	NetCents     int64 `json:"net_cents"`
}

type ProductSales struct {
	ProductID    int64  `json:"product_id"`
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	Category     string `json:"category"`
	TotalSold    int64  `json:"total_sold"`
	RevenueCents int64  `json:"revenue_cents"`
	CostCents    int64  `json:"cost_cents"`
	ProfitCents  int64  `json:"profit_cents"`
}

type CategoryPerformance struct {
	Category     string `json:"category"`
	ProductCount int64  `json:"product_count"`
	TotalSold    int64  `json:"total_sold"`
	RevenueCents int64  `json:"revenue_cents"`
	CostCents    int64  `json:"cost_cents"`
	ProfitCents  int64  `json:"profit_cents"`
}

type DebtorCustomer struct {
	CustomerID   int64  `json:"customer_id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Company      string `json:"company"`
	InvoiceCount int64  `json:"invoice_count"`
	BalanceCents int64  `json:"balance_cents"`
}

type DebtAgingBucket struct {
	Name        string    `json:"name"`
	MinDays     int       `json:"min_days"`
	MaxDays     int       `json:"max_days"`
	Count       int       `json:"count"`
	AmountCents int64     `json:"amount_cents"`
	Invoices    []Invoice `json:"invoices"`
}

type DebtAgingReport struct {
	AsOf       time.Time         `json:"as_of"`
	TotalCents int64             `json:"total_cents"`
	Buckets    []DebtAgingBucket `json:"buckets"`
}

type TopCustomer struct {
	CustomerID          int64  `json:"customer_id"`
	Name                string `json:"name"`
	Phone               string `json:"phone"`
	InvoiceCount        int64  `json:"invoice_count"`
	TotalPurchasesCents int64  `json:"total_purchases_cents"`
	TotalPaidCents      int64  `json:"total_paid_cents"`
}

type MonthlySales struct {
	Month          int   `json:"month"`
	InvoiceCount   int64 `json:"invoice_count"`
	SalesCents     int64 `json:"sales_cents"`
	PaidCents      int64 `json:"paid_cents"`
	RemainingCents int64 `json:"remaining_cents"`
	CostCents      int64 `json:"cost_cents"`
	ProfitCents    int64 `json:"profit_cents"`
}

type MonthlyComparisonReport struct {
	Year   int            `json:"year"`
	Months []MonthlySales `json:"months"`
}

type CategoryStock struct {
	Category     string `json:"category"`
	ProductCount int64  `json:"product_count"`
	Units        int64  `json:"units"`
	ValueCents   int64  `json:"value_cents"`
}

type InventoryReport struct {
	ProductCount        int64           `json:"product_count"`
	TotalUnits          int64           `json:"total_units"`
	InventoryValueCents int64           `json:"inventory_value_cents"`
	CostValueCents      int64           `json:"cost_value_cents"`
	LowStockCount       int64           `json:"low_stock_count"`
	OutOfStockCount     int64           `json:"out_of_stock_count"`
	ByCategory          []CategoryStock `json:"by_category"`
}

type Dashboard struct {
	TotalCustomers       int64 `json:"total_customers"`
	TotalProducts        int64 `json:"total_products"`
	MonthInvoices        int64 `json:"month_invoices"`
	MonthSalesCents      int64 `json:"month_sales_cents"`
	PendingPaymentsCents int64 `json:"pending_payments_cents"`
	LowStockCount        int64 `json:"low_stock_count"`
}

type Actor struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type ClerkCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
