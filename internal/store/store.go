package store

import (
	"context"
	"errors"
	"time"

	"tokobuku/backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrConflict           = errors.New("already exists")
)

type Repository interface {
	Ping(ctx context.Context) error

	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	SearchCustomers(ctx context.Context, term string) ([]domain.Customer, error)
	CountCustomers(ctx context.Context) (int64, error)

	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	ListCategories(ctx context.Context) ([]string, error)
	CountProducts(ctx context.Context) (int64, error)

	DecreaseStock(ctx context.Context, productID int64, qty int) error
	IncreaseStock(ctx context.Context, productID int64, qty int) error
	SetStock(ctx context.Context, productID int64, qty int) error

	CreateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error)
	ListInvoiceItems(ctx context.Context, invoiceID int64) ([]domain.InvoiceItem, error)

	CreateReturn(ctx context.Context, ret domain.Return) (*domain.Return, error)
	GetReturn(ctx context.Context, id int64) (*domain.Return, error)
	ListReturns(ctx context.Context, dateRange domain.DateRange) ([]domain.Return, error)
	ListReturnsByInvoice(ctx context.Context, invoiceID int64) ([]domain.Return, error)
	UpdateReturnStatus(ctx context.Context, id int64, status string) (*domain.Return, error)

	SalesReport(ctx context.Context, dateRange domain.DateRange) (domain.SalesReport, error)
	ProfitLossReport(ctx context.Context, dateRange domain.DateRange) (domain.ProfitLossReport, error)
	CashFlowReport(ctx context.Context, dateRange domain.DateRange) (domain.CashFlowReport, error)
	TopSellingProducts(ctx context.Context, dateRange domain.DateRange, limit int) ([]domain.ProductSales, error)
	CategoryPerformance(ctx context.Context, dateRange domain.DateRange) ([]domain.CategoryPerformance, error)
	DebtorCustomers(ctx context.Context) ([]domain.DebtorCustomer, error)
	OpenInvoices(ctx context.Context) ([]domain.Invoice, error)
	TopCustomers(ctx context.Context, limit int) ([]domain.TopCustomer, error)
	MonthlySales(ctx context.Context, from time.Time, to time.Time) ([]domain.MonthlySales, error)
	InventoryReport(ctx context.Context) (domain.InventoryReport, error)
	LowStockProducts(ctx context.Context) ([]domain.Product, error)
	CustomerStatement(ctx context.Context, customerID int64, recentLimit int) (domain.CustomerStatement, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
