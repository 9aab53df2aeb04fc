package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"tokobuku/backend/internal/domain"
)

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := s.check(req); err != nil {
		return domain.Customer{}, s.fail(ctx, "create customer", err)
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   strings.TrimSpace(req.Email),
		Company: strings.TrimSpace(req.Company),
		Address: strings.TrimSpace(req.Address),
		Notes:   req.Notes,
	})
	if err != nil {
		return domain.Customer{}, s.fail(ctx, "create customer", err, zap.String("phone", req.Phone))
	}

	s.ledgerChanged(ctx)
	s.logger(ctx).Info("customer created", zap.Int64("customer_id", created.ID))
	return *created, nil
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	c, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	return *c, nil
}

// ListCustomers lists every customer, or only those matching term when given.
func (s *Service) ListCustomers(ctx context.Context, term string) ([]domain.Customer, error) {
	if strings.TrimSpace(term) == "" {
		return s.repo.ListCustomers(ctx)
	}
	return s.repo.SearchCustomers(ctx, term)
}

func (s *Service) CustomerStatement(ctx context.Context, id int64, limit int) (domain.CustomerStatement, error) {
	return s.repo.CustomerStatement(ctx, id, limit)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Product{}, s.fail(ctx, "create product", err)
	}
	req.Name = strings.TrimSpace(req.Name)
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Category = strings.TrimSpace(req.Category)
	if err := s.check(req); err != nil {
		return domain.Product{}, s.fail(ctx, "create product", err)
	}

	minStock := domain.DefaultMinStock
	if req.MinStock != nil {
		minStock = *req.MinStock
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Name:           req.Name,
		SKU:            req.SKU,
		Category:       req.Category,
		PriceCents:     req.PriceCents,
		CostPriceCents: req.CostPriceCents,
		Quantity:       req.Quantity,
		MinStock:       minStock,
		Description:    req.Description,
	})
	if err != nil {
		return domain.Product{}, s.fail(ctx, "create product", err, zap.String("sku", req.SKU))
	}

	s.ledgerChanged(ctx)
	s.logger(ctx).Info("product created", zap.Int64("product_id", created.ID), zap.Int("quantity", created.Quantity))
	return *created, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, req domain.ProductUpdateRequest) (domain.Product, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Product{}, s.fail(ctx, "update product", err)
	}
	if err := s.check(req); err != nil {
		return domain.Product{}, s.fail(ctx, "update product", err)
	}

	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, s.fail(ctx, "update product", err, zap.Int64("product_id", id))
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.SKU != nil {
		updated.SKU = strings.ToUpper(strings.TrimSpace(*req.SKU))
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.PriceCents != nil {
		updated.PriceCents = *req.PriceCents
	}
	if req.CostPriceCents != nil {
		updated.CostPriceCents = *req.CostPriceCents
	}
	if req.MinStock != nil {
		updated.MinStock = *req.MinStock
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, s.fail(ctx, "update product", err, zap.Int64("product_id", id))
	}

	s.ledgerChanged(ctx)
	if existing.PriceCents != saved.PriceCents || existing.CostPriceCents != saved.CostPriceCents {
		s.logger(ctx).Info("product pricing changed",
			zap.Int64("product_id", id),
			zap.Int64("old_price_cents", existing.PriceCents),
			zap.Int64("new_price_cents", saved.PriceCents),
			zap.Int64("old_cost_cents", existing.CostPriceCents),
			zap.Int64("new_cost_cents", saved.CostPriceCents),
		)
	}
	return *saved, nil
}

func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	switch filter.StockStatus {
	case "", "low", "out":
	default:
		return nil, s.fail(ctx, "list products", invalidf("stock filter must be low or out"))
	}
	return s.repo.ListProducts(ctx, filter)
}

func (s *Service) ListCategories(ctx context.Context) ([]string, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) DecreaseStock(ctx context.Context, id int64, req domain.StockAdjustRequest) (domain.Product, error) {
	return s.adjustStock(ctx, "decrease stock", id, req, func() error {
		if req.Quantity < 1 {
			return invalidf("quantity must be greater than 0")
		}
		return s.repo.DecreaseStock(ctx, id, req.Quantity)
	})
}

func (s *Service) IncreaseStock(ctx context.Context, id int64, req domain.StockAdjustRequest) (domain.Product, error) {
	return s.adjustStock(ctx, "increase stock", id, req, func() error {
		if req.Quantity < 1 {
			return invalidf("quantity must be greater than 0")
		}
		return s.repo.IncreaseStock(ctx, id, req.Quantity)
	})
}

func (s *Service) SetStock(ctx context.Context, id int64, req domain.StockAdjustRequest) (domain.Product, error) {
	return s.adjustStock(ctx, "set stock", id, req, func() error {
		return s.repo.SetStock(ctx, id, req.Quantity)
	})
}

func (s *Service) adjustStock(ctx context.Context, op string, id int64, req domain.StockAdjustRequest, apply func() error) (domain.Product, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Product{}, s.fail(ctx, op, err)
	}
	if err := s.check(req); err != nil {
		return domain.Product{}, s.fail(ctx, op, err)
	}
	if err := apply(); err != nil {
		return domain.Product{}, s.fail(ctx, op, err, zap.Int64("product_id", id), zap.Int("quantity", req.Quantity))
	}

	s.ledgerChanged(ctx)
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	s.logger(ctx).Info("stock adjusted", zap.String("op", op), zap.Int64("product_id", id), zap.Int("quantity", p.Quantity))
	return *p, nil
}

func (s *Service) CreateInvoice(ctx context.Context, req domain.InvoiceCreateRequest) (domain.Invoice, error) {
	if err := s.check(req); err != nil {
		return domain.Invoice{}, s.fail(ctx, "create invoice", err)
	}
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		return domain.Invoice{}, s.fail(ctx, "create invoice", err)
	}

	invoice := domain.Invoice{
		CustomerID: req.CustomerID,
		Date:       date,
		PaidCents:  req.PaidCents,
		Status:     strings.TrimSpace(req.Status),
		Notes:      req.Notes,
		Items:      make([]domain.InvoiceItem, 0, len(req.Items)),
	}
	for _, line := range req.Items {
		invoice.Items = append(invoice.Items, domain.InvoiceItem{
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			PriceCents: line.PriceCents,
		})
	}

	created, err := s.repo.CreateInvoice(ctx, invoice)
	if err != nil {
		return domain.Invoice{}, s.fail(ctx, "create invoice", err, zap.Int64("customer_id", req.CustomerID))
	}

	s.ledgerChanged(ctx)
	s.logger(ctx).Info("invoice created",
		zap.Int64("invoice_id", created.ID),
		zap.String("number", created.Number),
		zap.Int64("total_cents", created.TotalCents),
		zap.Int64("remaining_cents", created.RemainingCents),
	)
	return *created, nil
}

func (s *Service) GetInvoice(ctx context.Context, id int64) (domain.Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	return *inv, nil
}

func (s *Service) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	return s.repo.ListInvoices(ctx, filter)
}

func (s *Service) CreateReturn(ctx context.Context, req domain.ReturnCreateRequest) (domain.Return, error) {
	if err := s.check(req); err != nil {
		return domain.Return{}, s.fail(ctx, "create return", err)
	}
	date, err := parseOptionalDate("return_date", req.ReturnDate)
	if err != nil {
		return domain.Return{}, s.fail(ctx, "create return", err)
	}
	var itemsTotal int64
	for i, line := range req.Items {
		lineTotal, ok := domain.LineTotal(line.Quantity, line.PriceCents)
		if ok {
			itemsTotal, ok = domain.AddCents(itemsTotal, lineTotal)
		}
		if !ok {
			return domain.Return{}, s.fail(ctx, "create return", invalidf("items[%d] total is out of range", i))
		}
	}
	if req.RefundCents > itemsTotal {
		return domain.Return{}, s.fail(ctx, "create return",
			invalidf("refund_cents must not exceed the returned items total %s", domain.FormatCents(itemsTotal)))
	}

	ret := domain.Return{
		InvoiceID:   req.InvoiceID,
		CustomerID:  req.CustomerID,
		ReturnDate:  date,
		RefundCents: req.RefundCents,
		Status:      req.Status,
		Reason:      strings.TrimSpace(req.Reason),
		Notes:       req.Notes,
		Items:       make([]domain.ReturnItem, 0, len(req.Items)),
	}
	for _, line := range req.Items {
		ret.Items = append(ret.Items, domain.ReturnItem{
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			PriceCents: line.PriceCents,
		})
	}

	created, err := s.repo.CreateReturn(ctx, ret)
	if err != nil {
		return domain.Return{}, s.fail(ctx, "create return", err, zap.Int64("invoice_id", req.InvoiceID))
	}

	s.ledgerChanged(ctx)
	s.logger(ctx).Info("return created",
		zap.Int64("return_id", created.ID),
		zap.Int64("invoice_id", created.InvoiceID),
		zap.Int64("refund_cents", created.RefundCents),
	)
	return *created, nil
}

func (s *Service) GetReturn(ctx context.Context, id int64) (domain.Return, error) {
	r, err := s.repo.GetReturn(ctx, id)
	if err != nil {
		return domain.Return{}, err
	}
	return *r, nil
}

func (s *Service) ListReturns(ctx context.Context, dateRange domain.DateRange) ([]domain.Return, error) {
	return s.repo.ListReturns(ctx, dateRange)
}

func (s *Service) ListInvoiceReturns(ctx context.Context, invoiceID int64) ([]domain.Return, error) {
	if _, err := s.repo.GetInvoice(ctx, invoiceID); err != nil {
		return nil, err
	}
	return s.repo.ListReturnsByInvoice(ctx, invoiceID)
}

func (s *Service) UpdateReturnStatus(ctx context.Context, id int64, req domain.ReturnStatusRequest) (domain.Return, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Return{}, s.fail(ctx, "update return status", err)
	}
	if err := s.check(req); err != nil {
		return domain.Return{}, s.fail(ctx, "update return status", err)
	}

	updated, err := s.repo.UpdateReturnStatus(ctx, id, req.Status)
	if err != nil {
		return domain.Return{}, s.fail(ctx, "update return status", err, zap.Int64("return_id", id))
	}
	s.ledgerChanged(ctx)
	return *updated, nil
}
