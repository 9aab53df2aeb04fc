package sqlstore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tokobuku/backend/internal/domain"
	"tokobuku/backend/internal/store"
)

const invoiceColumns = `i.id, i.customer_id, c.name, c.phone, i.invoice_date, i.total_cents, i.paid_cents, i.remaining_cents, i.status, i.notes, i.created_at`

func scanInvoice(s scanner) (domain.Invoice, error) {
	var inv domain.Invoice
	err := s.Scan(&inv.ID, &inv.CustomerID, &inv.CustomerName, &inv.CustomerPhone, &inv.Date,
		&inv.TotalCents, &inv.PaidCents, &inv.RemainingCents, &inv.Status, &inv.Notes, &inv.CreatedAt)
	if err != nil {
		return inv, err
	}
	domain.DecorateInvoice(&inv)
	return inv, nil
}

// CreateInvoice writes the invoice header, its items and the matching stock
// decrements as one transaction. Totals are derived from the supplied item
// prices, never from the current product price.
func (s *Store) CreateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	if invoice.CustomerID < 1 || len(invoice.Items) == 0 || invoice.PaidCents < 0 {
		return nil, store.ErrInvalidTransaction
	}

	now := time.Now().UTC()
	if invoice.Date.IsZero() {
		invoice.Date = now
	}
	invoice.Date = domain.DateOnly(invoice.Date)
	if invoice.Status == "" {
		invoice.Status = domain.InvoiceStatusActive
	}
	invoice.CreatedAt = now

	invoice.TotalCents = 0
	for i := range invoice.Items {
		item := &invoice.Items[i]
		if item.ProductID < 1 || item.Quantity < 1 || item.PriceCents < 0 {
			return nil, store.ErrInvalidTransaction
		}
		var ok bool
		if item.TotalCents, ok = domain.LineTotal(item.Quantity, item.PriceCents); !ok {
			return nil, fmt.Errorf("create invoice: line %d total overflows: %w", i, store.ErrInvalidTransaction)
		}
		if invoice.TotalCents, ok = domain.AddCents(invoice.TotalCents, item.TotalCents); !ok {
			return nil, fmt.Errorf("create invoice: invoice total overflows: %w", store.ErrInvalidTransaction)
		}
	}
	invoice.RemainingCents = invoice.TotalCents - invoice.PaidCents

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	customer, err := s.getCustomer(ctx, tx, invoice.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("create invoice: customer %d: %w", invoice.CustomerID, err)
	}
	invoice.CustomerName = customer.Name
	invoice.CustomerPhone = customer.Phone

	invoice.ID, err = s.insert(ctx, tx, "create invoice", `
		INSERT INTO invoices (customer_id, invoice_date, total_cents, paid_cents, remaining_cents, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, invoice.CustomerID, invoice.Date, invoice.TotalCents, invoice.PaidCents, invoice.RemainingCents,
		invoice.Status, invoice.Notes, invoice.CreatedAt)
	if err != nil {
		return nil, err
	}

	for i := range invoice.Items {
		item := &invoice.Items[i]
		item.InvoiceID = invoice.ID

		err := s.queryRow(ctx, tx, "create invoice item", `SELECT name, COALESCE(sku, '') FROM products WHERE id = $1`,
			[]any{item.ProductID}, &item.ProductName, &item.ProductSKU)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, err)
		}

		item.ID, err = s.insert(ctx, tx, "create invoice item", `
			INSERT INTO invoice_items (invoice_id, product_id, product_name, product_sku, quantity, price_cents, total_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, item.InvoiceID, item.ProductID, item.ProductName, item.ProductSKU, item.Quantity, item.PriceCents, item.TotalCents)
		if err != nil {
			return nil, err
		}

		if err := s.decreaseStock(ctx, tx, item.ProductID, item.Quantity, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit invoice: %w", err)
	}

	domain.DecorateInvoice(&invoice)
	s.log.Debug("invoice created",
		zap.Int64("invoice_id", invoice.ID),
		zap.Int64("customer_id", invoice.CustomerID),
		zap.Int("items", len(invoice.Items)),
	)
	return &invoice, nil
}

func (s *Store) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	inv, err := scanInvoice(s.db.QueryRowContext(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE i.id = $1
	`, id))
	if err != nil {
		return nil, s.mapError("get invoice", err)
	}

	inv.Items, err = s.ListInvoiceItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Store) ListInvoices(ctx context.Context, invFilter domain.InvoiceFilter) ([]domain.Invoice, error) {
	var f filter
	if invFilter.CustomerID > 0 {
		f.add("i.customer_id = $%d", invFilter.CustomerID)
	}
	if invFilter.CustomerName != "" {
		f.add("LOWER(c.name) LIKE $%d ESCAPE '\\'", likePattern(invFilter.CustomerName))
	}
	f.addRange("i.invoice_date", invFilter.Range)

	return s.listInvoices(ctx, "list invoices", `
		SELECT `+invoiceColumns+`
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id`+f.where()+`
		ORDER BY i.invoice_date DESC, i.id DESC
	`, f.args...)
}

// OpenInvoices lists every invoice that still carries a remaining balance.
func (s *Store) OpenInvoices(ctx context.Context) ([]domain.Invoice, error) {
	return s.listInvoices(ctx, "open invoices", `
		SELECT `+invoiceColumns+`
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE i.remaining_cents > 0
		ORDER BY i.invoice_date ASC, i.id ASC
	`)
}

func (s *Store) listInvoices(ctx context.Context, op string, query string, args ...any) ([]domain.Invoice, error) {
	invoices := make([]domain.Invoice, 0, 32)
	err := s.queryRows(ctx, s.db, op, query, args, func(row scanner) error {
		inv, err := scanInvoice(row)
		if err != nil {
			return err
		}
		invoices = append(invoices, inv)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *Store) ListInvoiceItems(ctx context.Context, invoiceID int64) ([]domain.InvoiceItem, error) {
	items := make([]domain.InvoiceItem, 0, 8)
	err := s.queryRows(ctx, s.db, "list invoice items", `
		SELECT ii.id, ii.invoice_id, ii.product_id, ii.product_name, ii.product_sku, ii.quantity, ii.price_cents, ii.total_cents
		FROM invoice_items ii
		WHERE ii.invoice_id = $1
		ORDER BY ii.id
	`, []any{invoiceID}, func(row scanner) error {
		var item domain.InvoiceItem
		if err := row.Scan(&item.ID, &item.InvoiceID, &item.ProductID, &item.ProductName, &item.ProductSKU,
			&item.Quantity, &item.PriceCents, &item.TotalCents); err != nil {
			return err
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
