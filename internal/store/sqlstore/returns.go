package sqlstore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tokobuku/backend/internal/domain"
	"tokobuku/backend/internal/store"
)

const returnColumns = `r.id, r.invoice_id, r.customer_id, c.name, r.return_date, r.total_cents, r.refund_cents, r.status, r.reason, r.notes, r.created_at`

func scanReturn(s scanner) (domain.Return, error) {
	var r domain.Return
	err := s.Scan(&r.ID, &r.InvoiceID, &r.CustomerID, &r.CustomerName, &r.ReturnDate,
		&r.TotalCents, &r.RefundCents, &r.Status, &r.Reason, &r.Notes, &r.CreatedAt)
	return r, err
}

// CreateReturn records a return with its items, puts the returned units back
// on the shelf and, for a non-zero refund, takes the refund off both the paid
// and the remaining amount of the original invoice. All in one transaction.
func (s *Store) CreateReturn(ctx context.Context, ret domain.Return) (*domain.Return, error) {
	if ret.InvoiceID < 1 || len(ret.Items) == 0 || ret.RefundCents < 0 {
		return nil, store.ErrInvalidTransaction
	}

	now := time.Now().UTC()
	if ret.ReturnDate.IsZero() {
		ret.ReturnDate = now
	}
	ret.ReturnDate = domain.DateOnly(ret.ReturnDate)
	if ret.Status == "" {
		ret.Status = domain.ReturnStatusPending
	}
	ret.CreatedAt = now

	ret.TotalCents = 0
	for i := range ret.Items {
		item := &ret.Items[i]
		if item.ProductID < 1 || item.Quantity < 1 || item.PriceCents < 0 {
			return nil, store.ErrInvalidTransaction
		}
		var ok bool
		if item.TotalCents, ok = domain.LineTotal(item.Quantity, item.PriceCents); !ok {
			return nil, fmt.Errorf("create return: line %d total overflows: %w", i, store.ErrInvalidTransaction)
		}
		if ret.TotalCents, ok = domain.AddCents(ret.TotalCents, item.TotalCents); !ok {
			return nil, fmt.Errorf("create return: return total overflows: %w", store.ErrInvalidTransaction)
		}
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var invoiceCustomerID int64
	err = s.queryRow(ctx, tx, "create return", `SELECT customer_id FROM invoices WHERE id = $1`,
		[]any{ret.InvoiceID}, &invoiceCustomerID)
	if err != nil {
		return nil, fmt.Errorf("invoice %d: %w", ret.InvoiceID, err)
	}
	if ret.CustomerID == 0 {
		ret.CustomerID = invoiceCustomerID
	}
	if ret.CustomerID != invoiceCustomerID {
		return nil, fmt.Errorf("create return: customer %d does not own invoice %d: %w", ret.CustomerID, ret.InvoiceID, store.ErrInvalidTransaction)
	}

	ret.ID, err = s.insert(ctx, tx, "create return", `
		INSERT INTO returns (invoice_id, customer_id, return_date, total_cents, refund_cents, status, reason, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, ret.InvoiceID, ret.CustomerID, ret.ReturnDate, ret.TotalCents, ret.RefundCents,
		ret.Status, ret.Reason, ret.Notes, ret.CreatedAt)
	if err != nil {
		return nil, err
	}

	for i := range ret.Items {
		item := &ret.Items[i]
		item.ReturnID = ret.ID

		err := s.queryRow(ctx, tx, "create return item", `SELECT name, COALESCE(sku, '') FROM products WHERE id = $1`,
			[]any{item.ProductID}, &item.ProductName, &item.ProductSKU)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, err)
		}

		item.ID, err = s.insert(ctx, tx, "create return item", `
			INSERT INTO return_items (return_id, product_id, product_name, product_sku, quantity, price_cents, total_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, item.ReturnID, item.ProductID, item.ProductName, item.ProductSKU, item.Quantity, item.PriceCents, item.TotalCents)
		if err != nil {
			return nil, err
		}

		if err := s.increaseStock(ctx, tx, item.ProductID, item.Quantity, now); err != nil {
			return nil, err
		}
	}

	if ret.RefundCents > 0 {
		_, err := s.exec(ctx, tx, "apply refund", `
			UPDATE invoices
			SET paid_cents = paid_cents - $1, remaining_cents = remaining_cents - $1
			WHERE id = $2
		`, ret.RefundCents, ret.InvoiceID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit return: %w", err)
	}

	s.log.Debug("return created",
		zap.Int64("return_id", ret.ID),
		zap.Int64("invoice_id", ret.InvoiceID),
		zap.Int64("refund_cents", ret.RefundCents),
	)
	return &ret, nil
}

func (s *Store) GetReturn(ctx context.Context, id int64) (*domain.Return, error) {
	r, err := scanReturn(s.db.QueryRowContext(ctx, `
		SELECT `+returnColumns+`
		FROM returns r
		JOIN customers c ON c.id = r.customer_id
		WHERE r.id = $1
	`, id))
	if err != nil {
		return nil, s.mapError("get return", err)
	}

	r.Items, err = s.listReturnItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListReturns(ctx context.Context, dateRange domain.DateRange) ([]domain.Return, error) {
	var f filter
	f.addRange("r.return_date", dateRange)
	return s.listReturns(ctx, "list returns", `
		SELECT `+returnColumns+`
		FROM returns r
		JOIN customers c ON c.id = r.customer_id`+f.where()+`
		ORDER BY r.return_date DESC, r.id DESC
	`, f.args...)
}

func (s *Store) ListReturnsByInvoice(ctx context.Context, invoiceID int64) ([]domain.Return, error) {
	return s.listReturns(ctx, "list invoice returns", `
		SELECT `+returnColumns+`
		FROM returns r
		JOIN customers c ON c.id = r.customer_id
		WHERE r.invoice_id = $1
		ORDER BY r.return_date DESC, r.id DESC
	`, invoiceID)
}

func (s *Store) UpdateReturnStatus(ctx context.Context, id int64, status string) (*domain.Return, error) {
	switch status {
	case domain.ReturnStatusPending, domain.ReturnStatusAccepted, domain.ReturnStatusRejected:
	default:
		return nil, store.ErrInvalidTransaction
	}

	affected, err := s.exec(ctx, s.db, "update return status", `UPDATE returns SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("update return status: %w", store.ErrNotFound)
	}
	return s.GetReturn(ctx, id)
}

func (s *Store) listReturns(ctx context.Context, op string, query string, args ...any) ([]domain.Return, error) {
	returns := make([]domain.Return, 0, 16)
	err := s.queryRows(ctx, s.db, op, query, args, func(row scanner) error {
		r, err := scanReturn(row)
		if err != nil {
			return err
		}
		returns = append(returns, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return returns, nil
}

func (s *Store) listReturnItems(ctx context.Context, returnID int64) ([]domain.ReturnItem, error) {
	items := make([]domain.ReturnItem, 0, 8)
	err := s.queryRows(ctx, s.db, "list return items", `
		SELECT ri.id, ri.return_id, ri.product_id, ri.product_name, ri.product_sku, ri.quantity, ri.price_cents, ri.total_cents
		FROM return_items ri
		WHERE ri.return_id = $1
		ORDER BY ri.id
	`, []any{returnID}, func(row scanner) error {
		var item domain.ReturnItem
		if err := row.Scan(&item.ID, &item.ReturnID, &item.ProductID, &item.ProductName, &item.ProductSKU,
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
