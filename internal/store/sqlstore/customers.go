package sqlstore

import (
	"context"
	"time"

	"tokobuku/backend/internal/domain"
)

const customerColumns = `c.id, c.name, c.phone, c.email, c.company, c.address, c.notes, c.created_at`

func scanCustomer(s scanner) (domain.Customer, error) {
	var c domain.Customer
	err := s.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Company, &c.Address, &c.Notes, &c.CreatedAt)
	return c, err
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	id, err := s.insert(ctx, s.db, "create customer", `
		INSERT INTO customers (name, phone, email, company, address, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, customer.Name, customer.Phone, customer.Email, customer.Company, customer.Address, customer.Notes, customer.CreatedAt)
	if err != nil {
		return nil, err
	}

	customer.ID = id
	return &customer, nil
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.getCustomer(ctx, s.db, id)
}

func (s *Store) getCustomer(ctx context.Context, q querier, id int64) (*domain.Customer, error) {
	c, err := scanCustomer(q.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers c WHERE c.id = $1`, id))
	if err != nil {
		return nil, s.mapError("get customer", err)
	}
	return &c, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.listCustomers(ctx, "list customers", `SELECT `+customerColumns+` FROM customers c ORDER BY c.name, c.id`)
}

func (s *Store) SearchCustomers(ctx context.Context, term string) ([]domain.Customer, error) {
	return s.listCustomers(ctx, "search customers", `
		SELECT `+customerColumns+`
		FROM customers c
		WHERE LOWER(c.name) LIKE $1 ESCAPE '\' OR LOWER(c.phone) LIKE $1 ESCAPE '\' OR LOWER(c.company) LIKE $1 ESCAPE '\'
		ORDER BY c.name, c.id
	`, likePattern(term))
}

func (s *Store) listCustomers(ctx context.Context, op string, query string, args ...any) ([]domain.Customer, error) {
	customers := make([]domain.Customer, 0, 32)
	err := s.queryRows(ctx, s.db, op, query, args, func(row scanner) error {
		c, err := scanCustomer(row)
		if err != nil {
			return err
		}
		customers = append(customers, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) CountCustomers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.queryRow(ctx, s.db, "count customers", `SELECT COUNT(*) FROM customers`, nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) CustomerStatement(ctx context.Context, customerID int64, recentLimit int) (domain.CustomerStatement, error) {
	customer, err := s.GetCustomer(ctx, customerID)
	if err != nil {
		return domain.CustomerStatement{}, err
	}

	statement := domain.CustomerStatement{Customer: *customer}
	err = s.queryRow(ctx, s.db, "customer balance", `
		SELECT COUNT(*),
			CAST(COALESCE(SUM(total_cents), 0) AS BIGINT),
			CAST(COALESCE(SUM(paid_cents), 0) AS BIGINT),
			CAST(COALESCE(SUM(remaining_cents), 0) AS BIGINT)
		FROM invoices
		WHERE customer_id = $1
	`, []any{customerID}, &statement.InvoiceCount, &statement.TotalPurchasesCents, &statement.TotalPaidCents, &statement.BalanceCents)
	if err != nil {
		return domain.CustomerStatement{}, err
	}

	if recentLimit < 1 {
		recentLimit = 10
	}
	statement.RecentInvoices, err = s.listInvoices(ctx, "customer history", `
		SELECT `+invoiceColumns+`
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE i.customer_id = $1
		ORDER BY i.invoice_date DESC, i.id DESC
		LIMIT $2
	`, customerID, recentLimit)
	if err != nil {
		return domain.CustomerStatement{}, err
	}
	return statement, nil
}
