package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tokobuku/backend/internal/domain"
	"tokobuku/backend/internal/store"
)

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidTransaction
	}
	if user.Role == "" {
		user.Role = domain.RoleClerk
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.exec(ctx, s.db, "create user", `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt, time.Now().UTC())
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	users := make([]domain.UserAccount, 0, 8)
	err := s.queryRows(ctx, s.db, "list users", `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`, nil, func(row scanner) error {
		var u domain.UserAccount
		if err := row.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return err
		}
		users = append(users, u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidTransaction
	}
	affected, err := s.exec(ctx, s.db, "update user password", `
		UPDATE app_users
		SET password = $1, updated_at = $2
		WHERE username = $3
	`, password, time.Now().UTC(), username)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("update user password: %w", store.ErrNotFound)
	}
	return nil
}
