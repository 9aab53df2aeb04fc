package httpapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tokobuku/backend/internal/domain"
	"tokobuku/backend/internal/service"
	"tokobuku/backend/internal/store"
)

const tokenIssuer = "tokobuku"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type AuthManager struct {
	mu        sync.RWMutex
	secret    []byte
	tokenTTL  time.Duration
	userStore UserStore
	users     map[string]credential
	log       *zap.Logger
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

type credential struct {
	password string
	role     string
	active   bool
	created  time.Time
}

type ledgerClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, userStore UserStore, log *zap.Logger) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &AuthManager{
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		userStore: userStore,
		users:     make(map[string]credential),
		log:       log.Named("auth"),
	}
}

// EnsureAdmin creates the admin account when it does not exist yet. An existing
// account is left untouched, whatever its password.
func (a *AuthManager) EnsureAdmin(ctx context.Context, username string, password string) (bool, error) {
	if err := a.refreshUsers(ctx); err != nil {
		return false, err
	}
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return false, errors.New("admin username is empty")
	}

	a.mu.RLock()
	_, exists := a.users[username]
	a.mu.RUnlock()
	if exists {
		return false, nil
	}
	if len(password) < 8 {
		return false, fmt.Errorf("admin %q does not exist and the bootstrap password is missing or shorter than 8 characters", username)
	}

	if _, err := a.addUser(ctx, username, password, domain.RoleAdmin); err != nil {
		return false, err
	}
	a.log.Info("bootstrap admin created", zap.String("username", username))
	return true, nil
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	if err := a.refreshUsers(ctx); err != nil {
		return domain.LoginResponse{}, err
	}
	username := strings.ToLower(strings.TrimSpace(req.Username))
	a.mu.RLock()
	cred, ok := a.users[username]
	a.mu.RUnlock()
	if !ok || !verifyPassword(cred.password, req.Password) {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}
	if !cred.active {
		return domain.LoginResponse{}, ErrInactiveAccount
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(username, cred.role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		Role:        cred.role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &ledgerClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return domain.Actor{}, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, ErrInvalidToken
	}
	if claims.Role != domain.RoleAdmin && claims.Role != domain.RoleClerk {
		return domain.Actor{}, ErrInvalidToken
	}
	return domain.Actor{Username: sub, Role: claims.Role}, nil
}

func (a *AuthManager) sign(username, role string, expiresAt time.Time) (string, error) {
	claims := ledgerClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
		Role: role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *AuthManager) CreateClerk(ctx context.Context, req domain.ClerkCreateRequest) (domain.UserAccount, error) {
	if err := a.refreshUsers(ctx); err != nil {
		return domain.UserAccount{}, err
	}
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if len(username) < 4 {
		return domain.UserAccount{}, fmt.Errorf("%w: username must be at least 4 characters", service.ErrInvalidInput)
	}
	if strings.ContainsAny(username, " \t\r\n") {
		return domain.UserAccount{}, fmt.Errorf("%w: username must not contain spaces", service.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Password) == "" || len(req.Password) < 6 {
		return domain.UserAccount{}, fmt.Errorf("%w: password must be at least 6 characters", service.ErrInvalidInput)
	}

	a.mu.RLock()
	_, exists := a.users[username]
	a.mu.RUnlock()
	if exists {
		return domain.UserAccount{}, fmt.Errorf("username %q: %w", username, store.ErrConflict)
	}

	user, err := a.addUser(ctx, username, req.Password, domain.RoleClerk)
	if err != nil {
		return domain.UserAccount{}, err
	}
	a.log.Info("clerk created", zap.String("username", username))
	return user, nil
}

func (a *AuthManager) addUser(ctx context.Context, username string, password string, role string) (domain.UserAccount, error) {
	passwordHash, err := hashPassword(password)
	if err != nil {
		return domain.UserAccount{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.UserAccount{
		Username:  username,
		Password:  passwordHash,
		Role:      role,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}

	if a.userStore != nil {
		if err := a.userStore.CreateUser(ctx, user); err != nil {
			return domain.UserAccount{}, err
		}
	}

	a.mu.Lock()
	a.users[username] = credential{
		password: passwordHash,
		role:     role,
		active:   true,
		created:  user.CreatedAt,
	}
	a.mu.Unlock()

	user.Password = ""
	return user, nil
}

// ListUsers returns every account sorted by username, without password hashes.
func (a *AuthManager) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	if err := a.refreshUsers(ctx); err != nil {
		return nil, err
	}
	a.mu.RLock()
	result := make([]domain.UserAccount, 0, len(a.users))
	for username, user := range a.users {
		result = append(result, domain.UserAccount{
			Username:  username,
			Role:      user.role,
			Active:    user.active,
			CreatedAt: user.created,
		})
	}
	a.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		return result[i].Username < result[j].Username
	})
	return result, nil
}

// refreshUsers reloads accounts from the user store so that users created by
// another process can log in. Plain-text passwords found in the store are
// replaced by bcrypt hashes.
func (a *AuthManager) refreshUsers(ctx context.Context) error {
	if a.userStore == nil {
		return nil
	}

	users, err := a.userStore.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, user := range users {
		username := strings.ToLower(strings.TrimSpace(user.Username))
		if username == "" {
			continue
		}
		password := user.Password
		if !isPasswordHash(password) {
			hashed, err := hashPassword(password)
			if err == nil {
				password = hashed
				if err := a.userStore.UpdateUserPassword(ctx, username, hashed); err != nil {
					a.log.Warn("password upgrade failed", zap.String("username", username), zap.Error(err))
				}
			}
		}
		a.users[username] = credential{
			password: password,
			role:     user.Role,
			active:   user.Active,
			created:  user.CreatedAt,
		}
	}
	return nil
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
