package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect maps a DB_DRIVER value onto a supported dialect. Empty means sqlite.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("DB_DRIVER %q is not supported (use sqlite or postgres)", driver)
	}
}

type Options struct {
	Dialect         Dialect
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// SkipMigrations leaves the schema untouched at open; cmd/migrate owns it then.
	SkipMigrations bool
}

type Store struct {
	db      *sql.DB
	dialect Dialect
	log     *zap.Logger
}

// Open connects to the ledger database, verifies the connection and brings the
// schema to the latest version.
func Open(ctx context.Context, opts Options, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := openDB(opts)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging %s database: %w", opts.Dialect, err)
	}

	s := &Store{db: db, dialect: opts.Dialect, log: log.Named("sqlstore")}

	if !opts.SkipMigrations {
		m, err := NewMigrator(db, opts.Dialect, log)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := m.Up(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	s.log.Info("ledger store ready", zap.String("dialect", string(opts.Dialect)))
	return s, nil
}

// New wraps an existing handle without pinging or migrating.
func New(db *sql.DB, dialect Dialect, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, dialect: dialect, log: log.Named("sqlstore")}
}

func openDB(opts Options) (*sql.DB, error) {
	var (
		driverName string
		dsn        string
	)
	switch opts.Dialect {
	case DialectSQLite:
		driverName = "sqlite3"
		dsn = sqliteDSN(opts.DSN)
	case DialectPostgres:
		driverName = "pgx"
		dsn = opts.DSN
	default:
		return nil, fmt.Errorf("unsupported database dialect %q", opts.Dialect)
	}
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", opts.Dialect, err)
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen < 1 {
		maxOpen = 30
	}
	maxIdle := opts.MaxIdleConns
	if maxIdle < 1 {
		maxIdle = 8
	}
	lifetime := opts.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 30 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	return db, nil
}

// sqliteDSN enables foreign keys, a busy timeout and immediate write locks
// unless the caller already set them.
func sqliteDSN(dsn string) string {
	params := []string{}
	if !strings.Contains(dsn, "_foreign_keys") && !strings.Contains(dsn, "_fk") {
		params = append(params, "_foreign_keys=on")
	}
	if !strings.Contains(dsn, "_busy_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	if !strings.Contains(dsn, "_txlock") {
		params = append(params, "_txlock=immediate")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Stats() sql.DBStats {
	return s.db.Stats()
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Migrator builds a migrator over the store's handle. Closing the migrator
// closes the store's database as well.
func (s *Store) Migrator() (*Migrator, error) {
	return NewMigrator(s.db, s.dialect, s.log)
}

// beginTx opens the single atomic unit used by every multi-statement operation.
func (s *Store) beginTx(ctx context.Context) (*sql.Tx, error) {
	var opts *sql.TxOptions
	if s.dialect == DialectPostgres {
		opts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return tx, nil
}
