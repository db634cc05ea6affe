package refresh

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goToken/refresh/migrations"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "modernc.org/sqlite"
)

// SQLStore keeps records in a SQLite table. Times are stored as unix
// milliseconds.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens dsn with the pure-Go SQLite driver and applies pending
// migrations.
func OpenSQLite(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s := NewSQLStore(db)
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an already-open database. Call Migrate before use unless
// the schema is managed elsewhere.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// Migrate applies the embedded schema migrations.
func (s *SQLStore) Migrate() error {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return err
	}

	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return err
	}

	instance, err := migrate.NewWithInstance("iofs", source, "", driver)
	if err != nil {
		return err
	}

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create inserts rec. A live row with the same id yields ErrDuplicateID; an
// expired one is replaced.
func (s *SQLStore) Create(ctx context.Context, id string, rec Record) error {
	now := s.now()
	if rec.Expired(now) {
		return ErrExpiredRecord
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO refresh_tokens (id, subject_id, tenant_id, issued_at, expire_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    subject_id = excluded.subject_id,
    tenant_id  = excluded.tenant_id,
    issued_at  = excluded.issued_at,
    expire_at  = excluded.expire_at
WHERE refresh_tokens.expire_at <= ?`,
		id, rec.SubjectID, rec.TenantID, rec.IssuedAt.UnixMilli(), rec.ExpireAt.UnixMilli(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 0 {
		return ErrDuplicateID
	}
	return nil
}

// Get returns the live record for id, or nil.
func (s *SQLStore) Get(ctx context.Context, id string) (*Record, error) {
	var (
		rec                Record
		issuedAt, expireAt int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT subject_id, tenant_id, issued_at, expire_at
FROM refresh_tokens
WHERE id = ? AND expire_at > ?`, id, s.now().UnixMilli()).
		Scan(&rec.SubjectID, &rec.TenantID, &issuedAt, &expireAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rec.IssuedAt = time.UnixMilli(issuedAt)
	rec.ExpireAt = time.UnixMilli(expireAt)
	return &rec, nil
}

// Delete removes id and reports whether a live record was removed.
func (s *SQLStore) Delete(ctx context.Context, id string) (bool, error) {
	var expireAt int64
	err := s.db.QueryRowContext(ctx, `DELETE FROM refresh_tokens WHERE id = ? RETURNING expire_at`, id).Scan(&expireAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return expireAt > s.now().UnixMilli(), nil
}

// Sweep deletes every expired row.
func (s *SQLStore) Sweep(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expire_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(n), nil
}
