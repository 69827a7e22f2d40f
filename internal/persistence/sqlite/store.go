// Package sqlite implements the persistence contracts on SQLite through the
// pure Go modernc driver. The schema is versioned with golang-migrate using
// migrations embedded in the binary.
package sqlite

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store bundles the SQLite backed repositories over a single connection pool.
type Store struct {
	pool *ConnectionPool
	*EventRepository
	*UserRepository
	*SessionRepository
}

// Open connects to dsn and returns a Store. Call Migrate before first use.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := NewConnectionPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{
		pool:              pool,
		EventRepository:   NewEventRepository(pool),
		UserRepository:    NewUserRepository(pool),
		SessionRepository: NewSessionRepository(pool),
	}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Migrate applies all pending schema migrations. It is a no-op when the schema
// is already current.
func (s *Store) Migrate(ctx context.Context) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := migratesqlite.WithInstance(s.pool.DB(), &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// The migrator is not closed: closing the driver would close the shared *sql.DB.
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
