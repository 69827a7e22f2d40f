package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/eventboard/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite
type UserRepository struct {
	pool *ConnectionPool
}

// NewUserRepository creates a new SQLite user repository
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool}
}

const selectUserColumns = `
	SELECT id, email, display_name, photo_url, is_admin, last_login, created_at, updated_at
	FROM users
`

// GetUser retrieves a user by ID from the database
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}

	user, err := scanUser(r.pool.DB().QueryRowContext(ctx, selectUserColumns+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.User{}, persistence.ErrNotFound
		}
		return persistence.User{}, mapError(err)
	}
	return user, nil
}

// ListUsers returns all users ordered by creation time.
func (r *UserRepository) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := r.pool.DB().QueryContext(ctx, selectUserColumns+` ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	users := make([]persistence.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return users, nil
}

// SetUserAdmin updates the admin flag of an existing user.
func (r *UserRepository) SetUserAdmin(ctx context.Context, id string, isAdmin bool, updatedAt time.Time) error {
	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE users SET is_admin = ?, updated_at = ? WHERE id = ?
	`, isAdmin, formatTime(updatedAt), id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

// UpsertLogin inserts the user on first login or refreshes the identity
// attributes, keeping is_admin and created_at.
func (r *UserRepository) UpsertLogin(ctx context.Context, user persistence.User) (persistence.User, error) {
	if user.ID == "" {
		return persistence.User{}, persistence.ErrNotFound
	}

	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = user.LastLogin
	}

	var persisted persistence.User
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, email, display_name, photo_url, is_admin, last_login, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				email = excluded.email,
				display_name = excluded.display_name,
				photo_url = excluded.photo_url,
				last_login = excluded.last_login,
				updated_at = excluded.last_login
		`,
			user.ID,
			user.Email,
			user.DisplayName,
			user.PhotoURL,
			user.IsAdmin,
			formatTime(user.LastLogin),
			formatTime(createdAt),
			formatTime(user.LastLogin),
		)
		if err != nil {
			return mapError(err)
		}

		persisted, err = scanUser(tx.QueryRowContext(ctx, selectUserColumns+` WHERE id = ?`, user.ID))
		return mapError(err)
	})
	if err != nil {
		return persistence.User{}, err
	}
	return persisted, nil
}

func scanUser(row rowScanner) (persistence.User, error) {
	var (
		user                            persistence.User
		lastLogin, createdAt, updatedAt string
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.PhotoURL,
		&user.IsAdmin,
		&lastLogin,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.User{}, err
	}

	var err error
	if user.LastLogin, err = parseTime("last_login", lastLogin); err != nil {
		return persistence.User{}, err
	}
	if user.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}
