package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/eventboard/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite
type SessionRepository struct {
	pool *ConnectionPool
}

// NewSessionRepository creates a new SQLite session repository
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// CreateSession stores a new session.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) error {
	if session.ID == "" || session.TokenHash == "" {
		return fmt.Errorf("sqlite: session id and token hash are required")
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, expires_at, created_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		session.ID,
		session.UserID,
		session.TokenHash,
		formatTime(session.ExpiresAt),
		formatTime(session.CreatedAt),
		nullableTime(session.RevokedAt),
	)
	return mapError(err)
}

// GetSessionByTokenHash retrieves a session by the hash of its bearer token.
func (r *SessionRepository) GetSessionByTokenHash(ctx context.Context, tokenHash string) (persistence.Session, error) {
	var (
		session              persistence.Session
		expiresAt, createdAt string
		revokedAt            sql.NullString
	)
	err := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at, revoked_at
		FROM sessions
		WHERE token_hash = ?
	`, tokenHash).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&expiresAt,
		&createdAt,
		&revokedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Session{}, persistence.ErrNotFound
		}
		return persistence.Session{}, mapError(err)
	}

	if session.ExpiresAt, err = parseTime("expires_at", expiresAt); err != nil {
		return persistence.Session{}, err
	}
	if session.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Session{}, err
	}
	if revokedAt.Valid {
		at, err := parseTime("revoked_at", revokedAt.String)
		if err != nil {
			return persistence.Session{}, err
		}
		session.RevokedAt = &at
	}
	return session, nil
}

// RevokeSession marks the session as revoked.
func (r *SessionRepository) RevokeSession(ctx context.Context, tokenHash string, revokedAt time.Time) error {
	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE sessions SET revoked_at = ? WHERE token_hash = ?
	`, formatTime(revokedAt), tokenHash)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

// DeleteExpiredSessions removes sessions whose expiry is at or before reference.
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error) {
	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(reference))
	if err != nil {
		return 0, mapError(err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return removed, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
