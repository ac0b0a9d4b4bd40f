package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/xela07ax/userhub/internal/domain"
)

const sessionColumns = `id, user_id, token_hash, COALESCE(refresh_token_hash, ''),
	expires_at, is_active, COALESCE(device_info, ''), COALESCE(ip_address, ''),
	last_activity, created_at`

func scanSession(row pgx.Row) (*domain.Session, error) {
	s := &domain.Session{}
	err := row.Scan(
		&s.ID, &s.UserID, &s.TokenHash, &s.RefreshTokenHash,
		&s.ExpiresAt, &s.IsActive, &s.DeviceInfo, &s.IPAddress,
		&s.LastActivity, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, token_hash, refresh_token_hash, expires_at,
			is_active, device_info, ip_address, last_activity, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, TRUE, NULLIF($6, ''), NULLIF($7, ''), NOW(), NOW())`

	_, err := s.pool.Exec(ctx, query,
		sess.ID, sess.UserID, sess.TokenHash, sess.RefreshTokenHash,
		sess.ExpiresAt, sess.DeviceInfo, sess.IPAddress)
	if err != nil {
		return fmt.Errorf("postgres: create session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(s.pool.QueryRow(ctx, query, id))
}

func (s *Store) ListUserSessions(ctx context.Context, userID string, activeOnly bool) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE user_id = $1 AND ($2 = FALSE OR (is_active AND expires_at > NOW()))
		ORDER BY last_activity DESC`

	rows, err := s.pool.Query(ctx, query, userID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("postgres: list sessions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) RevokeSession(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET is_active = FALSE, last_activity = NOW()
		 WHERE id = $1 AND is_active`, id)
	if err != nil {
		return false, fmt.Errorf("postgres: revoke session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RevokeUserSessions гасит все активные сессии пользователя,
// опционально оставляя текущую. Возвращает ID отозванных сессий —
// они транслируются в Redis для инвалидации кэшей на других инстансах.
func (s *Store) RevokeUserSessions(ctx context.Context, userID, excludeID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`UPDATE sessions SET is_active = FALSE, last_activity = NOW()
		 WHERE user_id = $1 AND is_active AND ($2 = '' OR id <> $2)
		 RETURNING id`, userID, excludeID)
	if err != nil {
		return nil, fmt.Errorf("postgres: revoke user sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CleanupExpiredSessions удаляет просроченные сессии всех пользователей
func (s *Store) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("postgres: cleanup sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
