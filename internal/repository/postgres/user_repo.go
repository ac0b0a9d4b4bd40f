package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xela07ax/userhub/internal/domain"
)

const userColumns = `id, username, email, password_hash, is_active, is_superuser,
	COALESCE(user_type_id::text, ''), COALESCE(image_url, ''), created_at, updated_at, is_deleted`

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &u.IsSuperuser,
		&u.UserTypeID, &u.ImageURL, &u.CreatedAt, &u.UpdatedAt, &u.IsDeleted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 AND NOT is_deleted`
	return scanUser(s.pool.QueryRow(ctx, query, username))
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND NOT is_deleted`
	return scanUser(s.pool.QueryRow(ctx, query, id))
}

// ErrConflict — уникальный индекс сработал (логин или email уже заняты)
var ErrConflict = errors.New("postgres: unique constraint violation")

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, is_active, is_superuser, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NOW(), NOW())`

	_, err := s.pool.Exec(ctx, query,
		u.ID, u.Username, u.Email, u.PasswordHash, u.IsActive, u.IsSuperuser, u.ImageURL)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("postgres: create user: %w", err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE NOT is_deleted
		ORDER BY created_at OFFSET $1 LIMIT $2`

	rows, err := s.pool.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, id string, upd domain.UserUpdate, newHash string) (*domain.User, error) {
	// COALESCE: nil-поля апдейта не трогают текущие значения
	query := `
		UPDATE users SET
			email = COALESCE($2, email),
			password_hash = COALESCE(NULLIF($3, ''), password_hash),
			is_active = COALESCE($4, is_active),
			image_url = COALESCE($5, image_url),
			user_type_id = COALESCE($6::uuid, user_type_id),
			updated_at = NOW()
		WHERE id = $1 AND NOT is_deleted
		RETURNING ` + userColumns

	return scanUser(s.pool.QueryRow(ctx, query,
		id, upd.Email, newHash, upd.IsActive, upd.ImageURL, upd.UserTypeID))
}

// ListUserTypes возвращает справочник типов аккаунтов целиком:
// таблица маленькая, пагинация не нужна
func (s *Store) ListUserTypes(ctx context.Context) ([]*domain.UserType, error) {
	query := `SELECT id, name, COALESCE(description, ''), created_at
		FROM user_types ORDER BY name`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list user types: %w", err)
	}
	defer rows.Close()

	var types []*domain.UserType
	for rows.Next() {
		ut := &domain.UserType{}
		if err := rows.Scan(&ut.ID, &ut.Name, &ut.Description, &ut.CreatedAt); err != nil {
			return nil, err
		}
		types = append(types, ut)
	}
	return types, rows.Err()
}

func (s *Store) CreateUserType(ctx context.Context, ut *domain.UserType) error {
	query := `INSERT INTO user_types (id, name, description, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NOW())`

	_, err := s.pool.Exec(ctx, query, ut.ID, ut.Name, ut.Description)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("postgres: create user type: %w", err)
	}
	return nil
}

// DeleteUser — мягкое удаление по умолчанию, hard = физическое
func (s *Store) DeleteUser(ctx context.Context, id string, hard bool) (bool, error) {
	var tag pgconn.CommandTag
	var err error
	if hard {
		tag, err = s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	} else {
		tag, err = s.pool.Exec(ctx,
			`UPDATE users SET is_deleted = TRUE, is_active = FALSE, updated_at = NOW()
			 WHERE id = $1 AND NOT is_deleted`, id)
	}
	if err != nil {
		return false, fmt.Errorf("postgres: delete user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
