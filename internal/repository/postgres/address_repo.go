package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/xela07ax/userhub/internal/domain"
)

const addressColumns = `id, user_id, label, first_name, last_name, COALESCE(company, ''),
	address_line_1, COALESCE(address_line_2, ''), city, state, postal_code, country,
	COALESCE(phone, ''), COALESCE(email, ''), address_type, is_default, is_active,
	COALESCE(delivery_instructions, ''), created_at, updated_at`

func scanAddress(row pgx.Row) (*domain.Address, error) {
	a := &domain.Address{}
	err := row.Scan(
		&a.ID, &a.UserID, &a.Label, &a.FirstName, &a.LastName, &a.Company,
		&a.AddressLine1, &a.AddressLine2, &a.City, &a.State, &a.PostalCode, &a.Country,
		&a.Phone, &a.Email, &a.Type, &a.IsDefault, &a.IsActive,
		&a.DeliveryInstructions, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (s *Store) GetAddress(ctx context.Context, id string) (*domain.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1`
	return scanAddress(s.pool.QueryRow(ctx, query, id))
}

func (s *Store) ListAddresses(ctx context.Context, userID string, activeOnly bool) ([]*domain.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses
		WHERE user_id = $1 AND ($2 = FALSE OR is_active)
		ORDER BY is_default DESC, created_at`

	rows, err := s.pool.Query(ctx, query, userID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("postgres: list addresses: %w", err)
	}
	defer rows.Close()

	var out []*domain.Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateAddress вставляет адрес; если он помечен is_default,
// прежний дефолтный сбрасывается в той же транзакции — дефолтный
// адрес у пользователя строго один.
func (s *Store) CreateAddress(ctx context.Context, a *domain.Address) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if a.IsDefault {
		if _, err := tx.Exec(ctx,
			`UPDATE addresses SET is_default = FALSE, updated_at = NOW()
			 WHERE user_id = $1 AND is_default`, a.UserID); err != nil {
			return fmt.Errorf("postgres: clear default address: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO addresses (id, user_id, label, first_name, last_name, company,
			address_line_1, address_line_2, city, state, postal_code, country,
			phone, email, address_type, is_default, is_active, delivery_instructions,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''),
			$7, NULLIF($8, ''), $9, $10, $11, $12,
			NULLIF($13, ''), NULLIF($14, ''), $15, $16, TRUE, NULLIF($17, ''),
			NOW(), NOW())`,
		a.ID, a.UserID, a.Label, a.FirstName, a.LastName, a.Company,
		a.AddressLine1, a.AddressLine2, a.City, a.State, a.PostalCode, a.Country,
		a.Phone, a.Email, a.Type, a.IsDefault, a.DeliveryInstructions)
	if err != nil {
		return fmt.Errorf("postgres: create address: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Store) UpdateAddress(ctx context.Context, id, userID string, upd domain.AddressUpdate) (*domain.Address, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if upd.IsDefault != nil && *upd.IsDefault {
		if _, err := tx.Exec(ctx,
			`UPDATE addresses SET is_default = FALSE, updated_at = NOW()
			 WHERE user_id = $1 AND is_default AND id <> $2`, userID, id); err != nil {
			return nil, fmt.Errorf("postgres: clear default address: %w", err)
		}
	}

	query := `
		UPDATE addresses SET
			label = COALESCE($3, label),
			first_name = COALESCE($4, first_name),
			last_name = COALESCE($5, last_name),
			company = COALESCE($6, company),
			address_line_1 = COALESCE($7, address_line_1),
			address_line_2 = COALESCE($8, address_line_2),
			city = COALESCE($9, city),
			state = COALESCE($10, state),
			postal_code = COALESCE($11, postal_code),
			country = COALESCE($12, country),
			phone = COALESCE($13, phone),
			email = COALESCE($14, email),
			address_type = COALESCE($15, address_type),
			is_default = COALESCE($16, is_default),
			delivery_instructions = COALESCE($17, delivery_instructions),
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + addressColumns

	a, err := scanAddress(tx.QueryRow(ctx, query, id, userID,
		upd.Label, upd.FirstName, upd.LastName, upd.Company,
		upd.AddressLine1, upd.AddressLine2, upd.City, upd.State, upd.PostalCode, upd.Country,
		upd.Phone, upd.Email, upd.Type, upd.IsDefault, upd.DeliveryInstructions))
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("postgres: commit: %w", err)
	}
	return a, nil
}

// DeactivateAddress — вместо удаления адрес выключается
func (s *Store) DeactivateAddress(ctx context.Context, id, userID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE addresses SET is_active = FALSE, is_default = FALSE, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND is_active`, id, userID)
	if err != nil {
		return false, fmt.Errorf("postgres: deactivate address: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
