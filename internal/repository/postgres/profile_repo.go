package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/xela07ax/userhub/internal/domain"
)

const profileColumns = `id, user_id,
	COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(phone_number, ''),
	COALESCE(bio, ''), COALESCE(avatar_url, ''), COALESCE(location, ''),
	COALESCE(website, ''), COALESCE(company, ''), COALESCE(job_title, ''),
	COALESCE(linkedin_url, ''), COALESCE(twitter_url, ''), COALESCE(github_url, ''),
	visibility, show_email, show_phone, created_at, updated_at`

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	p := &domain.Profile{}
	err := row.Scan(
		&p.ID, &p.UserID,
		&p.FirstName, &p.LastName, &p.PhoneNumber,
		&p.Bio, &p.AvatarURL, &p.Location,
		&p.Website, &p.Company, &p.JobTitle,
		&p.LinkedinURL, &p.TwitterURL, &p.GithubURL,
		&p.Visibility, &p.ShowEmail, &p.ShowPhone, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (s *Store) GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`
	return scanProfile(s.pool.QueryRow(ctx, query, userID))
}

func (s *Store) CreateProfile(ctx context.Context, p *domain.Profile) error {
	query := `
		INSERT INTO profiles (id, user_id, visibility, show_email, show_phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`

	_, err := s.pool.Exec(ctx, query, p.ID, p.UserID, p.Visibility, p.ShowEmail, p.ShowPhone)
	if err != nil {
		return fmt.Errorf("postgres: create profile: %w", err)
	}
	return nil
}

func (s *Store) UpdateProfile(ctx context.Context, userID string, upd domain.ProfileUpdate) (*domain.Profile, error) {
	query := `
		UPDATE profiles SET
			first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			phone_number = COALESCE($4, phone_number),
			bio = COALESCE($5, bio),
			avatar_url = COALESCE($6, avatar_url),
			location = COALESCE($7, location),
			website = COALESCE($8, website),
			company = COALESCE($9, company),
			job_title = COALESCE($10, job_title),
			linkedin_url = COALESCE($11, linkedin_url),
			twitter_url = COALESCE($12, twitter_url),
			github_url = COALESCE($13, github_url),
			visibility = COALESCE($14, visibility),
			show_email = COALESCE($15, show_email),
			show_phone = COALESCE($16, show_phone),
			updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + profileColumns

	return scanProfile(s.pool.QueryRow(ctx, query, userID,
		upd.FirstName, upd.LastName, upd.PhoneNumber, upd.Bio, upd.AvatarURL,
		upd.Location, upd.Website, upd.Company, upd.JobTitle,
		upd.LinkedinURL, upd.TwitterURL, upd.GithubURL,
		upd.Visibility, upd.ShowEmail, upd.ShowPhone))
}
