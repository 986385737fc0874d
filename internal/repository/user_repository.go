package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const profileColumns = `id, role, display_name, photo_url, telegram_chat_id, created_at, updated_at`

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(pool)}
}

// GetByID получает профиль по uid
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	profile, err := scanProfile(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil // Профиль не найден
		}
		return nil, fmt.Errorf("get profile by id: %w", err)
	}

	return profile, nil
}

// Upsert создаёт или обновляет профиль
func (r *UserRepository) Upsert(ctx context.Context, profile *model.Profile) error {
	query := `
		INSERT INTO profiles (id, role, display_name, photo_url, telegram_chat_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET role = EXCLUDED.role,
		    display_name = EXCLUDED.display_name,
		    photo_url = EXCLUDED.photo_url,
		    telegram_chat_id = EXCLUDED.telegram_chat_id,
		    updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		profile.ID,
		profile.Role,
		profile.DisplayName,
		profile.PhotoURL,
		profile.TelegramChatID,
	).Scan(&profile.CreatedAt, &profile.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	return nil
}

// ListByRole получает все профили с ролью
func (r *UserRepository) ListByRole(ctx context.Context, role model.Role) ([]*model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE role = $1 ORDER BY display_name`

	rows, err := r.Query(ctx, query, role)
	if err != nil {
		return nil, fmt.Errorf("list profiles by role: %w", err)
	}
	defer rows.Close()

	var profiles []*model.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}

	return profiles, nil
}

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(
		&p.ID,
		&p.Role,
		&p.DisplayName,
		&p.PhotoURL,
		&p.TelegramChatID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
