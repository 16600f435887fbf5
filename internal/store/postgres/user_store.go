package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tonstake/pollhouse/internal/domain"
)

// UserStore implements domain.UserStore backed by the users table.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a UserStore on top of the given client.
func NewUserStore(client *Client) *UserStore {
	return &UserStore{pool: client.Pool()}
}

const userCols = `id, telegram_id, username, first_name, last_name, photo_url,
	language_code, wallet_address, created_at, last_login_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName,
		&u.PhotoURL, &u.LanguageCode, &u.WalletAddress, &u.CreatedAt, &u.LastLoginAt,
	)
	return u, err
}

// UpsertByTelegramID implements domain.UserStore. On conflict the profile
// fields are refreshed from Telegram while the row id and wallet stay put.
func (s *UserStore) UpsertByTelegramID(ctx context.Context, user domain.User) (domain.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	const q = `
		INSERT INTO users (
			id, telegram_id, username, first_name, last_name, photo_url,
			language_code, wallet_address, created_at, last_login_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), $9)
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			photo_url = EXCLUDED.photo_url,
			language_code = EXCLUDED.language_code,
			last_login_at = EXCLUDED.last_login_at
		RETURNING ` + userCols

	u, err := scanUser(s.pool.QueryRow(ctx, q,
		user.ID, user.TelegramID, user.Username, user.FirstName, user.LastName,
		user.PhotoURL, user.LanguageCode, user.WalletAddress, user.LastLoginAt,
	))
	if err != nil {
		return domain.User{}, fmt.Errorf("postgres: upsert user: %w", err)
	}
	return u, nil
}

// GetByID implements domain.UserStore.
func (s *UserStore) GetByID(ctx context.Context, id string) (domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id = $1`

	u, err := scanUser(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("postgres: get user: %w", err)
	}
	return u, nil
}

// GetByTelegramID implements domain.UserStore.
func (s *UserStore) GetByTelegramID(ctx context.Context, telegramID int64) (domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE telegram_id = $1`

	u, err := scanUser(s.pool.QueryRow(ctx, q, telegramID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, fmt.Errorf("telegram user %d: %w", telegramID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("postgres: get user by telegram id: %w", err)
	}
	return u, nil
}

// UpdateWallet implements domain.UserStore.
func (s *UserStore) UpdateWallet(ctx context.Context, id, walletAddress string) (domain.User, error) {
	const q = `
		UPDATE users SET wallet_address = $2
		WHERE id = $1
		RETURNING ` + userCols

	u, err := scanUser(s.pool.QueryRow(ctx, q, id, walletAddress))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("postgres: update wallet: %w", err)
	}
	return u, nil
}

// Compile-time interface check.
var _ domain.UserStore = (*UserStore)(nil)
