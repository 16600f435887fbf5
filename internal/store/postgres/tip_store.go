package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tonstake/pollhouse/internal/domain"
)

// TipStore implements domain.TipStore backed by the tips table.
type TipStore struct {
	pool *pgxpool.Pool
}

// NewTipStore creates a TipStore on top of the given client.
func NewTipStore(client *Client) *TipStore {
	return &TipStore{pool: client.Pool()}
}

const tipCols = `id, from_user_id, from_username, from_first_name, amount::text, message, tx_hash, created_at`

func scanTip(row pgx.Row) (domain.Tip, error) {
	var t domain.Tip
	err := row.Scan(
		&t.ID, &t.FromUserID, &t.FromUsername, &t.FromFirstName,
		&t.Amount, &t.Message, &t.TxHash, &t.CreatedAt,
	)
	return t, err
}

// Create implements domain.TipStore.
func (s *TipStore) Create(ctx context.Context, tip domain.Tip) error {
	const q = `
		INSERT INTO tips (id, from_user_id, from_username, from_first_name, amount, message, tx_hash, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, q,
		tip.ID, tip.FromUserID, tip.FromUsername, tip.FromFirstName,
		tip.Amount, tip.Message, tip.TxHash, tip.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("transaction %s: %w", tip.TxHash, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("postgres: create tip: %w", err)
	}
	return nil
}

// ListRecent implements domain.TipStore, newest-first.
func (s *TipStore) ListRecent(ctx context.Context, limit int) ([]domain.Tip, error) {
	const q = `SELECT ` + tipCols + ` FROM tips ORDER BY created_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent tips: %w", err)
	}
	defer rows.Close()

	var tips []domain.Tip
	for rows.Next() {
		t, err := scanTip(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan tip: %w", err)
		}
		tips = append(tips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list recent tips: %w", err)
	}
	return tips, nil
}

// Leaderboard implements domain.TipStore. Totals aggregate in NUMERIC so
// they stay exact past the float and int64 ranges.
func (s *TipStore) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	const q = `
		SELECT from_user_id, MIN(from_username), MIN(from_first_name),
			SUM(amount)::text, COUNT(*)
		FROM tips
		GROUP BY from_user_id
		ORDER BY SUM(amount) DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: tip leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.FirstName, &e.TotalAmount, &e.TipCount); err != nil {
			return nil, fmt.Errorf("postgres: scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: tip leaderboard: %w", err)
	}
	return entries, nil
}

// Stats implements domain.TipStore.
func (s *TipStore) Stats(ctx context.Context) (domain.TipStats, error) {
	const q = `SELECT COUNT(*), COALESCE(SUM(amount), 0)::text FROM tips`

	var stats domain.TipStats
	if err := s.pool.QueryRow(ctx, q).Scan(&stats.TotalTips, &stats.TotalAmount); err != nil {
		return domain.TipStats{}, fmt.Errorf("postgres: tip stats: %w", err)
	}
	return stats, nil
}

// Compile-time interface check.
var _ domain.TipStore = (*TipStore)(nil)
