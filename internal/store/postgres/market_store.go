package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tonstake/pollhouse/internal/domain"
)

// MarketStore implements domain.MarketStore backed by the markets table.
// State transitions use status-guarded updates so they stay single-shot
// under concurrent requests.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a MarketStore on top of the given client.
func NewMarketStore(client *Client) *MarketStore {
	return &MarketStore{pool: client.Pool()}
}

const marketCols = `m.id, m.question, m.created_by, u.username, u.first_name,
	m.deadline, m.status, COALESCE(m.result, ''), m.yes_pool::text, m.no_pool::text,
	m.created_at, m.updated_at`

const marketFrom = ` FROM markets m JOIN users u ON u.id = m.created_by`

func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	err := row.Scan(
		&m.ID, &m.Question, &m.CreatedBy, &m.CreatedByUsername, &m.CreatedByFirstName,
		&m.Deadline, &m.Status, &m.Result, &m.YesPool, &m.NoPool,
		&m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

// Create implements domain.MarketStore.
func (s *MarketStore) Create(ctx context.Context, market domain.Market) error {
	const q = `
		INSERT INTO markets (id, question, created_by, deadline, status, yes_pool, no_pool, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $8)`

	_, err := s.pool.Exec(ctx, q,
		market.ID, market.Question, market.CreatedBy, market.Deadline,
		market.Status, market.YesPool, market.NoPool, market.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("market %s: %w", market.ID, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("postgres: create market: %w", err)
	}
	return nil
}

// GetByID implements domain.MarketStore.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	const q = `SELECT ` + marketCols + marketFrom + ` WHERE m.id = $1`

	m, err := scanMarket(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Market{}, fmt.Errorf("market %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: get market: %w", err)
	}
	return m, nil
}

// List implements domain.MarketStore, newest-first. An empty status returns
// markets in every state; a non-positive limit returns everything.
func (s *MarketStore) List(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	if opts.Limit < 0 {
		opts.Limit = 0
	}
	const q = `
		SELECT ` + marketCols + marketFrom + `
		WHERE ($1 = '' OR m.status = $1)
		ORDER BY m.created_at DESC
		LIMIT NULLIF($2, 0) OFFSET $3`

	rows, err := s.pool.Query(ctx, q, string(status), opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	return markets, nil
}

// Close implements domain.MarketStore. The status guard in the WHERE clause
// makes the active -> closed transition atomic; zero rows means the market
// is missing or no longer active.
func (s *MarketStore) Close(ctx context.Context, id string) (domain.Market, error) {
	const q = `
		UPDATE markets SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`

	tag, err := s.pool.Exec(ctx, q, id, domain.MarketStatusClosed, domain.MarketStatusActive)
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: close market: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Market{}, fmt.Errorf("market %s is not active: %w", id, domain.ErrInvalidState)
	}
	return s.GetByID(ctx, id)
}

// ApplySettlement implements domain.MarketStore. The closed -> settled
// transition and the payout writes commit in one transaction, so a market is
// never settled with payouts half-recorded.
func (s *MarketStore) ApplySettlement(ctx context.Context, id string, result domain.Choice, payouts map[string]string) (domain.Market, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: begin settlement: %w", err)
	}
	defer tx.Rollback(ctx)

	const transition = `
		UPDATE markets SET status = $2, result = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4`

	tag, err := tx.Exec(ctx, transition, id, domain.MarketStatusSettled, string(result), domain.MarketStatusClosed)
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: settle market: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Market{}, fmt.Errorf("market %s is not closed: %w", id, domain.ErrInvalidState)
	}

	for stakeID, payout := range payouts {
		tag, err := tx.Exec(ctx,
			`UPDATE stakes SET payout = $2::numeric WHERE id = $1`,
			stakeID, payout,
		)
		if err != nil {
			return domain.Market{}, fmt.Errorf("postgres: write payout for stake %s: %w", stakeID, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.Market{}, fmt.Errorf("stake %s: %w", stakeID, domain.ErrNotFound)
		}
	}

	m, err := scanMarket(tx.QueryRow(ctx, `SELECT `+marketCols+marketFrom+` WHERE m.id = $1`, id))
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: reload settled market: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Market{}, fmt.Errorf("postgres: commit settlement: %w", err)
	}
	return m, nil
}

// Count implements domain.MarketStore.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM markets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return n, nil
}

// CountByStatus implements domain.MarketStore.
func (s *MarketStore) CountByStatus(ctx context.Context, status domain.MarketStatus) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM markets WHERE status = $1`, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count markets by status: %w", err)
	}
	return n, nil
}

// SumPools implements domain.MarketStore. The sum stays in NUMERIC and comes
// back as a decimal string, exact at any magnitude.
func (s *MarketStore) SumPools(ctx context.Context) (string, error) {
	var total string
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(yes_pool + no_pool), 0)::text FROM markets`,
	).Scan(&total)
	if err != nil {
		return "", fmt.Errorf("postgres: sum pools: %w", err)
	}
	return total, nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
