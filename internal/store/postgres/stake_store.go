package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tonstake/pollhouse/internal/domain"
)

// StakeStore implements domain.StakeStore backed by the stakes table.
type StakeStore struct {
	pool *pgxpool.Pool
}

// NewStakeStore creates a StakeStore on top of the given client.
func NewStakeStore(client *Client) *StakeStore {
	return &StakeStore{pool: client.Pool()}
}

const stakeCols = `s.id, s.market_id, s.user_id, s.user_username, s.user_first_name,
	s.choice, s.amount::text, s.tx_hash, COALESCE(s.payout::text, ''),
	COALESCE(s.payout_tx_hash, ''), s.created_at`

func scanStake(row pgx.Row) (domain.Stake, error) {
	var st domain.Stake
	err := row.Scan(
		&st.ID, &st.MarketID, &st.UserID, &st.UserUsername, &st.UserFirstName,
		&st.Choice, &st.Amount, &st.TxHash, &st.Payout, &st.PayoutTxHash, &st.CreatedAt,
	)
	return st, err
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Admit implements domain.StakeStore. The stake insert and the pool
// increment commit in one transaction: the unique constraints reject
// duplicate tx hashes and repeat voters, and the status-guarded pool update
// keeps admissions out of markets that are no longer active.
func (s *StakeStore) Admit(ctx context.Context, stake domain.Stake) (domain.Market, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: begin admit: %w", err)
	}
	defer tx.Rollback(ctx)

	const insert = `
		INSERT INTO stakes (id, market_id, user_id, user_username, user_first_name, choice, amount, tx_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9)`

	_, err = tx.Exec(ctx, insert,
		stake.ID, stake.MarketID, stake.UserID, stake.UserUsername, stake.UserFirstName,
		string(stake.Choice), stake.Amount, stake.TxHash, stake.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.Market{}, fmt.Errorf("stake for market %s: %w", stake.MarketID, domain.ErrConflict)
	}
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: insert stake: %w", err)
	}

	pool := "yes_pool"
	if stake.Choice == domain.ChoiceNo {
		pool = "no_pool"
	}
	increment := fmt.Sprintf(
		`UPDATE markets SET %s = %s + $2::numeric, updated_at = NOW() WHERE id = $1 AND status = $3`,
		pool, pool,
	)

	tag, err := tx.Exec(ctx, increment, stake.MarketID, stake.Amount, domain.MarketStatusActive)
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: increment pool: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Market{}, fmt.Errorf("market %s is not active: %w", stake.MarketID, domain.ErrInvalidState)
	}

	m, err := scanMarket(tx.QueryRow(ctx, `SELECT `+marketCols+marketFrom+` WHERE m.id = $1`, stake.MarketID))
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: reload market: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Market{}, fmt.Errorf("postgres: commit admit: %w", err)
	}
	return m, nil
}

// FindByTxHash implements domain.StakeStore.
func (s *StakeStore) FindByTxHash(ctx context.Context, txHash string) (domain.Stake, error) {
	const q = `SELECT ` + stakeCols + ` FROM stakes s WHERE s.tx_hash = $1`

	st, err := scanStake(s.pool.QueryRow(ctx, q, txHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Stake{}, fmt.Errorf("stake by tx %s: %w", txHash, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Stake{}, fmt.Errorf("postgres: find stake by tx: %w", err)
	}
	return st, nil
}

// FindByMarketUser implements domain.StakeStore.
func (s *StakeStore) FindByMarketUser(ctx context.Context, marketID, userID string) (domain.Stake, error) {
	const q = `SELECT ` + stakeCols + ` FROM stakes s WHERE s.market_id = $1 AND s.user_id = $2`

	st, err := scanStake(s.pool.QueryRow(ctx, q, marketID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Stake{}, fmt.Errorf("stake for %s/%s: %w", marketID, userID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Stake{}, fmt.Errorf("postgres: find stake by market/user: %w", err)
	}
	return st, nil
}

// ListByMarket implements domain.StakeStore: amount desc, then newest-first.
func (s *StakeStore) ListByMarket(ctx context.Context, marketID string) ([]domain.Stake, error) {
	const q = `
		SELECT ` + stakeCols + ` FROM stakes s
		WHERE s.market_id = $1
		ORDER BY s.amount DESC, s.created_at DESC`

	return s.queryStakes(ctx, q, marketID)
}

// ListByMarketChoice implements domain.StakeStore in admission order.
func (s *StakeStore) ListByMarketChoice(ctx context.Context, marketID string, choice domain.Choice) ([]domain.Stake, error) {
	const q = `
		SELECT ` + stakeCols + ` FROM stakes s
		WHERE s.market_id = $1 AND s.choice = $2
		ORDER BY s.created_at ASC`

	return s.queryStakes(ctx, q, marketID, string(choice))
}

func (s *StakeStore) queryStakes(ctx context.Context, q string, args ...any) ([]domain.Stake, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stakes: %w", err)
	}
	defer rows.Close()

	var stakes []domain.Stake
	for rows.Next() {
		st, err := scanStake(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan stake: %w", err)
		}
		stakes = append(stakes, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list stakes: %w", err)
	}
	return stakes, nil
}

// ListByUser implements domain.StakeStore, newest-first, with the market
// fields the history view renders denormalized onto each row.
func (s *StakeStore) ListByUser(ctx context.Context, userID string) ([]domain.StakeWithMarket, error) {
	const q = `
		SELECT ` + stakeCols + `,
			m.question, m.status, COALESCE(m.result, ''), m.deadline
		FROM stakes s
		JOIN markets m ON m.id = s.market_id
		WHERE s.user_id = $1
		ORDER BY s.created_at DESC`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stakes by user: %w", err)
	}
	defer rows.Close()

	var stakes []domain.StakeWithMarket
	for rows.Next() {
		var st domain.StakeWithMarket
		err := rows.Scan(
			&st.ID, &st.MarketID, &st.UserID, &st.UserUsername, &st.UserFirstName,
			&st.Choice, &st.Amount, &st.TxHash, &st.Payout, &st.PayoutTxHash, &st.CreatedAt,
			&st.MarketQuestion, &st.MarketStatus, &st.MarketResult, &st.MarketDeadline,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan stake with market: %w", err)
		}
		stakes = append(stakes, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list stakes by user: %w", err)
	}
	return stakes, nil
}

// Compile-time interface check.
var _ domain.StakeStore = (*StakeStore)(nil)
