package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tonstake/pollhouse/internal/domain"
)

// TipService records tip payments and serves the leaderboard read-models.
type TipService struct {
	users  domain.UserStore
	tips   domain.TipStore
	logger *slog.Logger
}

// NewTipService creates a TipService.
func NewTipService(users domain.UserStore, tips domain.TipStore, logger *slog.Logger) *TipService {
	return &TipService{
		users:  users,
		tips:   tips,
		logger: logger,
	}
}

// Record persists a confirmed tip payment. The txHash is globally unique, so
// a retried call fails with a conflict instead of double-recording.
func (s *TipService) Record(ctx context.Context, userID, amount, message, txHash string) (domain.Tip, error) {
	if _, err := domain.ParseAmount(amount); err != nil {
		return domain.Tip{}, err
	}
	if len([]rune(message)) > domain.MaxTipMessageLen {
		return domain.Tip{}, fmt.Errorf("message must be %d characters or less: %w", domain.MaxTipMessageLen, domain.ErrValidation)
	}
	if txHash == "" {
		return domain.Tip{}, fmt.Errorf("txHash is required: %w", domain.ErrValidation)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.Tip{}, fmt.Errorf("tip_service: user %s: %w", userID, err)
	}

	tip := domain.Tip{
		ID:            uuid.NewString(),
		FromUserID:    user.ID,
		FromUsername:  user.Username,
		FromFirstName: user.FirstName,
		Amount:        amount,
		Message:       message,
		TxHash:        txHash,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.tips.Create(ctx, tip); err != nil {
		return domain.Tip{}, fmt.Errorf("tip_service: record: %w", err)
	}

	s.logger.InfoContext(ctx, "tip_service: tip recorded",
		slog.String("tip_id", tip.ID),
		slog.String("from", user.ID),
		slog.String("amount", amount),
	)
	return tip, nil
}

// Recent returns the latest tips, newest-first. limit defaults to 10 and is
// capped at 100.
func (s *TipService) Recent(ctx context.Context, limit int) ([]domain.Tip, error) {
	tips, err := s.tips.ListRecent(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("tip_service: recent: %w", err)
	}
	return tips, nil
}

// Leaderboard returns tippers ranked by exact total amount.
func (s *TipService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	entries, err := s.tips.Leaderboard(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("tip_service: leaderboard: %w", err)
	}
	return entries, nil
}

// Stats returns tip count and exact total amount across all tips.
func (s *TipService) Stats(ctx context.Context) (domain.TipStats, error) {
	stats, err := s.tips.Stats(ctx)
	if err != nil {
		return domain.TipStats{}, fmt.Errorf("tip_service: stats: %w", err)
	}
	return stats, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > 100 {
		return 100
	}
	return limit
}
