package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonstake/pollhouse/internal/auth"
	"github.com/tonstake/pollhouse/internal/domain"
)

// AuthService turns a Telegram Mini App credential into a stored user and a
// session token.
type AuthService struct {
	users      domain.UserStore
	tokens     *auth.TokenIssuer
	botToken   string
	initMaxAge time.Duration
	logger     *slog.Logger
}

// NewAuthService creates an AuthService. initMaxAge bounds how old the init
// data's auth_date may be.
func NewAuthService(users domain.UserStore, tokens *auth.TokenIssuer, botToken string, initMaxAge time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		botToken:   botToken,
		initMaxAge: initMaxAge,
		logger:     logger,
	}
}

// Login validates raw WebApp init data, upserts the user (create on first
// login, refresh profile and lastLoginAt otherwise) and mints a session
// token.
func (s *AuthService) Login(ctx context.Context, initDataRaw string) (string, domain.User, error) {
	tgUser, err := auth.ValidateInitData(initDataRaw, s.botToken, s.initMaxAge)
	if err != nil {
		return "", domain.User{}, err
	}

	user, err := s.users.UpsertByTelegramID(ctx, domain.User{
		TelegramID:   tgUser.ID,
		Username:     tgUser.Username,
		FirstName:    tgUser.FirstName,
		LastName:     tgUser.LastName,
		PhotoURL:     tgUser.PhotoURL,
		LanguageCode: tgUser.LanguageCode,
		LastLoginAt:  time.Now().UTC(),
	})
	if err != nil {
		return "", domain.User{}, fmt.Errorf("auth_service: upsert user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID, user.TelegramID)
	if err != nil {
		return "", domain.User{}, fmt.Errorf("auth_service: issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "auth_service: user logged in",
		slog.String("user_id", user.ID),
		slog.Int64("telegram_id", user.TelegramID),
	)
	return token, user, nil
}

// GetUser returns a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("auth_service: get user %s: %w", userID, err)
	}
	return user, nil
}

// UpdateWallet stores the user's linked wallet address.
func (s *AuthService) UpdateWallet(ctx context.Context, userID, walletAddress string) (domain.User, error) {
	user, err := s.users.UpdateWallet(ctx, userID, walletAddress)
	if err != nil {
		return domain.User{}, fmt.Errorf("auth_service: update wallet for %s: %w", userID, err)
	}
	return user, nil
}
