package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tonstake/pollhouse/internal/domain"
)

// UserStore implements domain.UserStore over the shared ledger state.
type UserStore struct {
	st *state
}

// UpsertByTelegramID implements domain.UserStore.
func (s *UserStore) UpsertByTelegramID(_ context.Context, user domain.User) (domain.User, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if id, ok := s.st.userByTG[user.TelegramID]; ok {
		existing := s.st.users[id]
		existing.Username = user.Username
		existing.FirstName = user.FirstName
		existing.LastName = user.LastName
		existing.PhotoURL = user.PhotoURL
		existing.LanguageCode = user.LanguageCode
		existing.LastLoginAt = user.LastLoginAt
		s.st.users[id] = existing
		return existing, nil
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.st.users[user.ID] = user
	s.st.userByTG[user.TelegramID] = user.ID
	return user, nil
}

// GetByID implements domain.UserStore.
func (s *UserStore) GetByID(_ context.Context, id string) (domain.User, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	user, ok := s.st.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return user, nil
}

// GetByTelegramID implements domain.UserStore.
func (s *UserStore) GetByTelegramID(_ context.Context, telegramID int64) (domain.User, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	id, ok := s.st.userByTG[telegramID]
	if !ok {
		return domain.User{}, fmt.Errorf("telegram user %d: %w", telegramID, domain.ErrNotFound)
	}
	return s.st.users[id], nil
}

// UpdateWallet implements domain.UserStore.
func (s *UserStore) UpdateWallet(_ context.Context, id, walletAddress string) (domain.User, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	user, ok := s.st.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	user.WalletAddress = walletAddress
	s.st.users[id] = user
	return user, nil
}

// Compile-time interface check.
var _ domain.UserStore = (*UserStore)(nil)
