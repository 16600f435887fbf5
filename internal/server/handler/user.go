package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tonstake/pollhouse/internal/domain"
	"github.com/tonstake/pollhouse/internal/server/middleware"
)

// UserService defines the methods that the user handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type UserService interface {
	GetUser(ctx context.Context, userID string) (domain.User, error)
	UpdateWallet(ctx context.Context, userID, walletAddress string) (domain.User, error)
}

// UserHandler serves the authenticated user's profile endpoints.
type UserHandler struct {
	svc    UserService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(svc UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// Me returns the caller's profile.
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	user, err := h.svc.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateWallet links a wallet address to the caller's account.
// PUT /api/users/me/wallet
func (h *UserHandler) UpdateWallet(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req struct {
		WalletAddress string `json:"walletAddress"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.svc.UpdateWallet(r.Context(), userID, req.WalletAddress)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
