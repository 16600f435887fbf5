package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tonstake/pollhouse/internal/domain"
)

// AuthService defines the methods that the auth handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type AuthService interface {
	Login(ctx context.Context, initDataRaw string) (string, domain.User, error)
}

// AuthHandler serves login and session endpoints.
type AuthHandler struct {
	svc    AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(svc AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

// Login exchanges Telegram WebApp init data for a session token.
// POST /api/auth/telegram
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InitData string `json:"initData"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	token, user, err := h.svc.Login(r.Context(), req.InitData)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}
