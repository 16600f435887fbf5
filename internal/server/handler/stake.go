package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tonstake/pollhouse/internal/domain"
	"github.com/tonstake/pollhouse/internal/server/middleware"
)

// StakeService defines the methods that the stake handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type StakeService interface {
	Submit(ctx context.Context, userID, marketID string, choice domain.Choice, amount, txHash string) (domain.Stake, error)
	ListByMarket(ctx context.Context, marketID string) ([]domain.Stake, error)
	ListByUser(ctx context.Context, userID string) ([]domain.StakeWithMarket, error)
}

// StakeHandler serves stake submission and history endpoints.
type StakeHandler struct {
	svc    StakeService
	logger *slog.Logger
}

// NewStakeHandler creates a StakeHandler.
func NewStakeHandler(svc StakeService, logger *slog.Logger) *StakeHandler {
	return &StakeHandler{svc: svc, logger: logger}
}

// Submit records a stake against a market.
// POST /api/markets/{id}/stakes
func (h *StakeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req struct {
		Choice string `json:"choice"`
		Amount string `json:"amount"`
		TxHash string `json:"txHash"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	stake, err := h.svc.Submit(r.Context(), userID, r.PathValue("id"), domain.Choice(req.Choice), req.Amount, req.TxHash)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, stake)
}

// ListByMarket returns a market's stakes, amount descending.
// GET /api/markets/{id}/stakes
func (h *StakeHandler) ListByMarket(w http.ResponseWriter, r *http.Request) {
	stakes, err := h.svc.ListByMarket(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if stakes == nil {
		stakes = []domain.Stake{}
	}
	writeJSON(w, http.StatusOK, stakes)
}

// ListMine returns the caller's stake history, newest-first.
// GET /api/stakes/me
func (h *StakeHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	stakes, err := h.svc.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if stakes == nil {
		stakes = []domain.StakeWithMarket{}
	}
	writeJSON(w, http.StatusOK, stakes)
}
