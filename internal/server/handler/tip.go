package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tonstake/pollhouse/internal/domain"
	"github.com/tonstake/pollhouse/internal/server/middleware"
)

// TipService defines the methods that the tip handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type TipService interface {
	Record(ctx context.Context, userID, amount, message, txHash string) (domain.Tip, error)
	Recent(ctx context.Context, limit int) ([]domain.Tip, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	Stats(ctx context.Context) (domain.TipStats, error)
}

// TipHandler serves the tip jar endpoints.
type TipHandler struct {
	svc    TipService
	logger *slog.Logger
}

// NewTipHandler creates a TipHandler.
func NewTipHandler(svc TipService, logger *slog.Logger) *TipHandler {
	return &TipHandler{svc: svc, logger: logger}
}

// Record stores a confirmed tip.
// POST /api/tips
func (h *TipHandler) Record(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req struct {
		Amount  string `json:"amount"`
		Message string `json:"message"`
		TxHash  string `json:"txHash"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	tip, err := h.svc.Record(r.Context(), userID, req.Amount, req.Message, req.TxHash)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, tip)
}

// Recent returns the latest tips.
// GET /api/tips/recent
func (h *TipHandler) Recent(w http.ResponseWriter, r *http.Request) {
	tips, err := h.svc.Recent(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if tips == nil {
		tips = []domain.Tip{}
	}
	writeJSON(w, http.StatusOK, tips)
}

// Leaderboard returns the top tippers by total amount.
// GET /api/tips/leaderboard
func (h *TipHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Leaderboard(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Stats returns aggregate tip counters.
// GET /api/tips/stats
func (h *TipHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
