package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tonstake/pollhouse/internal/domain"
	"github.com/tonstake/pollhouse/internal/server/middleware"
)

// MarketService defines the methods that the market handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type MarketService interface {
	Create(ctx context.Context, userID, question string, deadlineHours int) (domain.Market, error)
	List(ctx context.Context, statusFilter string, limit int) ([]domain.Market, error)
	Get(ctx context.Context, marketID, callerID string) (domain.MarketDetail, error)
	Close(ctx context.Context, userID, marketID string) (domain.Market, error)
	Settle(ctx context.Context, userID, marketID string, result domain.Choice) (domain.Market, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// MarketHandler serves the market lifecycle endpoints.
type MarketHandler struct {
	svc    MarketService
	logger *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(svc MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{svc: svc, logger: logger}
}

// List returns markets newest-first, optionally filtered by ?status=.
// GET /api/markets
func (h *MarketHandler) List(w http.ResponseWriter, r *http.Request) {
	markets, err := h.svc.List(r.Context(), r.URL.Query().Get("status"), queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if markets == nil {
		markets = []domain.Market{}
	}
	writeJSON(w, http.StatusOK, markets)
}

// Create opens a new market.
// POST /api/markets
func (h *MarketHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req struct {
		Question      string `json:"question"`
		DeadlineHours int    `json:"deadlineHours"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	market, err := h.svc.Create(r.Context(), userID, req.Question, req.DeadlineHours)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, market)
}

// Get returns one market with its stakes. The caller's own stake is surfaced
// when the request carries a valid session token.
// GET /api/markets/{id}
func (h *MarketHandler) Get(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.UserID(r.Context())

	detail, err := h.svc.Get(r.Context(), r.PathValue("id"), callerID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if detail.Stakes == nil {
		detail.Stakes = []domain.Stake{}
	}
	writeJSON(w, http.StatusOK, detail)
}

// Close transitions a market to closed.
// POST /api/markets/{id}/close
func (h *MarketHandler) Close(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	market, err := h.svc.Close(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, market)
}

// Settle records the result and pays out the winning side.
// POST /api/markets/{id}/settle
func (h *MarketHandler) Settle(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req struct {
		Result string `json:"result"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	market, err := h.svc.Settle(r.Context(), userID, r.PathValue("id"), domain.Choice(req.Result))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, market)
}

// Stats returns aggregate counters for the landing screen.
// GET /api/stats
func (h *MarketHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
