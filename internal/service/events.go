package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tonstake/pollhouse/internal/domain"
)

// Signal bus channels consumed by the WebSocket hub.
const (
	ChannelMarkets = "markets"
	ChannelStakes  = "stakes"
)

// Event types published on the bus.
const (
	EventMarketCreated = "market_created"
	EventMarketClosed  = "market_closed"
	EventMarketSettled = "market_settled"
	EventStakeAdmitted = "stake_admitted"
)

// Event is the JSON envelope broadcast to live clients after a state change
// has been durably persisted.
type Event struct {
	Type   string         `json:"type"`
	Market *domain.Market `json:"market,omitempty"`
	Stake  *domain.Stake  `json:"stake,omitempty"`
}

// publishEvent sends an event to the bus on a best-effort basis. The bus is
// optional and delivery failures never fail the originating operation.
func publishEvent(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, channel string, ev Event) {
	if bus == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.WarnContext(ctx, "event: marshal failed",
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := bus.Publish(ctx, channel, payload); err != nil {
		logger.WarnContext(ctx, "event: publish failed",
			slog.String("channel", channel),
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}
