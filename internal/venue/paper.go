package venue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/model"
)

// PaperVenue wraps a real venue client, keeping its live ticker but
// simulating order execution: a market order "fills" at whatever the
// venue quotes at that moment. No order ever reaches the venue.
type PaperVenue struct {
	inner  Client
	logger *slog.Logger
}

// NewPaperVenue wraps client in a simulated execution layer.
func NewPaperVenue(client Client, logger *slog.Logger) *PaperVenue {
	return &PaperVenue{inner: client, logger: logger}
}

func (p *PaperVenue) Name() string {
	return p.inner.Name()
}

func (p *PaperVenue) FetchPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	return p.inner.FetchPrice(ctx, pair)
}

// PlaceMarketOrder simulates a fill at the current live price.
func (p *PaperVenue) PlaceMarketOrder(ctx context.Context, pair string, side model.Side, amount decimal.Decimal) (decimal.Decimal, error) {
	price, err := p.inner.FetchPrice(ctx, pair)
	if err != nil {
		return decimal.Zero, fmt.Errorf("paper %s: no price to fill against: %w", p.Name(), err)
	}
	p.logger.Info("paper order filled", "venue", p.Name(), "side", side, "pair", pair, "amount", amount, "fill", price)
	return price, nil
}
