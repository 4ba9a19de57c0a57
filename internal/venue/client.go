package venue

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/model"
)

// Client is the capability a venue exposes to the engine: read one
// ticker price, or submit one market order.
//
// FetchPrice converts every failure (network, malformed response, rate
// limit) into an error; it never retries — retry cadence belongs to the
// engine's poll loop.
//
// PlaceMarketOrder submits a market order and returns the average fill
// price. The call is side-effecting and not idempotent: callers must
// never retry it after an ambiguous failure, because a retry could
// double-execute the leg.
type Client interface {
	Name() string
	FetchPrice(ctx context.Context, pair string) (decimal.Decimal, error)
	PlaceMarketOrder(ctx context.Context, pair string, side model.Side, amount decimal.Decimal) (decimal.Decimal, error)
}
