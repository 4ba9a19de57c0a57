package arbitrage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/config"
	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/model"
	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/quote"
	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/recorder"
	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/venue"
)

// leg pairs a venue client with that venue's symbol for the traded
// asset (the same asset can trade as ETH/USDT on one venue and ETH/USD
// on another).
type leg struct {
	client venue.Client
	pair   string
}

// ArbitrageEngine holds the logic for identifying and executing
// arbitrage opportunities between two venues. It owns the tick loop;
// lifecycle belongs to the Controller.
type ArbitrageEngine struct {
	logger   *slog.Logger
	venueA   leg
	venueB   leg
	tradeLog *recorder.TradeLog
	board    *quote.Board
}

// NewArbitrageEngine creates a new instance of the ArbitrageEngine.
func NewArbitrageEngine(logger *slog.Logger, venueA, venueB venue.Client, pairA, pairB string, tradeLog *recorder.TradeLog, board *quote.Board) *ArbitrageEngine {
	return &ArbitrageEngine{
		logger:   logger,
		venueA:   leg{client: venueA, pair: pairA},
		venueB:   leg{client: venueB, pair: pairB},
		tradeLog: tradeLog,
		board:    board,
	}
}

// Run executes the tick loop until ctx is cancelled. Cancellation is
// observed only at the sleep boundary between ticks, never mid-trade.
// Price and execution errors never terminate the loop; they are absorbed
// into a skipped tick or a failure record.
func (e *ArbitrageEngine) Run(ctx context.Context, cfg config.EngineConfig) {
	threshold := decimal.NewFromFloat(cfg.Threshold)
	amount := decimal.NewFromFloat(cfg.TradeAmount)

	e.logger.Info("engine started",
		"venueA", e.venueA.client.Name(),
		"venueB", e.venueB.client.Name(),
		"threshold", threshold,
		"amount", amount,
		"interval", cfg.PollInterval,
	)

	for {
		// Re-check cancellation before every tick, not just after the
		// sleep: a Stop that lands while a tick is draining, or that
		// races the poll timer, must prevent the next tick entirely.
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped")
			return
		default:
		}

		e.tick(ctx, threshold, amount)

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped")
			return
		case <-time.After(cfg.PollInterval):
		}
	}
}

// tick runs one iteration: fetch both prices, evaluate the spread, and
// trade if it clears the threshold.
func (e *ArbitrageEngine) tick(ctx context.Context, threshold, amount decimal.Decimal) {
	quoteA, quoteB := e.fetchQuotes(ctx)

	if !quoteA.Valid || !quoteB.Valid {
		e.logger.Warn("price unavailable, skipping tick",
			"venueA_ok", quoteA.Valid,
			"venueB_ok", quoteB.Valid,
		)
		return
	}

	// Strict inequality: the threshold is required to be positive, so
	// at most one branch can fire and equal prices never trade.
	switch {
	case quoteA.Price.Add(threshold).LessThan(quoteB.Price):
		e.executeTrade(ctx, e.venueA, e.venueB, amount)
	case quoteB.Price.Add(threshold).LessThan(quoteA.Price):
		e.executeTrade(ctx, e.venueB, e.venueA, amount)
	}
}

// fetchQuotes queries both venues concurrently. Results are paired by
// venue identity, not arrival order. Every quote, valid or not, is also
// published to the board for live display.
func (e *ArbitrageEngine) fetchQuotes(ctx context.Context) (model.VenueQuote, model.VenueQuote) {
	var quoteA, quoteB model.VenueQuote
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		quoteA = e.fetchQuote(ctx, e.venueA)
	}()
	go func() {
		defer wg.Done()
		quoteB = e.fetchQuote(ctx, e.venueB)
	}()
	wg.Wait()
	return quoteA, quoteB
}

func (e *ArbitrageEngine) fetchQuote(ctx context.Context, l leg) model.VenueQuote {
	q := model.VenueQuote{
		Venue: l.client.Name(),
		Pair:  l.pair,
		At:    time.Now().UTC(),
	}
	price, err := l.client.FetchPrice(ctx, l.pair)
	if err != nil {
		e.logger.Warn("price fetch failed", "venue", q.Venue, "error", err)
	} else {
		q.Price = price
		q.Valid = true
	}
	e.board.Set(q)
	return q
}

// executeTrade runs the buy leg and then the sell leg with the same
// amount. The buy leg is always submitted first; between the two calls
// the position is directionally exposed, and a failed sell leg is
// recorded but never unwound. Neither leg is ever retried: a retry
// after an ambiguous failure could double-execute.
func (e *ArbitrageEngine) executeTrade(ctx context.Context, buy, sell leg, amount decimal.Decimal) {
	// An order, once submitted, runs to completion even if Stop is
	// called meanwhile.
	ctx = context.WithoutCancel(ctx)

	buyVenue := buy.client.Name()
	sellVenue := sell.client.Name()

	e.logger.Info("spread triggered", "buyVenue", buyVenue, "sellVenue", sellVenue, "amount", amount)

	buyFill, err := buy.client.PlaceMarketOrder(ctx, buy.pair, model.SideBuy, amount)
	if err != nil {
		e.logger.Error("buy leg failed", "venue", buyVenue, "error", err)
		e.tradeLog.Append(model.NewFailedTradeRecord(buyVenue, sellVenue, err))
		return
	}

	sellFill, err := sell.client.PlaceMarketOrder(ctx, sell.pair, model.SideSell, amount)
	if err != nil {
		e.logger.Error("sell leg failed after buy leg filled", "venue", sellVenue, "error", err)
		e.tradeLog.Append(model.NewFailedTradeRecord(buyVenue, sellVenue, err))
		return
	}

	// Realized profit comes from the actual fills, not the quotes that
	// triggered the trade.
	record := model.NewTradeRecord(buyVenue, sellVenue, buyFill, sellFill, amount)
	e.tradeLog.Append(record)
	e.logger.Info("trade completed",
		"buyVenue", buyVenue,
		"sellVenue", sellVenue,
		"buyPrice", buyFill,
		"sellPrice", sellFill,
		"profit", record.Profit,
	)
}
