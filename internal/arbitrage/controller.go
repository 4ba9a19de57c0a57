package arbitrage

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/config"
	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/model"
	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/quote"
	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/recorder"
)

// Controller owns the engine's lifecycle. Start and Stop only flip
// state and return immediately; neither ever waits on the worker, so
// the control path can never block behind an in-flight tick. The
// running flag and the trade log are the only state shared with the
// worker, and both are lock-guarded.
type Controller struct {
	engine   *ArbitrageEngine
	tradeLog *recorder.TradeLog
	board    *quote.Board

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewController creates a stopped controller for the given engine.
func NewController(engine *ArbitrageEngine, tradeLog *recorder.TradeLog, board *quote.Board) *Controller {
	return &Controller{
		engine:   engine,
		tradeLog: tradeLog,
		board:    board,
	}
}

// Start validates cfg, transitions Stopped -> Running and launches the
// engine loop in the background. It fails with ErrAlreadyRunning when
// the engine is running and ErrInvalidConfig when any parameter fails
// validation; neither failure changes state.
func (c *Controller) Start(cfg config.EngineConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyRunning
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.running = true

	go func() {
		defer close(done)
		c.engine.Run(ctx, cfg)
	}()
	return nil
}

// Stop transitions Running -> Stopped and signals the loop to halt at
// its next checkpoint. It does not interrupt an in-flight order pair
// and does not wait for the loop to exit. Fails with ErrNotRunning when
// already stopped.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return ErrNotRunning
	}
	c.cancel()
	c.running = false
	return nil
}

// Running reports whether the engine loop is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Wait blocks until the engine loop has fully exited after a Stop. It
// returns immediately if the engine was never started.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// CurrentQuotes returns the latest quote from each venue for live
// display. A venue that has not produced a quote yet comes back with
// Valid set to false.
func (c *Controller) CurrentQuotes() (model.VenueQuote, model.VenueQuote) {
	a, okA := c.board.Get(c.engine.venueA.client.Name())
	if !okA {
		a = model.VenueQuote{Venue: c.engine.venueA.client.Name()}
	}
	b, okB := c.board.Get(c.engine.venueB.client.Name())
	if !okB {
		b = model.VenueQuote{Venue: c.engine.venueB.client.Name()}
	}
	return a, b
}

// TradeLog returns a point-in-time copy of the trade log.
func (c *Controller) TradeLog() []model.TradeRecord {
	return c.tradeLog.Snapshot()
}

// CumulativeProfit returns the running profit over successful trades.
func (c *Controller) CumulativeProfit() decimal.Decimal {
	return c.tradeLog.CumulativeProfit()
}

// CumulativeProfitSeries returns the running profit total after each
// successful trade, for charting.
func (c *Controller) CumulativeProfitSeries() []decimal.Decimal {
	return c.tradeLog.CumulativeProfitSeries()
}
