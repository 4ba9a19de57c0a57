package arbitrage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/config"
	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/model"
	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/quote"
	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/recorder"
)

type MockVenue struct {
	mock.Mock
	name string
}

func (m *MockVenue) Name() string {
	return m.name
}

func (m *MockVenue) FetchPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	args := m.Called(ctx, pair)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockVenue) PlaceMarketOrder(ctx context.Context, pair string, side model.Side, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, pair, side, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func newTestEngine(venueA, venueB *MockVenue) (*ArbitrageEngine, *recorder.TradeLog) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	tradeLog := recorder.NewTradeLog()
	board := quote.NewBoard()
	engine := NewArbitrageEngine(logger, venueA, venueB, "ETH/USDT", "ETH/USD", tradeLog, board)
	return engine, tradeLog
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestArbitrageEngine_Tick(t *testing.T) {
	threshold := dec("10")
	amount := dec("0.1")

	t.Run("skips tick when a price is unavailable", func(t *testing.T) {
		binance := &MockVenue{name: "binance"}
		kraken := &MockVenue{name: "kraken"}
		binance.On("FetchPrice", mock.Anything, "ETH/USDT").Return(dec("3500"), nil)
		kraken.On("FetchPrice", mock.Anything, "ETH/USD").Return(decimal.Zero, errors.New("rate limited"))

		engine, tradeLog := newTestEngine(binance, kraken)
		engine.tick(context.Background(), threshold, amount)

		assert.Equal(t, 0, tradeLog.Len())
		binance.AssertNotCalled(t, "PlaceMarketOrder")
		kraken.AssertNotCalled(t, "PlaceMarketOrder")
	})

	t.Run("no trade when spread is within threshold", func(t *testing.T) {
		binance := &MockVenue{name: "binance"}
		kraken := &MockVenue{name: "kraken"}
		binance.On("FetchPrice", mock.Anything, "ETH/USDT").Return(dec("3500.00"), nil)
		kraken.On("FetchPrice", mock.Anything, "ETH/USD").Return(dec("3505.00"), nil)

		engine, tradeLog := newTestEngine(binance, kraken)
		engine.tick(context.Background(), threshold, amount)

		assert.Equal(t, 0, tradeLog.Len())
		binance.AssertNotCalled(t, "PlaceMarketOrder")
		kraken.AssertNotCalled(t, "PlaceMarketOrder")
	})

	t.Run("no trade when prices are equal", func(t *testing.T) {
		binance := &MockVenue{name: "binance"}
		kraken := &MockVenue{name: "kraken"}
		binance.On("FetchPrice", mock.Anything, "ETH/USDT").Return(dec("3500.00"), nil)
		kraken.On("FetchPrice", mock.Anything, "ETH/USD").Return(dec("3500.00"), nil)

		engine, tradeLog := newTestEngine(binance, kraken)
		engine.tick(context.Background(), threshold, amount)

		assert.Equal(t, 0, tradeLog.Len())
	})

	t.Run("buys on the cheaper venue and sells on the dearer one", func(t *testing.T) {
		binance := &MockVenue{name: "binance"}
		kraken := &MockVenue{name: "kraken"}
		binance.On("FetchPrice", mock.Anything, "ETH/USDT").Return(dec("3500.00"), nil)
		kraken.On("FetchPrice", mock.Anything, "ETH/USD").Return(dec("3525.00"), nil)

		var order []string
		binance.On("PlaceMarketOrder", mock.Anything, "ETH/USDT", model.SideBuy, amount).
			Run(func(args mock.Arguments) { order = append(order, "buy") }).
			Return(dec("3500.00"), nil).Once()
		kraken.On("PlaceMarketOrder", mock.Anything, "ETH/USD", model.SideSell, amount).
			Run(func(args mock.Arguments) { order = append(order, "sell") }).
			Return(dec("3525.00"), nil).Once()

		engine, tradeLog := newTestEngine(binance, kraken)
		engine.tick(context.Background(), threshold, amount)

		binance.AssertExpectations(t)
		kraken.AssertExpectations(t)
		assert.Equal(t, []string{"buy", "sell"}, order)

		records := tradeLog.Snapshot()
		require.Len(t, records, 1)
		rec := records[0]
		assert.False(t, rec.Failed())
		assert.Equal(t, "binance", rec.BuyVenue)
		assert.Equal(t, "kraken", rec.SellVenue)
		assert.True(t, rec.Profit.Equal(dec("2.50")), "profit = %s", rec.Profit)
	})

	t.Run("trades the other direction when venue B is cheaper", func(t *testing.T) {
		binance := &MockVenue{name: "binance"}
		kraken := &MockVenue{name: "kraken"}
		binance.On("FetchPrice", mock.Anything, "ETH/USDT").Return(dec("3530.00"), nil)
		kraken.On("FetchPrice", mock.Anything, "ETH/USD").Return(dec("3500.00"), nil)

		kraken.On("PlaceMarketOrder", mock.Anything, "ETH/USD", model.SideBuy, amount).
			Return(dec("3500.00"), nil).Once()
		binance.On("PlaceMarketOrder", mock.Anything, "ETH/USDT", model.SideSell, amount).
			Return(dec("3530.00"), nil).Once()

		engine, tradeLog := newTestEngine(binance, kraken)
		engine.tick(context.Background(), threshold, amount)

		binance.AssertExpectations(t)
		kraken.AssertExpectations(t)

		records := tradeLog.Snapshot()
		require.Len(t, records, 1)
		assert.Equal(t, "kraken", records[0].BuyVenue)
		assert.Equal(t, "binance", records[0].SellVenue)
	})

	t.Run("profit comes from fills, not quotes", func(t *testing.T) {
		binance := &MockVenue{name: "binance"}
		kraken := &MockVenue{name: "kraken"}
		binance.On("FetchPrice", mock.Anything, "ETH/USDT").Return(dec("3500.00"), nil)
		kraken.On("FetchPrice", mock.Anything, "ETH/USD").Return(dec("3525.00"), nil)

		// Slippage on both legs.
		binance.On("PlaceMarketOrder", mock.Anything, "ETH/USDT", model.SideBuy, amount).
			Return(dec("3502.00"), nil).Once()
		kraken.On("PlaceMarketOrder", mock.Anything, "ETH/USD", model.SideSell, amount).
			Return(dec("3520.00"), nil).Once()

		engine, tradeLog := newTestEngine(binance, kraken)
		engine.tick(context.Background(), threshold, amount)

		records := tradeLog.Snapshot()
		require.Len(t, records, 1)
		rec := records[0]
		assert.True(t, rec.BuyPrice.Equal(dec("3502.00")))
		assert.True(t, rec.SellPrice.Equal(dec("3520.00")))
		assert.True(t, rec.Profit.Equal(dec("1.80")), "profit = %s", rec.Profit)
	})

	t.Run("sell leg failure records one failed trade, no retry, no unwind", func(t *testing.T) {
		binance := &MockVenue{name: "binance"}
		kraken := &MockVenue{name: "kraken"}
		binance.On("FetchPrice", mock.Anything, "ETH/USDT").Return(dec("3500.00"), nil)
		kraken.On("FetchPrice", mock.Anything, "ETH/USD").Return(dec("3525.00"), nil)

		binance.On("PlaceMarketOrder", mock.Anything, "ETH/USDT", model.SideBuy, amount).
			Return(dec("3500.00"), nil).Once()
		kraken.On("PlaceMarketOrder", mock.Anything, "ETH/USD", model.SideSell, amount).
			Return(decimal.Zero, errors.New("network timeout")).Once()

		engine, tradeLog := newTestEngine(binance, kraken)
		engine.tick(context.Background(), threshold, amount)

		binance.AssertExpectations(t)
		kraken.AssertExpectations(t)
		// Exactly one order call per venue: the buy is never unwound and
		// the sell is never retried.
		binance.AssertNumberOfCalls(t, "PlaceMarketOrder", 1)
		kraken.AssertNumberOfCalls(t, "PlaceMarketOrder", 1)

		records := tradeLog.Snapshot()
		require.Len(t, records, 1)
		rec := records[0]
		assert.True(t, rec.Failed())
		assert.Equal(t, "binance", rec.BuyVenue)
		assert.Equal(t, "kraken", rec.SellVenue)
		assert.Contains(t, rec.Err, "network timeout")
	})

	t.Run("buy leg failure records the failure and skips the sell leg", func(t *testing.T) {
		binance := &MockVenue{name: "binance"}
		kraken := &MockVenue{name: "kraken"}
		binance.On("FetchPrice", mock.Anything, "ETH/USDT").Return(dec("3500.00"), nil)
		kraken.On("FetchPrice", mock.Anything, "ETH/USD").Return(dec("3525.00"), nil)

		binance.On("PlaceMarketOrder", mock.Anything, "ETH/USDT", model.SideBuy, amount).
			Return(decimal.Zero, errors.New("insufficient balance")).Once()

		engine, tradeLog := newTestEngine(binance, kraken)
		engine.tick(context.Background(), threshold, amount)

		kraken.AssertNotCalled(t, "PlaceMarketOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

		records := tradeLog.Snapshot()
		require.Len(t, records, 1)
		assert.True(t, records[0].Failed())
		assert.Contains(t, records[0].Err, "insufficient balance")
	})
}

func TestArbitrageEngine_NoTickAfterCancellation(t *testing.T) {
	binance := &MockVenue{name: "binance"}
	kraken := &MockVenue{name: "kraken"}
	engine, tradeLog := newTestEngine(binance, kraken)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A stop that lands before an iteration begins must prevent that
	// iteration: no price fetch, no orders, no records.
	engine.Run(ctx, config.EngineConfig{
		Threshold:    10,
		TradeAmount:  0.1,
		PollInterval: time.Millisecond,
	})

	binance.AssertNotCalled(t, "FetchPrice", mock.Anything, mock.Anything)
	kraken.AssertNotCalled(t, "FetchPrice", mock.Anything, mock.Anything)
	assert.Equal(t, 0, tradeLog.Len())
}

func TestArbitrageEngine_PublishesQuotes(t *testing.T) {
	binance := &MockVenue{name: "binance"}
	kraken := &MockVenue{name: "kraken"}
	binance.On("FetchPrice", mock.Anything, "ETH/USDT").Return(dec("3500.00"), nil)
	kraken.On("FetchPrice", mock.Anything, "ETH/USD").Return(decimal.Zero, errors.New("down"))

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	tradeLog := recorder.NewTradeLog()
	board := quote.NewBoard()
	engine := NewArbitrageEngine(logger, binance, kraken, "ETH/USDT", "ETH/USD", tradeLog, board)

	engine.tick(context.Background(), dec("10"), dec("0.1"))

	got, ok := board.Get("binance")
	require.True(t, ok)
	assert.True(t, got.Valid)
	assert.True(t, got.Price.Equal(dec("3500.00")))

	got, ok = board.Get("kraken")
	require.True(t, ok)
	assert.False(t, got.Valid, "failed fetch must not leave a synthetic price")
}
