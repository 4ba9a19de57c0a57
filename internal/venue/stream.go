package venue

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/model"
	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/quote"
)

// Streamer is implemented by venue clients that can push live ticker
// updates onto the quote board between the engine's poll ticks.
type Streamer interface {
	StreamQuotes(ctx context.Context, pair string, board *quote.Board) error
}

const maxStreamBackoff = 16 * time.Second

// nextBackoff doubles the reconnect delay up to the cap.
func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxStreamBackoff {
		d = maxStreamBackoff
	}
	return d
}

// StreamQuotes connects to the Binance WebSocket API and publishes last
// trade prices for pair onto the board until the context is cancelled.
// Connection failures reconnect with exponential backoff.
func (b *BinanceClient) StreamQuotes(ctx context.Context, pair string, board *quote.Board) error {
	wsURL := b.wsBaseURL + "/ws/" + strings.ToLower(binanceSymbol(pair)) + "@ticker"
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("binance stream: context cancelled, shutting down")
			return nil
		default:
		}

		b.logger.Info("binance stream: connecting", "url", wsURL)
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			b.logger.Error("binance stream: connection failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
				backoff = nextBackoff(backoff)
			}
			continue
		}
		backoff = time.Second
		b.logger.Info("binance stream: connected")

		b.readBinanceTicker(ctx, conn, pair, board)
		conn.Close()
	}
}

// readBinanceTicker consumes ticker events until the connection drops or
// the context is cancelled.
func (b *BinanceClient) readBinanceTicker(ctx context.Context, conn *websocket.Conn, pair string, board *quote.Board) {
	// The close watcher must not outlive this connection: on reconnect
	// a watcher pinned to ctx alone would pile up, one per attempt.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	for {
		var event struct {
			LastPrice string `json:"c"`
		}
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() == nil {
				b.logger.Error("binance stream: read failed", "error", err)
			}
			return
		}
		price, err := decimal.NewFromString(event.LastPrice)
		if err != nil {
			b.logger.Warn("binance stream: unparseable price", "price", event.LastPrice)
			continue
		}
		board.Set(model.VenueQuote{
			Venue: b.Name(),
			Pair:  pair,
			Price: price,
			Valid: true,
			At:    time.Now().UTC(),
		})
	}
}

// StreamQuotes connects to the Kraken WebSocket API, subscribes to the
// ticker channel for pair, and publishes last trade prices onto the
// board until the context is cancelled.
func (k *KrakenClient) StreamQuotes(ctx context.Context, pair string, board *quote.Board) error {
	wsURL := k.wsURL
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			k.logger.Info("kraken stream: context cancelled, shutting down")
			return nil
		default:
		}

		k.logger.Info("kraken stream: connecting", "url", wsURL)
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			k.logger.Error("kraken stream: connection failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
				backoff = nextBackoff(backoff)
			}
			continue
		}
		backoff = time.Second

		subscription := map[string]any{
			"event": "subscribe",
			"pair":  []string{pair},
			"subscription": map[string]string{
				"name": "ticker",
			},
		}
		if err := conn.WriteJSON(subscription); err != nil {
			k.logger.Error("kraken stream: subscribe failed", "error", err)
			conn.Close()
			continue
		}
		k.logger.Info("kraken stream: subscribed", "pair", pair)

		k.readKrakenTicker(ctx, conn, pair, board)
		conn.Close()
	}
}

// readKrakenTicker consumes ticker messages until the connection drops
// or the context is cancelled. Ticker updates arrive as arrays of the
// form [channelID, tickerData, "ticker", pair]; everything else (heart-
// beats, subscription status events) is skipped.
func (k *KrakenClient) readKrakenTicker(ctx context.Context, conn *websocket.Conn, pair string, board *quote.Board) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				k.logger.Error("kraken stream: read failed", "error", err)
			}
			return
		}

		var frame []json.RawMessage
		if err := json.Unmarshal(message, &frame); err != nil || len(frame) < 2 {
			continue
		}
		var ticker struct {
			Close []string `json:"c"`
		}
		if err := json.Unmarshal(frame[1], &ticker); err != nil || len(ticker.Close) == 0 {
			continue
		}
		price, err := decimal.NewFromString(ticker.Close[0])
		if err != nil {
			k.logger.Warn("kraken stream: unparseable price", "price", ticker.Close[0])
			continue
		}
		board.Set(model.VenueQuote{
			Venue: k.Name(),
			Pair:  pair,
			Price: price,
			Valid: true,
			At:    time.Now().UTC(),
		})
	}
}

// StreamQuotes delegates to the wrapped client: paper mode still shows
// live prices.
func (p *PaperVenue) StreamQuotes(ctx context.Context, pair string, board *quote.Board) error {
	if s, ok := p.inner.(Streamer); ok {
		return s.StreamQuotes(ctx, pair, board)
	}
	return nil
}
