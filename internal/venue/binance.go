package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/model"
)

const (
	binanceBaseURL   = "https://api.binance.com"
	binanceWSBaseURL = "wss://stream.binance.com:9443"
)

// BinanceClient implements the Client interface for Binance.
type BinanceClient struct {
	logger    *slog.Logger
	apiKey    string
	apiSecret string
	baseURL   string
	wsBaseURL string
	http      *http.Client
}

// NewBinanceClient creates a new BinanceClient.
func NewBinanceClient(logger *slog.Logger, apiKey, apiSecret string) *BinanceClient {
	return &BinanceClient{
		logger:    logger,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   binanceBaseURL,
		wsBaseURL: binanceWSBaseURL,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *BinanceClient) Name() string {
	return "binance"
}

// binanceSymbol converts a pair like ETH/USDT into Binance's ETHUSDT.
func binanceSymbol(pair string) string {
	return strings.ToUpper(strings.ReplaceAll(pair, "/", ""))
}

// FetchPrice queries the public ticker endpoint for the last price.
func (b *BinanceClient) FetchPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	u := b.baseURL + "/api/v3/ticker/price?symbol=" + binanceSymbol(pair)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance: build ticker request: %w", err)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance: ticker request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance: read ticker response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("binance: ticker returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var ticker struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(body, &ticker); err != nil {
		return decimal.Zero, fmt.Errorf("binance: parse ticker response: %w", err)
	}

	price, err := decimal.NewFromString(ticker.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance: parse ticker price %q: %w", ticker.Price, err)
	}
	return price, nil
}

// PlaceMarketOrder submits a signed market order and returns the
// volume-weighted average fill price.
func (b *BinanceClient) PlaceMarketOrder(ctx context.Context, pair string, side model.Side, amount decimal.Decimal) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("symbol", binanceSymbol(pair))
	params.Set("side", strings.ToUpper(string(side)))
	params.Set("type", "MARKET")
	params.Set("quantity", amount.String())
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))

	query := params.Encode()
	query += "&signature=" + b.sign(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/v3/order?"+query, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance: build order request: %w", err)
	}
	req.Header.Set("X-MBX-APIKEY", b.apiKey)

	resp, err := b.http.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance: order request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance: read order response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("binance: order returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var order struct {
		ExecutedQty         string `json:"executedQty"`
		CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
		Fills               []struct {
			Price string `json:"price"`
			Qty   string `json:"qty"`
		} `json:"fills"`
	}
	if err := json.Unmarshal(body, &order); err != nil {
		return decimal.Zero, fmt.Errorf("binance: parse order response: %w", err)
	}

	fill, err := binanceAverageFill(order.Fills, order.CummulativeQuoteQty, order.ExecutedQty)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance: %w", err)
	}
	b.logger.Info("order filled", "venue", b.Name(), "side", side, "pair", pair, "amount", amount, "fill", fill)
	return fill, nil
}

// binanceAverageFill computes the volume-weighted average over the fill
// list, falling back to cummulativeQuoteQty/executedQty when the order
// response carries no fills.
func binanceAverageFill(fills []struct {
	Price string `json:"price"`
	Qty   string `json:"qty"`
}, cumQuote, executedQty string) (decimal.Decimal, error) {
	if len(fills) > 0 {
		notional := decimal.Zero
		qty := decimal.Zero
		for _, f := range fills {
			p, err := decimal.NewFromString(f.Price)
			if err != nil {
				return decimal.Zero, fmt.Errorf("parse fill price %q: %w", f.Price, err)
			}
			q, err := decimal.NewFromString(f.Qty)
			if err != nil {
				return decimal.Zero, fmt.Errorf("parse fill qty %q: %w", f.Qty, err)
			}
			notional = notional.Add(p.Mul(q))
			qty = qty.Add(q)
		}
		if qty.IsZero() {
			return decimal.Zero, fmt.Errorf("order reported zero filled quantity")
		}
		return notional.Div(qty), nil
	}

	quote, err := decimal.NewFromString(cumQuote)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse cummulativeQuoteQty %q: %w", cumQuote, err)
	}
	qty, err := decimal.NewFromString(executedQty)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse executedQty %q: %w", executedQty, err)
	}
	if qty.IsZero() {
		return decimal.Zero, fmt.Errorf("order reported zero filled quantity")
	}
	return quote.Div(qty), nil
}

func (b *BinanceClient) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(b.apiSecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}
