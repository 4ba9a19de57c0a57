package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
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
	krakenBaseURL = "https://api.kraken.com"
	krakenWSURL   = "wss://ws.kraken.com"
)

// KrakenClient implements the Client interface for Kraken.
type KrakenClient struct {
	logger    *slog.Logger
	apiKey    string
	apiSecret string
	baseURL   string
	wsURL     string
	http      *http.Client
}

// NewKrakenClient creates a new KrakenClient.
func NewKrakenClient(logger *slog.Logger, apiKey, apiSecret string) *KrakenClient {
	return &KrakenClient{
		logger:    logger,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   krakenBaseURL,
		wsURL:     krakenWSURL,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (k *KrakenClient) Name() string {
	return "kraken"
}

// krakenSymbol converts a pair like ETH/USD into Kraken's ETHUSD.
func krakenSymbol(pair string) string {
	return strings.ToUpper(strings.ReplaceAll(pair, "/", ""))
}

// FetchPrice queries the public ticker endpoint for the last trade price.
// Kraken keys the result with its own internal pair name (XETHZUSD for
// ETHUSD), so the single entry is taken whatever its key.
func (k *KrakenClient) FetchPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	u := k.baseURL + "/0/public/Ticker?pair=" + krakenSymbol(pair)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("kraken: build ticker request: %w", err)
	}

	resp, err := k.http.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("kraken: ticker request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("kraken: read ticker response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("kraken: ticker returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var ticker struct {
		Error  []string `json:"error"`
		Result map[string]struct {
			Close []string `json:"c"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &ticker); err != nil {
		return decimal.Zero, fmt.Errorf("kraken: parse ticker response: %w", err)
	}
	if len(ticker.Error) > 0 {
		return decimal.Zero, fmt.Errorf("kraken: ticker error: %s", strings.Join(ticker.Error, "; "))
	}

	for _, entry := range ticker.Result {
		if len(entry.Close) == 0 {
			break
		}
		price, err := decimal.NewFromString(entry.Close[0])
		if err != nil {
			return decimal.Zero, fmt.Errorf("kraken: parse ticker price %q: %w", entry.Close[0], err)
		}
		return price, nil
	}
	return decimal.Zero, fmt.Errorf("kraken: ticker response carried no price for %s", pair)
}

// PlaceMarketOrder submits a signed market order via AddOrder and then
// reads the average fill price back with QueryOrders, since AddOrder
// itself only returns the transaction id.
func (k *KrakenClient) PlaceMarketOrder(ctx context.Context, pair string, side model.Side, amount decimal.Decimal) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("pair", krakenSymbol(pair))
	params.Set("type", string(side))
	params.Set("ordertype", "market")
	params.Set("volume", amount.String())

	var addOrder struct {
		TxID []string `json:"txid"`
	}
	if err := k.privateCall(ctx, "/0/private/AddOrder", params, &addOrder); err != nil {
		return decimal.Zero, fmt.Errorf("kraken: add order: %w", err)
	}
	if len(addOrder.TxID) == 0 {
		return decimal.Zero, fmt.Errorf("kraken: add order returned no transaction id")
	}
	txid := addOrder.TxID[0]

	query := url.Values{}
	query.Set("txid", txid)
	var orders map[string]struct {
		Price   string `json:"price"`
		VolExec string `json:"vol_exec"`
	}
	if err := k.privateCall(ctx, "/0/private/QueryOrders", query, &orders); err != nil {
		return decimal.Zero, fmt.Errorf("kraken: query order %s: %w", txid, err)
	}

	order, ok := orders[txid]
	if !ok {
		return decimal.Zero, fmt.Errorf("kraken: order %s missing from query response", txid)
	}
	fill, err := decimal.NewFromString(order.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("kraken: parse fill price %q: %w", order.Price, err)
	}
	if fill.IsZero() {
		return decimal.Zero, fmt.Errorf("kraken: order %s reported no fill price", txid)
	}
	k.logger.Info("order filled", "venue", k.Name(), "side", side, "pair", pair, "amount", amount, "fill", fill)
	return fill, nil
}

// privateCall signs and posts a request to a private REST endpoint and
// decodes its result field into out.
func (k *KrakenClient) privateCall(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("nonce", strconv.FormatInt(time.Now().UnixNano(), 10))
	encoded := params.Encode()

	sig, err := k.sign(path, params.Get("nonce"), encoded)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+path, strings.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", k.apiKey)
	req.Header.Set("API-Sign", sig)

	resp, err := k.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope struct {
		Error  []string        `json:"error"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if len(envelope.Error) > 0 {
		return fmt.Errorf("api error: %s", strings.Join(envelope.Error, "; "))
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("parse result: %w", err)
	}
	return nil
}

// sign produces the API-Sign header: HMAC-SHA512 over the URI path and
// SHA256(nonce + POST data), keyed with the base64-decoded secret.
func (k *KrakenClient) sign(path, nonce, postData string) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(k.apiSecret)
	if err != nil {
		return "", fmt.Errorf("decode api secret: %w", err)
	}
	digest := sha256.Sum256([]byte(nonce + postData))
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(path))
	mac.Write(digest[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
