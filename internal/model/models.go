package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side identifies one leg of an arbitrage trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// VenueQuote is the most recent ticker price seen on a venue.
// Valid is false when the last fetch failed; Price is meaningless then
// and is never filled with a synthetic zero.
type VenueQuote struct {
	Venue string
	Pair  string
	Price decimal.Decimal
	Valid bool
	At    time.Time
}

// TradeRecord is one entry in the append-only trade log. A record is
// immutable once appended. Err is empty for a completed trade and holds
// the execution error text for a failed one.
type TradeRecord struct {
	ID        string
	Timestamp time.Time
	BuyVenue  string
	SellVenue string
	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal
	Amount    decimal.Decimal
	Profit    decimal.Decimal
	Err       string
}

// NewTradeRecord builds a success record from the two fill prices.
// Profit is always recomputed here as (sell - buy) * amount so callers
// cannot smuggle in a stale figure.
func NewTradeRecord(buyVenue, sellVenue string, buyPrice, sellPrice, amount decimal.Decimal) TradeRecord {
	return TradeRecord{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		BuyVenue:  buyVenue,
		SellVenue: sellVenue,
		BuyPrice:  buyPrice,
		SellPrice: sellPrice,
		Amount:    amount,
		Profit:    sellPrice.Sub(buyPrice).Mul(amount),
	}
}

// NewFailedTradeRecord builds a failure record naming the venues that
// were targeted and the error that stopped the trade.
func NewFailedTradeRecord(buyVenue, sellVenue string, err error) TradeRecord {
	return TradeRecord{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		BuyVenue:  buyVenue,
		SellVenue: sellVenue,
		Err:       err.Error(),
	}
}

// Failed reports whether the record captures a failed trade attempt.
func (r TradeRecord) Failed() bool {
	return r.Err != ""
}
