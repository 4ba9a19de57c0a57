package recorder

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/model"
)

// TradeLog is the append-only, in-memory store of trade attempts.
// Records are never rewritten or reordered after Append; insertion order
// is chronological order. It is shared between the engine worker and the
// presentation layer, so every access goes through the mutex.
type TradeLog struct {
	mu      sync.RWMutex
	records []model.TradeRecord
	total   decimal.Decimal
}

// NewTradeLog creates an empty trade log.
func NewTradeLog() *TradeLog {
	return &TradeLog{}
}

// Append adds a record to the end of the log. Successful records also
// advance the running profit total.
func (l *TradeLog) Append(r model.TradeRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
	if !r.Failed() {
		l.total = l.total.Add(r.Profit)
	}
}

// Snapshot returns a point-in-time copy of the log. Callers may hold or
// iterate the returned slice without further locking.
func (l *TradeLog) Snapshot() []model.TradeRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.TradeRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records appended so far.
func (l *TradeLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// CumulativeProfit returns the running sum of profit over successful
// records. Failed records contribute nothing.
func (l *TradeLog) CumulativeProfit() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// CumulativeProfitSeries returns the running profit total after each
// successful record, in chronological order. The last element, when the
// series is non-empty, equals CumulativeProfit at the same instant.
func (l *TradeLog) CumulativeProfitSeries() []decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	series := make([]decimal.Decimal, 0, len(l.records))
	sum := decimal.Zero
	for _, r := range l.records {
		if r.Failed() {
			continue
		}
		sum = sum.Add(r.Profit)
		series = append(series, sum)
	}
	return series
}
