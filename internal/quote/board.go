package quote

import (
	"sort"
	"sync"

	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/model"
)

// Board holds the latest quote per venue for live display. It is written
// by the engine's poll ticks and by the websocket ticker streams, and
// read by the presentation layer; every access goes through the mutex.
type Board struct {
	mu     sync.RWMutex
	quotes map[string]model.VenueQuote
}

// NewBoard creates an empty quote board.
func NewBoard() *Board {
	return &Board{quotes: make(map[string]model.VenueQuote)}
}

// Set records the latest quote for its venue.
func (b *Board) Set(q model.VenueQuote) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quotes[q.Venue] = q
}

// Get returns the latest quote for a venue. The second return value is
// false when no quote has been seen for that venue yet.
func (b *Board) Get(venue string) (model.VenueQuote, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.quotes[venue]
	return q, ok
}

// All returns a copy of every venue's latest quote, ordered by venue
// name.
func (b *Board) All() []model.VenueQuote {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.VenueQuote, 0, len(b.quotes))
	for _, q := range b.quotes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Venue < out[j].Venue })
	return out
}
