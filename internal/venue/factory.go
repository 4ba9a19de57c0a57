package venue

import (
	"fmt"
	"log/slog"

	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/config"
)

// NewClient creates a venue client based on the given name and
// configuration. In paper mode the client is wrapped so that orders are
// simulated against the live ticker instead of submitted.
func NewClient(name string, mode string, logger *slog.Logger, cfg config.VenueConfig) (Client, error) {
	var client Client
	switch name {
	case "kraken":
		client = NewKrakenClient(logger, cfg.APIKey, cfg.APISecret)
	case "binance":
		client = NewBinanceClient(logger, cfg.APIKey, cfg.APISecret)
	default:
		return nil, fmt.Errorf("unknown venue: %s", name)
	}

	if mode == "paper" {
		return NewPaperVenue(client, logger), nil
	}
	return client, nil
}
