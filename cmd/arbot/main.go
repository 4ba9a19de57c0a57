package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/arbitrage"
	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/config"
	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/quote"
	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/recorder"
	"github.com/mailtodaniyal/Automated-Crypto-Spot-Arbitrage-Bot-Development/internal/venue"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Deterministic venue ordering: A and B are the venue names sorted
	// alphabetically.
	names := make([]string, 0, len(cfg.Venues))
	for name := range cfg.Venues {
		names = append(names, name)
	}
	sort.Strings(names)
	nameA, nameB := names[0], names[1]

	venueA, err := venue.NewClient(nameA, cfg.Mode, logger, cfg.Venues[nameA])
	if err != nil {
		log.Fatalf("cannot create venue %s: %v", nameA, err)
	}
	venueB, err := venue.NewClient(nameB, cfg.Mode, logger, cfg.Venues[nameB])
	if err != nil {
		log.Fatalf("cannot create venue %s: %v", nameB, err)
	}

	board := quote.NewBoard()
	tradeLog := recorder.NewTradeLog()
	engine := arbitrage.NewArbitrageEngine(logger, venueA, venueB,
		cfg.Venues[nameA].Pair, cfg.Venues[nameB].Pair, tradeLog, board)
	controller := arbitrage.NewController(engine, tradeLog, board)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Live ticker streams keep the quote board fresh between poll ticks.
	if s, ok := venueA.(venue.Streamer); ok {
		go s.StreamQuotes(ctx, cfg.Venues[nameA].Pair, board)
	}
	if s, ok := venueB.(venue.Streamer); ok {
		go s.StreamQuotes(ctx, cfg.Venues[nameB].Pair, board)
	}

	if err := controller.Start(cfg.Engine); err != nil {
		log.Fatalf("cannot start engine: %v", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs
	logger.Info("received signal, shutting down")

	if err := controller.Stop(); err != nil {
		logger.Error("stop failed", "error", err)
	}
	cancel()
	controller.Wait()

	logger.Info("shutdown complete",
		"trades", len(controller.TradeLog()),
		"cumulativeProfit", controller.CumulativeProfit(),
	)
}
