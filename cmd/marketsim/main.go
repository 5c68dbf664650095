// marketsim seeds a venue with random participants and orders, matching
// after every submission, and reports the resulting book and balances.
// It only talks to the engine through its public surface, the way any
// external driver must.
package main

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"time"

	market "github.com/jplanas01/go-stock-market"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func main() {
	log, err := newLogger()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	if err := run(log, cfg); err != nil {
		log.Fatal("simulation failed", zap.Error(err))
	}
}

func run(log *zap.Logger, cfg *Config) error {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	initialCash, err := decimal.NewFromString(cfg.InitialCash)
	if err != nil {
		return err
	}

	publisher := market.NewMemoryPublisher()
	engine := market.NewEngine(publisher)
	dispatcher := market.NewDispatcher(engine)
	go func() {
		_ = dispatcher.Start()
	}()

	ctx := context.Background()

	owners := make([]string, 0, cfg.Owners)
	for i := 0; i < cfg.Owners; i++ {
		id, err := dispatcher.OpenAccount(ctx, initialCash, cfg.InitialShares)
		if err != nil {
			return err
		}
		owners = append(owners, id)
	}

	log.Info("simulation starting",
		zap.Int64("seed", seed),
		zap.Int("owners", cfg.Owners),
		zap.Int("orders", cfg.Orders),
		zap.String("initial_cash", initialCash.String()),
		zap.Int64("initial_shares", cfg.InitialShares),
	)

	startCash, startShares := engineTotals(ctx, dispatcher, owners)

	var accepted, rejected, tradeCount int
	for i := 0; i < cfg.Orders; i++ {
		side := market.Bid
		if rng.Intn(2) == 1 {
			side = market.Ask
		}

		price := int64(rng.NormFloat64()*cfg.PriceStddev + cfg.PriceMean)
		if price < 1 {
			price = 1
		}
		quantity := rng.Int63n(cfg.MaxQuantity) + 1
		ownerID := owners[rng.Intn(len(owners))]

		_, err := dispatcher.Submit(ctx, side, decimal.NewFromInt(price), quantity, ownerID)
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, market.ErrInsufficientFunds), errors.Is(err, market.ErrInsufficientShares):
			rejected++
		default:
			return err
		}

		trades, err := dispatcher.RunMatching(ctx)
		if err != nil {
			return err
		}
		tradeCount += len(trades)
	}

	stats, err := dispatcher.Stats(ctx)
	if err != nil {
		return err
	}
	depth, err := dispatcher.Depth(ctx, cfg.DepthLevels)
	if err != nil {
		return err
	}

	log.Info("simulation finished",
		zap.Int("accepted", accepted),
		zap.Int("rejected", rejected),
		zap.Int("trades", tradeCount),
		zap.Int64("resting_bids", stats.BidOrderCount),
		zap.Int64("resting_asks", stats.AskOrderCount),
	)

	for _, item := range depth.Bids {
		log.Info("bid level", zap.String("price", item.Price.String()), zap.Int64("quantity", item.Quantity))
	}
	for _, item := range depth.Asks {
		log.Info("ask level", zap.String("price", item.Price.String()), zap.Int64("quantity", item.Quantity))
	}

	// Rebuild an aggregated view from the event stream and compare its
	// best levels against the live book.
	aggregated := market.NewAggregatedBook()
	for i := 0; i < publisher.Count(); i++ {
		if err := aggregated.Apply(publisher.Get(i)); err != nil {
			return err
		}
	}
	if best, ok := aggregated.BestBid(); ok {
		log.Info("rebuilt best bid", zap.String("price", best.Price.String()), zap.Int64("quantity", best.Quantity))
	}
	if best, ok := aggregated.BestAsk(); ok {
		log.Info("rebuilt best ask", zap.String("price", best.Price.String()), zap.Int64("quantity", best.Quantity))
	}

	for _, ownerID := range owners {
		snap, err := dispatcher.OwnerSnapshot(ctx, ownerID)
		if err != nil {
			return err
		}
		log.Info("owner",
			zap.String("id", ownerID),
			zap.String("cash", snap.Cash.String()),
			zap.Int64("shares", snap.Shares),
			zap.String("pending_cash", snap.PendingCash.String()),
			zap.Int64("pending_shares", snap.PendingShares),
		)
	}

	endCash, endShares := engineTotals(ctx, dispatcher, owners)
	if !startCash.Equal(endCash) || startShares != endShares {
		log.Error("conservation violated",
			zap.String("start_cash", startCash.String()),
			zap.String("end_cash", endCash.String()),
			zap.Int64("start_shares", startShares),
			zap.Int64("end_shares", endShares),
		)
	} else {
		log.Info("conservation holds",
			zap.String("total_cash", endCash.String()),
			zap.Int64("total_shares", endShares),
		)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return dispatcher.Shutdown(shutdownCtx)
}

// engineTotals sums cash and shares (spendable plus pending) across the
// given owners using only the read-only snapshot surface.
func engineTotals(ctx context.Context, d *market.Dispatcher, owners []string) (decimal.Decimal, int64) {
	cash := decimal.Zero
	var shares int64
	for _, ownerID := range owners {
		snap, err := d.OwnerSnapshot(ctx, ownerID)
		if err != nil {
			continue
		}
		cash = cash.Add(snap.Cash).Add(snap.PendingCash)
		shares += snap.Shares + snap.PendingShares
	}
	return cash, shares
}
