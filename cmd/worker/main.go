/**
 * @description
 * Worker Service Entry Point.
 * Responsible for background price ingestion:
 * 1. Streaming the Coinbase ticker feed over WebSocket into the Redis cache
 *    and pub/sub channel.
 * 2. Polling the Coinbase REST API as a fallback and recording price_history
 *    samples at a fixed interval.
 *
 * @dependencies
 * - internal/config
 * - internal/db
 * - internal/coinbase
 * - internal/services
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lakbychance/guess-btc/internal/coinbase"
	"github.com/lakbychance/guess-btc/internal/config"
	"github.com/lakbychance/guess-btc/internal/db"
	"github.com/lakbychance/guess-btc/internal/logger"
	"github.com/lakbychance/guess-btc/internal/services"
)

func main() {
	logger.Info("🔥 Starting Guess BTC Worker...")

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	// 2. Connect DBs
	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("Postgres connection failed: %v", err)
	}

	if err := db.Migrate(pgDB); err != nil {
		logger.Fatal("Schema migration failed: %v", err)
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Redis connection failed: %v", err)
	}

	// 3. Initialize Services
	coinbaseClient := coinbase.NewClient(cfg)
	priceService := services.NewPriceService(pgDB, redisClient, coinbaseClient, cfg.Game.PriceCacheTTL)
	poller := services.NewPricePoller(priceService, cfg.Game.PricePollInterval)
	feed := coinbase.NewTickerClient(cfg.Coinbase.FeedURL, cfg.Coinbase.ProductID, poller)

	// 4. Context with Cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Connect WebSocket feed
	go func() {
		if err := feed.Connect(ctx); err != nil {
			logger.Error("❌ Ticker feed failed: %v", err)
			// The REST fallback keeps sampling either way
		}
	}()

	// 6. REST fallback + history sampling
	go poller.Run(ctx)

	// 7. Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down worker...")
	cancel()
	_ = feed.Close()
}
