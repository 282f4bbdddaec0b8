/**
 * @description
 * Background price ingestion for the worker binary.
 * Two sources feed the same PriceService:
 * - the Coinbase websocket ticker (HandleTicker), which only refreshes the
 *   cache and pub/sub channel;
 * - a REST fallback loop (Run), which also writes price_history rows at the
 *   configured interval and covers websocket gaps.
 *
 * @dependencies
 * - internal/coinbase
 * - internal/services (PriceService)
 */

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/lakbychance/guess-btc/internal/coinbase"
	"github.com/lakbychance/guess-btc/internal/logger"
)

// PricePoller drives periodic sampling and consumes the ticker feed
type PricePoller struct {
	Prices   *PriceService
	Interval time.Duration
}

// NewPricePoller creates a new PricePoller
func NewPricePoller(prices *PriceService, interval time.Duration) *PricePoller {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &PricePoller{
		Prices:   prices,
		Interval: interval,
	}
}

// Run samples the REST API on a ticker until the context is cancelled.
// Each failed sample is logged and skipped; the next tick retries.
func (p *PricePoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	// Initial sample so a fresh deployment has a price before the first tick
	p.sample(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sample(ctx)
		}
	}
}

func (p *PricePoller) sample(ctx context.Context) {
	price, err := p.Prices.Coinbase.GetSpotPrice(ctx)
	if err != nil {
		logger.Error("Price poll failed: %v", err)
		return
	}

	if err := p.Prices.RecordSample(ctx, price, time.Now()); err != nil {
		logger.Error("Failed to record price sample: %v", err)
	}
}

// HandleTicker implements coinbase.TickerHandler for the websocket feed
func (p *PricePoller) HandleTicker(ctx context.Context, message []byte) error {
	var msg coinbase.TickerMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return fmt.Errorf("failed to decode ticker message: %w", err)
	}

	switch msg.Type {
	case "ticker":
	case "error":
		return fmt.Errorf("feed error: %s", msg.Message)
	default:
		// subscriptions ack, heartbeats, etc.
		return nil
	}

	price, err := strconv.ParseFloat(msg.Price, 64)
	if err != nil || price <= 0 {
		return fmt.Errorf("unparsable ticker price %q", msg.Price)
	}

	at := time.Now()
	if ts, err := time.Parse(time.RFC3339Nano, msg.Time); err == nil {
		at = ts
	}

	return p.Prices.PublishSample(ctx, price, at)
}
