/**
 * @description
 * Service layer for BTC spot price data.
 * Orchestrates the Coinbase oracle, the Redis latest-price cache, the pub/sub
 * fan-out channel, and the price_history table.
 *
 * @dependencies
 * - internal/coinbase
 * - gorm.io/gorm
 * - github.com/redis/go-redis/v9
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
	"github.com/lakbychance/guess-btc/internal/models"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	PriceUpdateChannel = "price:updates"

	DefaultPriceCacheTTL = 5 * time.Second
)

// PriceUpdate is the payload published on PriceUpdateChannel and streamed to clients
type PriceUpdate struct {
	ProductID string    `json:"product_id"`
	Price     float64   `json:"price"`
	At        time.Time `json:"at"`
}

// PriceService serves the current spot price, cache-aside over the oracle
type PriceService struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Coinbase *coinbase.Client
	CacheTTL time.Duration
}

// NewPriceService creates a new PriceService
func NewPriceService(db *gorm.DB, rdb *redis.Client, cb *coinbase.Client, cacheTTL time.Duration) *PriceService {
	if cacheTTL <= 0 {
		cacheTTL = DefaultPriceCacheTTL
	}
	return &PriceService{
		DB:       db,
		Redis:    rdb,
		Coinbase: cb,
		CacheTTL: cacheTTL,
	}
}

// CurrentPrice returns the latest spot price, preferring Cache -> Oracle
func (s *PriceService) CurrentPrice(ctx context.Context) (float64, error) {
	val, err := s.Redis.Get(ctx, latestPriceKey(s.Coinbase.ProductID)).Result()
	if err == nil {
		if price, parseErr := strconv.ParseFloat(val, 64); parseErr == nil && price > 0 {
			return price, nil
		}
		// Unparsable cache entry, fall through to the oracle
	}

	price, err := s.Coinbase.GetSpotPrice(ctx)
	if err != nil {
		return 0, err
	}

	if cacheErr := s.cacheLatest(ctx, price); cacheErr != nil {
		logger.Error("Failed to cache spot price: %v", cacheErr)
	}

	return price, nil
}

// PublishSample caches the sample as the latest price and fans it out to
// stream subscribers. Called for every ticker message, so it stays off the DB.
func (s *PriceService) PublishSample(ctx context.Context, price float64, at time.Time) error {
	if err := s.cacheLatest(ctx, price); err != nil {
		return err
	}

	payload, err := json.Marshal(PriceUpdate{
		ProductID: s.Coinbase.ProductID,
		Price:     price,
		At:        at,
	})
	if err != nil {
		return err
	}

	return s.Redis.Publish(ctx, PriceUpdateChannel, payload).Err()
}

// RecordSample persists a history row in addition to publishing
func (s *PriceService) RecordSample(ctx context.Context, price float64, at time.Time) error {
	point := models.PricePoint{
		ProductID: s.Coinbase.ProductID,
		Price:     price,
		SampledAt: at,
	}
	if err := s.DB.WithContext(ctx).Create(&point).Error; err != nil {
		return err
	}

	return s.PublishSample(ctx, price, at)
}

// History returns the most recent samples, newest first
func (s *PriceService) History(ctx context.Context, limit int) ([]models.PricePoint, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var points []models.PricePoint
	err := s.DB.WithContext(ctx).
		Where("product_id = ?", s.Coinbase.ProductID).
		Order("sampled_at DESC").
		Limit(limit).
		Find(&points).Error
	if err != nil {
		return nil, err
	}
	return points, nil
}

func (s *PriceService) cacheLatest(ctx context.Context, price float64) error {
	value := strconv.FormatFloat(price, 'f', -1, 64)
	return s.Redis.Set(ctx, latestPriceKey(s.Coinbase.ProductID), value, s.CacheTTL).Err()
}

func latestPriceKey(productID string) string {
	return fmt.Sprintf("price:latest:%s", productID)
}
