/**
 * @description
 * Price history database model.
 * Maps to the 'price_history' table in PostgreSQL.
 * Rows are written by the worker's sampling loop.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import (
	"time"
)

// PricePoint represents a sampled spot price for the tracked product
type PricePoint struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID string    `gorm:"column:product_id;index:idx_price_history_product_time" json:"product_id"` // e.g. "BTC-USD"
	Price     float64   `gorm:"column:price;type:decimal(20,8)" json:"price"`
	SampledAt time.Time `gorm:"column:sampled_at;index:idx_price_history_product_time" json:"sampled_at"`
}

// TableName overrides the table name used by PricePoint to `price_history`
func (PricePoint) TableName() string {
	return "price_history"
}
