/**
 * @description
 * Guess database model.
 * Maps to the 'guesses' table in PostgreSQL.
 * A guess is written once at creation and mutated exactly once, at resolution.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/google/uuid
 *
 * @notes
 * - Rows are never deleted in normal operation; only the most recent guess per
 *   user is operationally relevant.
 * - "At most one unresolved guess per user" is enforced by a partial unique
 *   index on (user_id) WHERE resolved_at IS NULL, created in db.Migrate.
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Prediction is the direction a player bets the price will move
type Prediction string

const (
	PredictionUp   Prediction = "UP"
	PredictionDown Prediction = "DOWN"
)

// Valid reports whether the prediction is one of the two accepted directions
func (p Prediction) Valid() bool {
	return p == PredictionUp || p == PredictionDown
}

// Guess represents a directional price prediction tied to a price snapshot
type Guess struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_guesses_user_created" json:"user_id"`
	Prediction    Prediction `gorm:"type:varchar(4);not null" json:"prediction"`
	RecordedPrice float64    `gorm:"column:recorded_price;type:decimal(20,8);not null" json:"recordedBTCValue"`

	CreatedAt  time.Time  `gorm:"index:idx_guesses_user_created" json:"created_at"`
	ResolvedAt *time.Time `gorm:"column:resolved_at" json:"resolved_at"`
	IsCorrect  *bool      `gorm:"column:is_correct" json:"is_correct"`
}

// TableName overrides the table name used by Guess to `guesses`
func (Guess) TableName() string {
	return "guesses"
}

// BeforeCreate ensures UUID is generated if not present
func (g *Guess) BeforeCreate(tx *gorm.DB) (err error) {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return
}

// Resolved reports whether the guess has been settled
func (g *Guess) Resolved() bool {
	return g.ResolvedAt != nil
}
