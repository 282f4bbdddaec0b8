/**
 * @description
 * Guess Service: guess creation and the resolution routine.
 * Resolution compares a later price sample against the price recorded at
 * submission and settles the guess together with the score adjustment in a
 * single transaction.
 *
 * @dependencies
 * - gorm.io/gorm
 * - internal/models
 *
 * @notes
 * - The resolution threshold is injected at construction, not read from any
 *   shared mutable default.
 * - Idempotence under concurrent polls hinges on the conditional UPDATE
 *   (`resolved_at IS NULL`): the losing caller affects zero rows and returns
 *   `{resolved: true}` without touching the score.
 */

package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lakbychance/guess-btc/internal/models"
	"gorm.io/gorm"
)

// PriceSource supplies the current external asset price on demand
type PriceSource interface {
	CurrentPrice(ctx context.Context) (float64, error)
}

// GuessService handles the guess lifecycle
type GuessService struct {
	DB                  *gorm.DB
	Prices              PriceSource
	ResolutionThreshold time.Duration
}

// NewGuessService creates a new GuessService
func NewGuessService(db *gorm.DB, prices PriceSource, threshold time.Duration) *GuessService {
	return &GuessService{
		DB:                  db,
		Prices:              prices,
		ResolutionThreshold: threshold,
	}
}

// CheckGuessResult is the outcome of one resolution poll
type CheckGuessResult struct {
	Resolved     bool   `json:"resolved"`
	IsCorrect    *bool  `json:"isCorrect,omitempty"`
	UpdatedScore *int64 `json:"updatedScore,omitempty"`
}

// CreateGuess records a new directional prediction for a user.
// A user may hold at most one unresolved guess; the read-ahead check produces
// the friendly error, the partial unique index settles the concurrent case.
func (s *GuessService) CreateGuess(ctx context.Context, userID uuid.UUID, prediction models.Prediction, recordedPrice float64) (*models.Guess, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	pending, err := s.HasUnresolvedGuess(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrGuessPending
	}

	guess := models.Guess{
		UserID:        userID,
		Prediction:    prediction,
		RecordedPrice: recordedPrice,
	}
	if err := s.DB.WithContext(ctx).Create(&guess).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrGuessPending
		}
		return nil, err
	}

	return &guess, nil
}

// LatestGuess fetches the most recent guess for a user
func (s *GuessService) LatestGuess(ctx context.Context, userID uuid.UUID) (*models.Guess, error) {
	var guess models.Guess
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&guess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoGuess
		}
		return nil, err
	}
	return &guess, nil
}

// HasUnresolvedGuess reports whether the user's latest guess is still open
func (s *GuessService) HasUnresolvedGuess(ctx context.Context, userID uuid.UUID) (bool, error) {
	guess, err := s.LatestGuess(ctx, userID)
	if errors.Is(err, ErrNoGuess) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !guess.Resolved(), nil
}

// CheckGuessResult runs one resolution poll for the user's latest guess.
//
// Before the threshold elapses, and while the price is flat against the
// recorded snapshot, it returns {resolved: false} with no store mutation.
// Once a direction can be judged it settles the guess and the score change
// atomically and becomes a {resolved: true} no-op on every later poll.
func (s *GuessService) CheckGuessResult(ctx context.Context, userID uuid.UUID) (CheckGuessResult, error) {
	guess, err := s.LatestGuess(ctx, userID)
	if err != nil {
		return CheckGuessResult{}, err
	}

	if guess.Resolved() {
		return CheckGuessResult{Resolved: true}, nil
	}

	if time.Since(guess.CreatedAt) < s.ResolutionThreshold {
		return CheckGuessResult{Resolved: false}, nil
	}

	currentPrice, err := s.Prices.CurrentPrice(ctx)
	if err != nil {
		return CheckGuessResult{}, err
	}

	// A flat price defers resolution rather than counting as a loss
	if currentPrice == guess.RecordedPrice {
		return CheckGuessResult{Resolved: false}, nil
	}

	wentUp := currentPrice > guess.RecordedPrice
	isCorrect := (guess.Prediction == models.PredictionUp) == wentUp

	return s.resolveGuess(ctx, guess, isCorrect)
}

// resolveGuess settles the guess and adjusts the owner's score in one transaction.
// The guess update is conditional on resolved_at still being NULL; if another
// poll settled it first, nothing is written and no score delta is applied.
// A missing user row aborts the transaction, leaving the guess open.
func (s *GuessService) resolveGuess(ctx context.Context, guess *models.Guess, isCorrect bool) (CheckGuessResult, error) {
	var (
		settled      bool
		updatedScore int64
	)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&models.Guess{}).
			Where("id = ? AND resolved_at IS NULL", guess.ID).
			Updates(map[string]interface{}{
				"resolved_at": now,
				"is_correct":  isCorrect,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// A concurrent poll won the race; leave the score alone
			return nil
		}
		settled = true

		var user models.User
		if err := tx.First(&user, "id = ?", guess.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		scoreChange := int64(-1)
		if isCorrect {
			scoreChange = 1
		}
		newScore := user.Score + scoreChange
		if newScore < 0 {
			newScore = 0
		}

		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("score", newScore).Error; err != nil {
			return err
		}

		updatedScore = newScore
		return nil
	})
	if err != nil {
		return CheckGuessResult{}, err
	}

	if !settled {
		return CheckGuessResult{Resolved: true}, nil
	}

	return CheckGuessResult{
		Resolved:     true,
		IsCorrect:    &isCorrect,
		UpdatedScore: &updatedScore,
	}, nil
}
