/**
 * @description
 * Guess API Handlers.
 * Guess submission and the resolution poll endpoint.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - internal/services
 * - internal/models
 */

package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lakbychance/guess-btc/internal/logger"
	"github.com/lakbychance/guess-btc/internal/models"
	"github.com/lakbychance/guess-btc/internal/services"
)

type GuessHandler struct {
	Guesses *services.GuessService
}

func NewGuessHandler(guesses *services.GuessService) *GuessHandler {
	return &GuessHandler{Guesses: guesses}
}

// MakeGuessRequest defines the guess submission payload.
// RecordedBTCValue is a pointer so a missing field is distinguishable from 0.
type MakeGuessRequest struct {
	UserID           string   `json:"userId"`
	Prediction       string   `json:"prediction"`
	RecordedBTCValue *float64 `json:"recordedBTCValue"`
}

// MakeGuess records a new directional prediction
// POST /api/make-guess
func (h *GuessHandler) MakeGuess(c *fiber.Ctx) error {
	// 1. Parse Body
	var req MakeGuessRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	// 2. Validate fields
	if req.UserID == "" || req.Prediction == "" || req.RecordedBTCValue == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing required fields"})
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	prediction := models.Prediction(req.Prediction)
	if !prediction.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid prediction value"})
	}

	if *req.RecordedBTCValue <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid recorded BTC value"})
	}

	// 3. Create
	guess, err := h.Guesses.CreateGuess(c.Context(), userID, prediction, *req.RecordedBTCValue)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGuessPending):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "An unresolved guess already exists for this user"})
		case errors.Is(err, services.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		logger.Error("MakeGuess: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "An error occurred while making the guess"})
	}

	return c.Status(fiber.StatusOK).JSON(guess)
}

// CheckGuessResult runs one resolution poll for the user's latest guess
// GET /api/check-guess-result?userId=
func (h *GuessHandler) CheckGuessResult(c *fiber.Ctx) error {
	rawID := c.Query("userId")
	if rawID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User ID is required"})
	}

	userID, err := uuid.Parse(rawID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	result, err := h.Guesses.CheckGuessResult(c.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrNoGuess) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No guess found for user"})
		}
		logger.Error("CheckGuessResult: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "An error occurred while checking guess resolution"})
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
