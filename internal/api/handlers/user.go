/**
 * @description
 * User API Handlers.
 * Handles registration and the public score lookup.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - internal/services
 */

package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/lakbychance/guess-btc/internal/logger"
	"github.com/lakbychance/guess-btc/internal/services"
)

type UserHandler struct {
	Users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{Users: users}
}

// CreateUserRequest defines the registration payload
type CreateUserRequest struct {
	Username string `json:"username"`
}

// CreateUser registers a new player
// POST /api/create-user
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	// 1. Parse Body
	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if strings.TrimSpace(req.Username) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Username is required"})
	}

	// 2. Create
	user, err := h.Users.CreateUser(c.Context(), req.Username)
	if err != nil {
		if errors.Is(err, services.ErrUsernameTaken) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Username is already taken"})
		}
		logger.Error("CreateUser: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "An error occurred while creating the user"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"userId": user.ID})
}

// GetUser returns the public scoreboard entry for a username
// GET /api/user/:username
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	username := c.Params("username")
	if username == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Username is required"})
	}

	user, err := h.Users.GetScore(c.Context(), username)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		logger.Error("GetUser: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "An error occurred while fetching user data"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"username": user.Username,
		"score":    user.Score,
	})
}
