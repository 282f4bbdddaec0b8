/**
 * @description
 * API Route definitions.
 * Wires services to handlers and assigns routes.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - internal/api/handlers
 * - internal/services
 * - internal/coinbase
 */

package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/lakbychance/guess-btc/internal/api/handlers"
	"github.com/lakbychance/guess-btc/internal/coinbase"
	"github.com/lakbychance/guess-btc/internal/config"
	"github.com/lakbychance/guess-btc/internal/services"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	// 1. Initialize Services
	coinbaseClient := coinbase.NewClient(cfg)
	priceService := services.NewPriceService(db, rdb, coinbaseClient, cfg.Game.PriceCacheTTL)
	userService := services.NewUserService(db)
	guessService := services.NewGuessService(db, priceService, cfg.Game.ResolutionThreshold)
	streamHub := services.NewPriceStreamHub(rdb, services.PriceUpdateChannel)

	// 2. Initialize Handlers
	userHandler := handlers.NewUserHandler(userService)
	guessHandler := handlers.NewGuessHandler(guessService)
	priceHandler := handlers.NewPriceHandler(priceService, streamHub)

	// 3. Define Routes
	apiGroup := app.Group("/api")

	apiGroup.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	apiGroup.Post("/create-user", userHandler.CreateUser)
	apiGroup.Get("/user/:username", userHandler.GetUser)

	apiGroup.Post("/make-guess", guessHandler.MakeGuess)
	apiGroup.Get("/check-guess-result", guessHandler.CheckGuessResult)

	apiGroup.Get("/btc-value", priceHandler.GetBTCValue)
	apiGroup.Get("/btc-value/history", priceHandler.GetHistory)
	apiGroup.Get("/btc-value/stream", priceHandler.StreamBTCValue)
}
