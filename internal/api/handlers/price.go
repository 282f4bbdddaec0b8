/**
 * @description
 * Price API Handlers.
 * Current BTC value, a sampled history, and an SSE stream of live updates.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - internal/services
 */

package handlers

import (
	"bufio"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/lakbychance/guess-btc/internal/logger"
	"github.com/lakbychance/guess-btc/internal/services"
)

type PriceHandler struct {
	Prices *services.PriceService
	Hub    *services.PriceStreamHub
}

func NewPriceHandler(prices *services.PriceService, hub *services.PriceStreamHub) *PriceHandler {
	return &PriceHandler{Prices: prices, Hub: hub}
}

// GetBTCValue returns the current spot price
// GET /api/btc-value
func (h *PriceHandler) GetBTCValue(c *fiber.Ctx) error {
	price, err := h.Prices.CurrentPrice(c.Context())
	if err != nil {
		logger.Error("GetBTCValue: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "An error occurred while fetching BTC value"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"btc": price})
}

// GetHistory returns recent price samples, newest first
// GET /api/btc-value/history?limit=
func (h *PriceHandler) GetHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)

	points, err := h.Prices.History(c.Context(), limit)
	if err != nil {
		logger.Error("GetHistory: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "An error occurred while fetching price history"})
	}

	return c.Status(fiber.StatusOK).JSON(points)
}

// StreamBTCValue streams live price updates over SSE
// GET /api/btc-value/stream
func (h *PriceHandler) StreamBTCValue(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	requestCtx := c.Context()

	updates, unsubscribe := h.Hub.Subscribe()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		requestDone := requestCtx.Done()

		for {
			select {
			case <-requestDone:
				return
			case payload, ok := <-updates:
				if !ok {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", payload)
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})

	return nil
}
