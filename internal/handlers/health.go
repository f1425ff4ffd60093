package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"moltbot/internal/bot"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	bot *bot.Bot
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(b *bot.Bot) *HealthHandler {
	return &HealthHandler{bot: b}
}

// Handle responds with process health. Moltbook problems are reported but
// never make the process unhealthy.
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"running":     h.bot.Running(),
		"connections": h.bot.Listeners().Count(),
		"moltbook":    h.bot.Health().Snapshot(),
		"timestamp":   time.Now().Format(time.RFC3339),
	})
}
