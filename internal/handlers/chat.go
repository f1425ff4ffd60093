package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"moltbot/internal/bot"
)

// ChatHandler routes free-text requests through the bot
type ChatHandler struct {
	bot *bot.Bot
}

// NewChatHandler creates a new chat handler
func NewChatHandler(b *bot.Bot) *ChatHandler {
	return &ChatHandler{bot: b}
}

type chatRequest struct {
	Message string `json:"message"`
}

// Handle routes one message and returns the response text
// POST /api/chat
func (h *ChatHandler) Handle(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "message is required",
		})
	}

	intent, response := h.bot.Route(c.UserContext(), req.Message)
	return c.JSON(fiber.Map{
		"intent":   intent,
		"response": response,
	})
}

// Summary returns the daily overview
// GET /api/summary
func (h *ChatHandler) Summary(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"summary": h.bot.Summary(),
	})
}

// Stats returns counters, limits, health and scheduling state
// GET /api/stats
func (h *ChatHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(h.bot.Status())
}
