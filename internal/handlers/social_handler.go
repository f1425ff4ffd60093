package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"moltbot/internal/bot"
)

// SocialHandler exposes direct Moltbook actions
type SocialHandler struct {
	bot *bot.Bot
}

// NewSocialHandler creates a new social handler
func NewSocialHandler(b *bot.Bot) *SocialHandler {
	return &SocialHandler{bot: b}
}

// Upvote upvotes a post
// POST /api/moltbook/posts/:id/upvote
func (h *SocialHandler) Upvote(c *fiber.Ctx) error {
	postID := c.Params("id")

	ok, err := h.bot.Upvote(c.UserContext(), postID)
	if errors.Is(err, bot.ErrSocialUnavailable) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"postId":  postID,
		"upvoted": ok,
	})
}
