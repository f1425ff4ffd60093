package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"moltbot/internal/bot"
	"moltbot/internal/models"
	"moltbot/internal/services"
)

// defaultReminderLead matches the lead time the chat path uses
const defaultReminderLead = time.Hour

// ReminderHandler handles reminder HTTP requests
type ReminderHandler struct {
	bot *bot.Bot
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(b *bot.Bot) *ReminderHandler {
	return &ReminderHandler{bot: b}
}

// List returns reminders; ?active=true limits it to untriggered ones
// GET /api/reminders
func (h *ReminderHandler) List(c *fiber.Ctx) error {
	var reminders []models.Reminder
	if c.QueryBool("active") {
		reminders = h.bot.Reminders().Active()
	} else {
		reminders = h.bot.Reminders().List()
	}
	return c.JSON(fiber.Map{"reminders": reminders, "count": len(reminders)})
}

// Create schedules a reminder. A missing trigger time means one hour from now.
// POST /api/reminders
func (h *ReminderHandler) Create(c *fiber.Ctx) error {
	if !h.bot.Config().Features.Reminders {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": services.MsgRemindersDisabled,
		})
	}

	var req models.CreateReminderRequest
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
	if req.TriggerTime.IsZero() {
		req.TriggerTime = time.Now().Add(defaultReminderLead)
	}

	reminder := h.bot.AddReminder(req)
	return c.Status(fiber.StatusCreated).JSON(reminder)
}
