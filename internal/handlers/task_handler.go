package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"moltbot/internal/bot"
	"moltbot/internal/models"
	"moltbot/internal/services"
)

// TaskHandler handles task HTTP requests
type TaskHandler struct {
	bot *bot.Bot
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(b *bot.Bot) *TaskHandler {
	return &TaskHandler{bot: b}
}

// List returns tasks. With ?pending=true or ?priority=<p> it returns the
// open tasks ordered by due date.
// GET /api/tasks
func (h *TaskHandler) List(c *fiber.Ctx) error {
	priority := c.Query("priority")
	if c.QueryBool("pending") || priority != "" {
		var filter *models.TaskPriority
		if priority != "" {
			p := models.ParseTaskPriority(priority)
			filter = &p
		}
		tasks := h.bot.Tasks().Pending(filter)
		return c.JSON(fiber.Map{"tasks": tasks, "count": len(tasks)})
	}

	tasks := h.bot.Tasks().List()
	return c.JSON(fiber.Map{"tasks": tasks, "count": len(tasks)})
}

// Create adds a task
// POST /api/tasks
func (h *TaskHandler) Create(c *fiber.Ctx) error {
	if !h.bot.Config().Features.TaskManagement {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": services.MsgTasksDisabled,
		})
	}

	var req models.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Title) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title is required",
		})
	}

	task := h.bot.AddTask(req)
	return c.Status(fiber.StatusCreated).JSON(task)
}

// Start moves a pending task to in progress
// POST /api/tasks/:id/start
func (h *TaskHandler) Start(c *fiber.Ctx) error {
	id := c.Params("id")
	task, exists := h.bot.Tasks().Get(id)
	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
		})
	}

	if !h.bot.StartTask(id) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":  "Only pending tasks can be started",
			"status": task.Status,
		})
	}

	task, _ = h.bot.Tasks().Get(id)
	return c.JSON(task)
}

// Complete marks a task completed
// POST /api/tasks/:id/complete
func (h *TaskHandler) Complete(c *fiber.Ctx) error {
	id := c.Params("id")
	if !h.bot.CompleteTask(id) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
		})
	}

	task, _ := h.bot.Tasks().Get(id)
	return c.JSON(task)
}
