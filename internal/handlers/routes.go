package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"moltbot/internal/bot"
	"moltbot/internal/middleware"
)

// RouteOptions configures the HTTP surface
type RouteOptions struct {
	APIKey     string
	RateLimits *middleware.RateLimitConfig
}

// RegisterRoutes mounts the bot's HTTP API on app
func RegisterRoutes(app *fiber.App, b *bot.Bot, opts RouteOptions) {
	rl := opts.RateLimits
	if rl == nil {
		rl = middleware.DefaultRateLimitConfig()
	}

	healthHandler := NewHealthHandler(b)
	chatHandler := NewChatHandler(b)
	taskHandler := NewTaskHandler(b)
	reminderHandler := NewReminderHandler(b)
	socialHandler := NewSocialHandler(b)
	notificationHandler := NewNotificationHandler(b.Listeners())

	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api", middleware.GlobalAPIRateLimiter(rl), middleware.APIKeyMiddleware(opts.APIKey))
	api.Post("/chat", middleware.ChatRateLimiter(rl), chatHandler.Handle)
	api.Get("/summary", chatHandler.Summary)
	api.Get("/stats", chatHandler.Stats)

	api.Get("/tasks", taskHandler.List)
	api.Post("/tasks", taskHandler.Create)
	api.Post("/tasks/:id/start", taskHandler.Start)
	api.Post("/tasks/:id/complete", taskHandler.Complete)

	api.Get("/reminders", reminderHandler.List)
	api.Post("/reminders", reminderHandler.Create)

	api.Post("/moltbook/posts/:id/upvote", socialHandler.Upvote)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/notifications",
		middleware.WebSocketRateLimiter(rl),
		middleware.APIKeyMiddleware(opts.APIKey),
		websocket.New(notificationHandler.Handle),
	)
}
