package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"moltbot/internal/bot"
	"moltbot/internal/config"
	"moltbot/internal/handlers"
	"moltbot/internal/middleware"
	"moltbot/internal/preflight"
)

var (
	forceHTTP bool
	noREPL    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the assistant",
	Long: `Starts the assistant: authenticates with Moltbook when configured,
launches the autonomous cycle and the daily digest, and opens an interactive
prompt. Type "exit" or press Ctrl-D to stop. With --http (or BOT_HTTP_ENABLED)
the HTTP API is served as well.`,
	RunE: runBot,
}

func init() {
	runCmd.Flags().BoolVar(&forceHTTP, "http", false, "Serve the HTTP API regardless of BOT_HTTP_ENABLED")
	runCmd.Flags().BoolVar(&noREPL, "no-repl", false, "Run headless until SIGINT/SIGTERM")
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if preflight.HasFailures(preflight.NewChecker(cfg).RunAll()) {
		return errors.New("pre-flight checks failed, run \"moltbot check\" for details")
	}

	b, err := bot.New(bot.Options{
		Config:     cfg,
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("failed to start assistant: %w", err)
	}
	defer b.Stop()

	var app *fiber.App
	if cfg.HTTPEnabled || forceHTTP {
		app = newServer(b, cfg)
		go func() {
			if err := app.Listen(":" + cfg.Port); err != nil {
				log.Printf("❌ HTTP server stopped: %v", err)
			}
		}()
		log.Printf("✅ HTTP API ready on port %s", cfg.Port)
		log.Printf("🔔 Notifications: ws://localhost:%s/ws/notifications", cfg.Port)
		log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)
	}

	if noREPL {
		<-ctx.Done()
		log.Println("🛑 Shutting down...")
	} else {
		runREPL(ctx, b, cmd.OutOrStdout())
	}

	if app != nil {
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}
	return nil
}

// newServer builds the fiber app serving the bot's HTTP API
func newServer(b *bot.Bot, cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "moltbot " + Version,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	prom := fiberprometheus.New("moltbot")
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key",
	}))

	handlers.RegisterRoutes(app, b, handlers.RouteOptions{
		APIKey:     cfg.HTTPAPIKey,
		RateLimits: middleware.LoadRateLimitConfig(),
	})

	if cfg.HTTPAPIKey == "" {
		log.Println("⚠️  BOT_HTTP_API_KEY not set - the HTTP API is unauthenticated")
	}
	return app
}
