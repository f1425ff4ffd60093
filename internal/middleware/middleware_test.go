package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func okHandler(c *fiber.Ctx) error {
	return c.SendString("ok")
}

func TestAPIKeyMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/guarded", APIKeyMiddleware("s3cret"), okHandler)

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", fiber.StatusUnauthorized},
		{"wrong", "X-API-Key", "nope", fiber.StatusUnauthorized},
		{"header", "X-API-Key", "s3cret", fiber.StatusOK},
		{"bearer", "Authorization", "Bearer s3cret", fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/guarded", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("Failed to send request: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestAPIKeyMiddleware_EmptyKeyDisablesCheck(t *testing.T) {
	app := fiber.New()
	app.Get("/open", APIKeyMiddleware(""), okHandler)

	resp, err := app.Test(httptest.NewRequest("GET", "/open", nil))
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestChatRateLimiter(t *testing.T) {
	config := &RateLimitConfig{ChatMax: 2, ChatExpiration: time.Minute}
	app := fiber.New()
	app.Post("/chat", ChatRateLimiter(config), okHandler)

	var last int
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/chat", nil))
		if err != nil {
			t.Fatalf("Failed to send request: %v", err)
		}
		last = resp.StatusCode
	}
	if last != fiber.StatusTooManyRequests {
		t.Errorf("Expected third request to be limited, got %d", last)
	}
}

func TestLoadRateLimitConfig_EnvOverrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_CHAT", "7")
	t.Setenv("RATE_LIMIT_WEBSOCKET", "not-a-number")
	t.Setenv("ENVIRONMENT", "")

	config := LoadRateLimitConfig()
	if config.ChatMax != 7 {
		t.Errorf("Expected chat max 7, got %d", config.ChatMax)
	}
	if config.WebSocketMax != DefaultRateLimitConfig().WebSocketMax {
		t.Errorf("Invalid override should keep the default, got %d", config.WebSocketMax)
	}
}
