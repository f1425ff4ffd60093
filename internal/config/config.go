package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// DefaultMoltbookURL is the production Moltbook API root
const DefaultMoltbookURL = "https://api.moltbook.com/v1"

// Config holds all application configuration
type Config struct {
	// Moltbook settings
	MoltbookAPIKey   string  `yaml:"moltbook_api_key"`
	MoltbookUsername string  `yaml:"moltbook_username"`
	MoltbookBaseURL  string  `yaml:"moltbook_base_url"`
	MoltbookTimeout  int     `yaml:"moltbook_timeout_seconds"`
	MoltbookRate     float64 `yaml:"moltbook_rate_per_second"`
	TokenTTLMinutes  int     `yaml:"token_ttl_minutes"`

	// Personal settings
	OwnerName            string `yaml:"owner_name"`
	Timezone             string `yaml:"timezone"`
	CheckIntervalMinutes int    `yaml:"check_interval_minutes"`

	Features Features `yaml:"features"`

	// Safety limits
	MaxDailyPosts         int     `yaml:"max_daily_posts"`
	MaxDailyComments      int     `yaml:"max_daily_comments"`
	EngagementProbability float64 `yaml:"engagement_probability"`

	// Daily digest (calendar feature)
	DigestCron string `yaml:"digest_cron"`

	// HTTP API
	HTTPEnabled bool   `yaml:"http_enabled"`
	Port        string `yaml:"port"`
	HTTPAPIKey  string `yaml:"http_api_key"`

	location *time.Location
}

// Features toggles whole capability areas
type Features struct {
	Moltbook       bool `yaml:"moltbook"`
	Calendar       bool `yaml:"calendar"`
	Reminders      bool `yaml:"reminders"`
	WebSearch      bool `yaml:"web_search"`
	TaskManagement bool `yaml:"task_management"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		MoltbookBaseURL:      DefaultMoltbookURL,
		MoltbookTimeout:      15,
		MoltbookRate:         1,
		TokenTTLMinutes:      60,
		OwnerName:            "User",
		Timezone:             "UTC",
		CheckIntervalMinutes: 30,
		Features: Features{
			Moltbook:       true,
			Calendar:       true,
			Reminders:      true,
			WebSearch:      true,
			TaskManagement: true,
		},
		MaxDailyPosts:         5,
		MaxDailyComments:      10,
		EngagementProbability: 0.2,
		DigestCron:            "0 8 * * *",
		Port:                  "3001",
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// BOT_CONFIG_FILE, and finally environment variables
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("BOT_CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.MoltbookAPIKey = getEnv("MOLTBOOK_API_KEY", c.MoltbookAPIKey)
	c.MoltbookUsername = getEnv("MOLTBOOK_USERNAME", c.MoltbookUsername)
	c.MoltbookBaseURL = getEnv("MOLTBOOK_BASE_URL", c.MoltbookBaseURL)
	c.MoltbookTimeout = getIntEnv("MOLTBOOK_TIMEOUT_SECONDS", c.MoltbookTimeout)
	c.MoltbookRate = getFloatEnv("MOLTBOOK_RATE_PER_SECOND", c.MoltbookRate)
	c.TokenTTLMinutes = getIntEnv("MOLTBOOK_TOKEN_TTL_MINUTES", c.TokenTTLMinutes)

	c.OwnerName = getEnv("BOT_OWNER_NAME", c.OwnerName)
	c.Timezone = getEnv("BOT_TIMEZONE", c.Timezone)
	c.CheckIntervalMinutes = getIntEnv("BOT_CHECK_INTERVAL_MINUTES", c.CheckIntervalMinutes)

	c.Features.Moltbook = getBoolEnv("BOT_ENABLE_MOLTBOOK", c.Features.Moltbook)
	c.Features.Calendar = getBoolEnv("BOT_ENABLE_CALENDAR", c.Features.Calendar)
	c.Features.Reminders = getBoolEnv("BOT_ENABLE_REMINDERS", c.Features.Reminders)
	c.Features.WebSearch = getBoolEnv("BOT_ENABLE_WEB_SEARCH", c.Features.WebSearch)
	c.Features.TaskManagement = getBoolEnv("BOT_ENABLE_TASK_MANAGEMENT", c.Features.TaskManagement)

	c.MaxDailyPosts = getIntEnv("BOT_MAX_DAILY_POSTS", c.MaxDailyPosts)
	c.MaxDailyComments = getIntEnv("BOT_MAX_DAILY_COMMENTS", c.MaxDailyComments)
	c.EngagementProbability = getFloatEnv("BOT_ENGAGEMENT_PROBABILITY", c.EngagementProbability)
	c.DigestCron = getEnv("BOT_DIGEST_CRON", c.DigestCron)

	c.HTTPEnabled = getBoolEnv("BOT_HTTP_ENABLED", c.HTTPEnabled)
	c.Port = getEnv("PORT", c.Port)
	c.HTTPAPIKey = getEnv("BOT_HTTP_API_KEY", c.HTTPAPIKey)
}

// Validate checks limits and resolves the timezone. An unknown timezone is
// not fatal: the bot runs on UTC and says so.
func (c *Config) Validate() error {
	if c.CheckIntervalMinutes <= 0 {
		return fmt.Errorf("check interval must be positive, got %d minutes", c.CheckIntervalMinutes)
	}
	if c.MaxDailyPosts < 0 || c.MaxDailyComments < 0 {
		return fmt.Errorf("daily quotas cannot be negative (posts=%d, comments=%d)", c.MaxDailyPosts, c.MaxDailyComments)
	}
	if c.EngagementProbability < 0 || c.EngagementProbability > 1 {
		return fmt.Errorf("engagement probability must be within [0,1], got %v", c.EngagementProbability)
	}
	if strings.TrimSpace(c.OwnerName) == "" {
		c.OwnerName = "User"
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(c.DigestCron); err != nil {
		return fmt.Errorf("invalid digest cron expression %q: %w", c.DigestCron, err)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("⚠️  Unknown timezone %q, falling back to UTC: %v", c.Timezone, err)
		loc = time.UTC
		c.Timezone = "UTC"
	}
	c.location = loc

	return nil
}

// Location returns the resolved timezone
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// CheckInterval is the autonomous cycle period
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMinutes) * time.Minute
}

// RequestTimeout bounds a single Moltbook call
func (c *Config) RequestTimeout() time.Duration {
	if c.MoltbookTimeout <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.MoltbookTimeout) * time.Second
}

// TokenTTL is how long a Moltbook bearer token is trusted
func (c *Config) TokenTTL() time.Duration {
	if c.TokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

// SocialConfigured reports whether the Moltbook client can be built
func (c *Config) SocialConfigured() bool {
	return c.Features.Moltbook && c.MoltbookAPIKey != ""
}

// Redacted returns a copy safe to print
func (c *Config) Redacted() Config {
	out := *c
	if out.MoltbookAPIKey != "" {
		out.MoltbookAPIKey = "****"
	}
	if out.HTTPAPIKey != "" {
		out.HTTPAPIKey = "****"
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
