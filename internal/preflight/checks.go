package preflight

import (
	"fmt"
	"log"
	"net/url"
	"strings"

	"moltbot/internal/config"
)

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

const (
	StatusPass    = "pass"
	StatusFail    = "fail"
	StatusWarning = "warning"
)

// Checker performs pre-flight checks before the assistant starts
type Checker struct {
	cfg *config.Config
}

// NewChecker creates a new preflight checker for a validated config
func NewChecker(cfg *config.Config) *Checker {
	return &Checker{cfg: cfg}
}

// RunAll runs all preflight checks and returns results
func (c *Checker) RunAll() []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkMoltbookCredentials(),
		c.checkMoltbookURL(),
		c.checkTimezone(),
		c.checkQuotas(),
		c.checkHTTPAuth(),
	}

	passed := 0
	failed := 0
	warnings := 0

	for _, result := range results {
		switch result.Status {
		case StatusPass:
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case StatusFail:
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case StatusWarning:
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			warnings++
		}
	}

	log.Printf("📊 Pre-flight summary: %d passed, %d failed, %d warnings", passed, failed, warnings)

	return results
}

// HasFailures returns true if any check failed
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == StatusFail {
			return true
		}
	}
	return false
}

func (c *Checker) checkMoltbookCredentials() CheckResult {
	name := "Moltbook Credentials"
	switch {
	case !c.cfg.Features.Moltbook:
		return CheckResult{Name: name, Status: StatusPass, Message: "Moltbook feature disabled"}
	case c.cfg.MoltbookAPIKey == "":
		return CheckResult{Name: name, Status: StatusWarning, Message: "MOLTBOOK_API_KEY not set, social actions will report not configured"}
	}
	return CheckResult{Name: name, Status: StatusPass, Message: "API key present"}
}

func (c *Checker) checkMoltbookURL() CheckResult {
	name := "Moltbook URL"
	if !c.cfg.SocialConfigured() {
		return CheckResult{Name: name, Status: StatusPass, Message: "Skipped (Moltbook not configured)"}
	}

	raw := c.cfg.MoltbookBaseURL
	if raw == "" {
		raw = config.DefaultMoltbookURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return CheckResult{Name: name, Status: StatusFail, Message: fmt.Sprintf("Invalid base URL %q", raw), Error: err}
	}
	if u.Scheme != "https" {
		return CheckResult{Name: name, Status: StatusWarning, Message: fmt.Sprintf("Base URL %s is not HTTPS, the API key travels in clear text", raw)}
	}
	return CheckResult{Name: name, Status: StatusPass, Message: raw}
}

func (c *Checker) checkTimezone() CheckResult {
	name := "Timezone"
	loc := c.cfg.Location().String()
	if !strings.EqualFold(loc, c.cfg.Timezone) {
		return CheckResult{Name: name, Status: StatusWarning, Message: fmt.Sprintf("Configured %q but running on %s", c.cfg.Timezone, loc)}
	}
	return CheckResult{Name: name, Status: StatusPass, Message: loc}
}

func (c *Checker) checkQuotas() CheckResult {
	name := "Daily Quotas"
	if c.cfg.Features.Moltbook && c.cfg.MaxDailyPosts == 0 && c.cfg.MaxDailyComments == 0 {
		return CheckResult{Name: name, Status: StatusWarning, Message: "Posting and commenting are both capped at 0"}
	}
	return CheckResult{
		Name:    name,
		Status:  StatusPass,
		Message: fmt.Sprintf("%d posts, %d comments per day", c.cfg.MaxDailyPosts, c.cfg.MaxDailyComments),
	}
}

func (c *Checker) checkHTTPAuth() CheckResult {
	name := "HTTP API"
	switch {
	case !c.cfg.HTTPEnabled:
		return CheckResult{Name: name, Status: StatusPass, Message: "Disabled"}
	case c.cfg.HTTPAPIKey == "":
		return CheckResult{Name: name, Status: StatusWarning, Message: "BOT_HTTP_API_KEY not set, the API is unauthenticated"}
	}
	return CheckResult{Name: name, Status: StatusPass, Message: "API key required"}
}
