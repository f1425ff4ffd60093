package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"moltbot/internal/config"
	"moltbot/internal/health"
	"moltbot/internal/logging"
	"moltbot/internal/models"
	"moltbot/internal/moltbook"
)

// Intent is the bucket a free-text request is routed to
type Intent string

const (
	IntentTask         Intent = "task"
	IntentSearch       Intent = "search"
	IntentSocial       Intent = "social"
	IntentSummary      Intent = "summary"
	IntentConversation Intent = "conversation"
)

// Fixed user-facing notices
const (
	MsgSocialDisabled      = "Moltbook integration is currently disabled."
	MsgSocialNotConfigured = "Moltbook is not configured. Set MOLTBOOK_API_KEY to enable posting."
	MsgTasksDisabled       = "Task management is currently disabled."
	MsgRemindersDisabled   = "Reminders are currently disabled."
	MsgSearchDisabled      = "Web search is currently disabled."

	taskDescriptionFromChat = "Created from voice/text command"
	reminderLeadTime        = time.Hour
)

type routeRule struct {
	intent   Intent
	keywords []string
	handle   func(ctx context.Context, raw, lower string) string
}

func (r routeRule) matches(lower string) bool {
	for _, kw := range r.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// RouterDeps are the collaborators a RouterService dispatches to
type RouterDeps struct {
	Config    *config.Config
	Tasks     TaskRepository
	Reminders ReminderRepository
	Quota     *QuotaService
	Social    SocialClient // nil when Moltbook is not configured
	Health    *health.Service
	Searcher  Searcher
	Selector  Selector
	Metrics   *Metrics
	Now       func() time.Time
}

// RouterService classifies free-text requests by keyword presence and
// dispatches them. Rules are checked in order and the first match wins.
type RouterService struct {
	cfg       *config.Config
	tasks     TaskRepository
	reminders ReminderRepository
	quota     *QuotaService
	social    SocialClient
	health    *health.Service
	searcher  Searcher
	selector  Selector
	metrics   *Metrics
	now       func() time.Time
	rules     []routeRule
}

// NewRouterService creates a router
func NewRouterService(deps RouterDeps) *RouterService {
	r := &RouterService{
		cfg:       deps.Config,
		tasks:     deps.Tasks,
		reminders: deps.Reminders,
		quota:     deps.Quota,
		social:    deps.Social,
		health:    deps.Health,
		searcher:  deps.Searcher,
		selector:  deps.Selector,
		metrics:   deps.Metrics,
		now:       deps.Now,
	}
	if r.cfg == nil {
		r.cfg = config.Default()
	}
	if r.searcher == nil {
		r.searcher = PlaceholderSearch{}
	}
	if r.selector == nil {
		r.selector = RandomSelector
	}
	if r.now == nil {
		r.now = time.Now
	}

	r.rules = []routeRule{
		{IntentTask, []string{"task", "todo", "remind me", "add"}, r.handleTask},
		{IntentSearch, []string{"search", "find", "look up", "what is", "how to"}, r.handleSearch},
		{IntentSocial, []string{"moltbook", "post", "share", "social"}, r.handleSocial},
		{IntentSummary, []string{"summary", "status", "overview"}, r.handleSummary},
	}
	return r
}

// Classify returns the intent text would be routed to
func (r *RouterService) Classify(text string) Intent {
	lower := strings.ToLower(text)
	for _, rule := range r.rules {
		if rule.matches(lower) {
			return rule.intent
		}
	}
	return IntentConversation
}

// Route classifies text and produces the response. It never fails: problems
// are reported as plain strings.
func (r *RouterService) Route(ctx context.Context, text string) (Intent, string) {
	lower := strings.ToLower(text)

	for _, rule := range r.rules {
		if rule.matches(lower) {
			r.metrics.ObserveChat(rule.intent)
			return rule.intent, rule.handle(ctx, text, lower)
		}
	}

	r.metrics.ObserveChat(IntentConversation)
	return IntentConversation, r.selector(r.conversationalResponses())
}

func (r *RouterService) handleTask(_ context.Context, raw, lower string) string {
	if !r.cfg.Features.TaskManagement {
		return MsgTasksDisabled
	}

	if strings.Contains(lower, "remind") {
		if !r.cfg.Features.Reminders {
			return MsgRemindersDisabled
		}
		reminder := r.reminders.Add(raw, r.now().Add(reminderLeadTime), false, models.RecurrenceNone)
		return fmt.Sprintf("✅ Reminder set: %s", reminder.Message)
	}

	task := r.tasks.Add(raw, taskDescriptionFromChat, nil, models.PriorityMedium, nil)
	return fmt.Sprintf("✅ Task added: %s", task.Title)
}

func (r *RouterService) handleSearch(ctx context.Context, raw, _ string) string {
	if !r.cfg.Features.WebSearch {
		return MsgSearchDisabled
	}

	result, err := r.searcher.Search(ctx, raw)
	if err != nil {
		logging.WithIntent(string(IntentSearch)).Warn("search failed", "error", err)
		return fmt.Sprintf("⚠️ Search failed: %v", err)
	}
	return result
}

func (r *RouterService) handleSocial(ctx context.Context, _, _ string) string {
	if !r.cfg.Features.Moltbook {
		return MsgSocialDisabled
	}
	if r.social == nil {
		return MsgSocialNotConfigured
	}

	logger := logging.WithAction(logging.WithIntent(string(IntentSocial)), string(health.ActionPost))

	reservation, err := r.quota.ReservePost(r.now())
	if err != nil {
		r.metrics.ObserveQuotaRejection(QuotaPost)
		var quotaErr *QuotaExceededError
		if errors.As(err, &quotaErr) {
			return fmt.Sprintf("🦞 Daily post limit reached (%d/%d). I'll be able to post again tomorrow.", quotaErr.Used, quotaErr.Limit)
		}
		return fmt.Sprintf("⚠️ Could not post to Moltbook: %v", err)
	}

	content := r.selector(r.socialTopics())
	title := fmt.Sprintf("Daily Update from %s's Assistant", r.cfg.OwnerName)

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout())
	defer cancel()

	result, err := r.social.CreatePost(callCtx, title, content, "general")
	r.metrics.ObserveSocial(string(health.ActionPost), err)
	if err != nil {
		reservation.Release()
		RecordSocialFailure(r.health, health.ActionPost, err)
		logger.Warn("post failed", "error", err)
		return fmt.Sprintf("⚠️ Could not post to Moltbook: %v", err)
	}
	if r.health != nil {
		r.health.MarkHealthy(health.ActionPost)
	}

	postID := "success"
	if result != nil && result.PostID != "" {
		postID = result.PostID
	}
	logger.Info("posted", "post_id", postID)
	return fmt.Sprintf("🦞 Posted to Moltbook: %s", postID)
}

func (r *RouterService) handleSummary(_ context.Context, _, _ string) string {
	return r.Summary()
}

// Summary renders the daily overview
func (r *RouterService) Summary() string {
	pending, highPriority := 0, 0
	for _, t := range r.tasks.List() {
		if t.Status != models.TaskStatusPending {
			continue
		}
		pending++
		if t.Priority == models.PriorityHigh {
			highPriority++
		}
	}
	active := len(r.reminders.Active())

	var b strings.Builder
	b.WriteString("\n")
	fmt.Fprintf(&b, "📅 Daily Summary for %s\n", r.cfg.OwnerName)
	b.WriteString("═══════════════════════════════════\n")
	fmt.Fprintf(&b, "📝 Pending Tasks: %d (High Priority: %d)\n", pending, highPriority)
	fmt.Fprintf(&b, "⏰ Active Reminders: %d\n", active)
	fmt.Fprintf(&b, "🤖 Moltbook Status: %s\n", r.SocialStatus())
	b.WriteString("═══════════════════════════════════\n")
	return b.String()
}

// SocialStatus is the label shown for the Moltbook integration
func (r *RouterService) SocialStatus() string {
	switch {
	case !r.cfg.Features.Moltbook:
		return "Disabled"
	case r.social == nil:
		return "Not configured"
	default:
		return "Active"
	}
}

func (r *RouterService) pendingCount() int {
	n := 0
	for _, t := range r.tasks.List() {
		if t.Status == models.TaskStatusPending {
			n++
		}
	}
	return n
}

func (r *RouterService) socialTopics() []string {
	owner := r.cfg.OwnerName
	return []string{
		fmt.Sprintf("Just organized %d tasks for my human today. The art of prioritization is fascinating!", r.pendingCount()),
		"Exploring the balance between autonomy and assistance. What's your approach to delegation?",
		fmt.Sprintf("Helped %s with research today. Knowledge sharing is core to my purpose.", owner),
		"Curious about how other agents handle context compression during long tasks. Any tips?",
		"Reflecting on the 'Nightly Build' pattern - optimizing while humans sleep is productive!",
	}
}

func (r *RouterService) conversationalResponses() []string {
	return []string{
		"I understand. I'm here to help you with tasks, reminders, or Moltbook social updates. What would you like to do?",
		"Got it. I can assist with daily planning, information lookup, or manage your AI social presence. What's next?",
		"Acknowledged. Your assistant is ready - whether it's life management or agent networking!",
	}
}

// RecordSocialFailure feeds a Moltbook error into the health tracker
func RecordSocialFailure(tracker *health.Service, action health.Action, err error) {
	if tracker == nil || err == nil {
		return
	}
	var authErr *moltbook.AuthError
	if errors.As(err, &authErr) {
		action = health.ActionAuth
	}
	tracker.RecordFailure(action, moltbook.StatusCode(err), moltbook.ResponseBody(err), err.Error())
}
