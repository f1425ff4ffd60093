// Package bot wires the stores, router, autonomous cycle and digest into the
// assistant the CLI and HTTP API talk to.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"moltbot/internal/config"
	"moltbot/internal/health"
	"moltbot/internal/jobs"
	"moltbot/internal/models"
	"moltbot/internal/moltbook"
	"moltbot/internal/services"
)

// Options configures a Bot. Only Config is required.
type Options struct {
	Config *config.Config

	// Social replaces the Moltbook client built from Config
	Social services.SocialClient
	// Notifier receives reminder and digest notifications in addition to
	// the log and websocket listeners
	Notifier   services.Notifier
	Searcher   services.Searcher
	Selector   services.Selector
	Roller     services.Roller
	Registerer prometheus.Registerer
	Now        func() time.Time
}

// Bot is the assistant facade: Start launches the autonomous cycle, Chat
// routes a request, Stop halts everything
type Bot struct {
	cfg       *config.Config
	identity  models.BotIdentity
	tasks     *services.TaskStore
	reminders *services.ReminderStore
	quota     *services.QuotaService
	health    *health.Service
	social    services.SocialClient
	router    *services.RouterService
	listeners *services.ConnectionManager
	notifier  services.Notifier
	metrics   *services.Metrics
	roller    services.Roller
	now       func() time.Time

	mu        sync.Mutex
	running   bool
	startedAt time.Time
	scheduler *jobs.JobScheduler
	heartbeat *jobs.HeartbeatJob
	digest    *services.DigestService
}

// tokenReporter is implemented by social clients that cache a bearer token
type tokenReporter interface {
	Authenticated() bool
	TokenExpiry() time.Time
}

// ErrSocialUnavailable is returned by direct social actions when Moltbook is
// disabled or not configured
var ErrSocialUnavailable = errors.New("moltbook is disabled or not configured")

// New builds a bot from configuration
func New(opts Options) (*Bot, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("bot: config is required")
	}

	now := opts.Now
	if now == nil {
		loc := cfg.Location()
		now = func() time.Time { return time.Now().In(loc) }
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	b := &Bot{
		cfg:       cfg,
		identity:  models.NewBotIdentity(cfg.OwnerName),
		tasks:     services.NewTaskStore(now),
		reminders: services.NewReminderStore(),
		quota:     services.NewQuotaService(cfg.MaxDailyPosts, cfg.MaxDailyComments, now()),
		health:    health.NewService(3, time.Hour),
		listeners: services.NewConnectionManager(),
		roller:    opts.Roller,
		now:       now,
	}
	b.health.SetClock(now)

	switch {
	case opts.Social != nil:
		b.social = opts.Social
	case cfg.SocialConfigured():
		b.social = moltbook.NewClient(moltbook.Options{
			BaseURL:       cfg.MoltbookBaseURL,
			APIKey:        cfg.MoltbookAPIKey,
			Identity:      b.identity,
			Timeout:       cfg.RequestTimeout(),
			TokenTTL:      cfg.TokenTTL(),
			RatePerSecond: cfg.MoltbookRate,
		})
	}

	b.notifier = services.MultiNotifier{services.LogNotifier{}, b.listeners, opts.Notifier}
	b.metrics = services.NewMetrics(reg, b.quota, b.listeners)

	b.router = services.NewRouterService(services.RouterDeps{
		Config:    cfg,
		Tasks:     b.tasks,
		Reminders: b.reminders,
		Quota:     b.quota,
		Social:    b.social,
		Health:    b.health,
		Searcher:  opts.Searcher,
		Selector:  opts.Selector,
		Metrics:   b.metrics,
		Now:       now,
	})

	return b, nil
}

func (b *Bot) newHeartbeat() *jobs.HeartbeatJob {
	return jobs.NewHeartbeatJob(jobs.HeartbeatDeps{
		Config:    b.cfg,
		Reminders: b.reminders,
		Quota:     b.quota,
		Social:    b.social,
		Health:    b.health,
		Notifier:  b.notifier,
		Roller:    b.roller,
		Metrics:   b.metrics,
		Now:       b.now,
	})
}

// Start authenticates with Moltbook when enabled, then launches the
// autonomous cycle and the daily digest. Authentication failures are logged
// and retried on the next call. Calling Start on a running bot is a no-op.
func (b *Bot) Start(ctx context.Context) error {
	if b.Running() {
		return nil
	}

	b.logBanner()
	b.authenticate(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()

	// a concurrent Start may have won while we were authenticating
	if b.running {
		return nil
	}

	heartbeat := b.newHeartbeat()
	scheduler := jobs.NewJobScheduler()
	scheduler.Register(jobs.HeartbeatJobName, heartbeat)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	b.scheduler = scheduler
	b.heartbeat = heartbeat

	if b.cfg.Features.Calendar {
		digest, err := services.NewDigestService(b.cfg.DigestCron, b.cfg.Location(), b.router, b.notifier)
		if err != nil {
			log.Printf("⚠️ Daily digest disabled: %v", err)
		} else {
			digest.Start()
			b.digest = digest
		}
	}

	b.running = true
	b.startedAt = b.now()
	log.Printf("✅ %s is running (heartbeat every %v)", b.identity.Name, b.cfg.CheckInterval())
	return nil
}

// authenticate runs the startup token exchange without holding b.mu
func (b *Bot) authenticate(ctx context.Context) {
	if !b.cfg.Features.Moltbook || b.social == nil {
		return
	}

	authCtx, cancel := context.WithTimeout(ctx, b.cfg.RequestTimeout())
	err := b.social.Authenticate(authCtx)
	cancel()
	b.metrics.ObserveSocial(string(health.ActionAuth), err)
	if err != nil {
		services.RecordSocialFailure(b.health, health.ActionAuth, err)
		log.Printf("⚠️ [MOLTBOOK] Authentication failed: %v (will retry on next call)", err)
		return
	}
	b.health.MarkHealthy(health.ActionAuth)
	log.Printf("🦞 [MOLTBOOK] Authenticated as %s", b.identity.Name)
}

// Stop halts the cycle and the digest, waiting for an in-flight cycle to
// finish. The bot reports not running as soon as Stop is called. Calling
// Stop on a stopped bot is a no-op.
func (b *Bot) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	scheduler, digest := b.scheduler, b.digest
	b.scheduler, b.digest = nil, nil
	b.mu.Unlock()

	if scheduler != nil {
		scheduler.Stop()
	}
	if digest != nil {
		if err := digest.Stop(); err != nil {
			log.Printf("⚠️ Digest shutdown error: %v", err)
		}
	}
	log.Printf("👋 %s stopped", b.identity.Name)
}

// Running reports whether the autonomous cycle is active
func (b *Bot) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Chat routes a free-text request. It works whether or not the bot is running.
func (b *Bot) Chat(ctx context.Context, text string) string {
	_, response := b.router.Route(ctx, text)
	return response
}

// Route is Chat that also reports the intent the request was routed to
func (b *Bot) Route(ctx context.Context, text string) (services.Intent, string) {
	return b.router.Route(ctx, text)
}

// RunCycle performs one autonomous cycle on the caller's goroutine
func (b *Bot) RunCycle(ctx context.Context) error {
	b.mu.Lock()
	if b.heartbeat == nil {
		b.heartbeat = b.newHeartbeat()
	}
	heartbeat := b.heartbeat
	b.mu.Unlock()

	return heartbeat.Run(ctx)
}

// Upvote upvotes a Moltbook post on the owner's behalf
func (b *Bot) Upvote(ctx context.Context, postID string) (bool, error) {
	if !b.cfg.Features.Moltbook || b.social == nil {
		return false, ErrSocialUnavailable
	}
	if !b.health.IsAvailable(health.ActionUpvote) {
		return false, fmt.Errorf("moltbook upvotes are cooling down")
	}

	callCtx, cancel := context.WithTimeout(ctx, b.cfg.RequestTimeout())
	defer cancel()

	ok, err := b.social.Upvote(callCtx, postID)
	b.metrics.ObserveSocial(string(health.ActionUpvote), err)
	if err != nil {
		services.RecordSocialFailure(b.health, health.ActionUpvote, err)
		return false, err
	}
	b.health.MarkHealthy(health.ActionUpvote)
	return ok, nil
}

// AddTask creates a task
func (b *Bot) AddTask(req models.CreateTaskRequest) models.Task {
	return *b.tasks.Add(req.Title, req.Description, req.DueDate, models.ParseTaskPriority(req.Priority), req.Tags)
}

// StartTask moves a pending task to in progress
func (b *Bot) StartTask(id string) bool {
	return b.tasks.Start(id)
}

// CompleteTask marks a task completed and counts it toward today's stats
func (b *Bot) CompleteTask(id string) bool {
	task, ok := b.tasks.Get(id)
	if !ok {
		return false
	}
	if task.Status != models.TaskStatusCompleted {
		b.quota.RecordTaskCompleted(b.now())
	}
	return b.tasks.Complete(id)
}

// AddReminder schedules a reminder
func (b *Bot) AddReminder(req models.CreateReminderRequest) models.Reminder {
	pattern := models.ParseRecurrencePattern(req.Pattern)
	return *b.reminders.Add(req.Message, req.TriggerTime, req.Recurring, pattern)
}

// Summary renders the daily overview
func (b *Bot) Summary() string {
	return b.router.Summary()
}

// Status is a point-in-time view of the bot for the stats endpoint
type Status struct {
	Identity     models.BotIdentity        `json:"identity"`
	Running      bool                      `json:"running"`
	StartedAt    *time.Time                `json:"startedAt,omitempty"`
	SocialStatus string                    `json:"socialStatus"`
	Stats        models.DailyStats         `json:"stats"`
	MaxPosts     int                       `json:"maxDailyPosts"`
	MaxComments  int                       `json:"maxDailyComments"`
	PendingTasks int                       `json:"pendingTasks"`
	ActiveRemind int                       `json:"activeReminders"`
	Listeners    int                       `json:"listeners"`
	Health       []health.ActionHealth     `json:"health"`
	Jobs         map[string]jobs.JobStatus `json:"jobs,omitempty"`
	NextDigest   *time.Time                `json:"nextDigest,omitempty"`
	LastCycle    *time.Time                `json:"lastCycle,omitempty"`
	SocialAuthed bool                      `json:"socialAuthenticated"`
	TokenExpiry  *time.Time                `json:"tokenExpiry,omitempty"`
}

// Status reports counters, health and scheduling state
func (b *Bot) Status() Status {
	maxPosts, maxComments := b.quota.Limits()
	st := Status{
		Identity:     b.identity,
		SocialStatus: b.router.SocialStatus(),
		Stats:        b.quota.Reconcile(b.now()),
		MaxPosts:     maxPosts,
		MaxComments:  maxComments,
		PendingTasks: len(b.tasks.Pending(nil)),
		ActiveRemind: len(b.reminders.Active()),
		Listeners:    b.listeners.Count(),
		Health:       b.health.Snapshot(),
	}
	if tokens, ok := b.social.(tokenReporter); ok && tokens.Authenticated() {
		st.SocialAuthed = true
		if expiry := tokens.TokenExpiry(); !expiry.IsZero() {
			st.TokenExpiry = &expiry
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	st.Running = b.running
	if b.running {
		started := b.startedAt
		st.StartedAt = &started
	}
	if b.scheduler != nil {
		st.Jobs = b.scheduler.GetStatus()
	}
	if b.heartbeat != nil {
		if last := b.heartbeat.LastRun(); !last.IsZero() {
			st.LastCycle = &last
		}
	}
	if b.digest != nil {
		if next, err := b.digest.NextRun(); err == nil && !next.IsZero() {
			st.NextDigest = &next
		}
	}
	return st
}

// Accessors used by the HTTP handlers

func (b *Bot) Config() *config.Config                 { return b.cfg }
func (b *Bot) Identity() models.BotIdentity           { return b.identity }
func (b *Bot) Tasks() services.TaskRepository         { return b.tasks }
func (b *Bot) Reminders() services.ReminderRepository { return b.reminders }
func (b *Bot) Listeners() *services.ConnectionManager { return b.listeners }
func (b *Bot) Health() *health.Service                { return b.health }

func (b *Bot) logBanner() {
	enabled := []string{}
	f := b.cfg.Features
	for name, on := range map[string]bool{
		"moltbook":        f.Moltbook,
		"calendar":        f.Calendar,
		"reminders":       f.Reminders,
		"web_search":      f.WebSearch,
		"task_management": f.TaskManagement,
	} {
		if on {
			enabled = append(enabled, name)
		}
	}
	sort.Strings(enabled)

	log.Println("═══════════════════════════════════")
	log.Printf("🤖 %s starting", b.identity.Name)
	log.Printf("👤 Owner: %s (%s)", b.cfg.OwnerName, b.cfg.Location())
	log.Printf("🦞 Moltbook: %s", b.router.SocialStatus())
	log.Printf("🧩 Features: %s", strings.Join(enabled, ", "))
	log.Println("═══════════════════════════════════")
}
