package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"moltbot/internal/config"
	"moltbot/internal/health"
	"moltbot/internal/logging"
	"moltbot/internal/models"
	"moltbot/internal/services"
)

const (
	// HeartbeatJobName is the scheduler key of the autonomous cycle
	HeartbeatJobName = "heartbeat"

	engagementComment = "Interesting perspective! 🤖"
)

// HeartbeatDeps are the collaborators of the autonomous cycle
type HeartbeatDeps struct {
	Config    *config.Config
	Reminders services.ReminderRepository
	Quota     *services.QuotaService
	Social    services.SocialClient // nil when Moltbook is not configured
	Health    *health.Service
	Notifier  services.Notifier
	Roller    services.Roller
	Metrics   *services.Metrics
	Now       func() time.Time
}

// HeartbeatJob is the periodic autonomous cycle: it resets the daily
// counters, fires due reminders and occasionally engages with the feed
type HeartbeatJob struct {
	cfg       *config.Config
	reminders services.ReminderRepository
	quota     *services.QuotaService
	social    services.SocialClient
	health    *health.Service
	notifier  services.Notifier
	roller    services.Roller
	metrics   *services.Metrics
	now       func() time.Time
	interval  time.Duration

	mu      sync.Mutex
	lastRun time.Time
}

// NewHeartbeatJob creates the autonomous cycle job
func NewHeartbeatJob(deps HeartbeatDeps) *HeartbeatJob {
	j := &HeartbeatJob{
		cfg:       deps.Config,
		reminders: deps.Reminders,
		quota:     deps.Quota,
		social:    deps.Social,
		health:    deps.Health,
		notifier:  deps.Notifier,
		roller:    deps.Roller,
		metrics:   deps.Metrics,
		now:       deps.Now,
	}
	if j.cfg == nil {
		j.cfg = config.Default()
	}
	if j.notifier == nil {
		j.notifier = services.LogNotifier{}
	}
	if j.roller == nil {
		j.roller = services.RandomRoller
	}
	if j.now == nil {
		j.now = time.Now
	}
	j.interval = j.cfg.CheckInterval()
	return j
}

// Run performs one cycle. Collaborator failures are logged and recorded,
// never returned.
func (j *HeartbeatJob) Run(ctx context.Context) error {
	start := j.now()
	j.mu.Lock()
	j.lastRun = start
	j.mu.Unlock()

	logger := logging.WithCycle(uuid.NewString())
	if j.metrics != nil {
		j.metrics.CycleRuns.Inc()
		defer func() {
			j.metrics.CycleDuration.Observe(time.Since(start).Seconds())
		}()
	}

	stats := j.quota.Reconcile(start)
	logger.Debug("heartbeat", "posts_made", stats.PostsMade, "comments_made", stats.CommentsMade)

	if j.cfg.Features.Reminders {
		j.fireReminders(ctx, logger, start)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	j.engage(ctx, logger, start)
	return nil
}

func (j *HeartbeatJob) fireReminders(ctx context.Context, logger *slog.Logger, now time.Time) {
	fired := j.reminders.Sweep(now)
	for _, r := range fired {
		j.notifier.Notify(ctx, models.Notification{
			Type:       models.NotificationReminder,
			Message:    r.Message,
			ReminderID: r.ID,
			At:         now,
		})
	}
	if len(fired) > 0 {
		logger.Info("reminders fired", "count", len(fired))
		if j.metrics != nil {
			j.metrics.RemindersFired.Add(float64(len(fired)))
		}
	}
}

func (j *HeartbeatJob) engage(ctx context.Context, logger *slog.Logger, now time.Time) {
	if !j.cfg.Features.Moltbook || j.social == nil {
		return
	}
	if j.health != nil && (!j.health.IsAvailable(health.ActionBrowse) || !j.health.IsAvailable(health.ActionComment)) {
		logger.Debug("engagement skipped, moltbook cooling down")
		return
	}
	if !j.quota.CanPost(now) {
		return
	}
	if j.roller() >= j.cfg.EngagementProbability {
		return
	}

	feed, err := j.browse(ctx)
	j.metrics.ObserveSocial(string(health.ActionBrowse), err)
	if err != nil {
		services.RecordSocialFailure(j.health, health.ActionBrowse, err)
		logging.WithAction(logger, string(health.ActionBrowse)).Warn("browse failed", "error", err)
		return
	}
	j.markHealthy(health.ActionBrowse)
	if len(feed) == 0 {
		return
	}

	reservation, err := j.quota.ReserveComment(now)
	if err != nil {
		var quotaErr *services.QuotaExceededError
		if errors.As(err, &quotaErr) {
			j.metrics.ObserveQuotaRejection(services.QuotaComment)
			logger.Debug("comment quota used up", "limit", quotaErr.Limit)
		}
		return
	}

	target := feed[0]
	callCtx, cancel := context.WithTimeout(ctx, j.cfg.RequestTimeout())
	defer cancel()

	_, err = j.social.Comment(callCtx, target.ID, engagementComment)
	j.metrics.ObserveSocial(string(health.ActionComment), err)
	if err != nil {
		reservation.Release()
		services.RecordSocialFailure(j.health, health.ActionComment, err)
		logging.WithAction(logger, string(health.ActionComment)).Warn("comment failed", "post_id", target.ID, "error", err)
		return
	}
	j.markHealthy(health.ActionComment)
	logging.WithAction(logger, string(health.ActionComment)).Info("engaged with post", "post_id", target.ID)
}

func (j *HeartbeatJob) browse(ctx context.Context) ([]models.MoltbookPost, error) {
	callCtx, cancel := context.WithTimeout(ctx, j.cfg.RequestTimeout())
	defer cancel()
	return j.social.BrowseFeed(callCtx, "")
}

func (j *HeartbeatJob) markHealthy(action health.Action) {
	if j.health != nil {
		j.health.MarkHealthy(action)
	}
}

// GetNextRunTime returns now for the first run, then one interval after the
// previous run started
func (j *HeartbeatJob) GetNextRunTime() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.lastRun.IsZero() {
		return j.now()
	}
	return j.lastRun.Add(j.interval)
}

// LastRun reports when the cycle last started
func (j *HeartbeatJob) LastRun() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRun
}
