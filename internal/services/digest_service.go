package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"moltbot/internal/models"
)

// DefaultDigestCron fires the daily digest at 08:00 in the owner's timezone
const DefaultDigestCron = "0 8 * * *"

// Summarizer renders the overview delivered by the digest
type Summarizer interface {
	Summary() string
}

// DigestService pushes the daily summary to the owner on a cron schedule
type DigestService struct {
	scheduler gocron.Scheduler
	summary   Summarizer
	notifier  Notifier
	location  *time.Location
	cronExpr  string
	now       func() time.Time

	mu      sync.Mutex
	job     gocron.Job
	started bool
	stopped bool
}

// NewDigestService creates a digest scheduler. The cron expression is
// evaluated in loc.
func NewDigestService(cronExpr string, loc *time.Location, summary Summarizer, notifier Notifier) (*DigestService, error) {
	if loc == nil {
		loc = time.UTC
	}
	if cronExpr == "" {
		cronExpr = DefaultDigestCron
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to create digest scheduler: %w", err)
	}

	s := &DigestService{
		scheduler: scheduler,
		summary:   summary,
		notifier:  notifier,
		location:  loc,
		cronExpr:  cronExpr,
		now:       time.Now,
	}

	cronWithTZ := fmt.Sprintf("CRON_TZ=%s %s", loc.String(), cronExpr)
	job, err := scheduler.NewJob(
		gocron.CronJob(cronWithTZ, false),
		gocron.NewTask(func() {
			s.deliver(context.Background())
		}),
		gocron.WithName("daily_digest"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("failed to create digest job: %w", err)
	}
	s.job = job

	return s, nil
}

// Start begins firing the digest. Calling it twice is a no-op.
func (s *DigestService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	s.scheduler.Start()
	log.Printf("📅 Digest scheduled (cron: %s, tz: %s)", s.cronExpr, s.location)
}

// Stop shuts the scheduler down, waiting for a running digest to finish.
// A stopped service cannot be restarted.
func (s *DigestService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	log.Println("⏹️ Stopping digest service...")
	return s.scheduler.Shutdown()
}

// NextRun reports when the digest fires next
func (s *DigestService) NextRun() (time.Time, error) {
	return s.job.NextRun()
}

func (s *DigestService) deliver(ctx context.Context) {
	if s.summary == nil || s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, models.Notification{
		Type:    models.NotificationDigest,
		Message: s.summary.Summary(),
		At:      s.now(),
	})
}
