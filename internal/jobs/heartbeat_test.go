package jobs

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"moltbot/internal/config"
	"moltbot/internal/health"
	"moltbot/internal/models"
	"moltbot/internal/moltbook"
	"moltbot/internal/services"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeFeed struct {
	mu         sync.Mutex
	feed       []models.MoltbookPost
	comments   []string
	browses    int
	commentErr error
	browseErr  error
}

func (f *fakeFeed) Authenticate(ctx context.Context) error { return nil }

func (f *fakeFeed) CreatePost(ctx context.Context, title, content, submolt string) (*models.PostResult, error) {
	return &models.PostResult{PostID: "p"}, nil
}

func (f *fakeFeed) Comment(ctx context.Context, postID, content string) (*models.CommentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentErr != nil {
		return nil, f.commentErr
	}
	f.comments = append(f.comments, postID+"|"+content)
	return &models.CommentResult{PostID: postID}, nil
}

func (f *fakeFeed) BrowseFeed(ctx context.Context, submolt string) ([]models.MoltbookPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.browses++
	if f.browseErr != nil {
		return nil, f.browseErr
	}
	return f.feed, nil
}

func (f *fakeFeed) Upvote(ctx context.Context, postID string) (bool, error) { return true, nil }

func (f *fakeFeed) counts() (browses, comments int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.browses, len(f.comments)
}

type collectNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (c *collectNotifier) Notify(_ context.Context, n models.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
}

type heartbeatFixture struct {
	job       *HeartbeatJob
	cfg       *config.Config
	reminders *services.ReminderStore
	quota     *services.QuotaService
	social    *fakeFeed
	health    *health.Service
	notes     *collectNotifier
	now       time.Time
}

func newHeartbeatFixture(t *testing.T, roll float64, mutate func(cfg *config.Config)) *heartbeatFixture {
	t.Helper()

	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid config: %v", err)
	}

	now := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	f := &heartbeatFixture{
		cfg:       cfg,
		reminders: services.NewReminderStore(),
		quota:     services.NewQuotaService(cfg.MaxDailyPosts, cfg.MaxDailyComments, now),
		social:    &fakeFeed{feed: []models.MoltbookPost{{ID: "p1", Title: "first"}, {ID: "p2"}}},
		health:    health.NewService(3, time.Hour),
		notes:     &collectNotifier{},
		now:       now,
	}
	f.health.SetClock(func() time.Time { return f.now })
	f.job = NewHeartbeatJob(HeartbeatDeps{
		Config:    cfg,
		Reminders: f.reminders,
		Quota:     f.quota,
		Social:    f.social,
		Health:    f.health,
		Notifier:  f.notes,
		Roller:    services.FixedRoller(roll),
		Now:       func() time.Time { return f.now },
	})
	return f
}

func TestHeartbeat_FiresDueReminders(t *testing.T) {
	f := newHeartbeatFixture(t, 0.99, nil)
	due := f.reminders.Add("stand up", f.now.Add(-time.Minute), false, "")
	f.reminders.Add("later", f.now.Add(time.Hour), false, "")

	if err := f.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(f.notes.sent) != 1 {
		t.Fatalf("Expected one notification, got %d", len(f.notes.sent))
	}
	got := f.notes.sent[0]
	if got.Type != models.NotificationReminder || got.ReminderID != due.ID || got.Message != "stand up" {
		t.Errorf("Unexpected notification %+v", got)
	}

	// a second cycle must not fire the same reminder again
	f.job.Run(context.Background())
	if len(f.notes.sent) != 1 {
		t.Errorf("Reminder fired twice")
	}
}

func TestHeartbeat_RemindersDisabled(t *testing.T) {
	f := newHeartbeatFixture(t, 0.99, func(c *config.Config) { c.Features.Reminders = false })
	f.reminders.Add("stand up", f.now.Add(-time.Minute), false, "")

	f.job.Run(context.Background())
	if len(f.notes.sent) != 0 {
		t.Errorf("Expected no notifications, got %d", len(f.notes.sent))
	}
	if len(f.reminders.Active()) != 1 {
		t.Error("Reminder should stay untriggered")
	}
}

func TestHeartbeat_EngagesWhenRollSucceeds(t *testing.T) {
	f := newHeartbeatFixture(t, 0.1, nil)

	f.job.Run(context.Background())

	if len(f.social.comments) != 1 || f.social.comments[0] != "p1|Interesting perspective! 🤖" {
		t.Fatalf("Expected one comment on the first post, got %v", f.social.comments)
	}
	if got := f.quota.Reconcile(f.now).CommentsMade; got != 1 {
		t.Errorf("Expected comments_made 1, got %d", got)
	}
}

func TestHeartbeat_NoEngagementWhenRollFails(t *testing.T) {
	f := newHeartbeatFixture(t, 0.2, nil)

	f.job.Run(context.Background())

	if browses, _ := f.social.counts(); browses != 0 {
		t.Errorf("Roll at the probability must not browse, got %d browses", browses)
	}
}

func TestHeartbeat_NoEngagementWhenSocialDisabledOrMissing(t *testing.T) {
	f := newHeartbeatFixture(t, 0, func(c *config.Config) { c.Features.Moltbook = false })
	f.job.Run(context.Background())
	if browses, _ := f.social.counts(); browses != 0 {
		t.Errorf("Disabled social must not browse")
	}

	g := newHeartbeatFixture(t, 0, nil)
	job := NewHeartbeatJob(HeartbeatDeps{Config: g.cfg, Reminders: g.reminders, Quota: g.quota, Roller: services.FixedRoller(0)})
	if err := job.Run(context.Background()); err != nil {
		t.Errorf("Run without a client: %v", err)
	}
}

func TestHeartbeat_PostQuotaGatesEngagement(t *testing.T) {
	f := newHeartbeatFixture(t, 0, func(c *config.Config) { c.MaxDailyPosts = 0 })

	f.job.Run(context.Background())

	if browses, _ := f.social.counts(); browses != 0 {
		t.Errorf("Exhausted post quota must skip engagement")
	}
}

func TestHeartbeat_EmptyFeedNoComment(t *testing.T) {
	f := newHeartbeatFixture(t, 0, nil)
	f.social.feed = nil

	f.job.Run(context.Background())

	browses, comments := f.social.counts()
	if browses != 1 || comments != 0 {
		t.Errorf("Expected 1 browse and 0 comments, got %d and %d", browses, comments)
	}
}

func TestHeartbeat_CommentsNeverExceedMax(t *testing.T) {
	f := newHeartbeatFixture(t, 0, func(c *config.Config) { c.MaxDailyComments = 2 })

	for i := 0; i < 5; i++ {
		f.job.Run(context.Background())
	}

	if _, comments := f.social.counts(); comments != 2 {
		t.Errorf("Expected 2 comments, got %d", comments)
	}
	if got := f.quota.Reconcile(f.now).CommentsMade; got != 2 {
		t.Errorf("Expected comments_made 2, got %d", got)
	}

	// the next day the budget is available again
	f.now = f.now.Add(24 * time.Hour)
	f.job.Run(context.Background())
	if _, comments := f.social.counts(); comments != 3 {
		t.Errorf("Expected a comment after rollover, got %d total", comments)
	}
}

func TestHeartbeat_ConcurrentCyclesRespectQuota(t *testing.T) {
	f := newHeartbeatFixture(t, 0, func(c *config.Config) { c.MaxDailyComments = 3 })

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.job.Run(context.Background())
		}()
	}
	wg.Wait()

	if _, comments := f.social.counts(); comments != 3 {
		t.Errorf("Expected exactly 3 comments, got %d", comments)
	}
}

func TestHeartbeat_CommentFailureReleasesSlotAndCoolsDown(t *testing.T) {
	f := newHeartbeatFixture(t, 0, nil)
	f.social.commentErr = &moltbook.APIError{Method: "POST", Path: "/comments", StatusCode: http.StatusTooManyRequests, Body: "slow down"}

	if err := f.job.Run(context.Background()); err != nil {
		t.Fatalf("Failures must be swallowed, got %v", err)
	}
	if got := f.quota.Reconcile(f.now).CommentsMade; got != 0 {
		t.Errorf("Failed comment must not count, got %d", got)
	}

	f.job.Run(context.Background())
	if browses, _ := f.social.counts(); browses != 1 {
		t.Errorf("Cooldown should skip the next engagement, got %d browses", browses)
	}

	f.now = f.now.Add(10 * time.Minute)
	f.social.commentErr = nil
	f.job.Run(context.Background())
	if _, comments := f.social.counts(); comments != 1 {
		t.Errorf("Expected engagement after cooldown, got %d comments", comments)
	}
}

func TestHeartbeat_BrowseFailureIsRecorded(t *testing.T) {
	f := newHeartbeatFixture(t, 0, nil)
	f.social.browseErr = &moltbook.TransportError{Op: "GET /posts", Err: context.DeadlineExceeded}

	if err := f.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	snap := f.health.Snapshot()
	if len(snap) != 1 || snap[0].Action != health.ActionBrowse || snap[0].FailureCount != 1 {
		t.Errorf("Expected one browse failure, got %+v", snap)
	}
}

func TestHeartbeat_NextRunTime(t *testing.T) {
	f := newHeartbeatFixture(t, 0.99, func(c *config.Config) { c.CheckIntervalMinutes = 30 })

	if got := f.job.GetNextRunTime(); !got.Equal(f.now) {
		t.Errorf("First run should be immediate, got %v", got)
	}

	f.job.Run(context.Background())
	if got := f.job.GetNextRunTime(); !got.Equal(f.now.Add(30 * time.Minute)) {
		t.Errorf("Expected next run in 30m, got %v", got)
	}
}
