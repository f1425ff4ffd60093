package health

import (
	"log"
	"sort"
	"sync"
	"time"
)

const (
	defaultFailureThreshold = 3
	defaultCooldownDuration = 1 * time.Hour
)

// Service tracks the health of each Moltbook action so the autonomous cycle
// can back off instead of hammering a failing or rate-limited API
type Service struct {
	mu               sync.RWMutex
	entries          map[Action]*ActionHealth
	failureThreshold int
	cooldownDuration time.Duration
	now              func() time.Time
}

// NewService creates a new health service
func NewService(failureThreshold int, cooldownDuration time.Duration) *Service {
	if failureThreshold <= 0 {
		failureThreshold = defaultFailureThreshold
	}
	if cooldownDuration <= 0 {
		cooldownDuration = defaultCooldownDuration
	}

	return &Service{
		entries:          make(map[Action]*ActionHealth),
		failureThreshold: failureThreshold,
		cooldownDuration: cooldownDuration,
		now:              time.Now,
	}
}

// SetClock replaces the time source (tests)
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Service) entryLocked(action Action) *ActionHealth {
	h, ok := s.entries[action]
	if !ok {
		h = &ActionHealth{Action: action, Status: StatusUnknown}
		s.entries[action] = h
	}
	return h
}

// IsAvailable reports whether an action may be attempted now. Unhealthy and
// cooling-down actions become available again once CooldownUntil passes.
func (s *Service) IsAvailable(action Action) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.entries[action]
	if !exists {
		return true
	}

	switch h.Status {
	case StatusUnhealthy, StatusCooldown:
		return !s.now().Before(h.CooldownUntil)
	default:
		return true
	}
}

// MarkHealthy records a successful call
func (s *Service) MarkHealthy(action Action) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.entryLocked(action)
	wasUnhealthy := h.Status == StatusUnhealthy || h.Status == StatusCooldown
	h.Status = StatusHealthy
	h.FailureCount = 0
	h.LastError = ""
	h.LastSuccessAt = s.now()
	h.LastChecked = h.LastSuccessAt
	h.CooldownUntil = time.Time{}

	if wasUnhealthy {
		log.Printf("[HEALTH] moltbook %s recovered - now healthy", action)
	}
}

// RecordFailure records a failed call. Quota responses put the action into a
// cooldown sized by the response; other failures mark it unhealthy once the
// threshold is reached, for the default cooldown.
func (s *Service) RecordFailure(action Action, statusCode int, responseBody, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	h := s.entryLocked(action)
	h.FailureCount++
	h.LastError = errMsg
	h.LastChecked = now

	if IsQuotaError(statusCode, responseBody) {
		h.Status = StatusCooldown
		h.CooldownUntil = now.Add(ParseCooldownDuration(statusCode, responseBody))
		log.Printf("[HEALTH] moltbook %s in COOLDOWN until %s (reason: %s)",
			action, h.CooldownUntil.Format(time.RFC3339), truncateStr(errMsg, 100))
		return
	}

	if h.FailureCount >= s.failureThreshold {
		h.Status = StatusUnhealthy
		h.CooldownUntil = now.Add(s.cooldownDuration)
		log.Printf("[HEALTH] moltbook %s marked UNHEALTHY after %d failures: %s",
			action, h.FailureCount, truncateStr(errMsg, 200))
	} else {
		log.Printf("[HEALTH] moltbook %s failure %d/%d: %s",
			action, h.FailureCount, s.failureThreshold, truncateStr(errMsg, 200))
	}
}

// Snapshot returns all tracked actions, sorted by name
func (s *Service) Snapshot() []ActionHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ActionHealth, 0, len(s.entries))
	for _, h := range s.entries {
		result = append(result, *h)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Action < result[j].Action
	})
	return result
}

func truncateStr(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
