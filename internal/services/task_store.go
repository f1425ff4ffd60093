package services

import (
	"sort"
	"sync"
	"time"

	"moltbot/internal/models"

	"github.com/google/uuid"
)

// TaskRepository is the narrow surface the router and handlers need from a task store
type TaskRepository interface {
	Add(title, description string, due *time.Time, priority models.TaskPriority, tags []string) *models.Task
	Pending(priorityFilter *models.TaskPriority) []models.Task
	Complete(id string) bool
	Start(id string) bool
	Get(id string) (models.Task, bool)
	List() []models.Task
}

// TaskStore keeps tasks in memory, in insertion order
type TaskStore struct {
	mu    sync.RWMutex
	tasks []*models.Task
	index map[string]*models.Task
	now   func() time.Time
}

// NewTaskStore creates an empty task store. A nil clock means time.Now.
func NewTaskStore(now func() time.Time) *TaskStore {
	if now == nil {
		now = time.Now
	}
	return &TaskStore{
		index: make(map[string]*models.Task),
		now:   now,
	}
}

// Add creates a pending task
func (s *TaskStore) Add(title, description string, due *time.Time, priority models.TaskPriority, tags []string) *models.Task {
	if priority == "" {
		priority = models.PriorityMedium
	}
	if tags == nil {
		tags = []string{}
	}

	task := &models.Task{
		ID:          "task_" + uuid.New().String(),
		Title:       title,
		Description: description,
		DueDate:     copyTime(due),
		Priority:    priority,
		Status:      models.TaskStatusPending,
		CreatedAt:   s.now(),
		Tags:        append([]string(nil), tags...),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	s.index[task.ID] = task

	out := cloneTask(task)
	return &out
}

// Pending returns every task that is not completed, optionally restricted to
// one priority, ordered by due date with undated tasks last
func (s *TaskStore) Pending(priorityFilter *models.TaskPriority) []models.Task {
	s.mu.RLock()
	result := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !t.IsOpen() {
			continue
		}
		if priorityFilter != nil && t.Priority != *priorityFilter {
			continue
		}
		result = append(result, cloneTask(t))
	}
	s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i].DueDate, result[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return result
}

// Complete marks a task completed. It reports whether the id exists.
func (s *TaskStore) Complete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.index[id]
	if !ok {
		return false
	}
	task.Status = models.TaskStatusCompleted
	return true
}

// Start moves a pending task to in_progress. Tasks in any other state are left alone.
func (s *TaskStore) Start(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.index[id]
	if !ok || task.Status != models.TaskStatusPending {
		return false
	}
	task.Status = models.TaskStatusInProgress
	return true
}

// Get returns a copy of a task
func (s *TaskStore) Get(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.index[id]
	if !ok {
		return models.Task{}, false
	}
	return cloneTask(task), true
}

// List returns copies of all tasks in creation order
func (s *TaskStore) List() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = cloneTask(t)
	}
	return out
}

// cloneTask copies t including its due date and tags, so callers never share
// memory with the store
func cloneTask(t *models.Task) models.Task {
	out := *t
	out.DueDate = copyTime(t.DueDate)
	out.Tags = append([]string{}, t.Tags...)
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
