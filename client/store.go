package client

import (
	"context"
	"sync"
)

// Status filter values.
const (
	FilterAll       = "all"
	FilterCompleted = "completed"
	FilterPending   = "pending"
)

// Store is the client-side source of truth for the signed-in user's
// task list and filter state. All network traffic goes through the
// Gateway; the Store reconciles local state with the server's canonical
// responses and never merges client-side.
//
// Methods are safe for concurrent use. Network calls run with the lock
// released, so concurrent loads race and the last response wins; no
// stronger ordering is guaranteed.
type Store struct {
	gateway Gateway

	mu             sync.Mutex
	tasks          []Task
	loading        bool
	loadErr        error
	statusFilter   string
	categoryFilter string
}

// NewStore creates a Store backed by the given gateway. Filters start
// at "all"; the task list starts empty until Load is called.
func NewStore(gateway Gateway) *Store {
	return &Store{
		gateway:        gateway,
		statusFilter:   FilterAll,
		categoryFilter: FilterAll,
	}
}

// Load fetches the full task list and replaces the local list
// wholesale. Failures are not returned; they are recorded and exposed
// via LoadErr, and the local list is cleared.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	tasks, err := s.gateway.ListTasks(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.tasks = nil
		s.loadErr = err
		return
	}
	s.tasks = tasks
	s.loadErr = nil
}

// Loading reports whether a Load is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LoadErr returns the error from the most recent Load, or nil.
func (s *Store) LoadErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Add creates a task and appends the server's canonical copy to the
// local list. On failure the local list is untouched and the error is
// returned to the caller.
func (s *Store) Add(ctx context.Context, input TaskInput) (Task, error) {
	task, err := s.gateway.CreateTask(ctx, input)
	if err != nil {
		return Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return task, nil
}

// Update applies a partial update and replaces the matching local entry
// with the server's canonical response.
func (s *Store) Update(ctx context.Context, id string, patch TaskPatch) (Task, error) {
	task, err := s.gateway.UpdateTask(ctx, id, patch)
	if err != nil {
		return Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks[i] = task
			break
		}
	}
	return task, nil
}

// Remove deletes a task and drops the matching local entry.
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := s.gateway.DeleteTask(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			break
		}
	}
	return nil
}

// ToggleCompletion flips a task's completed flag via Update. Unknown
// ids are a no-op: nothing is sent and no error is returned.
func (s *Store) ToggleCompletion(ctx context.Context, id string) (Task, error) {
	s.mu.Lock()
	var completed bool
	found := false
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			completed = s.tasks[i].Completed
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return Task{}, nil
	}
	return s.Update(ctx, id, TaskPatch{Completed: Bool(!completed)})
}

// SetStatusFilter sets the status filter. No I/O.
func (s *Store) SetStatusFilter(filter string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusFilter = filter
}

// SetCategoryFilter sets the category filter. FilterAll disables it.
func (s *Store) SetCategoryFilter(filter string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categoryFilter = filter
}

// Tasks returns a copy of the full local list in insertion order.
func (s *Store) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Filtered applies the status filter then the category filter and
// returns the surviving tasks in insertion order. The filters are
// pure; the underlying list is never reordered or mutated.
func (s *Store) Filtered() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		switch s.statusFilter {
		case FilterCompleted:
			if !t.Completed {
				continue
			}
		case FilterPending:
			if t.Completed {
				continue
			}
		}
		if s.categoryFilter != FilterAll && t.Category != s.categoryFilter {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Reset clears the local list, load error, and filters without any
// network call. Called on sign-out.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = nil
	s.loading = false
	s.loadErr = nil
	s.statusFilter = FilterAll
	s.categoryFilter = FilterAll
}
