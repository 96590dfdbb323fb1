package services

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"

	"taskify/internal/cache"
	"taskify/internal/models"
)

const taskListTTL = 5 * time.Minute

// CachedTaskService caches each owner's task list and invalidates that
// owner's entry on every write. Cache failures never fail the request.
type CachedTaskService struct {
	inner TaskService
	cache cache.Cache
}

func NewCachedTaskService(inner TaskService, c cache.Cache) *CachedTaskService {
	return &CachedTaskService{inner: inner, cache: c}
}

func taskListKey(ownerID string) string {
	return fmt.Sprintf("tasks:user:%s", ownerID)
}

func (s *CachedTaskService) ListTasks(db *gorm.DB, ownerID string) ([]models.Task, error) {
	key := taskListKey(ownerID)

	var cached []models.Task
	if err := s.cache.Get(key, &cached); err == nil {
		return cached, nil
	}

	tasks, err := s.inner.ListTasks(db, ownerID)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, tasks, taskListTTL)
	return tasks, nil
}

func (s *CachedTaskService) CreateTask(db *gorm.DB, ownerID string, input TaskInput) (models.Task, error) {
	task, err := s.inner.CreateTask(db, ownerID, input)
	if err != nil {
		return models.Task{}, err
	}
	s.cache.Delete(taskListKey(ownerID))
	return task, nil
}

func (s *CachedTaskService) UpdateTask(db *gorm.DB, id uuid.UUID, ownerID string, patch TaskPatch) (models.Task, error) {
	task, err := s.inner.UpdateTask(db, id, ownerID, patch)
	if err != nil {
		return models.Task{}, err
	}
	s.cache.Delete(taskListKey(ownerID))
	return task, nil
}

func (s *CachedTaskService) DeleteTask(db *gorm.DB, id uuid.UUID, ownerID string) error {
	if err := s.inner.DeleteTask(db, id, ownerID); err != nil {
		return err
	}
	s.cache.Delete(taskListKey(ownerID))
	return nil
}
