package services

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"

	"taskify/internal/models"
)

// ErrInvalidInput marks validation failures that should surface as 400s.
var ErrInvalidInput = errors.New("invalid task input")

// TaskInput carries the client-settable fields of a new task. The owner is
// always taken from the verified token subject, never from the input.
type TaskInput struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Deadline    *time.Time `json:"deadline"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high"`
	Category    string     `json:"category"`
}

// TaskPatch is an explicit partial update: only non-nil fields are written,
// in a single UPDATE.
type TaskPatch struct {
	Title       *string    `json:"title" binding:"omitempty,min=1"`
	Description *string    `json:"description"`
	Deadline    *time.Time `json:"deadline"`
	Priority    *string    `json:"priority" binding:"omitempty,oneof=low medium high"`
	Category    *string    `json:"category"`
	Completed   *bool      `json:"completed"`
}

// Changes returns the column assignments for the fields present in the patch.
func (p TaskPatch) Changes() map[string]interface{} {
	changes := make(map[string]interface{})
	if p.Title != nil {
		changes["title"] = *p.Title
	}
	if p.Description != nil {
		changes["description"] = *p.Description
	}
	if p.Deadline != nil {
		changes["deadline"] = *p.Deadline
	}
	if p.Priority != nil {
		changes["priority"] = *p.Priority
	}
	if p.Category != nil {
		changes["category"] = *p.Category
	}
	if p.Completed != nil {
		changes["completed"] = *p.Completed
	}
	return changes
}

type TaskService interface {
	ListTasks(db *gorm.DB, ownerID string) ([]models.Task, error)
	CreateTask(db *gorm.DB, ownerID string, input TaskInput) (models.Task, error)
	UpdateTask(db *gorm.DB, id uuid.UUID, ownerID string, patch TaskPatch) (models.Task, error)
	DeleteTask(db *gorm.DB, id uuid.UUID, ownerID string) error
}

type TaskServiceImpl struct{}

func NewTaskService() *TaskServiceImpl {
	return &TaskServiceImpl{}
}

func (s *TaskServiceImpl) ListTasks(db *gorm.DB, ownerID string) ([]models.Task, error) {
	tasks := []models.Task{}
	result := db.Where("user_id = ?", ownerID).Find(&tasks)
	return tasks, result.Error
}

func (s *TaskServiceImpl) CreateTask(db *gorm.DB, ownerID string, input TaskInput) (models.Task, error) {
	if input.Title == "" {
		return models.Task{}, ErrInvalidInput
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(input.Priority) {
		return models.Task{}, ErrInvalidInput
	}

	task := models.Task{
		ID:          uuid.Must(uuid.NewV4()),
		UserID:      ownerID,
		Title:       input.Title,
		Description: input.Description,
		Deadline:    input.Deadline,
		Priority:    input.Priority,
		Category:    input.Category,
	}
	if err := db.Create(&task).Error; err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (s *TaskServiceImpl) UpdateTask(db *gorm.DB, id uuid.UUID, ownerID string, patch TaskPatch) (models.Task, error) {
	if patch.Title != nil && *patch.Title == "" {
		return models.Task{}, ErrInvalidInput
	}
	if patch.Priority != nil && !models.ValidPriority(*patch.Priority) {
		return models.Task{}, ErrInvalidInput
	}

	changes := patch.Changes()
	if len(changes) > 0 {
		result := db.Model(&models.Task{}).
			Where("id = ? AND user_id = ?", id, ownerID).
			Updates(changes)
		if result.Error != nil {
			return models.Task{}, result.Error
		}
		if result.RowsAffected == 0 {
			return models.Task{}, gorm.ErrRecordNotFound
		}
	}

	var task models.Task
	result := db.Where("id = ? AND user_id = ?", id, ownerID).First(&task)
	return task, result.Error
}

func (s *TaskServiceImpl) DeleteTask(db *gorm.DB, id uuid.UUID, ownerID string) error {
	result := db.Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
