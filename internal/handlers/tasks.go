package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"

	"taskify/internal/middleware"
	"taskify/internal/services"
	"taskify/internal/utils"
)

type TaskHandler struct {
	db          *gorm.DB
	taskService services.TaskService
}

func NewTaskHandler(db *gorm.DB, taskService services.TaskService) *TaskHandler {
	return &TaskHandler{db: db, taskService: taskService}
}

// GetTasks returns every task owned by the caller.
func (h *TaskHandler) GetTasks(c *gin.Context) {
	owner := middleware.Subject(c)

	tasks, err := h.taskService.ListTasks(h.db, owner)
	if err != nil {
		log.Printf("list tasks failed for %s: %v", owner, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch tasks"})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// CreateTask creates a task owned by the caller. Any owner value in the body
// is ignored; the subject from the verified credential wins.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	owner := middleware.Subject(c)

	var input services.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Failed to create task"})
		return
	}

	task, err := h.taskService.CreateTask(h.db, owner, input)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Failed to create task"})
			return
		}
		log.Printf("create task failed for %s: %v", owner, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create task"})
		return
	}
	c.JSON(http.StatusCreated, task)
}

// UpdateTask applies a partial update to a task owned by the caller and
// returns the canonical entity. Cross-owner ids answer 404, same as unknown
// ids.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	owner := middleware.Subject(c)

	idStr := c.Param("id")
	if !utils.IsValidUUID(idStr) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
		return
	}
	id := uuid.FromStringOrNil(idStr)

	var patch services.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Failed to update task"})
		return
	}

	task, err := h.taskService.UpdateTask(h.db, id, owner, patch)
	if err != nil {
		handleTaskError(c, owner, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTask permanently removes a task owned by the caller.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	owner := middleware.Subject(c)

	idStr := c.Param("id")
	if !utils.IsValidUUID(idStr) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
		return
	}
	id := uuid.FromStringOrNil(idStr)

	if err := h.taskService.DeleteTask(h.db, id, owner); err != nil {
		handleTaskError(c, owner, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func handleTaskError(c *gin.Context, owner string, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Failed to update task"})
	default:
		log.Printf("task request failed for %s: %v", owner, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to process task request"})
	}
}
