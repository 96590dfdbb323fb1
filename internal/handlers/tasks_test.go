package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskify/internal/middleware"
	"taskify/internal/models"
	"taskify/internal/services"
)

const testSecret = "handler_test_secret"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Task{}, &models.Token{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// newTestRouter wires the real middleware and handlers the way main.go does.
func newTestRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()

	authService := services.NewAuthService(testSecret, time.Hour, 24*time.Hour)
	authHandler := NewAuthHandler(db, authService, services.NewRegisterService())
	taskHandler := NewTaskHandler(db, services.NewTaskService())

	api := router.Group("/api")
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/refresh", authHandler.Refresh)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(services.NewTokenVerifier(testSecret)))
	{
		protected.GET("/tasks", taskHandler.GetTasks)
		protected.POST("/tasks", taskHandler.CreateTask)
		protected.PATCH("/tasks/:id", taskHandler.UpdateTask)
		protected.DELETE("/tasks/:id", taskHandler.DeleteTask)
	}

	return router
}

func doJSON(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func registerAndLogin(t *testing.T, router *gin.Engine, email string) string {
	t.Helper()

	w := doJSON(router, "POST", "/api/auth/register", "", gin.H{
		"email":    email,
		"password": "password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register failed with status %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("register response missing token: %s", w.Body.String())
	}
	return resp.Token
}

func TestTaskLifecycle(t *testing.T) {
	db := newTestDB(t)
	router := newTestRouter(t, db)
	token := registerAndLogin(t, router, "a@example.com")

	// Create.
	w := doJSON(router, "POST", "/api/tasks", token, gin.H{
		"title":    "Buy milk",
		"priority": "low",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created models.Task
	json.Unmarshal(w.Body.Bytes(), &created)
	if created.Completed {
		t.Error("Expected new task to be incomplete")
	}
	if created.Priority != "low" {
		t.Errorf("Expected priority low, got %s", created.Priority)
	}
	if created.ID.String() == "" || created.CreatedAt.IsZero() {
		t.Error("Expected server-assigned id and timestamps")
	}

	taskPath := fmt.Sprintf("/api/tasks/%s", created.ID)

	// Patch completion.
	w = doJSON(router, "PATCH", taskPath, token, gin.H{"completed": true})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated models.Task
	json.Unmarshal(w.Body.Bytes(), &updated)
	if !updated.Completed {
		t.Error("Expected completed=true after patch")
	}
	if updated.Title != "Buy milk" {
		t.Errorf("Expected title unchanged, got %s", updated.Title)
	}

	// Delete.
	w = doJSON(router, "DELETE", taskPath, token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Expected empty body on 204, got %q", w.Body.String())
	}

	// Task is gone from the list.
	w = doJSON(router, "GET", "/api/tasks", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var tasks []models.Task
	json.Unmarshal(w.Body.Bytes(), &tasks)
	if len(tasks) != 0 {
		t.Errorf("Expected empty list after delete, got %d tasks", len(tasks))
	}

	// Second delete of the same id is 404.
	w = doJSON(router, "DELETE", taskPath, token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for second delete, got %d", w.Code)
	}
}

func TestCreateTask_MissingTitle(t *testing.T) {
	db := newTestDB(t)
	router := newTestRouter(t, db)
	token := registerAndLogin(t, router, "a@example.com")

	w := doJSON(router, "POST", "/api/tasks", token, gin.H{"priority": "high"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing title, got %d", w.Code)
	}

	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["message"] == "" {
		t.Error("Expected a message field in the error body")
	}
}

func TestCreateTask_OwnerFromTokenNotBody(t *testing.T) {
	db := newTestDB(t)
	router := newTestRouter(t, db)
	token := registerAndLogin(t, router, "a@example.com")

	// A client-supplied owner value must be ignored.
	w := doJSON(router, "POST", "/api/tasks", token, gin.H{
		"title":   "sneaky",
		"user_id": "someone-else",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var stored models.Task
	if err := db.First(&stored).Error; err != nil {
		t.Fatalf("failed to read stored task: %v", err)
	}
	if stored.UserID == "someone-else" || stored.UserID == "" {
		t.Errorf("Expected owner from token subject, got %q", stored.UserID)
	}
}

func TestTasks_OwnerIsolation(t *testing.T) {
	db := newTestDB(t)
	router := newTestRouter(t, db)
	tokenA := registerAndLogin(t, router, "a@example.com")
	tokenB := registerAndLogin(t, router, "b@example.com")

	w := doJSON(router, "POST", "/api/tasks", tokenB, gin.H{"title": "b's task"})
	var bTask models.Task
	json.Unmarshal(w.Body.Bytes(), &bTask)
	bPath := fmt.Sprintf("/api/tasks/%s", bTask.ID)

	// A cannot see B's task.
	w = doJSON(router, "GET", "/api/tasks", tokenA, nil)
	var tasks []models.Task
	json.Unmarshal(w.Body.Bytes(), &tasks)
	if len(tasks) != 0 {
		t.Errorf("Expected A to see no tasks, got %d", len(tasks))
	}

	// A's update of B's task is 404, never 403.
	w = doJSON(router, "PATCH", bPath, tokenA, gin.H{"completed": true})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for cross-owner patch, got %d", w.Code)
	}

	// A's delete of B's task is 404.
	w = doJSON(router, "DELETE", bPath, tokenA, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for cross-owner delete, got %d", w.Code)
	}

	// B's task is untouched.
	w = doJSON(router, "GET", "/api/tasks", tokenB, nil)
	json.Unmarshal(w.Body.Bytes(), &tasks)
	if len(tasks) != 1 || tasks[0].Completed {
		t.Errorf("Expected B's task unchanged, got %+v", tasks)
	}
}

func TestTasks_RequireAuth(t *testing.T) {
	db := newTestDB(t)
	router := newTestRouter(t, db)

	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/tasks"},
		{"POST", "/api/tasks"},
		{"PATCH", "/api/tasks/6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{"DELETE", "/api/tasks/6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
	}

	for _, ep := range endpoints {
		w := doJSON(router, ep.method, ep.path, "", gin.H{})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401 without credential, got %d", ep.method, ep.path, w.Code)
		}
		var body map[string]string
		json.Unmarshal(w.Body.Bytes(), &body)
		if body["message"] != "No token provided" {
			t.Errorf("%s %s: expected uniform message, got %q", ep.method, ep.path, body["message"])
		}
	}

	// Garbage token gets the other uniform message.
	w := doJSON(router, "GET", "/api/tasks", "garbage", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for garbage token, got %d", w.Code)
	}
}

func TestUpdateTask_MalformedIDIs404(t *testing.T) {
	db := newTestDB(t)
	router := newTestRouter(t, db)
	token := registerAndLogin(t, router, "a@example.com")

	w := doJSON(router, "PATCH", "/api/tasks/not-a-uuid", token, gin.H{"completed": true})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for malformed id, got %d", w.Code)
	}
}

func TestCreateTask_RoundTripFields(t *testing.T) {
	db := newTestDB(t)
	router := newTestRouter(t, db)
	token := registerAndLogin(t, router, "a@example.com")

	deadline := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	w := doJSON(router, "POST", "/api/tasks", token, gin.H{
		"title":       "Quarterly report",
		"description": "Draft and circulate",
		"deadline":    deadline.Format(time.RFC3339),
		"priority":    "high",
		"category":    "work",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(router, "GET", "/api/tasks", token, nil)
	var tasks []models.Task
	json.Unmarshal(w.Body.Bytes(), &tasks)
	if len(tasks) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(tasks))
	}

	got := tasks[0]
	if got.Title != "Quarterly report" || got.Description != "Draft and circulate" {
		t.Errorf("Round trip lost fields: %+v", got)
	}
	if got.Priority != "high" || got.Category != "work" {
		t.Errorf("Round trip lost priority/category: %+v", got)
	}
	if got.Deadline == nil || !got.Deadline.Equal(deadline) {
		t.Errorf("Round trip lost deadline: %v", got.Deadline)
	}
}

func TestAuth_LoginAndRefresh(t *testing.T) {
	db := newTestDB(t)
	router := newTestRouter(t, db)
	registerAndLogin(t, router, "a@example.com")

	// Wrong password and unknown email answer the same way.
	w := doJSON(router, "POST", "/api/auth/login", "", gin.H{
		"email":    "a@example.com",
		"password": "wrongpassword",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong password, got %d", w.Code)
	}
	w = doJSON(router, "POST", "/api/auth/login", "", gin.H{
		"email":    "nobody@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for unknown email, got %d", w.Code)
	}

	// Real login, then exchange the refresh token.
	w = doJSON(router, "POST", "/api/auth/login", "", gin.H{
		"email":    "a@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for login, got %d: %s", w.Code, w.Body.String())
	}
	var loginResp struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refresh_token"`
	}
	json.Unmarshal(w.Body.Bytes(), &loginResp)

	w = doJSON(router, "POST", "/api/auth/refresh", "", gin.H{"refresh_token": loginResp.RefreshToken})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for refresh, got %d: %s", w.Code, w.Body.String())
	}
	var refreshResp struct {
		Token string `json:"token"`
	}
	json.Unmarshal(w.Body.Bytes(), &refreshResp)

	// The new access token works against the task routes.
	w = doJSON(router, "GET", "/api/tasks", refreshResp.Token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected refreshed token to be accepted, got %d", w.Code)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	router := newTestRouter(t, db)
	registerAndLogin(t, router, "a@example.com")

	w := doJSON(router, "POST", "/api/auth/register", "", gin.H{
		"email":    "a@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for duplicate email, got %d", w.Code)
	}
}
