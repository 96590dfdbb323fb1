package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func staticSource(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

func TestGatewayAttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, staticSource("secret-token"))
	if _, err := gw.ListTasks(context.Background()); err != nil {
		t.Fatalf("ListTasks: %v", err)
	}

	if gotAuth != "Bearer secret-token" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
}

func TestGatewayListDecodesTasks(t *testing.T) {
	deadline := time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/tasks" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]Task{
			{ID: "t1", Title: "one", Priority: PriorityHigh, Deadline: &deadline},
		})
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, staticSource("tok"))
	tasks, err := gw.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "t1" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
	if tasks[0].Deadline == nil || !tasks[0].Deadline.Equal(deadline) {
		t.Fatalf("deadline did not round-trip: %v", tasks[0].Deadline)
	}
}

func TestGatewayCreateSendsInputAndReturnsCanonical(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/tasks" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var input TaskInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			t.Errorf("decode input: %v", err)
		}
		if input.Title != "Buy milk" || input.Priority != PriorityLow {
			t.Errorf("unexpected input: %+v", input)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Task{ID: "srv-1", Title: input.Title, Priority: input.Priority})
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, staticSource("tok"))
	task, err := gw.CreateTask(context.Background(), TaskInput{Title: "Buy milk", Priority: PriorityLow})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID != "srv-1" {
		t.Fatalf("expected canonical task from server, got %+v", task)
	}
}

func TestGatewayPatchOmitsUnsetFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/tasks/t1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode patch: %v", err)
		}
		if len(body) != 1 {
			t.Errorf("expected exactly one field in patch, got %v", body)
		}
		if body["completed"] != true {
			t.Errorf("expected completed=true, got %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Task{ID: "t1", Title: "kept", Completed: true})
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, staticSource("tok"))
	task, err := gw.UpdateTask(context.Background(), "t1", TaskPatch{Completed: Bool(true)})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if !task.Completed || task.Title != "kept" {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestGatewayDeleteNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/tasks/t1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, staticSource("tok"))
	if err := gw.DeleteTask(context.Background(), "t1"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
}

func TestGatewayErrorCarriesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "Task not found"}`))
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, staticSource("tok"))
	err := gw.DeleteTask(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Message != "Task not found" {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}
	if !IsNotFound(err) {
		t.Fatal("IsNotFound should match")
	}
}

func TestGatewayErrorFallbackMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>upstream broke</html>"))
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, staticSource("tok"))
	_, err := gw.ListTasks(context.Background())
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Message != http.StatusText(http.StatusBadGateway) {
		t.Fatalf("expected generic fallback message, got %q", apiErr.Message)
	}
	if !strings.Contains(apiErr.Error(), "502") {
		t.Fatalf("error string should carry the status, got %q", apiErr.Error())
	}
}

func TestGatewayUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "No token provided"}`))
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, staticSource(""))
	_, err := gw.ListTasks(context.Background())
	if !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
