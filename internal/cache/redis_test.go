package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisCache(client), mr
}

func TestRedisCache_SetGet(t *testing.T) {
	c, mr := setupRedisCache(t)
	defer mr.Close()
	defer c.Close()

	entry := testEntry{Title: "Walk dog", Done: true}
	if err := c.Set("entry:1", entry, time.Minute); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	var got testEntry
	if err := c.Get("entry:1", &got); err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Title != "Walk dog" || !got.Done {
		t.Errorf("Get() returned %+v", got)
	}
}

func TestRedisCache_Miss(t *testing.T) {
	c, mr := setupRedisCache(t)
	defer mr.Close()
	defer c.Close()

	var got testEntry
	if err := c.Get("absent", &got); err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}

	// A miss must not trip the breaker.
	if state := c.breaker.State(); state != "closed" {
		t.Errorf("Expected breaker closed after miss, got %s", state)
	}
}

func TestRedisCache_Delete(t *testing.T) {
	c, mr := setupRedisCache(t)
	defer mr.Close()
	defer c.Close()

	c.Set("k", "v", time.Minute)
	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	exists, err := c.Exists("k")
	if err != nil {
		t.Fatalf("Exists() failed: %v", err)
	}
	if exists {
		t.Error("Expected key to be gone after Delete()")
	}
}

func TestRedisCache_DeletePattern(t *testing.T) {
	c, mr := setupRedisCache(t)
	defer mr.Close()
	defer c.Close()

	c.Set("tasks:user:a", "v1", time.Minute)
	c.Set("tasks:user:b", "v2", time.Minute)
	c.Set("other", "v3", time.Minute)

	if err := c.DeletePattern("tasks:user:*"); err != nil {
		t.Fatalf("DeletePattern() failed: %v", err)
	}

	if exists, _ := c.Exists("tasks:user:a"); exists {
		t.Error("Expected tasks:user:a to be deleted")
	}
	if exists, _ := c.Exists("other"); !exists {
		t.Error("Expected other to survive")
	}
}

func TestRedisCache_Health(t *testing.T) {
	c, mr := setupRedisCache(t)
	defer c.Close()

	if err := c.Health(); err != nil {
		t.Errorf("Expected healthy cache, got %v", err)
	}

	mr.Close()
	if err := c.Health(); err == nil {
		t.Error("Expected health check to fail after redis shutdown")
	}
}

func TestRedisCache_DownServerDegradesToMiss(t *testing.T) {
	c, mr := setupRedisCache(t)
	defer c.Close()
	mr.Close()

	var got string
	if err := c.Get("k", &got); err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss with redis down, got %v", err)
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Hour)
	fail := func() error { return errTest }

	cb.Call(fail)
	cb.Call(fail)

	if state := cb.State(); state != "open" {
		t.Errorf("Expected breaker open after %d failures, got %s", 2, state)
	}

	if err := cb.Call(func() error { return nil }); err == nil {
		t.Error("Expected open breaker to reject calls")
	}
}

func TestCircuitBreaker_RecoversAfterReset(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	cb.Call(func() error { return errTest })

	time.Sleep(20 * time.Millisecond)

	if err := cb.Call(func() error { return nil }); err != nil {
		t.Errorf("Expected half-open breaker to allow call, got %v", err)
	}
	if state := cb.State(); state != "closed" {
		t.Errorf("Expected breaker closed after success, got %s", state)
	}
}

var errTest = errors.New("test failure")
