package cache

import (
	"testing"
	"time"
)

func TestTTLCacheSetGetDelete(t *testing.T) {
	c, err := NewTTLCache[string](1<<10, time.Hour)
	if err != nil {
		t.Fatalf("NewTTLCache: %v", err)
	}
	defer c.Close()

	if !c.Set("room:route:u1", "room_1") {
		t.Fatalf("Set 被丢弃")
	}
	c.Wait()

	got, ok := c.Get("room:route:u1")
	if !ok || got != "room_1" {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	c.Delete("room:route:u1")
	c.Wait()
	if _, ok := c.Get("room:route:u1"); ok {
		t.Fatalf("删除后仍能读到")
	}
}

func TestTTLCacheExpires(t *testing.T) {
	c, err := NewTTLCache[int](1<<10, time.Hour)
	if err != nil {
		t.Fatalf("NewTTLCache: %v", err)
	}
	defer c.Close()

	c.SetWithTTL("n", 42, 50*time.Millisecond)
	c.Wait()
	if v, ok := c.Get("n"); !ok || v != 42 {
		t.Fatalf("Get = %d, %v", v, ok)
	}
	time.Sleep(100 * time.Millisecond)
	if _, ok := c.Get("n"); ok {
		t.Fatalf("过期后不应读到")
	}
}

func TestNewTTLCacheBadSize(t *testing.T) {
	if _, err := NewTTLCache[string](0, time.Hour); err == nil {
		t.Fatalf("容量为 0 应返回错误")
	}
}
