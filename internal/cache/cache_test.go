package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestGetOrRefresh(t *testing.T) {
	clock := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	c := New[string, int]()
	c.Now = func() time.Time { return clock }

	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		return calls * 10, nil
	}
	ctx := context.Background()

	v, err := c.GetOrRefresh(ctx, "k", time.Minute, load)
	if err != nil || v != 10 {
		t.Fatalf("first = %d, %v; want 10", v, err)
	}
	v, _ = c.GetOrRefresh(ctx, "k", time.Minute, load)
	if v != 10 || calls != 1 {
		t.Errorf("cached = %d after %d loads; want 10 after 1", v, calls)
	}

	clock = clock.Add(time.Minute)
	v, _ = c.GetOrRefresh(ctx, "k", time.Minute, load)
	if v != 20 || calls != 2 {
		t.Errorf("after expiry = %d after %d loads; want 20 after 2", v, calls)
	}
}

func TestInvalidate(t *testing.T) {
	c := New[string, string]()
	ctx := context.Background()
	n := 0
	load := func(context.Context) (string, error) {
		n++
		return "v", nil
	}
	c.GetOrRefresh(ctx, "k", time.Hour, load)
	c.Invalidate("k")
	if c.Len() != 0 {
		t.Errorf("Len = %d after invalidate, want 0", c.Len())
	}
	c.GetOrRefresh(ctx, "k", time.Hour, load)
	if n != 2 {
		t.Errorf("loads = %d, want 2", n)
	}
	c.Invalidate("missing")
}

func TestInvalidate_DuringLoad(t *testing.T) {
	c := New[string, string]()
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan string)
	go func() {
		v, _ := c.GetOrRefresh(ctx, "k", time.Hour, func(context.Context) (string, error) {
			close(started)
			<-release
			return "stale", nil
		})
		done <- v
	}()

	<-started
	c.Invalidate("k")
	close(release)
	if v := <-done; v != "stale" {
		t.Errorf("in-flight caller got %q, want its own load result", v)
	}

	v, err := c.GetOrRefresh(ctx, "k", time.Hour, func(context.Context) (string, error) {
		return "fresh", nil
	})
	if err != nil || v != "fresh" {
		t.Errorf("after invalidate = %q, %v; want fresh", v, err)
	}
}

func TestGetOrRefresh_LoadError(t *testing.T) {
	c := New[int, string]()
	ctx := context.Background()
	if _, err := c.GetOrRefresh(ctx, 1, time.Hour, func(context.Context) (string, error) { return "", errors.New("boom") }); err == nil {
		t.Fatal("expected error")
	}
	if c.Len() != 0 {
		t.Errorf("failed load was cached")
	}
}

func TestZeroValueCache(t *testing.T) {
	var c Cache[string, int]
	v, err := c.GetOrRefresh(context.Background(), "k", time.Hour, func(context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Errorf("zero-value cache = %d, %v", v, err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int, int]()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.GetOrRefresh(ctx, i%3, time.Hour, func(context.Context) (int, error) { return i, nil })
			if i%5 == 0 {
				c.Invalidate(i % 3)
			}
		}()
	}
	wg.Wait()
}
