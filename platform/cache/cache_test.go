package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGetLoadsOnceWithinTTL(t *testing.T) {
	c := New[int](time.Minute)
	loads := 0
	load := func(context.Context) (int, error) {
		loads++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.Get(context.Background(), "k", load)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != 42 {
			t.Fatalf("expected 42, got %d", v)
		}
	}

	if loads != 1 {
		t.Fatalf("expected 1 load, got %d", loads)
	}
}

func TestGetReloadsAfterExpiry(t *testing.T) {
	c := New[string](time.Minute)
	current := time.Now()
	c.now = func() time.Time { return current }

	loads := 0
	load := func(context.Context) (string, error) {
		loads++
		return "v", nil
	}

	if _, err := c.Get(context.Background(), "k", load); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	current = current.Add(2 * time.Minute)
	if _, err := c.Get(context.Background(), "k", load); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if loads != 2 {
		t.Fatalf("expected 2 loads after expiry, got %d", loads)
	}
}

func TestFailedLoadIsNotCached(t *testing.T) {
	c := New[int](time.Minute)
	loads := 0
	load := func(context.Context) (int, error) {
		loads++
		if loads == 1 {
			return 0, errors.New("boom")
		}
		return 7, nil
	}

	if _, err := c.Get(context.Background(), "k", load); err == nil {
		t.Fatal("expected error from first load")
	}
	v, err := c.Get(context.Background(), "k", load)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 7 {
		t.Fatalf("expected 7, got %d", v)
	}
}

func TestInvalidate(t *testing.T) {
	c := New[int](time.Minute)
	loads := 0
	load := func(context.Context) (int, error) {
		loads++
		return loads, nil
	}

	if _, err := c.Get(context.Background(), "k", load); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Invalidate("k")
	v, err := c.Get(context.Background(), "k", load)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 2 {
		t.Fatalf("expected reload after invalidate, got %d", v)
	}
}
