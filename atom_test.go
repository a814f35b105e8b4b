package openfetch

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestAtom_GetSet(t *testing.T) {
	atom := NewAtom(42)

	if got := atom.Get(); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}

	atom.Set(100)
	if got := atom.Get(); got != 100 {
		t.Errorf("expected 100, got %d", got)
	}
}

func TestAtom_Update(t *testing.T) {
	atom := NewAtom(10)

	atom.Update(func(v int) int {
		return v * 2
	})

	if got := atom.Get(); got != 20 {
		t.Errorf("expected 20, got %d", got)
	}
}

func TestAtom_Subscribe(t *testing.T) {
	atom := NewAtom("initial")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var values []string
	done := make(chan struct{})

	go func() {
		for v := range atom.Subscribe(ctx) {
			values = append(values, v)
			if v == "third" {
				cancel()
			}
		}
		close(done)
	}()

	// Give subscriber time to start
	time.Sleep(10 * time.Millisecond)

	atom.Set("second")
	time.Sleep(10 * time.Millisecond)
	atom.Set("third")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("subscriber didn't complete")
	}

	if len(values) < 2 {
		t.Fatalf("expected at least 2 values, got %d: %v", len(values), values)
	}
	if values[0] != "initial" {
		t.Errorf("expected first value 'initial', got %q", values[0])
	}
	if values[len(values)-1] != "third" {
		t.Errorf("expected last value 'third', got %q", values[len(values)-1])
	}
}

func TestAtom_Changes(t *testing.T) {
	atom := NewAtom(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := atom.Changes(ctx)
	atom.Set(2)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected change notification")
	}
}

func TestAtom_ConcurrentAccess(t *testing.T) {
	atom := NewAtom(0)
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			atom.Update(func(v int) int { return v + 1 })
			_ = atom.Get()
		}()
	}
	wg.Wait()
	if got := atom.Get(); got != 50 {
		t.Errorf("expected 50, got %d", got)
	}
}

func TestUnwrap(t *testing.T) {
	id := NewAtom(7)
	name := Computed(func() any { return "rex" })

	got := Unwrap(map[string]any{
		"id":   id,
		"tags": []any{name, "plain"},
	}).(map[string]any)

	if got["id"] != 7 {
		t.Errorf("expected id 7, got %v", got["id"])
	}
	tags := got["tags"].([]any)
	if tags[0] != "rex" || tags[1] != "plain" {
		t.Errorf("unexpected tags %v", tags)
	}
	if Unwrap(3) != 3 {
		t.Error("expected plain values to pass through")
	}
}
