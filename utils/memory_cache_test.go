package utils

import (
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestMemoryCacheExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	var evicted []string
	c := NewMemoryCacheWithClock[int](time.Minute, func(key string, _ int) {
		evicted = append(evicted, key)
	}, clock.now)

	value := func(v int) func() (int, error) { return func() (int, error) { return v, nil } }
	c.GetOrCreate("a", value(1))
	c.GetOrCreate("b", value(2))

	clock.t = clock.t.Add(40 * time.Second)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %v, %v", v, ok)
	}

	// "a" was refreshed at +40s, "b" was not.
	clock.t = clock.t.Add(30 * time.Second)
	c.Cleanup()

	if _, ok := c.Get("b"); ok {
		t.Error("b should have expired")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should still be cached")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Errorf("evicted = %v, want [b]", evicted)
	}
}

func TestMemoryCacheGetOrCreate(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewMemoryCacheWithClock[string](time.Minute, nil, clock.now)

	calls := 0
	create := func() (string, error) {
		calls++
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrCreate("k", create)
		if err != nil || v != "value" {
			t.Fatalf("GetOrCreate = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrCreate("other", func() (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if c.Size() != 1 {
		t.Errorf("size = %d, failed create must not be cached", c.Size())
	}
}

func TestMemoryCacheGetOrCreateEvictsExpiredValue(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	var evicted []string
	c := NewMemoryCacheWithClock[string](time.Minute, func(key string, v string) {
		evicted = append(evicted, key+"="+v)
	}, clock.now)

	c.GetOrCreate("k", func() (string, error) { return "old", nil })
	clock.t = clock.t.Add(2 * time.Minute)

	// No Cleanup ran; the stale value must still be evicted when replaced
	v, err := c.GetOrCreate("k", func() (string, error) { return "new", nil })
	if err != nil || v != "new" {
		t.Fatalf("GetOrCreate = %q, %v", v, err)
	}
	if len(evicted) != 1 || evicted[0] != "k=old" {
		t.Errorf("evicted = %v, want [k=old]", evicted)
	}
	c.Cleanup()
	if len(evicted) != 1 {
		t.Errorf("replacement evicted too: %v", evicted)
	}
}

func TestMemoryCacheKeepWhile(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	busy := map[string]bool{"busy": true}
	var evicted []string
	c := NewMemoryCacheWithClock[string](time.Minute, func(key string, _ string) {
		evicted = append(evicted, key)
	}, clock.now).KeepWhile(func(v string) bool { return busy[v] })

	c.GetOrCreate("a", func() (string, error) { return "busy", nil })
	c.GetOrCreate("b", func() (string, error) { return "idle", nil })

	clock.t = clock.t.Add(2 * time.Minute)
	c.Cleanup()
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("evicted = %v, want [b]", evicted)
	}
	if v, ok := c.Get("a"); !ok || v != "busy" {
		t.Errorf("kept entry lost: %q %v", v, ok)
	}

	busy["busy"] = false
	clock.t = clock.t.Add(2 * time.Minute)
	c.Cleanup()
	if len(evicted) != 2 || evicted[1] != "a" {
		t.Errorf("entry not evicted once released: %v", evicted)
	}
}
