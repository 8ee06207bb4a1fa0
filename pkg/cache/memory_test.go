package cache

import (
	"context"
	"math"
	"testing"
)

func TestPutAndGet(t *testing.T) {
	c := NewMemory(0)
	ctx := context.Background()

	if err := c.Put(ctx, Key{"hello", 50, 0.7}, "world"); err != nil {
		t.Fatal(err)
	}

	text, ok, err := c.Get(ctx, Key{"hello", 50, 0.7})
	if err != nil {
		t.Fatal(err)
	}
	if !ok || text != "world" {
		t.Errorf("expected hit with world, got %q (ok=%v)", text, ok)
	}
}

func TestKeySensitivity(t *testing.T) {
	c := NewMemory(0)
	ctx := context.Background()

	_ = c.Put(ctx, Key{"hello", 50, 0.7}, "world")

	misses := []Key{
		{"hello", 50, 0.8},
		{"hello", 51, 0.7},
		{"hello ", 50, 0.7},
		{"Hello", 50, 0.7},
		{"hello", 50, 0.70000001},
	}
	for _, k := range misses {
		if _, ok, _ := c.Get(ctx, k); ok {
			t.Errorf("expected miss for %+v", k)
		}
	}

	_ = c.Put(ctx, Key{"hello", 50, 0.8}, "other")
	if text, _, _ := c.Get(ctx, Key{"hello", 50, 0.7}); text != "world" {
		t.Errorf("write under 0.8 leaked into 0.7: %q", text)
	}
}

func TestPutOverwrites(t *testing.T) {
	c := NewMemory(0)
	ctx := context.Background()
	k := Key{"p", 10, 0.5}

	_ = c.Put(ctx, k, "first")
	_ = c.Put(ctx, k, "second")

	if text, _, _ := c.Get(ctx, k); text != "second" {
		t.Errorf("expected second, got %q", text)
	}
	if n, _ := c.Size(ctx); n != 1 {
		t.Errorf("expected 1 entry, got %d", n)
	}
}

func TestClear(t *testing.T) {
	c := NewMemory(0)
	ctx := context.Background()

	_ = c.Put(ctx, Key{"a", 1, 0.1}, "x")
	_ = c.Put(ctx, Key{"b", 1, 0.1}, "y")

	n, err := c.Clear(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
	if size, _ := c.Size(ctx); size != 0 {
		t.Errorf("expected empty cache, got %d", size)
	}
}

func TestUnboundedGrowth(t *testing.T) {
	c := NewMemory(0)
	ctx := context.Background()

	for i := range 1000 {
		_ = c.Put(ctx, Key{"p", i, 0.7}, "x")
	}
	if n, _ := c.Size(ctx); n != 1000 {
		t.Errorf("expected 1000 entries, got %d", n)
	}
}

func TestBoundedEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewMemory(2)
	ctx := context.Background()

	_ = c.Put(ctx, Key{"a", 1, 0.7}, "A")
	_ = c.Put(ctx, Key{"b", 1, 0.7}, "B")
	_, _, _ = c.Get(ctx, Key{"a", 1, 0.7})
	_ = c.Put(ctx, Key{"c", 1, 0.7}, "C")

	if _, ok, _ := c.Get(ctx, Key{"b", 1, 0.7}); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok, _ := c.Get(ctx, Key{"a", 1, 0.7}); !ok {
		t.Error("expected a to survive")
	}
	if n, _ := c.Size(ctx); n != 2 {
		t.Errorf("expected 2 entries, got %d", n)
	}

	n, _ := c.Clear(ctx)
	if n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
}

func TestStats(t *testing.T) {
	c := NewMemory(0)
	ctx := context.Background()

	_ = c.Put(ctx, Key{"h1", 1, 0.7}, "data")
	_, _, _ = c.Get(ctx, Key{"h1", 1, 0.7}) // hit
	_, _, _ = c.Get(ctx, Key{"h2", 1, 0.7}) // miss

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 1 {
		t.Errorf("expected 1 entry, got %d", stats.Entries)
	}
	if stats.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
}

func TestKeyHash(t *testing.T) {
	k := Key{"hello", 50, 0.7}
	if k.Hash() != (Key{"hello", 50, 0.7}).Hash() {
		t.Error("same key should produce same hash")
	}
	if k.Hash() == (Key{"hello", 50, 0.70000001}).Hash() {
		t.Error("different temperature should produce different hash")
	}
	if k.Hash() == (Key{"hello", 5, 0.7}).Hash() {
		t.Error("different max length should produce different hash")
	}
	if (Key{"p", 1, 0}).Hash() != (Key{"p", 1, math.Copysign(0, -1)}).Hash() {
		t.Error("signed zero should hash like zero")
	}
}

func TestPeekDoesNotCount(t *testing.T) {
	for _, size := range []int{0, 4} {
		c := NewMemory(size)
		ctx := context.Background()
		_ = c.Put(ctx, Key{"p", 1, 0.7}, "text")

		if text, ok, _ := c.Peek(ctx, Key{"p", 1, 0.7}); !ok || text != "text" {
			t.Errorf("size %d: expected peek hit, got %q %v", size, text, ok)
		}
		if _, ok, _ := c.Peek(ctx, Key{"q", 1, 0.7}); ok {
			t.Errorf("size %d: expected peek miss", size)
		}

		stats, _ := c.Stats(ctx)
		if stats.Hits != 0 || stats.Misses != 0 {
			t.Errorf("size %d: peek changed counters: %+v", size, stats)
		}
	}
}

func TestNaNTemperatureMatches(t *testing.T) {
	for _, size := range []int{0, 4} {
		c := NewMemory(size)
		ctx := context.Background()

		_ = c.Put(ctx, Key{"p", 1, math.NaN()}, "first")
		_ = c.Put(ctx, Key{"p", 1, math.NaN()}, "second")

		if n, _ := c.Size(ctx); n != 1 {
			t.Errorf("size %d: NaN keys should share one entry, got %d", size, n)
		}
		if text, ok, _ := c.Get(ctx, Key{"p", 1, math.NaN()}); !ok || text != "second" {
			t.Errorf("size %d: expected NaN hit with latest text, got %q %v", size, text, ok)
		}
	}
}
