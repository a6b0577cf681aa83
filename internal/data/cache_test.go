package data

import (
	"context"
	"testing"
	"time"

	"agile-live/internal/model"
)

func TestMemoryCacheExpiry(t *testing.T) {
	now := time.Date(2024, 11, 5, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache(10*time.Minute, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	resp := &model.UnitRatesResponse{Count: 1}
	if err := c.Set(ctx, "k", resp); err != nil {
		t.Fatal(err)
	}
	if got, ok, _ := c.Get(ctx, "k"); !ok || got != resp {
		t.Fatal("expected hit")
	}

	now = now.Add(11 * time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expected expired entry to miss")
	}
	c.sweep()
	if c.Len() != 0 {
		t.Fatalf("len = %d after sweep", c.Len())
	}
}

func TestMemoryCacheClear(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Minute)
	defer c.Close()
	_ = c.Set(context.Background(), "a", &model.UnitRatesResponse{})
	c.Clear()
	if c.Len() != 0 {
		t.Fatal("clear left entries behind")
	}
	c.Close() // idempotent
}

func TestGenerateCacheKey(t *testing.T) {
	day := time.Date(2024, 11, 5, 1, 0, 0, 0, time.UTC)
	p := QueryUnitRatesParams{Tariff: testTariff}

	a := GenerateCacheKey(p, day)
	if a != GenerateCacheKey(p, day.Add(20*time.Hour)) {
		t.Fatal("key should be stable within a day")
	}
	if a == GenerateCacheKey(p, day.Add(24*time.Hour)) {
		t.Fatal("key should change with the day")
	}
	other := p
	other.Tariff.Region = "B"
	if a == GenerateCacheKey(other, day) {
		t.Fatal("key should depend on region")
	}
	if len(a) != 64 {
		t.Fatalf("key length = %d", len(a))
	}
}
