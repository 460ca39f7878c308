package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/glyphcard/internal/cache"
	"github.com/MrWong99/glyphcard/internal/observe"
)

type payload struct {
	Text string `json:"text"`
	Tier int    `json:"tier"`
}

func TestTyped_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	typed := cache.NewTyped[payload](cache.NewMemory(4, time.Hour), 0)

	if _, ok, err := typed.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("Get on empty = ok %v, err %v", ok, err)
	}
	want := payload{Text: "ˈhalo", Tier: 1}
	if err := typed.Set(ctx, "k", want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := typed.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get = ok %v, err %v", ok, err)
	}
	if got != want {
		t.Errorf("Get = %+v, want %+v", got, want)
	}
}

func TestTyped_CorruptEntryIsDropped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	raw := cache.NewMemory(4, time.Hour)
	_ = raw.Set(ctx, "k", []byte("{not json"), 0)

	typed := cache.NewTyped[payload](raw, 0)
	_, ok, err := typed.Get(ctx, "k")
	if ok || err == nil {
		t.Fatalf("Get = ok %v, err %v; want miss with error", ok, err)
	}
	if raw.Len() != 0 {
		t.Error("corrupt entry should have been deleted")
	}
}

func TestTyped_NilRawIsNop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	typed := cache.NewTyped[payload](nil, 0)
	if err := typed.Set(ctx, "k", payload{Text: "x"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, _ := typed.Get(ctx, "k"); ok {
		t.Error("nop-backed Typed should always miss")
	}
}

// failingCache returns an error from every Get.
type failingCache struct{ cache.Nop }

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("backend down")
}

func TestInstrument_CountsLookups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	mem := cache.Instrument(cache.NewMemory(4, time.Hour), "memory", m)
	_ = mem.Set(ctx, "k", []byte("v"), 0)
	_, _, _ = mem.Get(ctx, "k")
	_, _, _ = mem.Get(ctx, "k")
	_, _, _ = mem.Get(ctx, "absent")

	broken := cache.Instrument(failingCache{}, "redis", m)
	_, _, _ = broken.Get(ctx, "k")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != "glyphcard.cache.lookups" {
				continue
			}
			for _, dp := range met.Data.(metricdata.Sum[int64]).DataPoints {
				c, _ := dp.Attributes.Value("cache")
				r, _ := dp.Attributes.Value("result")
				counts[c.AsString()+"/"+r.AsString()] = dp.Value
			}
		}
	}

	want := map[string]int64{"memory/hit": 2, "memory/miss": 1, "redis/error": 1}
	for k, v := range want {
		if counts[k] != v {
			t.Errorf("lookups[%s] = %d, want %d (all: %v)", k, counts[k], v, counts)
		}
	}
}
