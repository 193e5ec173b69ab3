package optimizer

import (
	"testing"
	"time"
)

func TestResultCache_TTLExpiry(t *testing.T) {
	c := NewResultCache(100)

	calls := 0
	compute := func() (any, error) {
		calls++
		return calls, nil
	}

	v, _ := c.GetOrCompute("k", 20*time.Millisecond, compute)
	if v != 1 {
		t.Errorf("value = %v, want 1", v)
	}
	v, _ = c.GetOrCompute("k", 20*time.Millisecond, compute)
	if v != 1 {
		t.Errorf("cached value = %v, want 1", v)
	}

	time.Sleep(30 * time.Millisecond)
	v, _ = c.GetOrCompute("k", 20*time.Millisecond, compute)
	if v != 2 {
		t.Errorf("recomputed value = %v, want 2", v)
	}
}

func TestResultCache_PruneOldest(t *testing.T) {
	c := NewResultCache(10)

	for i := 0; i < 11; i++ {
		key := string(rune('a' + i))
		c.GetOrCompute(key, time.Minute, func() (any, error) {
			return i, nil
		})
		time.Sleep(2 * time.Millisecond)
	}

	m := c.Metrics()
	// 11 entries tripped the threshold; the oldest 20% (2 of 11) were evicted
	if m.Size != 9 {
		t.Errorf("size after prune = %d, want 9", m.Size)
	}

	// The oldest key must have been the one evicted
	calls := 0
	c.GetOrCompute("a", time.Minute, func() (any, error) {
		calls++
		return nil, nil
	})
	if calls != 1 {
		t.Error("oldest entry should have been pruned")
	}
}

func TestResultCache_Invalidate(t *testing.T) {
	c := NewResultCache(100)

	calls := 0
	compute := func() (any, error) {
		calls++
		return calls, nil
	}
	c.GetOrCompute("k", time.Minute, compute)
	c.Invalidate("k")
	v, _ := c.GetOrCompute("k", time.Minute, compute)
	if v != 2 {
		t.Errorf("value after invalidate = %v, want 2", v)
	}
}

func TestGroupByTier(t *testing.T) {
	groups := GroupByTier([]string{"coder", "architect", "tester", "documenter", "researcher", "mystery"})

	if got := groups[TierLow]; len(got) != 1 || got[0] != "documenter" {
		t.Errorf("low tier = %v", got)
	}
	if got := groups[TierMedium]; len(got) != 3 {
		t.Errorf("medium tier = %v, want coder, tester, and the unknown type", got)
	}
	if got := groups[TierHigh]; len(got) != 2 {
		t.Errorf("high tier = %v", got)
	}
}

func TestBackoffStrategies(t *testing.T) {
	eb := NewExponentialBackoff()
	if eb.NextDelay(0) != time.Second {
		t.Errorf("exponential delay(0) = %v, want 1s", eb.NextDelay(0))
	}
	if eb.NextDelay(2) != 4*time.Second {
		t.Errorf("exponential delay(2) = %v, want 4s", eb.NextDelay(2))
	}
	if eb.NextDelay(20) != time.Minute {
		t.Errorf("exponential delay(20) = %v, want capped at 1m", eb.NextDelay(20))
	}

	lb := &LinearBackoff{BaseDelay: time.Second, MaxDelay: 3 * time.Second}
	if lb.NextDelay(0) != time.Second || lb.NextDelay(1) != 2*time.Second || lb.NextDelay(5) != 3*time.Second {
		t.Error("linear backoff delays wrong")
	}
}
