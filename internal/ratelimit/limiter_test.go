package ratelimit

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func fixedClock(l *Limiter) *time.Time {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.nowFunc = func() time.Time { return now }
	return &now
}

func TestAllow_Burst(t *testing.T) {
	l := NewLimiter(1.0, 3)
	fixedClock(l)

	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Errorf("request %d should be allowed within burst", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("request after burst exhaustion should be rejected")
	}
}

func TestAllow_Refill(t *testing.T) {
	tests := []struct {
		name    string
		rate    float64
		burst   int
		use     int
		advance time.Duration
		allowed int
	}{
		{"full refill", 10, 2, 2, 200 * time.Millisecond, 2},
		{"partial refill", 2, 5, 3, 250 * time.Millisecond, 2},
		{"capped at burst", 100, 3, 3, 10 * time.Second, 3},
		{"zero rate never refills", 0, 2, 2, time.Hour, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLimiter(tt.rate, tt.burst)
			now := fixedClock(l)
			for i := 0; i < tt.use; i++ {
				l.Allow("k")
			}
			*now = now.Add(tt.advance)

			got := 0
			for l.Allow("k") {
				got++
				if got > tt.burst {
					t.Fatal("allowed more than burst")
				}
			}
			if got != tt.allowed {
				t.Errorf("allowed %d after refill, want %d", got, tt.allowed)
			}
		})
	}
}

func TestReserve_ReportsWait(t *testing.T) {
	l := NewLimiter(0.5, 1) // one token every two seconds
	now := fixedClock(l)

	if ok, wait := l.Reserve("k"); !ok || wait != 0 {
		t.Fatalf("first Reserve = (%v, %v), want (true, 0)", ok, wait)
	}
	ok, wait := l.Reserve("k")
	if ok {
		t.Fatal("second Reserve should be rejected")
	}
	if wait != 2*time.Second {
		t.Errorf("wait = %v, want 2s", wait)
	}

	*now = now.Add(500 * time.Millisecond)
	if _, wait := l.Reserve("k"); wait != 1500*time.Millisecond {
		t.Errorf("wait after 500ms = %v, want 1.5s", wait)
	}
}

func TestAllow_IndependentKeys(t *testing.T) {
	l := NewLimiter(1.0, 1)
	fixedClock(l)

	l.Allow("a")
	if l.Allow("a") {
		t.Error("a should be exhausted")
	}
	if !l.Allow("b") {
		t.Error("b has its own bucket")
	}
}

func TestAllow_ConcurrentAccess(t *testing.T) {
	l := NewLimiter(0, 100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("k") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 100 {
		t.Errorf("allowed %d requests, want exactly the burst of 100", allowed)
	}
}

func TestNewToolLimiters(t *testing.T) {
	limiters := NewToolLimiters()

	tests := []struct {
		tool  string
		burst int
	}{
		{"dynpop_simulate", 5},
		{"dynpop_graph_info", 10},
		{"dynpop_runs", 10},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			limiter, ok := limiters[tt.tool]
			if !ok {
				t.Fatalf("missing rate limiter for %s", tt.tool)
			}
			if limiter.burst != tt.burst {
				t.Errorf("burst = %d, want %d", limiter.burst, tt.burst)
			}
		})
	}
}

func TestCheckLimit(t *testing.T) {
	limiters := ToolLimiters{"slow": NewLimiter(1.0/60.0, 1)}
	fixedClock(limiters["slow"])

	if err := CheckLimit(limiters, "unknown_tool"); err != nil {
		t.Errorf("unknown tool should not be limited: %v", err)
	}
	if err := CheckLimit(limiters, "slow"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	err := CheckLimit(limiters, "slow")
	if err == nil {
		t.Fatal("expected rate limit error after burst exhaustion")
	}
	if !strings.Contains(err.Error(), "retry in 1m0s") {
		t.Errorf("error = %q, want retry hint", err)
	}
}
