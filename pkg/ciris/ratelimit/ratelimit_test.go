package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

func newTestLimiter(initial, max int) *Adaptive {
	return NewAdaptive(initial, max, slog.New(slog.DiscardHandler))
}

func TestDefaults(t *testing.T) {
	a := NewAdaptive(0, 0, nil)
	if got := a.Rate(); got != DefaultInitialRate {
		t.Errorf("initial rate = %v; want %v", got, DefaultInitialRate)
	}
}

func TestWaitWithinBurst(t *testing.T) {
	a := newTestLimiter(60, 120)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	// The bucket starts full, so a handful of requests must not block.
	for i := 0; i < 5; i++ {
		if err := a.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
}

func TestRecord429HalvesRate(t *testing.T) {
	a := newTestLimiter(60, 120)
	a.Record429()
	if got := a.Rate(); got != 30 {
		t.Errorf("rate after 429 = %v; want 30", got)
	}
	if a.Last429().IsZero() {
		t.Error("Last429 not recorded")
	}
}

func TestRecord429NeverBelowFloor(t *testing.T) {
	a := newTestLimiter(12, 120)
	for i := 0; i < 10; i++ {
		a.Record429()
	}
	if got := a.Rate(); got != minRate {
		t.Errorf("rate = %v; want floor %v", got, minRate)
	}
}

func TestSuccessesRaiseRateGradually(t *testing.T) {
	a := newTestLimiter(60, 120)
	for i := 0; i < increaseThreshold; i++ {
		a.RecordSuccess()
	}
	if got := a.Rate(); got <= 60 {
		t.Errorf("rate after %d successes = %v; want > 60", increaseThreshold, got)
	}
	if got := a.Rate(); got > 120 {
		t.Errorf("rate exceeded max: %v", got)
	}
}

func TestRateCappedAtMax(t *testing.T) {
	a := newTestLimiter(119, 120)
	for round := 0; round < 5; round++ {
		for i := 0; i < increaseThreshold; i++ {
			a.RecordSuccess()
		}
	}
	if got := a.Rate(); got != 120 {
		t.Errorf("rate = %v; want capped at 120", got)
	}
}

func Test429ResetsSuccessCount(t *testing.T) {
	a := newTestLimiter(60, 120)
	for i := 0; i < increaseThreshold-1; i++ {
		a.RecordSuccess()
	}
	a.Record429()
	a.RecordSuccess()
	// One success after a 429 must not trigger an increase.
	if got := a.Rate(); got != 30 {
		t.Errorf("rate = %v; want 30", got)
	}
}

func TestUpdateFromHeaders(t *testing.T) {
	a := newTestLimiter(30, 240)
	h := http.Header{}
	h.Set("X-RateLimit-Limit", "120")
	h.Set("X-RateLimit-Remaining", "100")
	h.Set("X-RateLimit-Window", "60")
	a.UpdateFromHeaders(h)
	if got := a.Rate(); got != 120 {
		t.Errorf("rate after header sync = %v; want 120", got)
	}
}

func TestUpdateFromHeadersIgnoresMalformed(t *testing.T) {
	a := newTestLimiter(30, 120)
	h := http.Header{}
	h.Set("X-RateLimit-Limit", "not-a-number")
	h.Set("X-RateLimit-Remaining", "10")
	a.UpdateFromHeaders(h)
	if got := a.Rate(); got != 30 {
		t.Errorf("rate = %v; want unchanged 30", got)
	}

	// Missing remaining is also ignored.
	h = http.Header{}
	h.Set("X-RateLimit-Limit", "120")
	a.UpdateFromHeaders(h)
	if got := a.Rate(); got != 30 {
		t.Errorf("rate = %v; want unchanged 30", got)
	}
}
