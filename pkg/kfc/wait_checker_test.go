package kfc

import (
	"context"
	"testing"
	"time"
)

// Scenario 6: continuous thinking progression.
func TestWaitChecker_ProgressesThroughThresholds(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.ContinuousThinking.ProgressThresholds = []float64{0.3, 0.6, 0.85}
	cfg.ContinuousThinking.MinInterval = 30

	store := NewSessionStore(newFakeKV(), cfg.Prompt.MaxLogEntries, nil)
	unlock := store.Lock("s1")
	session, _ := store.GetOrCreate(ctx, "s1")
	startedAt := time.Now().Add(-31 * time.Second)
	session.SetWaiting(WaitingConfig{MaxWaitSeconds: 100, StartedAt: float64(startedAt.Unix())})
	store.Save(ctx, session)
	unlock()

	wc := NewWaitChecker(store, cfg, nil, nil)
	wc.Tick(ctx)

	unlock = store.Lock("s1")
	session, _ = store.GetOrCreate(ctx, "s1")
	unlock()

	if session.WaitingConfig.ThinkingCount != 1 {
		t.Fatalf("ThinkingCount = %d, want 1", session.WaitingConfig.ThinkingCount)
	}
	if len(session.PendingThoughts) != 1 {
		t.Fatalf("PendingThoughts = %v, want 1 entry", session.PendingThoughts)
	}
	if _, ok := session.MentalLog(50).LastOfKind(EventWaitingUpdate); !ok {
		t.Error("expected a WaitingUpdate entry")
	}

	// A second tick immediately after should produce nothing new: progress
	// hasn't reached the next threshold yet, and min_interval hasn't elapsed.
	wc.Tick(ctx)
	unlock = store.Lock("s1")
	session, _ = store.GetOrCreate(ctx, "s1")
	unlock()
	if session.WaitingConfig.ThinkingCount != 1 {
		t.Fatalf("ThinkingCount after rate-limited tick = %d, want still 1", session.WaitingConfig.ThinkingCount)
	}
}

func TestFallbackThoughtBuckets(t *testing.T) {
	tests := []struct {
		progress float64
		want     string
	}{
		{0.1, "还在等待对方回复，先耐心等等。"},
		{0.45, "等了一会儿了，对方可能在忙。"},
		{0.7, "等得有点久了，不知道对方什么时候会回复。"},
		{0.9, "等待时间快到了，看来对方这次可能不会回复了。"},
	}
	for _, tt := range tests {
		if got := fallbackThought(tt.progress); got != tt.want {
			t.Errorf("fallbackThought(%v) = %q, want %q", tt.progress, got, tt.want)
		}
	}
}
