package kfc

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestSessionStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()

	store1 := NewSessionStore(kv, 50, nil)
	unlock := store1.Lock("s1")
	session, err := store1.GetOrCreate(ctx, "s1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	session.AddUserMessage("你好", "用户", "u1", float64(time.Now().Unix()), 50)
	session.TotalInteractions = 3
	if err := store1.Save(ctx, session); err != nil {
		t.Fatalf("Save: %v", err)
	}
	unlock()

	// A fresh store instance backed by the same kv document must see the
	// persisted state rather than starting a blank session.
	store2 := NewSessionStore(kv, 50, nil)
	unlock = store2.Lock("s1")
	defer unlock()
	reloaded, err := store2.GetOrCreate(ctx, "s1")
	if err != nil {
		t.Fatalf("GetOrCreate on reloaded store: %v", err)
	}
	if reloaded.TotalInteractions != 3 {
		t.Errorf("TotalInteractions = %d, want 3", reloaded.TotalInteractions)
	}
	if _, ok := reloaded.MentalLog(50).LastOfKind(EventUserMessage); !ok {
		t.Error("expected the persisted UserMessage mental log entry to survive the round trip")
	}
}

func TestSessionStore_PerStreamLocksDoNotCollide(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(newFakeKV(), 50, nil)

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(streamID string) {
			defer wg.Done()
			unlock := store.Lock(streamID)
			defer unlock()
			session, err := store.GetOrCreate(ctx, streamID)
			if err != nil {
				t.Errorf("GetOrCreate(%s): %v", streamID, err)
				return
			}
			session.TotalInteractions++
			_ = store.Save(ctx, session)
		}(id)
	}
	wg.Wait()

	if len(store.GetAllCached()) != 3 {
		t.Fatalf("GetAllCached() len = %d, want 3", len(store.GetAllCached()))
	}
}
