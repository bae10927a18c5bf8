package kfc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SessionStore is the in-memory session cache plus persistent backing store,
// with one mutex per stream_id serializing the main dialogue loop against
// background scheduler callbacks.
//
// The stream-mutex map itself is guarded by a short-held guardMu only while
// creating or looking up a stream's mutex — never while a per-stream
// critical section is open — so unrelated streams never contend on it.
type SessionStore struct {
	kv            KVStore
	logger        *slog.Logger
	maxLogEntries int

	guardMu sync.Mutex
	locks   map[string]*sync.Mutex

	cacheMu sync.RWMutex
	cache   map[string]*Session
}

// NewSessionStore creates a store backed by kv.
func NewSessionStore(kv KVStore, maxLogEntries int, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	if maxLogEntries <= 0 {
		maxLogEntries = DefaultMaxLogEntries
	}
	return &SessionStore{
		kv:            kv,
		logger:        logger,
		maxLogEntries: maxLogEntries,
		locks:         make(map[string]*sync.Mutex),
		cache:         make(map[string]*Session),
	}
}

func (st *SessionStore) streamMutex(streamID string) *sync.Mutex {
	st.guardMu.Lock()
	defer st.guardMu.Unlock()
	m, ok := st.locks[streamID]
	if !ok {
		m = &sync.Mutex{}
		st.locks[streamID] = m
	}
	return m
}

// Lock acquires the per-stream mutex and returns an unlock func. Callers
// must hold it across the full read-mutate-save sequence for streamID.
func (st *SessionStore) Lock(streamID string) func() {
	m := st.streamMutex(streamID)
	m.Lock()
	return m.Unlock
}

// GetOrCreate returns the cached session for streamID, loading it from the
// backing store (or creating a fresh one) on first access. Caller must hold
// Lock(streamID).
func (st *SessionStore) GetOrCreate(ctx context.Context, streamID string) (*Session, error) {
	st.cacheMu.RLock()
	s, ok := st.cache[streamID]
	st.cacheMu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := st.load(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = NewSession(streamID, st.maxLogEntries, time.Now())
	}

	st.cacheMu.Lock()
	st.cache[streamID] = s
	st.cacheMu.Unlock()
	return s, nil
}

func (st *SessionStore) load(ctx context.Context, streamID string) (*Session, error) {
	doc, ok, err := st.kv.Load(ctx, streamID)
	if err != nil {
		st.logger.Warn("session load failed, starting fresh", "stream_id", streamID, "error", err)
		return nil, nil
	}
	if !ok {
		return nil, nil
	}
	var s Session
	if err := json.Unmarshal(doc, &s); err != nil {
		st.logger.Warn("session document corrupt, starting fresh", "stream_id", streamID, "error", err)
		return nil, nil
	}
	s.log = FromList(s.MentalLogRecords, st.maxLogEntries)
	return &s, nil
}

// Save writes session through to the backing store. A transient IO error is
// logged and swallowed; the in-memory value remains authoritative and the
// next Save attempt will retry.
func (st *SessionStore) Save(ctx context.Context, session *Session) error {
	session.syncRecords()
	doc, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.StreamID, err)
	}
	if err := st.kv.Save(ctx, session.StreamID, doc); err != nil {
		st.logger.Warn("session save failed, will retry on next mutation", "stream_id", session.StreamID, "error", err)
	}

	st.cacheMu.Lock()
	st.cache[session.StreamID] = session
	st.cacheMu.Unlock()
	return nil
}

// GetAllCached returns a snapshot of the in-memory sessions map for
// scheduler enumeration.
func (st *SessionStore) GetAllCached() []*Session {
	st.cacheMu.RLock()
	defer st.cacheMu.RUnlock()
	out := make([]*Session, 0, len(st.cache))
	for _, s := range st.cache {
		out = append(out, s)
	}
	return out
}
