package kfc

import "time"

// Session is the per-stream persistent state this engine owns. All mutation
// must happen while the caller holds SessionStore.Lock(stream_id); SessionStore
// is responsible for persisting it afterwards.
type Session struct {
	UserID   string `json:"user_id"`
	StreamID string `json:"stream_id"`

	WaitingConfig           WaitingConfig `json:"waiting_config"`
	ConsecutiveTimeoutCount int           `json:"consecutive_timeout_count"`

	CreatedAt        float64  `json:"created_at"`
	LastActivityAt   float64  `json:"last_activity_at"`
	LastUserMessageAt *float64 `json:"last_user_message_at,omitempty"`
	LastProactiveAt   *float64 `json:"last_proactive_at,omitempty"`

	MentalLogRecords []MentalLogEntry `json:"mental_log"`
	PendingThoughts  []string         `json:"pending_thoughts"`
	TotalInteractions int             `json:"total_interactions"`

	log *MentalLog
}

// NewSession creates a fresh, empty session for streamID.
func NewSession(streamID string, maxLogEntries int, now time.Time) *Session {
	ts := float64(now.Unix())
	s := &Session{
		StreamID:       streamID,
		CreatedAt:      ts,
		LastActivityAt: ts,
	}
	s.log = NewMentalLog(maxLogEntries)
	return s
}

// MentalLog lazily materializes the in-memory MentalLog view over the
// session's persisted records (used right after JSON decode).
func (s *Session) MentalLog(maxLogEntries int) *MentalLog {
	if s.log == nil {
		s.log = FromList(s.MentalLogRecords, maxLogEntries)
	}
	return s.log
}

// syncRecords copies the live MentalLog back into the serializable field;
// call before persisting.
func (s *Session) syncRecords() {
	if s.log != nil {
		s.MentalLogRecords = s.log.ToList()
	}
}

// IsWaiting reports whether the session currently has an active wait.
func (s *Session) IsWaiting() bool {
	return s.WaitingConfig.IsActive()
}

// SetWaiting installs cfg as the session's wait state. A cfg with
// MaxWaitSeconds <= 0 behaves as ClearWaiting.
func (s *Session) SetWaiting(cfg WaitingConfig) {
	if cfg.MaxWaitSeconds <= 0 {
		s.ClearWaiting()
		return
	}
	s.WaitingConfig = cfg
}

// ClearWaiting resets the wait state to inactive.
func (s *Session) ClearWaiting() {
	s.WaitingConfig.Reset()
}

// AddUserMessage records an inbound message, resets the timeout-escalation
// counter, and (if currently waiting) annotates reply timing metadata.
func (s *Session) AddUserMessage(content, userName, userID string, timestamp float64, maxLogEntries int) {
	now := time.Unix(int64(timestamp), 0)
	entry := MentalLogEntry{
		Kind:      EventUserMessage,
		Timestamp: timestamp,
		Content:   content,
		UserName:  userName,
		UserID:    userID,
	}

	s.ConsecutiveTimeoutCount = 0
	ts := float64(now.Unix())
	s.LastUserMessageAt = &ts
	s.LastActivityAt = ts

	if s.IsWaiting() {
		elapsed := s.WaitingConfig.ElapsedSeconds(now)
		status := "late"
		if elapsed <= s.WaitingConfig.MaxWaitSeconds {
			status = "in_time"
		}
		entry.Metadata = map[string]interface{}{
			"reply_status":    status,
			"elapsed_seconds": elapsed,
			"max_wait_seconds": s.WaitingConfig.MaxWaitSeconds,
		}
	}

	s.MentalLog(maxLogEntries).Add(entry)
	s.syncRecords()
}

// AddBotPlanning records the result of a turn.
func (s *Session) AddBotPlanning(thought string, actions []ActionRecord, expectedReaction string, maxWaitSeconds float64, now time.Time, maxLogEntries int) {
	s.MentalLog(maxLogEntries).Add(MentalLogEntry{
		Kind:             EventBotPlanning,
		Timestamp:        float64(now.Unix()),
		Thought:          thought,
		Actions:          actions,
		ExpectedReaction: expectedReaction,
		MaxWaitSeconds:   maxWaitSeconds,
	})
	s.TotalInteractions++
	s.syncRecords()
}

// AddWaitingUpdate records one WaitChecker inner-monologue tick.
func (s *Session) AddWaitingUpdate(thought, mood string, elapsed float64, now time.Time, maxLogEntries int) {
	s.MentalLog(maxLogEntries).Add(MentalLogEntry{
		Kind:           EventWaitingUpdate,
		Timestamp:      float64(now.Unix()),
		WaitingThought: thought,
		Mood:           mood,
		ElapsedSeconds: elapsed,
	})
	s.syncRecords()
}

// AddReplyTiming records whether an incoming reply arrived in time or late,
// based on the wait state as it stood at the moment the message arrived.
func (s *Session) AddReplyTiming(now time.Time, maxLogEntries int) {
	elapsed := s.WaitingConfig.ElapsedSeconds(now)
	kind := EventReplyInTime
	if elapsed > s.WaitingConfig.MaxWaitSeconds {
		kind = EventReplyLate
	}
	s.MentalLog(maxLogEntries).Add(MentalLogEntry{
		Kind:           kind,
		Timestamp:      float64(now.Unix()),
		ElapsedSeconds: elapsed,
	})
	s.syncRecords()
}

// AddWaitTimeout records a timeout event.
func (s *Session) AddWaitTimeout(elapsed float64, now time.Time, maxLogEntries int) {
	s.MentalLog(maxLogEntries).Add(MentalLogEntry{
		Kind:           EventWaitTimeout,
		Timestamp:      float64(now.Unix()),
		ElapsedSeconds: elapsed,
	})
	s.syncRecords()
}

// AddProactiveTrigger records a proactive-conversation event.
func (s *Session) AddProactiveTrigger(now time.Time, maxLogEntries int) {
	s.MentalLog(maxLogEntries).Add(MentalLogEntry{
		Kind:      EventProactiveTrigger,
		Timestamp: float64(now.Unix()),
	})
	s.syncRecords()
}
