// Package kfc implements a conversation-control engine that decides whether,
// when, and how long to wait for a reply, driving an LLM through a bounded
// mental-log timeline instead of stateless request/response turns.
package kfc

import (
	"encoding/json"
	"time"
)

// EventKind tags one entry in a Session's MentalLog.
type EventKind string

const (
	EventUserMessage     EventKind = "user_message"
	EventBotPlanning     EventKind = "bot_planning"
	EventWaitingStart    EventKind = "waiting_start"
	EventWaitingUpdate   EventKind = "waiting_update"
	EventReplyInTime     EventKind = "reply_in_time"
	EventReplyLate       EventKind = "reply_late"
	EventWaitTimeout     EventKind = "wait_timeout"
	EventProactiveTrigger EventKind = "proactive_trigger"
)

// ActionRecord is one entry in a BotPlanning's action list. Type carries the
// dispatch tag ("kfc_reply", "do_nothing", or a third-party tool name); the
// remaining keyed fields vary by type (e.g. "content" for kfc_reply).
type ActionRecord struct {
	Type   string                 `json:"type"`
	Fields map[string]interface{} `json:"-"`
}

// Content returns the "content" field for a kfc_reply-shaped action, or "".
func (a ActionRecord) Content() string {
	if v, ok := a.Fields["content"].(string); ok {
		return v
	}
	return ""
}

// MarshalJSON flattens Fields alongside Type into one object.
func (a ActionRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(a.Fields)+1)
	for k, v := range a.Fields {
		out[k] = v
	}
	out["type"] = a.Type
	return json.Marshal(out)
}

// UnmarshalJSON spreads unknown keys into Fields, pulling "type" out.
func (a *ActionRecord) UnmarshalJSON(data []byte) error {
	raw := map[string]interface{}{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if t, ok := raw["type"].(string); ok {
		a.Type = t
	}
	delete(raw, "type")
	a.Fields = raw
	return nil
}

// MentalLogEntry is one node of a Session's MentalLog timeline.
type MentalLogEntry struct {
	Kind      EventKind `json:"event_type"`
	Timestamp float64   `json:"timestamp"`

	// UserMessage fields.
	Content  string `json:"content,omitempty"`
	UserName string `json:"user_name,omitempty"`
	UserID   string `json:"user_id,omitempty"`

	// BotPlanning fields.
	Thought          string         `json:"thought,omitempty"`
	Actions          []ActionRecord `json:"actions,omitempty"`
	ExpectedReaction string         `json:"expected_reaction,omitempty"`
	MaxWaitSeconds   float64        `json:"max_wait_seconds,omitempty"`

	// WaitingUpdate fields.
	WaitingThought string `json:"waiting_thought,omitempty"`
	Mood           string `json:"mood,omitempty"`

	// WaitTimeout / Reply* fields.
	ElapsedSeconds float64 `json:"elapsed_seconds,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Time returns the entry's timestamp as a time.Time in local time, used only
// for HH:MM-style rendering.
func (e MentalLogEntry) Time() time.Time {
	return time.Unix(int64(e.Timestamp), 0)
}

// WaitingConfig is the wait state set after the bot sends a reply that
// expects a response within a bound.
type WaitingConfig struct {
	ExpectedReaction string  `json:"expected_reaction"`
	MaxWaitSeconds   float64 `json:"max_wait_seconds"`
	StartedAt        float64 `json:"started_at"`
	LastThinkingAt   float64 `json:"last_thinking_at"`
	ThinkingCount    int     `json:"thinking_count"`
	FollowupCount    int     `json:"followup_count"`
}

// IsActive reports whether a wait is currently in progress.
func (w WaitingConfig) IsActive() bool {
	return w.MaxWaitSeconds > 0 && w.StartedAt > 0
}

// ElapsedSeconds returns how long the wait has been running, 0 if inactive.
func (w WaitingConfig) ElapsedSeconds(now time.Time) float64 {
	if !w.IsActive() {
		return 0
	}
	return float64(now.Unix()) - w.StartedAt
}

// IsTimeout reports whether the wait has exceeded MaxWaitSeconds.
func (w WaitingConfig) IsTimeout(now time.Time) bool {
	if !w.IsActive() {
		return false
	}
	return w.ElapsedSeconds(now) >= w.MaxWaitSeconds
}

// Progress returns the wait's completion fraction in [0, 1].
func (w WaitingConfig) Progress(now time.Time) float64 {
	if !w.IsActive() || w.MaxWaitSeconds <= 0 {
		return 0
	}
	p := w.ElapsedSeconds(now) / w.MaxWaitSeconds
	if p > 1 {
		return 1
	}
	return p
}

// Reset clears the waiting config to its zero (inactive) value.
func (w *WaitingConfig) Reset() {
	*w = WaitingConfig{}
}

// MediaItem is an opaque image/emoji payload extracted from a message.
type MediaItem struct {
	MediaType       string `json:"media_type"` // "image" or "emoji"
	Base64Data      string `json:"base64_data"`
	SourceMessageID string `json:"source_message_id"`
}

// ToolCallResult is the structured outcome of one TurnProtocol turn.
type ToolCallResult struct {
	Thought          string
	ExpectedReaction string
	MaxWaitSeconds   float64
	Mood             string
	Actions          []ActionRecord

	HasReply       bool
	HasDoNothing   bool
	HasThirdParty  bool
}

// HasMeaningfulAction reports whether the turn did anything worth continuing
// the dialogue loop for.
func (r ToolCallResult) HasMeaningfulAction() bool {
	return r.HasReply || r.HasDoNothing || r.HasThirdParty
}
