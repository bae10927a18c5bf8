package kfc

import (
	"fmt"
	"strings"
)

// DefaultMaxLogEntries is the bound applied when a MentalLog is constructed
// without an explicit limit.
const DefaultMaxLogEntries = 50

// MentalLog is a bounded, append-only, FIFO-evicting timeline of typed
// events — the bot's record of what it saw and thought in one stream.
type MentalLog struct {
	entries    []MentalLogEntry
	maxEntries int
}

// NewMentalLog creates an empty log bounded to maxEntries (DefaultMaxLogEntries
// if maxEntries <= 0).
func NewMentalLog(maxEntries int) *MentalLog {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxLogEntries
	}
	return &MentalLog{maxEntries: maxEntries}
}

// Add appends entry, evicting the oldest entries if over the bound.
func (l *MentalLog) Add(entry MentalLogEntry) {
	l.entries = append(l.entries, entry)
	if over := len(l.entries) - l.maxEntries; over > 0 {
		l.entries = l.entries[over:]
	}
}

// Len returns the number of entries currently held.
func (l *MentalLog) Len() int {
	return len(l.entries)
}

// Entries returns the underlying slice in insertion order. Callers must not
// mutate it.
func (l *MentalLog) Entries() []MentalLogEntry {
	return l.entries
}

// Recent returns the last n entries (or all of them if n >= Len()).
func (l *MentalLog) Recent(n int) []MentalLogEntry {
	if n <= 0 {
		return nil
	}
	if n >= len(l.entries) {
		return l.entries
	}
	return l.entries[len(l.entries)-n:]
}

// LastOfKind returns the newest entry of the given kind, if any.
func (l *MentalLog) LastOfKind(k EventKind) (MentalLogEntry, bool) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Kind == k {
			return l.entries[i], true
		}
	}
	return MentalLogEntry{}, false
}

// LastBotReplyContent scans newest-to-oldest and returns the first non-empty
// content field of any kfc_reply (or respond) action inside a BotPlanning
// entry.
func (l *MentalLog) LastBotReplyContent() string {
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if e.Kind != EventBotPlanning {
			continue
		}
		for _, a := range e.Actions {
			if a.Type == "kfc_reply" || a.Type == "respond" {
				if c := a.Content(); c != "" {
					return c
				}
			}
		}
	}
	return ""
}

// FormatNarrative renders the full log as one line per entry (plus
// continuation lines for BotPlanning), in insertion order.
func (l *MentalLog) FormatNarrative() string {
	lines := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		lines = append(lines, formatEntryNarrative(e))
	}
	return strings.Join(lines, "\n")
}

// FormatSummary renders the last maxEntries entries, each truncated to a
// 60-character one-liner.
func (l *MentalLog) FormatSummary(maxEntries int) string {
	recent := l.Recent(maxEntries)
	lines := make([]string, 0, len(recent))
	for _, e := range recent {
		lines = append(lines, truncate60(formatEntryOneLine(e)))
	}
	return strings.Join(lines, "\n")
}

func formatEntryNarrative(e MentalLogEntry) string {
	hm := e.Time().Format("15:04")
	switch e.Kind {
	case EventUserMessage:
		return fmt.Sprintf("[%s] %s 说：%s", hm, e.UserName, e.Content)
	case EventBotPlanning:
		var b strings.Builder
		fmt.Fprintf(&b, "[%s] 你的内心想法：%s", hm, e.Thought)
		if len(e.Actions) > 0 {
			types := make([]string, len(e.Actions))
			for i, a := range e.Actions {
				types[i] = a.Type
			}
			fmt.Fprintf(&b, "\n  执行动作：%s", strings.Join(types, ", "))
		}
		if e.ExpectedReaction != "" {
			fmt.Fprintf(&b, "\n  期望对方回应：%s", e.ExpectedReaction)
		}
		return b.String()
	case EventWaitingUpdate:
		return fmt.Sprintf("[%s] (等待中的内心活动) %s", hm, e.WaitingThought)
	case EventWaitTimeout:
		return fmt.Sprintf("[%s] 等待超时，已等待 %.0f 秒", hm, e.ElapsedSeconds)
	case EventReplyInTime:
		return fmt.Sprintf("[%s] 对方及时回复了，等待了 %.0f 秒", hm, e.ElapsedSeconds)
	case EventReplyLate:
		return fmt.Sprintf("[%s] 对方迟来的回复，等待了 %.0f 秒", hm, e.ElapsedSeconds)
	case EventWaitingStart:
		return fmt.Sprintf("[%s] 开始等待对方回应", hm)
	case EventProactiveTrigger:
		return fmt.Sprintf("[%s] 主动发起了对话", hm)
	default:
		return fmt.Sprintf("[%s] %s", hm, e.Kind)
	}
}

// formatEntryOneLine collapses a BotPlanning's multi-line narrative form
// down to one line for the summary rendering.
func formatEntryOneLine(e MentalLogEntry) string {
	return strings.ReplaceAll(formatEntryNarrative(e), "\n  ", " ")
}

func truncate60(s string) string {
	r := []rune(s)
	if len(r) <= 60 {
		return s
	}
	return string(r[:60])
}

// ToList serializes the log to its persisted record form.
func (l *MentalLog) ToList() []MentalLogEntry {
	out := make([]MentalLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// FromList rebuilds a MentalLog from its persisted record form, applying the
// same bound and FIFO-eviction truncation as Add would.
func FromList(records []MentalLogEntry, maxEntries int) *MentalLog {
	l := NewMentalLog(maxEntries)
	for _, r := range records {
		if !validEventKind(r.Kind) {
			r.Kind = EventUserMessage // unknown event_type coerces to UserMessage
		}
		l.Add(r)
	}
	return l
}

func validEventKind(k EventKind) bool {
	switch k {
	case EventUserMessage, EventBotPlanning, EventWaitingStart, EventWaitingUpdate,
		EventReplyInTime, EventReplyLate, EventWaitTimeout, EventProactiveTrigger:
		return true
	default:
		return false
	}
}
