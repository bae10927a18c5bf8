package kfc

import "time"

// TimeoutContext is the snapshot handed to DialogueLoop after handle_timeout
// clears a session's wait.
type TimeoutContext struct {
	ElapsedSeconds      float64
	ExpectedReaction    string
	ConsecutiveTimeouts int
	PendingThoughts     []string
	LastBotMessage      string
}

// CheckTimeout reports whether session's active wait has exceeded its
// max_wait_seconds as of now.
func CheckTimeout(session *Session, now time.Time) bool {
	return session.WaitingConfig.IsTimeout(now)
}

// HandleTimeout increments the consecutive-timeout counter, appends a
// WaitTimeout entry, snapshots pending thoughts and the last bot message,
// and clears the wait. Must be called with session's stream lock held.
func HandleTimeout(session *Session, now time.Time, maxLogEntries int) TimeoutContext {
	elapsed := session.WaitingConfig.ElapsedSeconds(now)
	ctx := TimeoutContext{
		ElapsedSeconds:      elapsed,
		ExpectedReaction:    session.WaitingConfig.ExpectedReaction,
		PendingThoughts:     append([]string(nil), session.PendingThoughts...),
		LastBotMessage:      session.MentalLog(maxLogEntries).LastBotReplyContent(),
	}
	session.ConsecutiveTimeoutCount++
	ctx.ConsecutiveTimeouts = session.ConsecutiveTimeoutCount
	session.AddWaitTimeout(elapsed, now, maxLogEntries)
	session.ClearWaiting()
	return ctx
}

// ShouldGiveUp reports whether session has timed out enough consecutive
// times that DialogueLoop should stop retrying. Must be called after
// HandleTimeout so an Nth timeout yields count == N.
func ShouldGiveUp(session *Session, maxConsecutiveTimeouts int) bool {
	return session.ConsecutiveTimeoutCount >= maxConsecutiveTimeouts
}
