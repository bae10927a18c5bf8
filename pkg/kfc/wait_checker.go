package kfc

import (
	"context"
	"log/slog"
	"time"
)

const subActorModelTask = "sub_actor"

// WaitChecker periodically nudges waiting sessions to produce a short inner
// monologue as progress toward their max_wait_seconds advances past
// configured thresholds, rate-limited by min_interval.
type WaitChecker struct {
	store  *SessionStore
	cfg    *Config
	llm    LLMClient
	logger *slog.Logger
}

// NewWaitChecker builds a WaitChecker wired to store and the shared config.
func NewWaitChecker(store *SessionStore, cfg *Config, llm LLMClient, logger *slog.Logger) *WaitChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &WaitChecker{store: store, cfg: cfg, llm: llm, logger: logger}
}

// Tick is the scheduler callback, invoked every continuous_thinking.min_interval
// seconds. It sweeps every cached session.
func (w *WaitChecker) Tick(ctx context.Context) {
	if !w.cfg.ContinuousThinking.Enabled {
		return
	}
	for _, session := range w.store.GetAllCached() {
		w.checkOne(ctx, session)
	}
}

func (w *WaitChecker) checkOne(ctx context.Context, session *Session) {
	unlock := w.store.Lock(session.StreamID)
	defer unlock()

	if !session.IsWaiting() {
		return
	}

	now := time.Now()
	thresholds := w.cfg.ContinuousThinking.ProgressThresholds
	n := session.WaitingConfig.ThinkingCount
	progress := session.WaitingConfig.Progress(now)

	if n >= len(thresholds) || progress < thresholds[n] {
		return
	}

	minInterval := w.cfg.ContinuousThinking.MinInterval
	if session.WaitingConfig.LastThinkingAt > 0 && float64(now.Unix())-session.WaitingConfig.LastThinkingAt < minInterval {
		return
	}

	elapsed := session.WaitingConfig.ElapsedSeconds(now)
	lastBotMessage := session.MentalLog(w.cfg.Prompt.MaxLogEntries).LastBotReplyContent()
	thought, mood := w.generateThought(ctx, session, elapsed, progress, lastBotMessage)

	session.WaitingConfig.LastThinkingAt = float64(now.Unix())
	session.WaitingConfig.ThinkingCount++
	session.PendingThoughts = append(session.PendingThoughts, thought)
	session.AddWaitingUpdate(thought, mood, elapsed, now, w.cfg.Prompt.MaxLogEntries)

	if err := w.store.Save(ctx, session); err != nil {
		w.logger.Warn("wait-checker save failed", "stream_id", session.StreamID, "error", err)
	}
}

func (w *WaitChecker) generateThought(ctx context.Context, session *Session, elapsed, progress float64, lastBotMessage string) (string, string) {
	if w.llm == nil {
		return fallbackThought(progress), ""
	}
	chain, err := w.llm.NewRequest(ctx, subActorModelTask)
	if err != nil {
		w.logger.Debug("wait-checker llm unavailable, using canned thought", "error", err)
		return fallbackThought(progress), ""
	}
	chain.AddPayload(LLMPayload{Role: "system", Text: "你是一个聊天机器人的内心独白生成器，只输出一句简短的内心想法。"})
	chain.AddPayload(LLMPayload{Role: "user", Text: BuildContinuousThinkingContext(elapsed, progress, session.WaitingConfig.ExpectedReaction, lastBotMessage)})
	resp, err := chain.Send(ctx, false, false)
	if err != nil || resp.Message == "" {
		w.logger.Debug("wait-checker llm call failed, using canned thought", "error", err)
		return fallbackThought(progress), ""
	}
	thought := resp.Message
	if r := []rune(thought); len(r) > 200 {
		thought = string(r[:200])
	}
	return thought, ""
}

// fallbackThought returns the canned progress-bucketed thought used when the
// lightweight LLM call itself fails.
func fallbackThought(progress float64) string {
	switch {
	case progress < 0.3:
		return "还在等待对方回复，先耐心等等。"
	case progress < 0.6:
		return "等了一会儿了，对方可能在忙。"
	case progress < 0.85:
		return "等得有点久了，不知道对方什么时候会回复。"
	default:
		return "等待时间快到了，看来对方这次可能不会回复了。"
	}
}
