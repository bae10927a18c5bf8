package kfc

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LoopOutcome is the yield produced by one DialogueLoop tick.
type LoopOutcome string

const (
	OutcomeWait    LoopOutcome = "wait"    // ask the host to re-invoke on the next scheduler tick
	OutcomeStop    LoopOutcome = "stop"    // this turn concluded; nothing further to do right now
	OutcomeFailure LoopOutcome = "failure" // transport failure; host may retry
)

// Engine wires together every component this package exports and drives one
// stream's DialogueLoop ticks.
type Engine struct {
	Config    *Config
	Store     *SessionStore
	Streams   StreamRegistry
	Unreads   UnreadQueue
	LLM       LLMClient
	Tools     ToolRegistry
	Sender    OutboundSender
	Media     MediaManager
	Watchdog  Watchdog
	Bus       EventBus
	Prompt    *PromptBuilder
	Logger    *slog.Logger

	turns *TurnProtocol
}

// NewEngine builds an Engine, wiring its internal TurnProtocol from the
// supplied host boundaries.
func NewEngine(cfg *Config, store *SessionStore, streams StreamRegistry, unreads UnreadQueue, llm LLMClient, tools ToolRegistry, sender OutboundSender, media MediaManager, wd Watchdog, bus EventBus, prompt *PromptBuilder, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		Config: cfg, Store: store, Streams: streams, Unreads: unreads,
		LLM: llm, Tools: tools, Sender: sender, Media: media, Watchdog: wd,
		Bus: bus, Prompt: prompt, Logger: logger,
	}
	e.turns = NewTurnProtocol(llm, tools, sender, wd, cfg.Reply, cfg.General, logger)
	return e
}

// streamActivation holds the per-activation resources a Tick call threads
// through: the fresh LLM request/response chain built on entry, and the
// native-multimodal VLM-skip registration to clean up on exit.
type streamActivation struct {
	chain        LLMChain
	skipVLM      bool
}

// Activate performs DialogueLoop's one-time entry steps for streamID: it
// loads/creates the session and builds a fresh LLM request with system prompt
// and fused-narrative history. Tool schemas are described in the system
// prompt's extra-action block; they are not registered with the LLM request
// as native tool definitions. The returned
// activation must be passed to every subsequent Tick call for this stream
// until the loop yields Stop, at which point the caller should call
// Deactivate.
func (e *Engine) Activate(ctx context.Context, streamID string) (*streamActivation, LoopOutcome, error) {
	if !e.Config.General.Enabled {
		return nil, OutcomeStop, nil
	}
	if err := e.Streams.Activate(ctx, streamID); err != nil {
		return nil, OutcomeFailure, fmt.Errorf("activate stream: %w", err)
	}

	act := &streamActivation{}
	if e.Config.General.NativeMultimodal && e.Media != nil {
		e.Media.SkipVLMForStream(streamID)
		act.skipVLM = true
	}

	chain, err := e.LLM.NewRequest(ctx, e.Config.General.ModelTask)
	if err != nil {
		return nil, OutcomeFailure, fmt.Errorf("new llm request: %w", err)
	}

	unlock := e.Store.Lock(streamID)
	session, err := e.Store.GetOrCreate(ctx, streamID)
	unlock()
	if err != nil {
		return nil, OutcomeFailure, fmt.Errorf("load session: %w", err)
	}

	stream := e.streamInfo(ctx, streamID)
	chain.AddPayload(LLMPayload{Role: "system", Text: e.Prompt.BuildSystemPrompt(stream, e.toolSchemas(), time.Now())})

	history, err := e.Streams.HistoryMessages(ctx, streamID)
	if err == nil && len(history) > 0 {
		narrative := e.Prompt.BuildFusedNarrative(history, session.MentalLog(e.Config.Prompt.MaxLogEntries), stream.BotID)
		if narrative == "" {
			narrative = e.Prompt.BuildHistoryText(history)
		}
		if narrative != "" {
			chain.AddPayload(LLMPayload{Role: "user", Text: narrative})
		}
	}

	act.chain = chain
	return act, "", nil
}

// Deactivate performs the VLM-skip cleanup on loop exit. Best-effort.
func (e *Engine) Deactivate(streamID string, act *streamActivation) {
	if act != nil && act.skipVLM && e.Media != nil {
		e.Media.UnskipVLMForStream(streamID)
	}
}

func (e *Engine) toolSchemas() []ToolSchema {
	if e.Tools == nil {
		return nil
	}
	return e.Tools.Schemas()
}

func (e *Engine) streamInfo(ctx context.Context, streamID string) StreamInfo {
	return StreamInfo{
		StreamID: streamID,
		Platform: e.Streams.Platform(ctx, streamID),
		ChatType: e.Streams.ChatType(ctx, streamID),
		BotID:    e.Streams.BotID(ctx, streamID),
	}
}

// Tick runs one DialogueLoop iteration for streamID using act from Activate.
// The caller is responsible for re-invoking Tick when the outcome is Wait,
// per whatever tick cadence the host scheduler owns.
func (e *Engine) Tick(ctx context.Context, streamID string, act *streamActivation) (LoopOutcome, error) {
	unlock := e.Store.Lock(streamID)
	defer unlock()

	session, err := e.Store.GetOrCreate(ctx, streamID)
	if err != nil {
		return OutcomeFailure, fmt.Errorf("load session: %w", err)
	}

	now := time.Now()
	formattedUnreads, unreadMsgs, err := e.Unreads.FetchUnreads(ctx, streamID)
	if err != nil {
		return OutcomeFailure, fmt.Errorf("fetch unreads: %w", err)
	}

	var trigger *Message
	maxLog := e.Config.Prompt.MaxLogEntries

	switch {
	case len(unreadMsgs) > 0:
		e.recordUnreads(session, unreadMsgs, now, maxLog)
		if session.IsWaiting() {
			session.AddReplyTiming(now, maxLog)
			session.ClearWaiting()
		}
		images := e.extractMedia(unreadMsgs)
		act.chain.AddPayload(e.Prompt.BuildUserPayload(formattedUnreads, images))
		trigger = &unreadMsgs[len(unreadMsgs)-1]

	case session.IsWaiting():
		if CheckTimeout(session, now) {
			tctx := HandleTimeout(session, now, maxLog)
			if ShouldGiveUp(session, e.Config.Wait.MaxConsecutiveTimeouts) {
				if err := e.Store.Save(ctx, session); err != nil {
					e.Logger.Warn("session save failed", "stream_id", streamID, "error", err)
				}
				return OutcomeStop, nil
			}
			payload := e.Prompt.BuildTimeoutPayload(tctx.ElapsedSeconds, tctx.ExpectedReaction, tctx.ConsecutiveTimeouts, tctx.LastBotMessage, tctx.PendingThoughts)
			act.chain.AddPayload(payload)
			session.PendingThoughts = nil
		} else {
			return OutcomeWait, nil
		}

	default:
		return OutcomeWait, nil
	}

	if trigger == nil {
		if last, ok := e.Streams.LastHistoryMessage(ctx, streamID); ok {
			trigger = last
		}
	}

	result, err := e.turns.RunTurn(ctx, streamID, act.chain, trigger)
	if err != nil {
		e.Logger.Warn("llm turn failed", "stream_id", streamID, "error", err)
		return OutcomeFailure, nil
	}

	if len(unreadMsgs) > 0 {
		if err := e.Unreads.FlushUnreads(ctx, streamID, unreadMsgs); err != nil {
			e.Logger.Warn("flush unreads failed", "stream_id", streamID, "error", err)
		}
	}

	session.AddBotPlanning(result.Thought, result.Actions, result.ExpectedReaction, result.MaxWaitSeconds, now, maxLog)

	if !result.HasMeaningfulAction() || (result.HasDoNothing && !result.HasReply) {
		session.ClearWaiting()
		if err := e.Store.Save(ctx, session); err != nil {
			e.Logger.Warn("session save failed", "stream_id", streamID, "error", err)
		}
		return OutcomeStop, nil
	}

	waitSeconds := e.Config.Wait.Apply(result.MaxWaitSeconds, session.ConsecutiveTimeoutCount)
	if waitSeconds > 0 {
		session.SetWaiting(WaitingConfig{
			ExpectedReaction: result.ExpectedReaction,
			MaxWaitSeconds:   waitSeconds,
			StartedAt:        float64(now.Unix()),
		})
		session.PendingThoughts = nil
		if err := e.Store.Save(ctx, session); err != nil {
			e.Logger.Warn("session save failed", "stream_id", streamID, "error", err)
		}
		return OutcomeWait, nil
	}

	session.ClearWaiting()
	if err := e.Store.Save(ctx, session); err != nil {
		e.Logger.Warn("session save failed", "stream_id", streamID, "error", err)
	}
	return OutcomeStop, nil
}

func (e *Engine) recordUnreads(session *Session, msgs []Message, fallback time.Time, maxLog int) {
	for _, m := range msgs {
		ts := m.Time
		if ts <= 0 {
			ts = float64(fallback.Unix())
		}
		session.AddUserMessage(m.PlainText, m.SenderName, m.SenderID, ts, maxLog)
	}
}

func (e *Engine) extractMedia(msgs []Message) []MediaItem {
	budget := e.Config.General.MaxImagesPerPayload
	if budget <= 0 || !e.Config.General.NativeMultimodal {
		return nil
	}
	var out []MediaItem
	for _, m := range msgs {
		for _, media := range m.Media {
			if len(out) >= budget {
				return out
			}
			out = append(out, media)
		}
	}
	return out
}
