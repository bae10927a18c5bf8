package kfc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// ErrSanitizedEmpty is returned when SanitizeReplyContent leaves nothing
// sendable after truncating a metadata leak.
var ErrSanitizedEmpty = errors.New("清洗后内容为空，未发送")

const perceiveFollowupPrompt = "你现在必须选择一个具体动作来回应，不要只是描述想法。"

// TurnProtocol executes one LLM turn: one or more sends culminating in a
// dispatched action set.
type TurnProtocol struct {
	llm     LLMClient
	tools   ToolRegistry
	sender  OutboundSender
	wd      Watchdog
	reply   ReplyConfig
	general GeneralConfig
	logger  *slog.Logger
}

// NewTurnProtocol builds a protocol instance wired to the host boundaries.
func NewTurnProtocol(llm LLMClient, tools ToolRegistry, sender OutboundSender, wd Watchdog, reply ReplyConfig, general GeneralConfig, logger *slog.Logger) *TurnProtocol {
	if logger == nil {
		logger = slog.Default()
	}
	return &TurnProtocol{llm: llm, tools: tools, sender: sender, wd: wd, reply: reply, general: general, logger: logger}
}

// RunTurn sends chain, parses the response (native tool calls take
// precedence over prose per-turn), dispatches every action in order, and
// returns the aggregated result.
func (tp *TurnProtocol) RunTurn(ctx context.Context, streamID string, chain LLMChain, trigger *Message) (ToolCallResult, error) {
	resp, err := tp.sendWithPerceiveRetry(ctx, streamID, chain)
	if err != nil {
		return ToolCallResult{}, fmt.Errorf("llm send: %w", err)
	}

	result := ParseModelResponse(resp.Message, resp.CallList)
	if err := tp.dispatch(ctx, chain, trigger, &result); err != nil {
		return result, err
	}
	return result, nil
}

// sendWithPerceiveRetry implements the perceive-then-decide loop: in native
// multimodal mode, when the model responds with prose but no tool calls,
// nudge it to act, up to MaxCompatRetries additional attempts. Outside that
// mode a single send is made.
func (tp *TurnProtocol) sendWithPerceiveRetry(ctx context.Context, streamID string, chain LLMChain) (LLMResponse, error) {
	attempts := tp.general.MaxCompatRetries
	if attempts < 0 || !tp.general.NativeMultimodal {
		attempts = 0
	}

	for {
		tp.feedWatchdog(streamID)
		resp, err := chain.Send(ctx, false, true)
		tp.feedWatchdog(streamID)
		if err != nil {
			return LLMResponse{}, err
		}
		if len(resp.CallList) > 0 {
			return resp, nil
		}
		if attempts <= 0 {
			return resp, nil
		}
		attempts--
		observed := resp.Message
		if r := []rune(observed); len(r) > 80 {
			observed = string(r[:80])
		}
		tp.logger.Debug("perceive-then-decide retry: no tool call in response", "stream_id", streamID, "observed", observed)
		chain.AddPayload(LLMPayload{Role: "user", Text: perceiveFollowupPrompt})
	}
}

func (tp *TurnProtocol) feedWatchdog(streamID string) {
	if tp.wd != nil {
		tp.wd.Feed(streamID)
	}
}

// dispatch walks result.Actions in order, performing the side effect for
// each and appending the corresponding tool-result payload to chain.
func (tp *TurnProtocol) dispatch(ctx context.Context, chain LLMChain, trigger *Message, result *ToolCallResult) error {
	repliesSent := 0
	for i := range result.Actions {
		action := result.Actions[i]
		name := normalizeToolName(action.Type)
		switch name {
		case "kfc_reply":
			content := action.Content()
			if content == "" {
				chain.AddPayload(LLMPayload{Role: "tool_result", ToolVal: "内容为空，未发送"})
				continue
			}
			clean := SanitizeReplyContent(content)
			if clean != content {
				clean = strings.TrimSpace(clean)
				tp.logger.Warn("reply content sanitized: metadata leak truncated in content")
				action.Fields["content"] = clean
			}
			if strings.TrimSpace(clean) == "" {
				chain.AddPayload(LLMPayload{Role: "tool_result", ToolVal: ErrSanitizedEmpty.Error()})
				continue
			}
			if repliesSent > 0 {
				tp.simulateTypingDelay(ctx, clean)
			}
			if err := tp.sender.SendReply(ctx, trigger, clean); err != nil {
				return fmt.Errorf("send reply: %w", err)
			}
			repliesSent++
			chain.AddPayload(LLMPayload{Role: "tool_result", ToolVal: "已发送"})
		case "do_nothing":
			chain.AddPayload(LLMPayload{Role: "tool_result", ToolVal: "已选择不回复"})
		default:
			if tp.tools == nil {
				chain.AddPayload(LLMPayload{Role: "tool_result", ToolVal: "工具不可用"})
				continue
			}
			if err := tp.tools.RunToolCall(ctx, LLMToolCall{Name: name, Args: action.Fields}, trigger); err != nil {
				tp.logger.Warn("third-party tool call failed", "tool", name, "error", err)
			}
		}
	}
	return nil
}

// simulateTypingDelay blocks for a duration proportional to content length,
// clamped to [TypingDelayMin, TypingDelayMax], approximating how long a
// human would take to type a reply of this length. Only applied before the
// 2nd and later replies within a single turn.
func (tp *TurnProtocol) simulateTypingDelay(ctx context.Context, content string) {
	seconds := typingDelaySeconds(content, tp.reply)
	sleepCtx(ctx, seconds)
}

func typingDelaySeconds(content string, cfg ReplyConfig) float64 {
	charsPerSec := cfg.TypingCharsPerSec
	if charsPerSec <= 0 {
		charsPerSec = 1
	}
	seconds := float64(len([]rune(content))) / charsPerSec
	return math.Min(math.Max(seconds, cfg.TypingDelayMin), cfg.TypingDelayMax)
}
