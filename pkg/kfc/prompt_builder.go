package kfc

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// promptLayer orders system-prompt sections. Lower values render first.
type promptLayer int

const (
	layerPersona   promptLayer = 0  // nickname/aliases/persona core/background/reply style/safety.
	layerTheme     promptLayer = 10 // chat-type-specific guidance.
	layerTools     promptLayer = 20 // dynamically generated extra-action-types block.
	layerMentalLog promptLayer = 30 // how to read the fused narrative / mental-log hint.
	layerRuntime   promptLayer = 40 // platform/chat-type/bot-id/current time (last).
)

type promptLayerEntry struct {
	layer   promptLayer
	content string
}

// Personality is the host-supplied, spec-out-of-scope persona content this
// builder slots into layerPersona. The engine ships sensible defaults; a
// host overrides any field it cares about.
type Personality struct {
	Nickname       string
	AliasNames     []string
	PersonaCore    string
	Background     string
	ReplyStyle     string
	SafetyGuidance string
}

// StreamInfo is the subset of stream identity the prompt needs.
type StreamInfo struct {
	StreamID string
	Platform string
	ChatType string // "private", "group", or other
	BotID    string
}

// PromptBuilder is a stateless renderer for the three LLM payload shapes the
// engine needs: the system prompt, the unread-message user payload, and the
// timeout follow-up payload.
type PromptBuilder struct {
	personality Personality
}

// NewPromptBuilder creates a builder with the given default personality.
func NewPromptBuilder(p Personality) *PromptBuilder {
	return &PromptBuilder{personality: p}
}

// BuildSystemPrompt assembles the full system prompt for stream, including a
// dynamically generated block describing tools (besides the two core
// actions) the model may call.
func (b *PromptBuilder) BuildSystemPrompt(stream StreamInfo, toolSchemas []ToolSchema, now time.Time) string {
	layers := []promptLayerEntry{
		{layerPersona, b.buildPersonaLayer()},
		{layerTheme, b.buildThemeLayer(stream.ChatType)},
		{layerTools, b.buildToolsLayer(toolSchemas)},
		{layerMentalLog, buildMentalLogHint()},
		{layerRuntime, b.buildRuntimeLayer(stream, now)},
	}
	return assemblePromptLayers(layers)
}

func (b *PromptBuilder) buildPersonaLayer() string {
	p := b.personality
	var lines []string
	if p.Nickname != "" {
		name := p.Nickname
		if len(p.AliasNames) > 0 {
			name += "（也会被称为 " + strings.Join(p.AliasNames, "、") + "）"
		}
		lines = append(lines, "你是 "+name+"。")
	}
	if p.PersonaCore != "" {
		lines = append(lines, p.PersonaCore)
	}
	if p.Background != "" {
		lines = append(lines, p.Background)
	}
	if p.ReplyStyle != "" {
		lines = append(lines, "回复风格："+p.ReplyStyle)
	}
	if p.SafetyGuidance != "" {
		lines = append(lines, p.SafetyGuidance)
	}
	lines = append(lines, buildResponseShapeInstructions())
	return strings.Join(lines, "\n\n")
}

// buildResponseShapeInstructions documents the mandated JSON action shape.
func buildResponseShapeInstructions() string {
	return "请始终以如下 JSON 形式回应：\n" +
		`{"thought": "你的内心想法", "actions": [{"type": "kfc_reply", "content": "..."} 或 {"type": "do_nothing"}], "expected_user_reaction": "可选", "max_wait_seconds": 数字, "mood": "可选"}`
}

func (b *PromptBuilder) buildThemeLayer(chatType string) string {
	switch strings.ToLower(chatType) {
	case "private":
		return "你当前处于私聊环境。你可以更亲近地和对方交流，关注对方情绪并提供更直接、细腻的回应。"
	case "group":
		return "你当前处于群聊环境。注意多人对话的上下文，确认对方确实在和你说话后再做出回应。群聊中不要总是抢话，保持自然。"
	default:
		return ""
	}
}

// buildToolsLayer renders the extra-action-types block. Parameters named
// "reason" are suppressed (reserved framework meta-parameter).
func (b *PromptBuilder) buildToolsLayer(schemas []ToolSchema) string {
	if len(schemas) == 0 {
		return ""
	}
	var b2 strings.Builder
	b2.WriteString("## 其他可用动作\n")
	for _, s := range schemas {
		b2.WriteString(fmt.Sprintf("- %s — %s. 参数: ", s.Name, s.Description))
		var params []string
		for _, p := range s.Params {
			if p.Name == "reason" {
				continue
			}
			opt := ""
			if p.Optional {
				opt = "，可选"
			}
			params = append(params, fmt.Sprintf("%s(%s%s): %s", p.Name, p.Type, opt, p.Description))
		}
		b2.WriteString(strings.Join(params, "; "))
		b2.WriteString("\n")
	}
	return strings.TrimRight(b2.String(), "\n")
}

func buildMentalLogHint() string {
	return "以上时间线包含了聊天记录和你自己过去的内心想法，请结合两者判断当前应如何反应。"
}

func (b *PromptBuilder) buildRuntimeLayer(stream StreamInfo, now time.Time) string {
	return fmt.Sprintf(
		"当前时间：%s\n平台：%s\n聊天类型：%s\nBot ID：%s",
		now.Format("2006-01-02 15:04:05"), orUnknown(stream.Platform), orUnknown(stream.ChatType), stream.BotID,
	)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func assemblePromptLayers(layers []promptLayerEntry) string {
	sort.SliceStable(layers, func(i, j int) bool { return layers[i].layer < layers[j].layer })
	var parts []string
	for _, l := range layers {
		if l.content != "" {
			parts = append(parts, l.content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// BuildUserPayload constructs the unread-message user payload, optionally
// multimodal when mediaItems is non-empty.
func (b *PromptBuilder) BuildUserPayload(formattedUnreads string, mediaItems []MediaItem) LLMPayload {
	text := "[新消息]\n" + formattedUnreads
	if len(mediaItems) == 0 {
		return LLMPayload{Role: "user", Text: text}
	}
	images := make([]MediaItem, 0, len(mediaItems))
	for _, m := range mediaItems {
		if m.MediaType == "emoji" {
			text += "\n[表情包]"
		}
		images = append(images, m)
	}
	return LLMPayload{Role: "user", Text: text, Images: images}
}

// BuildTimeoutPayload constructs the wait-timeout follow-up payload, with a
// graduated advisory driven by followupCount = max(0, consecutiveTimeouts-1).
func (b *PromptBuilder) BuildTimeoutPayload(elapsed float64, expectedReaction string, consecutiveTimeouts int, lastBotMessage string, pendingThoughts []string) LLMPayload {
	var sb strings.Builder
	sb.WriteString("等待超时通知\n")
	fmt.Fprintf(&sb, "已等待 %.0f 秒（约 %.1f 分钟）。\n", elapsed, elapsed/60)
	if expectedReaction != "" {
		sb.WriteString("你之前预期对方的反应：" + expectedReaction + "\n")
	}
	if lastBotMessage != "" {
		sb.WriteString("你最后发送的消息：" + lastBotMessage + "\n")
	}

	followupCount := consecutiveTimeouts - 1
	if followupCount < 0 {
		followupCount = 0
	}
	switch {
	case followupCount >= 2:
		sb.WriteString("你已经追问多次，对方始终没有回应，强烈建议这次选择 do_nothing 并将 max_wait_seconds 设为 0，不要再等待。\n")
	case followupCount == 1:
		sb.WriteString("这是第二次等待超时，对方可能暂时没空，请谨慎考虑是否还要继续等待。\n")
	default:
		sb.WriteString("这是第一次等待超时，对方可能只是还没看到消息，可以考虑再等一等或温和地追问一句。\n")
	}

	if n := len(pendingThoughts); n > 0 {
		start := 0
		if n > 3 {
			start = n - 3
		}
		sb.WriteString("等待期间你产生过这些想法：\n")
		for _, t := range pendingThoughts[start:] {
			sb.WriteString("- " + t + "\n")
		}
	}

	sb.WriteString(buildResponseShapeInstructions())
	return LLMPayload{Role: "user", Text: sb.String()}
}

// BuildHistoryText renders plain (non-fused) chat history. The engine uses it
// as a fallback when BuildFusedNarrative yields nothing, i.e. when no history
// message has both a timestamp and text.
func (b *PromptBuilder) BuildHistoryText(history []Message) string {
	if len(history) == 0 {
		return ""
	}
	var lines []string
	for _, m := range history {
		ts := time.Unix(int64(m.Time), 0)
		lines = append(lines, fmt.Sprintf("【%s】%s: %s", ts.Format("2006-01-02 15:04:05"), orUnknown(m.SenderName), m.PlainText))
	}
	return "以下为最近的聊天历史记录：\n" + strings.Join(lines, "\n")
}

type timelineEntry struct {
	ts   float64
	line string
}

// BuildFusedNarrative interleaves chat history and the bot's own prior
// thoughts (BotPlanning entries) sorted by timestamp ascending. Bot-thought
// visibility is cut off at the 7th-most-recent history message's timestamp
// (or 0 if fewer than 7 history messages exist).
func (b *PromptBuilder) BuildFusedNarrative(history []Message, log *MentalLog, botID string) string {
	var timeline []timelineEntry
	var chatTimestamps []float64

	for _, m := range history {
		if m.Time == 0 || strings.TrimSpace(m.PlainText) == "" {
			continue
		}
		ts := time.Unix(int64(m.Time), 0)
		hms := ts.Format("15:04:05")
		chatTimestamps = append(chatTimestamps, m.Time)
		if botID != "" && m.SenderID == botID {
			timeline = append(timeline, timelineEntry{m.Time, fmt.Sprintf("[%s] 你回复：%s", hms, m.PlainText)})
		} else {
			timeline = append(timeline, timelineEntry{m.Time, fmt.Sprintf("[%s] %s说：%s", hms, m.SenderName, m.PlainText)})
		}
	}

	var cutoff float64
	if len(chatTimestamps) >= 7 {
		cutoff = chatTimestamps[len(chatTimestamps)-7]
	}

	if log != nil {
		for _, e := range log.Entries() {
			if e.Kind != EventBotPlanning || e.Thought == "" {
				continue
			}
			if e.Timestamp < cutoff {
				continue
			}
			hms := e.Time().Format("15:04:05")
			timeline = append(timeline, timelineEntry{e.Timestamp, fmt.Sprintf("[%s] （你的内心：%s）", hms, e.Thought)})
		}
	}

	if len(timeline) == 0 {
		return ""
	}

	sort.SliceStable(timeline, func(i, j int) bool { return timeline[i].ts < timeline[j].ts })

	lines := make([]string, len(timeline))
	for i, e := range timeline {
		lines[i] = e.line
	}
	return "以下为融合了聊天记录与你内心活动的时间线：\n" + strings.Join(lines, "\n")
}

// BuildContinuousThinkingContext constructs WaitChecker's short user payload
// asking for one more inner-monologue line.
func BuildContinuousThinkingContext(elapsed, progress float64, expectedReaction, lastBotMessage string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "你正在等待对方回复，已经过去了 %.0f 秒（进度 %.0f%%）。\n", elapsed, progress*100)
	if expectedReaction != "" {
		sb.WriteString("你期望对方的反应：" + expectedReaction + "\n")
	}
	if lastBotMessage != "" {
		sb.WriteString("你最后发的消息：" + lastBotMessage + "\n")
	}
	sb.WriteString("请用不超过 200 字描述你此刻的内心想法，只输出想法本身。")
	return sb.String()
}
