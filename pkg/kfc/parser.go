package kfc

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var fencedCodeBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// rawToolCallJSON mirrors the JSON shape a model is asked to emit.
type rawToolCallJSON struct {
	Thought          string         `json:"thought"`
	Actions          []ActionRecord `json:"actions"`
	ExpectedReaction string         `json:"expected_user_reaction"`
	MaxWaitSeconds   float64        `json:"max_wait_seconds"`
	Mood             string         `json:"mood"`
}

// ParseModelResponse extracts a ToolCallResult from an LLM turn. When
// nativeCalls is non-empty, the model used native tool-calling and call_list
// takes precedence over prose entirely — prose is only consulted via
// JSON-in-prose parsing when nativeCalls is empty. text is always parsed for
// "thought"/"expected_user_reaction"/"mood"/"max_wait_seconds" metadata
// regardless, since native tool-calling responses may still carry these in
// accompanying prose; native call args carrying the same keys override the
// prose values, later calls overwriting earlier ones.
func ParseModelResponse(text string, nativeCalls []LLMToolCall) ToolCallResult {
	if len(nativeCalls) > 0 {
		return resultFromNativeCalls(text, nativeCalls)
	}
	return resultFromProse(text)
}

func resultFromNativeCalls(text string, calls []LLMToolCall) ToolCallResult {
	r := ToolCallResult{}
	meta := extractLooseMetadata(text)
	r.Thought = meta.Thought
	r.ExpectedReaction = meta.ExpectedReaction
	r.MaxWaitSeconds = meta.MaxWaitSeconds
	r.Mood = meta.Mood

	for _, c := range calls {
		name := normalizeToolName(c.Name)
		action := ActionRecord{Type: name, Fields: map[string]interface{}{}}
		for k, v := range c.Args {
			action.Fields[k] = v
		}
		if v, ok := c.Args["thought"].(string); ok {
			r.Thought = v
		}
		if v, ok := c.Args["expected_reaction"].(string); ok {
			r.ExpectedReaction = v
		}
		if v, ok := c.Args["max_wait_seconds"].(float64); ok {
			r.MaxWaitSeconds = v
		}
		if v, ok := c.Args["mood"].(string); ok {
			r.Mood = v
		}
		switch name {
		case "kfc_reply":
			r.HasReply = true
		case "do_nothing":
			r.HasDoNothing = true
		default:
			r.HasThirdParty = true
		}
		r.Actions = append(r.Actions, action)
	}
	return r
}

// normalizeToolName strips a "prefix:" namespace segment, keeping only the
// text after the last colon, since some tool registries qualify names with
// a provider or package prefix.
func normalizeToolName(name string) string {
	if idx := strings.LastIndex(name, ":"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

// resultFromProse implements the priority chain: strict JSON parse, then a
// fenced ```json code block, then lenient gjson field extraction, then a
// do_nothing fallback if nothing usable was found.
func resultFromProse(text string) ToolCallResult {
	if raw, ok := tryStrictJSON(text); ok {
		return resultFromRaw(raw)
	}
	if m := fencedCodeBlockPattern.FindStringSubmatch(text); m != nil {
		if raw, ok := tryStrictJSON(m[1]); ok {
			return resultFromRaw(raw)
		}
	}
	if raw, ok := tryLenientExtraction(text); ok {
		return resultFromRaw(raw)
	}
	preview := []rune(text)
	if len(preview) > 120 {
		preview = preview[:120]
	}
	slog.Warn("model response not parseable, falling back to do_nothing", "response", string(preview))
	return ToolCallResult{
		Thought:      "响应格式异常，选择不回复",
		HasDoNothing: true,
		Actions:      []ActionRecord{{Type: "do_nothing", Fields: map[string]interface{}{}}},
	}
}

func tryStrictJSON(text string) (rawToolCallJSON, bool) {
	var raw rawToolCallJSON
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return raw, false
	}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return raw, false
	}
	return raw, true
}

// tryLenientExtraction pulls the known fields out of whatever JSON-like
// fragment gjson can find, tolerating trailing prose/commentary around it.
func tryLenientExtraction(text string) (rawToolCallJSON, bool) {
	var raw rawToolCallJSON
	if !gjson.Valid(text) {
		start := strings.IndexByte(text, '{')
		end := strings.LastIndexByte(text, '}')
		if start < 0 || end <= start {
			return raw, false
		}
		text = text[start : end+1]
		if !gjson.Valid(text) {
			return raw, false
		}
	}
	result := gjson.Parse(text)
	if !result.Get("thought").Exists() && !result.Get("actions").Exists() {
		return raw, false
	}
	raw.Thought = result.Get("thought").String()
	raw.ExpectedReaction = result.Get("expected_user_reaction").String()
	raw.MaxWaitSeconds = result.Get("max_wait_seconds").Float()
	raw.Mood = result.Get("mood").String()
	for _, a := range result.Get("actions").Array() {
		fields := map[string]interface{}{}
		a.ForEach(func(key, value gjson.Result) bool {
			fields[key.String()] = value.Value()
			return true
		})
		t, _ := fields["type"].(string)
		delete(fields, "type")
		raw.Actions = append(raw.Actions, ActionRecord{Type: t, Fields: fields})
	}
	return raw, true
}

func resultFromRaw(raw rawToolCallJSON) ToolCallResult {
	r := ToolCallResult{
		Thought:          raw.Thought,
		ExpectedReaction: raw.ExpectedReaction,
		MaxWaitSeconds:   raw.MaxWaitSeconds,
		Mood:             raw.Mood,
		Actions:          raw.Actions,
	}
	for _, a := range r.Actions {
		switch normalizeToolName(a.Type) {
		case "kfc_reply":
			r.HasReply = true
		case "do_nothing":
			r.HasDoNothing = true
		default:
			r.HasThirdParty = true
		}
	}
	if len(r.Actions) == 0 {
		r.HasDoNothing = true
		r.Actions = []ActionRecord{{Type: "do_nothing", Fields: map[string]interface{}{}}}
	}
	return r
}

type looseMetadata struct {
	Thought          string
	ExpectedReaction string
	MaxWaitSeconds   float64
	Mood             string
}

// extractLooseMetadata best-effort parses thought/mood/etc out of prose
// accompanying a native tool call, tolerating their absence.
func extractLooseMetadata(text string) looseMetadata {
	var m looseMetadata
	if raw, ok := tryStrictJSON(text); ok {
		return looseMetadata{raw.Thought, raw.ExpectedReaction, raw.MaxWaitSeconds, raw.Mood}
	}
	if raw, ok := tryLenientExtraction(text); ok {
		return looseMetadata{raw.Thought, raw.ExpectedReaction, raw.MaxWaitSeconds, raw.Mood}
	}
	return m
}
