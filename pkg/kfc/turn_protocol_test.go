package kfc

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

// fakeToolRegistry records every third-party tool call it receives.
type fakeToolRegistry struct {
	calls []LLMToolCall
	err   error
}

func (r *fakeToolRegistry) Schemas() []ToolSchema { return nil }

func (r *fakeToolRegistry) RunToolCall(ctx context.Context, call LLMToolCall, trigger *Message) error {
	r.calls = append(r.calls, call)
	return r.err
}

func testReplyConfig() ReplyConfig {
	return ReplyConfig{TypingCharsPerSec: 1000, TypingDelayMin: 0, TypingDelayMax: 0.001}
}

// Scenario 5: a reply that leaks internal metadata keywords is sanitized
// before it ever reaches the sender.
func TestTurnProtocol_SanitizesLeakingReplyBeforeSend(t *testing.T) {
	ctx := context.Background()
	chain := &fakeChain{queue: []LLMResponse{{
		Message: `{"thought":"测试","actions":[{"type":"kfc_reply","content":"好的\n想法: 我其实很累\n心情: 疲倦"}],"max_wait_seconds":30}`,
	}}}
	sender := &fakeSender{}
	tp := NewTurnProtocol(&fakeLLMClient{chain: chain}, nil, sender, nil, testReplyConfig(), GeneralConfig{}, nil)

	result, err := tp.RunTurn(ctx, "stream-"+uuid.NewString(), chain, nil)
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if !result.HasReply {
		t.Fatal("expected HasReply true")
	}

	sent := sender.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent = %v, want exactly 1 reply", sent)
	}
	if sent[0] != "好的" {
		t.Fatalf("sent[0] = %q, want sanitized %q", sent[0], "好的")
	}

	// The recorded action must carry the sanitized text too, since this is
	// what ends up persisted into the mental log via AddBotPlanning — the
	// raw leaked content must never survive into the record.
	if got := result.Actions[0].Content(); got != "好的" {
		t.Fatalf("result.Actions[0].Content() = %q, want sanitized %q", got, "好的")
	}
}

// A kfc_reply action whose content is entirely swallowed by sanitization
// sends nothing and reports the failure back to the model as a tool result.
func TestTurnProtocol_FullyLeakingReplySendsNothing(t *testing.T) {
	ctx := context.Background()
	chain := &fakeChain{queue: []LLMResponse{{
		Message: `{"thought":"测试","actions":[{"type":"kfc_reply","content":"想法: 啊 心情: 烦"}],"max_wait_seconds":30}`,
	}}}
	sender := &fakeSender{}
	tp := NewTurnProtocol(&fakeLLMClient{chain: chain}, nil, sender, nil, testReplyConfig(), GeneralConfig{}, nil)

	_, err := tp.RunTurn(ctx, "stream1", chain, nil)
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if len(sender.Sent()) != 0 {
		t.Fatalf("expected no send, got %v", sender.Sent())
	}
}

// A native third-party tool call dispatches through the ToolRegistry rather
// than being treated as a reply or a no-op.
func TestTurnProtocol_DispatchesThirdPartyToolCall(t *testing.T) {
	ctx := context.Background()
	chain := &fakeChain{queue: []LLMResponse{{
		CallList: []LLMToolCall{{Name: "search:web_search", Args: map[string]interface{}{"query": "天气"}}},
	}}}
	tools := &fakeToolRegistry{}
	tp := NewTurnProtocol(&fakeLLMClient{chain: chain}, tools, &fakeSender{}, nil, testReplyConfig(), GeneralConfig{}, nil)

	result, err := tp.RunTurn(ctx, "stream1", chain, nil)
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if !result.HasThirdParty {
		t.Fatal("expected HasThirdParty true")
	}
	if len(tools.calls) != 1 || tools.calls[0].Name != "web_search" {
		t.Fatalf("tools.calls = %+v, want one call to web_search (prefix stripped)", tools.calls)
	}
}

// Multiple replies in one turn only incur the simulated typing delay before
// the 2nd and later sends, never before the first.
func TestTurnProtocol_TypingDelaySkippedBeforeFirstReply(t *testing.T) {
	ctx := context.Background()
	chain := &fakeChain{queue: []LLMResponse{{
		Message: `{"thought":"测试","actions":[{"type":"kfc_reply","content":"第一条"},{"type":"kfc_reply","content":"第二条"}],"max_wait_seconds":30}`,
	}}}
	sender := &fakeSender{}
	tp := NewTurnProtocol(&fakeLLMClient{chain: chain}, nil, sender, nil, testReplyConfig(), GeneralConfig{}, nil)

	_, err := tp.RunTurn(ctx, "stream1", chain, nil)
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	sent := sender.Sent()
	if len(sent) != 2 || sent[0] != "第一条" || sent[1] != "第二条" {
		t.Fatalf("sent = %v, want [第一条 第二条]", sent)
	}
}

// In native multimodal mode, the perceive-then-decide retry nudges the model
// again when it responds with prose but no tool call, bounded by
// MaxCompatRetries.
func TestTurnProtocol_PerceiveRetryOnToolcallLessResponse(t *testing.T) {
	ctx := context.Background()
	chain := &fakeChain{queue: []LLMResponse{
		{Message: "我在想..."},
		{Message: `{"thought":"好的","actions":[{"type":"do_nothing"}],"max_wait_seconds":0}`},
	}}
	tp := NewTurnProtocol(&fakeLLMClient{chain: chain}, nil, &fakeSender{}, nil, testReplyConfig(), GeneralConfig{MaxCompatRetries: 1, NativeMultimodal: true}, nil)

	result, err := tp.RunTurn(ctx, "stream1", chain, nil)
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if !result.HasDoNothing {
		t.Fatal("expected the retried response to parse as do_nothing")
	}
	if len(chain.payloads) == 0 {
		t.Fatal("expected at least one follow-up payload recorded on the chain")
	}
}
