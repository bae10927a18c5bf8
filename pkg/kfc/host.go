package kfc

import "context"

// Message is the narrow structural view this engine needs of a host
// framework's inbound message type.
type Message struct {
	MessageID  string
	SenderID   string
	SenderName string
	PlainText  string
	Content    interface{} // string or a structured payload, host-defined
	Time       float64     // seconds since epoch; non-numeric sources should convert at the boundary
	Media      []MediaItem
}

// UnreadQueue is the per-stream inbound message buffer owned by the host.
type UnreadQueue interface {
	FetchUnreads(ctx context.Context, streamID string) (formattedText string, messages []Message, err error)
	FlushUnreads(ctx context.Context, streamID string, consumed []Message) error
}

// OutboundSender delivers a reply to the user on behalf of the bot.
type OutboundSender interface {
	SendReply(ctx context.Context, trigger *Message, content string) error
}

// StreamRegistry resolves and activates chat streams.
type StreamRegistry interface {
	Activate(ctx context.Context, streamID string) error
	LastHistoryMessage(ctx context.Context, streamID string) (*Message, bool)
	HistoryMessages(ctx context.Context, streamID string) ([]Message, error)
	BotID(ctx context.Context, streamID string) string
	Platform(ctx context.Context, streamID string) string
	ChatType(ctx context.Context, streamID string) string
}

// LLMToolCall is one structured call returned by the model, whether produced
// via native tool-calling or parsed out of a JSON response body.
type LLMToolCall struct {
	ID   string
	Name string
	Args map[string]interface{}
}

// LLMResponse is the result of one LLM send.
type LLMResponse struct {
	Message  string
	CallList []LLMToolCall
}

// LLMPayload is one message appended to an LLM request/response chain.
type LLMPayload struct {
	Role    string // "system", "user", "tool_result"
	Text    string
	Images  []MediaItem // for multimodal user payloads
	ToolID  string      // set when Role == "tool_result"
	ToolVal string      // tool-result value text
}

// LLMChain is the append-only conversation state of one LLM turn-chain, as
// owned by the host's LLM client. The engine only appends and sends; it
// never inspects the chain's internal representation.
//
// Send takes two independent host parameters: stream controls whether the
// host streams tokens back incrementally (the engine always sends false —
// it only ever wants the finished response), and autoAppendResponse
// controls whether the host appends the model's own response onto the
// chain as conversation history before returning it (the engine wants this
// true so a perceive-then-decide follow-up payload lands after the
// model's prior turn, not in its place).
type LLMChain interface {
	AddPayload(p LLMPayload)
	Send(ctx context.Context, stream, autoAppendResponse bool) (LLMResponse, error)
}

// LLMClient builds fresh request chains for a named model task.
type LLMClient interface {
	NewRequest(ctx context.Context, modelTask string) (LLMChain, error)
}

// ToolSchema is the host's exported shape for a registered third-party tool.
type ToolSchema struct {
	Name        string
	Description string
	Params      []ToolParam
}

// ToolParam describes one parameter of a ToolSchema.
type ToolParam struct {
	Name        string
	Type        string
	Optional    bool
	Description string
}

// ToolRegistry resolves and dispatches third-party (non-core) tool calls.
type ToolRegistry interface {
	Schemas() []ToolSchema
	RunToolCall(ctx context.Context, call LLMToolCall, trigger *Message) error
}

// Scheduler registers a recurring background callback.
type Scheduler interface {
	RegisterRecurring(name string, period float64, fn func(ctx context.Context)) error
}

// EventBus lets background components publish events consumed by host
// handlers outside this engine's scope (e.g. a proactive-reinjection
// handler).
type EventBus interface {
	Publish(ctx context.Context, topic string, payload map[string]interface{}) error
}

// Watchdog receives liveness feeds during long LLM turns.
type Watchdog interface {
	Feed(streamID string)
}

// MediaManager toggles host-side VLM processing for a stream while this
// engine handles images natively.
type MediaManager interface {
	SkipVLMForStream(streamID string)
	UnskipVLMForStream(streamID string)
}

// KVStore is the minimal persistent document store a SessionStore is backed
// by: last-write-wins single-key overwrite, arbitrary JSON documents.
type KVStore interface {
	Load(ctx context.Context, key string) (doc []byte, ok bool, err error)
	Save(ctx context.Context, key string, doc []byte) error
}
