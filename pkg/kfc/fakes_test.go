package kfc

import (
	"context"
	"sync"
)

// fakeChain is an in-memory LLMChain whose Send responses are popped off a
// preloaded queue, one per call.
type fakeChain struct {
	mu       sync.Mutex
	payloads []LLMPayload
	queue    []LLMResponse
}

func (c *fakeChain) AddPayload(p LLMPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, p)
}

func (c *fakeChain) Send(ctx context.Context, stream, autoAppendResponse bool) (LLMResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return LLMResponse{}, nil
	}
	r := c.queue[0]
	c.queue = c.queue[1:]
	return r, nil
}

// fakeLLMClient hands out a single shared fakeChain (tests construct it with
// the responses preloaded).
type fakeLLMClient struct {
	chain *fakeChain
}

func (c *fakeLLMClient) NewRequest(ctx context.Context, modelTask string) (LLMChain, error) {
	return c.chain, nil
}

// fakeSender records every outbound send.
type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *fakeSender) SendReply(ctx context.Context, trigger *Message, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, content)
	return nil
}

func (s *fakeSender) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	copy(out, s.sent)
	return out
}

// fakeUnreadQueue serves one preloaded batch of unreads, then empties.
type fakeUnreadQueue struct {
	mu       sync.Mutex
	text     string
	messages []Message
	flushed  [][]Message
}

func (q *fakeUnreadQueue) FetchUnreads(ctx context.Context, streamID string) (string, []Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.text, q.messages, nil
}

func (q *fakeUnreadQueue) FlushUnreads(ctx context.Context, streamID string, consumed []Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.flushed = append(q.flushed, consumed)
	q.messages = nil
	q.text = ""
	return nil
}

// fakeStreamRegistry is a minimal no-history registry.
type fakeStreamRegistry struct {
	botID    string
	platform string
	chatType string
}

func (r *fakeStreamRegistry) Activate(ctx context.Context, streamID string) error { return nil }
func (r *fakeStreamRegistry) LastHistoryMessage(ctx context.Context, streamID string) (*Message, bool) {
	return nil, false
}
func (r *fakeStreamRegistry) HistoryMessages(ctx context.Context, streamID string) ([]Message, error) {
	return nil, nil
}
func (r *fakeStreamRegistry) BotID(ctx context.Context, streamID string) string    { return r.botID }
func (r *fakeStreamRegistry) Platform(ctx context.Context, streamID string) string { return r.platform }
func (r *fakeStreamRegistry) ChatType(ctx context.Context, streamID string) string { return r.chatType }

// fakeKV is an in-memory KVStore.
type fakeKV struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func newFakeKV() *fakeKV { return &fakeKV{docs: map[string][]byte{}} }

func (k *fakeKV) Load(ctx context.Context, key string) ([]byte, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	doc, ok := k.docs[key]
	return doc, ok, nil
}

func (k *fakeKV) Save(ctx context.Context, key string, doc []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.docs[key] = doc
	return nil
}
