package kfc

import (
	"context"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const proactiveTriggerTopic = "kfc.proactive_trigger"

// ProactiveThinker periodically decides whether a long-silent stream should
// be proactively re-engaged, emitting a host event rather than reinjecting
// messages itself.
type ProactiveThinker struct {
	store  *SessionStore
	cfg    *Config
	bus    EventBus
	rng    *rand.Rand
	logger *slog.Logger
}

// NewProactiveThinker builds a ProactiveThinker wired to store, config, and
// the host event bus.
func NewProactiveThinker(store *SessionStore, cfg *Config, bus EventBus, logger *slog.Logger) *ProactiveThinker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProactiveThinker{store: store, cfg: cfg, bus: bus, rng: rand.New(rand.NewSource(time.Now().UnixNano())), logger: logger}
}

// Tick is the scheduler callback, invoked every proactive.check_interval
// seconds.
func (p *ProactiveThinker) Tick(ctx context.Context) {
	if !p.cfg.Proactive.Enabled {
		return
	}
	for _, session := range p.store.GetAllCached() {
		p.checkOne(ctx, session)
	}
}

func (p *ProactiveThinker) checkOne(ctx context.Context, session *Session) {
	unlock := p.store.Lock(session.StreamID)
	defer unlock()

	now := time.Now()
	if inQuietHours(now, p.cfg.Proactive.QuietHoursStart, p.cfg.Proactive.QuietHoursEnd) {
		return
	}

	if now.Unix()-int64(session.LastActivityAt) < int64(p.cfg.Proactive.SilenceThreshold) {
		return
	}

	if session.LastProactiveAt != nil {
		if now.Unix()-int64(*session.LastProactiveAt) < int64(p.cfg.Proactive.MinInterval) {
			return
		}
	}

	if p.rng.Float64() >= p.cfg.Proactive.TriggerProbability {
		return
	}

	if p.bus != nil {
		if err := p.bus.Publish(ctx, proactiveTriggerTopic, map[string]interface{}{"stream_id": session.StreamID}); err != nil {
			p.logger.Warn("proactive trigger publish failed", "stream_id", session.StreamID, "error", err)
			return
		}
	}

	ts := float64(now.Unix())
	session.LastProactiveAt = &ts
	session.AddProactiveTrigger(now, p.cfg.Prompt.MaxLogEntries)
	if err := p.store.Save(ctx, session); err != nil {
		p.logger.Warn("proactive-thinker save failed", "stream_id", session.StreamID, "error", err)
	}
}

// inQuietHours reports whether now's minute-of-day falls in [start, end),
// parsed as HH:MM, wrapping around midnight if start > end.
func inQuietHours(now time.Time, start, end string) bool {
	s, ok1 := parseHHMM(start)
	e, ok2 := parseHHMM(end)
	if !ok1 || !ok2 {
		return false
	}
	m := now.Hour()*60 + now.Minute()
	if s <= e {
		return m >= s && m < e
	}
	return m >= s || m < e
}

func parseHHMM(v string) (int, bool) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, false
	}
	return h*60 + m, true
}

const proactiveTriggerMessage = "[主动发起] 你已经沉默很久了，主动找对方聊聊吧。"

// ProactiveHandler subscribes to kfc.proactive_trigger and bridges it back
// into the host's unread queue as a synthesized system message, so the next
// DialogueLoop tick observes it as an ordinary unread.
type ProactiveHandler struct {
	injector ProactiveInjector
}

// ProactiveInjector is the host capability a ProactiveHandler needs: inject a
// synthesized message into a stream's unread queue and clear any wait lock
// so the stream's DialogueLoop re-enters on its next tick.
type ProactiveInjector interface {
	InjectMessage(ctx context.Context, streamID string, msg Message) error
}

// NewProactiveHandler builds a handler wired to injector.
func NewProactiveHandler(injector ProactiveInjector) *ProactiveHandler {
	return &ProactiveHandler{injector: injector}
}

// HandleEvent processes one kfc.proactive_trigger event payload.
func (h *ProactiveHandler) HandleEvent(ctx context.Context, payload map[string]interface{}) error {
	streamID, _ := payload["stream_id"].(string)
	if streamID == "" {
		return nil
	}
	msg := Message{
		MessageID:  "proactive-" + uuid.NewString(),
		SenderID:   "system",
		SenderName: "系统",
		PlainText:  proactiveTriggerMessage,
		Content:    proactiveTriggerMessage,
		Time:       float64(time.Now().Unix()),
	}
	return h.injector.InjectMessage(ctx, streamID, msg)
}
