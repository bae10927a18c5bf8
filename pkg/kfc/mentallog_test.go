package kfc

import "testing"

func TestMentalLogFIFOEviction(t *testing.T) {
	l := NewMentalLog(3)
	for i := 0; i < 5; i++ {
		l.Add(MentalLogEntry{Kind: EventUserMessage, Timestamp: float64(i)})
	}
	if l.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", l.Len())
	}
	got := l.Entries()
	for i, want := range []float64{2, 3, 4} {
		if got[i].Timestamp != want {
			t.Errorf("entry %d timestamp = %v, want %v", i, got[i].Timestamp, want)
		}
	}
}

func TestMentalLogRoundTrip(t *testing.T) {
	l := NewMentalLog(10)
	l.Add(MentalLogEntry{Kind: EventUserMessage, Timestamp: 1, Content: "hi", UserName: "a"})
	l.Add(MentalLogEntry{
		Kind: EventBotPlanning, Timestamp: 2, Thought: "thinking",
		Actions: []ActionRecord{{Type: "kfc_reply", Fields: map[string]interface{}{"content": "ok"}}},
	})

	out := l.ToList()
	rebuilt := FromList(out, 10)

	if rebuilt.Len() != l.Len() {
		t.Fatalf("round-trip Len() = %d, want %d", rebuilt.Len(), l.Len())
	}
	for i, e := range rebuilt.Entries() {
		orig := l.Entries()[i]
		if e.Kind != orig.Kind || e.Timestamp != orig.Timestamp {
			t.Errorf("entry %d = %+v, want %+v", i, e, orig)
		}
	}
}

func TestFromListCoercesUnknownEventType(t *testing.T) {
	records := []MentalLogEntry{{Kind: EventKind("some_future_kind"), Timestamp: 1, Content: "x"}}
	l := FromList(records, 10)
	if got := l.Entries()[0].Kind; got != EventUserMessage {
		t.Errorf("unknown kind coerced to %v, want %v", got, EventUserMessage)
	}
}

func TestLastBotReplyContent(t *testing.T) {
	l := NewMentalLog(10)
	l.Add(MentalLogEntry{Kind: EventBotPlanning, Timestamp: 1, Actions: []ActionRecord{
		{Type: "kfc_reply", Fields: map[string]interface{}{"content": "first"}},
	}})
	l.Add(MentalLogEntry{Kind: EventBotPlanning, Timestamp: 2, Actions: []ActionRecord{
		{Type: "do_nothing", Fields: map[string]interface{}{}},
	}})
	l.Add(MentalLogEntry{Kind: EventBotPlanning, Timestamp: 3, Actions: []ActionRecord{
		{Type: "kfc_reply", Fields: map[string]interface{}{"content": "second"}},
	}})

	if got := l.LastBotReplyContent(); got != "second" {
		t.Errorf("LastBotReplyContent() = %q, want %q", got, "second")
	}
}

func TestActionRecordJSONFlattening(t *testing.T) {
	a := ActionRecord{Type: "kfc_reply", Fields: map[string]interface{}{"content": "hi"}}
	data, err := a.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	var back ActionRecord
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if back.Type != "kfc_reply" || back.Content() != "hi" {
		t.Errorf("round-trip = %+v, want type=kfc_reply content=hi", back)
	}
}
