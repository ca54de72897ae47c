package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseClientMessageChatRequest(t *testing.T) {
	raw := []byte(`{"type":"chat_request","prompt":"hi there","user_id":"u1"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	req, ok := msg.(ChatRequest)
	if !ok {
		t.Fatalf("message type = %T, want ChatRequest", msg)
	}
	if req.Prompt != "hi there" || req.UserID != "u1" {
		t.Fatalf("unexpected chat request: %+v", req)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsBlankPrompt(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"chat_request","prompt":"   "}`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseClientMessageRejectsGarbage(t *testing.T) {
	_, err := ParseClientMessage([]byte(`not json`))
	if err == nil {
		t.Fatalf("expected envelope error")
	}
}

func TestServerFramesCarryTurnID(t *testing.T) {
	turnID := NewTurnID()
	if turnID == "" || turnID == NewTurnID() {
		t.Fatalf("turn ids must be unique and non-empty")
	}

	raw, err := json.Marshal(NewTextDelta(turnID, "Hel"))
	if err != nil {
		t.Fatalf("marshal delta: %v", err)
	}
	var delta map[string]any
	if err := json.Unmarshal(raw, &delta); err != nil {
		t.Fatalf("unmarshal delta: %v", err)
	}
	if delta["type"] != string(TypeAssistantTextDelta) || delta["turn_id"] != turnID || delta["text_delta"] != "Hel" {
		t.Fatalf("unexpected delta frame: %s", raw)
	}

	end := NewTurnEnd(turnID, ReasonCompleted)
	if end.Type != TypeAssistantTurnEnd || end.Reason != ReasonCompleted {
		t.Fatalf("unexpected turn end: %+v", end)
	}

	evt := NewErrorEvent(turnID, "provider_timeout", "took too long", true)
	if evt.Type != TypeErrorEvent || !evt.Retryable {
		t.Fatalf("unexpected error event: %+v", evt)
	}
}

func BenchmarkParseClientMessageChatRequest(b *testing.B) {
	raw := []byte(`{"type":"chat_request","prompt":"tell me something nice","user_id":"u1"}`)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		msg, err := ParseClientMessage(raw)
		if err != nil {
			b.Fatalf("ParseClientMessage() error = %v", err)
		}
		if _, ok := msg.(ChatRequest); !ok {
			b.Fatalf("message type = %T, want ChatRequest", msg)
		}
	}
}
