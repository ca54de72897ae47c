package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeChatRequest        MessageType = "chat_request"
	TypeAssistantTextDelta MessageType = "assistant_text_delta"
	TypeAssistantTurnEnd   MessageType = "assistant_turn_end"
	TypeErrorEvent         MessageType = "error_event"
)

// Turn end reasons.
const (
	ReasonCompleted = "completed"
	ReasonFailed    = "failed"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type ChatRequest struct {
	Type   MessageType `json:"type"`
	Prompt string      `json:"prompt"`
	UserID string      `json:"user_id,omitempty"`
}

type AssistantTextDelta struct {
	Type      MessageType `json:"type"`
	TurnID    string      `json:"turn_id"`
	TextDelta string      `json:"text_delta"`
}

type AssistantTurnEnd struct {
	Type   MessageType `json:"type"`
	TurnID string      `json:"turn_id"`
	Reason string      `json:"reason"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	TurnID    string      `json:"turn_id,omitempty"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

// NewTurnID returns an identifier shared by every server frame of one reply.
func NewTurnID() string {
	return uuid.NewString()
}

func NewTextDelta(turnID, delta string) AssistantTextDelta {
	return AssistantTextDelta{Type: TypeAssistantTextDelta, TurnID: turnID, TextDelta: delta}
}

func NewTurnEnd(turnID, reason string) AssistantTurnEnd {
	return AssistantTurnEnd{Type: TypeAssistantTurnEnd, TurnID: turnID, Reason: reason}
}

func NewErrorEvent(turnID, code, detail string, retryable bool) ErrorEvent {
	return ErrorEvent{Type: TypeErrorEvent, TurnID: turnID, Code: code, Detail: detail, Retryable: retryable}
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeChatRequest:
		var msg ChatRequest
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.Prompt) == "" {
			return nil, errors.New("invalid chat_request: prompt is required")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
