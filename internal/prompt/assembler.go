// Package prompt builds the ordered message list sent to the provider.
package prompt

import (
	"strings"
	"time"

	"github.com/ent0n29/levo/internal/completion"
)

const (
	// EmptyMemoryMarker is sent in place of the memory blob for new users.
	EmptyMemoryMarker = "Conversation memory: (empty)"

	memoryHeader = "Conversation memory:\n"
	linksHeader  = "Relevant links:\n"
	dateLayout   = "Monday, January 2, 2006"
)

// Input carries everything the assembler needs for one turn.
type Input struct {
	Instructions string
	Today        time.Time
	Memory       string
	Links        string
	UserText     string
}

// Assemble returns system instructions, today's date, the memory blob, the
// link block when present, and finally the user message. Context messages
// must come before the user turn so the model reads them as background.
func Assemble(in Input) []completion.Message {
	msgs := make([]completion.Message, 0, 5)
	msgs = append(msgs,
		completion.Message{Role: completion.RoleSystem, Content: in.Instructions},
		completion.Message{Role: completion.RoleSystem, Content: FormatDate(in.Today)},
		completion.Message{Role: completion.RoleSystem, Content: memoryMessage(in.Memory)},
	)
	if block := strings.TrimSpace(in.Links); block != "" {
		msgs = append(msgs, completion.Message{Role: completion.RoleSystem, Content: linksHeader + block})
	}
	msgs = append(msgs, completion.Message{Role: completion.RoleUser, Content: in.UserText})
	return msgs
}

// FormatDate renders t as "Today's date is Wednesday, October 14, 2026."
func FormatDate(t time.Time) string {
	return "Today's date is " + t.Format(dateLayout) + "."
}

func memoryMessage(blob string) string {
	if blob == "" {
		return EmptyMemoryMarker
	}
	return memoryHeader + blob
}
