package prompt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/levo/internal/completion"
)

var today = time.Date(2026, time.October, 14, 9, 30, 0, 0, time.UTC)

func TestAssembleWithoutLinks(t *testing.T) {
	got := Assemble(Input{
		Instructions: "be levo",
		Today:        today,
		Memory:       "",
		UserText:     "hi",
	})

	assert.Equal(t, []completion.Message{
		{Role: completion.RoleSystem, Content: "be levo"},
		{Role: completion.RoleSystem, Content: "Today's date is Wednesday, October 14, 2026."},
		{Role: completion.RoleSystem, Content: EmptyMemoryMarker},
		{Role: completion.RoleUser, Content: "hi"},
	}, got)
}

func TestAssembleLinkBlockSitsBeforeUserMessage(t *testing.T) {
	got := Assemble(Input{
		Instructions: "be levo",
		Today:        today,
		Memory:       "hi\nhey!",
		Links:        "- [Laptop](https://amazon.com/l)",
		UserText:     "find me a laptop on amazon",
	})

	require.Len(t, got, 5)
	assert.Equal(t, "Conversation memory:\nhi\nhey!", got[2].Content)
	assert.Equal(t, completion.RoleSystem, got[3].Role)
	assert.Equal(t, "Relevant links:\n- [Laptop](https://amazon.com/l)", got[3].Content)
	assert.Equal(t, completion.Message{Role: completion.RoleUser, Content: "find me a laptop on amazon"}, got[4])
}

func TestAssembleLinkBlockPresenceTracksInput(t *testing.T) {
	for _, links := range []string{"", "   ", "\n"} {
		got := Assemble(Input{Instructions: "x", Today: today, Links: links, UserText: "u"})
		assert.Len(t, got, 4, "links=%q", links)
	}
	got := Assemble(Input{Instructions: "x", Today: today, Links: "- [a](b)", UserText: "u"})
	assert.Len(t, got, 5)
	assert.Equal(t, completion.RoleUser, got[len(got)-1].Role)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "Today's date is Friday, January 2, 2026.", FormatDate(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)))
}
