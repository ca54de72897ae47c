package completion

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockGatewayEchoesLastUserMessage(t *testing.T) {
	g := NewMockGateway()
	reply, err := g.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleUser, Content: "  hi there "},
	})
	require.NoError(t, err)
	assert.Equal(t, "I heard you: hi there", reply)
}

func TestMockGatewayStreamTerminatesWithDone(t *testing.T) {
	g := NewMockGateway()
	ch, err := g.Stream(context.Background(), []Message{{Role: RoleUser, Content: "hello world"}})
	require.NoError(t, err)

	var text strings.Builder
	var last Chunk
	for c := range ch {
		text.WriteString(c.Delta)
		last = c
	}
	assert.True(t, last.Done)
	assert.Equal(t, "I heard you: hello world", text.String())
}
