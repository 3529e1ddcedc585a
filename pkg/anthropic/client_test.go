package anthropic

import (
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageResponse_Text(t *testing.T) {
	r := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "Hi Jane, "},
		{Type: "tool_use", Text: "ignored"},
		{Type: "text", Text: "thanks for the reply.\n"},
	}}
	assert.Equal(t, "Hi Jane, thanks for the reply.", r.Text())
}

func TestToSDKMessages_Roles(t *testing.T) {
	out := toSDKMessages([]Message{
		{Role: "user", Content: "a"},
		{Role: "assistant", Content: "b"},
		{Role: "other", Content: "c"},
	})
	require.Len(t, out, 3)
	assert.Equal(t, sdk.MessageParamRoleUser, out[0].Role)
	assert.Equal(t, sdk.MessageParamRoleAssistant, out[1].Role)
	assert.Equal(t, sdk.MessageParamRoleUser, out[2].Role)
}

func TestCachedSystem(t *testing.T) {
	blocks := CachedSystem("prompt")
	require.Len(t, blocks, 1)
	assert.Equal(t, "prompt", blocks[0].Text)
	require.NotNil(t, blocks[0].CacheControl)
	assert.Equal(t, "1h", blocks[0].CacheControl.TTL)

	sdkBlocks := toSDKSystemBlocks(blocks)
	require.Len(t, sdkBlocks, 1)
	assert.Equal(t, sdk.CacheControlEphemeralTTL("1h"), sdkBlocks[0].CacheControl.TTL)
}

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name  string
		model string
		usage TokenUsage
		want  float64
	}{
		{"haiku", "claude-haiku-4-5-20251001", TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}, 4.80},
		{"sonnet", "claude-sonnet-4-5-20250929", TokenUsage{InputTokens: 1_000_000}, 3.00},
		{"cache read", "claude-haiku-4-5-20251001", TokenUsage{CacheReadInputTokens: 1_000_000}, 0.08},
		{"unknown", "gpt-x", TokenUsage{InputTokens: 1_000_000}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.usage.EstimateCost(tt.model), 1e-9)
		})
	}
}

func TestLogCost_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		TokenUsage{InputTokens: 10}.LogCost("claude-haiku-4-5-20251001", "followup")
	})
}
