package chat_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/chat"
	"github.com/effective-security/mcpchat/mocks/mockllms"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestClient_NoModel(t *testing.T) {
	t.Parallel()

	c := chat.NewClient(nil)
	assert.Equal(t, "none", c.Name())

	resp := c.Chat(context.Background(), nil, "", nil)
	require.NotNil(t, resp)
	assert.Equal(t, chat.MsgNoModel, resp.Content)
	assert.False(t, resp.HasToolCalls())
	assert.Equal(t, llms.RoleAI, resp.Message.Role)
}

func TestClient_Degraded(t *testing.T) {
	t.Parallel()

	tcases := []struct {
		name string
		resp *llms.ContentResponse
		err  error
		exp  string
	}{
		{name: "error", err: errors.New("quota exceeded"), exp: "Error calling model: quota exceeded"},
		{name: "nil", exp: chat.MsgNoResponse},
		{name: "empty", resp: &llms.ContentResponse{}, exp: chat.MsgNoResponse},
		{name: "text", resp: llms.NewTextResponse("4"), exp: "4"},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			m := mockllms.NewMockModel(ctrl)
			m.EXPECT().GetName().Return("test-model").AnyTimes()
			m.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).Return(tc.resp, tc.err)

			c := chat.NewClient(m)
			assert.Equal(t, "test-model", c.Name())

			resp := c.Chat(context.Background(), []llms.Message{
				llms.MessageFromTextParts(llms.RoleHuman, "What is 2+2?"),
			}, "", nil)
			require.NotNil(t, resp)
			assert.Equal(t, tc.exp, resp.Content)
			assert.False(t, resp.HasToolCalls())
		})
	}
}

func TestClient_Options(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	m := mockllms.NewMockModel(ctrl)
	m.EXPECT().GetName().Return("test-model").AnyTimes()

	offered := []llms.Tool{{
		Type:     "function",
		Function: &llms.FunctionDefinition{Name: "add", Description: "Adds two numbers"},
	}}

	var got llms.CallOptions
	m.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msgs []llms.Message, opts ...llms.CallOption) (*llms.ContentResponse, error) {
			got = llms.NewCallOptions(llms.CallOptions{}, opts...)
			return &llms.ContentResponse{
				Content: "ok",
				Usage:   llms.Usage{InputTokens: 10, OutputTokens: 2},
			}, nil
		})

	c := chat.NewClient(m, llms.WithMaxTokens(512))
	resp := c.Chat(context.Background(), nil, "Be brief.", offered)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 512, got.MaxTokens)
	assert.Equal(t, "Be brief.", got.SystemInstruction)
	assert.Equal(t, offered, got.Tools)

	// no system and no tools
	m.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msgs []llms.Message, opts ...llms.CallOption) (*llms.ContentResponse, error) {
			got = llms.NewCallOptions(llms.CallOptions{}, opts...)
			return llms.NewTextResponse("ok"), nil
		})
	_ = c.Chat(context.Background(), nil, "", nil)
	assert.Empty(t, got.SystemInstruction)
	assert.Nil(t, got.Tools)
	assert.Equal(t, 512, got.MaxTokens)
}

func TestAddAssistantMessage(t *testing.T) {
	t.Parallel()

	assert.Empty(t, chat.AddAssistantMessage(nil, nil))

	call := llms.NewToolCall("call_1", "add", map[string]any{"a": 2})

	// response without a message is rebuilt from content and tool calls
	h := chat.AddAssistantMessage(nil, &llms.ContentResponse{
		Content:   "Let me add",
		ToolCalls: []llms.ToolCall{call},
	})
	require.Len(t, h, 1)
	assert.Equal(t, llms.RoleAI, h[0].Role)
	require.Len(t, h[0].Parts, 2)
	assert.Equal(t, "Let me add", h[0].Text())
	assert.Equal(t, []llms.ToolCall{call}, h[0].ToolCalls())

	// vendor message is kept as is
	raw := struct{ ID string }{ID: "vendor"}
	h = chat.AddAssistantMessage(h, &llms.ContentResponse{
		Content: "5",
		Message: llms.Message{Role: llms.RoleAI, Parts: []llms.ContentPart{llms.TextPart("5")}, Raw: raw},
	})
	require.Len(t, h, 2)
	assert.Equal(t, raw, h[1].Raw)

	h = chat.AddToolResults(h, []llms.ToolCallResponse{{ToolCallID: "call_1", Name: "add", Result: `["5"]`}})
	require.Len(t, h, 3)
	assert.Equal(t, llms.RoleTool, h[2].Role)
}

func TestTextFromResponse(t *testing.T) {
	t.Parallel()

	assert.Empty(t, chat.TextFromResponse(nil))
	assert.Equal(t, "4", chat.TextFromResponse(llms.NewTextResponse("4")))
	assert.Equal(t, "from message", chat.TextFromResponse(&llms.ContentResponse{
		Message: llms.MessageFromTextParts(llms.RoleAI, "from ", "message"),
	}))
}
