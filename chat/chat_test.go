package chat_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/chat"
	"github.com/effective-security/mcpchat/mocks/mockchat"
	"github.com/effective-security/mcpchat/mocks/mocktools"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/llms/googleai"
	"github.com/effective-security/mcpchat/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var addTool = tools.Descriptor{
	Name:        "add",
	Description: "Adds two numbers",
	InputSchema: map[string]any{
		"type":  "object",
		"title": "AddInput",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required":             []any{"a", "b"},
		"additionalProperties": false,
	},
}

func newClient(ctrl *gomock.Controller) *mockchat.MockModelClient {
	c := mockchat.NewMockModelClient(ctrl)
	c.EXPECT().Name().Return("test-model").AnyTimes()
	return c
}

func TestRun_NoTools(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := newClient(ctrl)
	client.EXPECT().Chat(gomock.Any(), gomock.Len(1), "You are a calculator.", gomock.Nil()).
		Return(llms.NewTextResponse("4"))

	c, err := chat.New(client, nil, chat.WithSystemInstruction("You are a calculator."))
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID())
	assert.Equal(t, "You are a calculator.", c.SystemInstruction())

	answer, err := c.Run(context.Background(), "What is 2+2?")
	require.NoError(t, err)
	assert.Equal(t, "4", answer)

	h := c.History()
	require.Len(t, h, 2)
	assert.Equal(t, llms.RoleHuman, h[0].Role)
	assert.Equal(t, "What is 2+2?", h[0].Text())
	assert.Equal(t, llms.RoleAI, h[1].Role)
	assert.Equal(t, "4", h[1].Text())

	c.Reset()
	assert.Empty(t, c.History())
}

func TestRun_ToolLoop(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := newClient(ctrl)
	prov := mocktools.NewMockProvider(ctrl)
	cb := mockchat.NewMockCallback(ctrl)

	prov.EXPECT().ListTools(gomock.Any()).Return([]tools.Descriptor{addTool}, nil).AnyTimes()
	prov.EXPECT().CallTool(gomock.Any(), "add", map[string]any{"a": float64(2), "b": float64(3)}).
		Return(&tools.Result{Content: []tools.Content{tools.TextContent("5")}}, nil)

	call := llms.NewToolCall("call_1", "add", map[string]any{"a": 2, "b": 3})
	expTools := []llms.Tool{{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        "add",
			Description: "Adds two numbers",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"a": map[string]any{"type": "number"},
					"b": map[string]any{"type": "number"},
				},
				"required": []any{"a", "b"},
			},
		},
	}}

	gomock.InOrder(
		client.EXPECT().Chat(gomock.Any(), gomock.Len(1), "", expTools).
			Return(&llms.ContentResponse{
				Content:   "Let me compute that.",
				ToolCalls: []llms.ToolCall{call},
				Message:   llms.MessageFromParts(llms.RoleAI, llms.TextPart("Let me compute that."), call),
			}),
		client.EXPECT().Chat(gomock.Any(), gomock.Len(3), "", expTools).
			Return(llms.NewTextResponse("2 + 3 = 5")),
	)

	gomock.InOrder(
		cb.EXPECT().OnChatStart(gomock.Any(), "chat-1", "What is 2+3?"),
		cb.EXPECT().OnModelResponse(gomock.Any(), "chat-1", 1, gomock.Any()),
		cb.EXPECT().OnInterimText(gomock.Any(), "chat-1", "Let me compute that."),
		cb.EXPECT().OnToolStart(gomock.Any(), "calc", call),
		cb.EXPECT().OnToolEnd(gomock.Any(), "calc", call, gomock.Any()),
		cb.EXPECT().OnModelResponse(gomock.Any(), "chat-1", 2, gomock.Any()),
		cb.EXPECT().OnChatEnd(gomock.Any(), "chat-1", "2 + 3 = 5", nil),
	)

	reg := tools.NewRegistry().MustRegister("calc", prov)
	c, err := chat.New(client, reg, chat.WithCallback(cb), chat.WithChatID("chat-1"))
	require.NoError(t, err)

	answer, err := c.Run(context.Background(), "What is 2+3?")
	require.NoError(t, err)
	assert.Equal(t, "2 + 3 = 5", answer)

	h := c.History()
	require.Len(t, h, 4)
	assert.Equal(t, llms.RoleHuman, h[0].Role)
	assert.Equal(t, llms.RoleAI, h[1].Role)
	assert.Equal(t, []llms.ToolCall{call}, h[1].ToolCalls())
	assert.Equal(t, llms.RoleTool, h[2].Role)
	assert.Equal(t, []llms.ContentPart{
		llms.ToolCallResponse{ToolCallID: "call_1", Name: "add", Result: `["5"]`},
	}, h[2].Parts)
	assert.Equal(t, llms.RoleAI, h[3].Role)
	assert.Equal(t, "2 + 3 = 5", h[3].Text())
}

func TestRun_UnknownToolGoesBackToModel(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := newClient(ctrl)

	call := llms.NewToolCall("call_x", "missing", nil)
	var second []llms.Message
	gomock.InOrder(
		client.EXPECT().Chat(gomock.Any(), gomock.Any(), "", gomock.Nil()).
			Return(&llms.ContentResponse{ToolCalls: []llms.ToolCall{call}}),
		client.EXPECT().Chat(gomock.Any(), gomock.Any(), "", gomock.Nil()).
			DoAndReturn(func(_ context.Context, h []llms.Message, _ string, _ []llms.Tool) *llms.ContentResponse {
				second = h
				return llms.NewTextResponse("I cannot do that.")
			}),
	)

	c, err := chat.New(client, tools.NewRegistry())
	require.NoError(t, err)

	answer, err := c.Run(context.Background(), "Use the missing tool")
	require.NoError(t, err)
	assert.Equal(t, "I cannot do that.", answer)

	require.Len(t, second, 3)
	assert.Equal(t, []llms.ContentPart{
		llms.ToolCallResponse{ToolCallID: "call_x", Name: "missing", Error: "Could not find that tool"},
	}, second[2].Parts)
}

func TestRun_MaxTurns(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := newClient(ctrl)
	client.EXPECT().Chat(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, []llms.Message, string, []llms.Tool) *llms.ContentResponse {
			return &llms.ContentResponse{ToolCalls: []llms.ToolCall{llms.NewToolCall("", "loop", nil)}}
		}).Times(3)

	c, err := chat.New(client, nil, chat.WithMaxTurns(3))
	require.NoError(t, err)

	_, err = c.Run(context.Background(), "loop forever")
	require.Error(t, err)
	assert.True(t, errors.Is(err, chat.ErrMaxTurnsExceeded))
	assert.Contains(t, err.Error(), "after 3 turns")

	// human, then 3 model turns each followed by tool results
	assert.Len(t, c.History(), 7)
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := newClient(ctrl)

	c, err := chat.New(client, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Run(ctx, "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRun_CancelledDuringTools(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := newClient(ctrl)
	prov := mocktools.NewMockProvider(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prov.EXPECT().ListTools(gomock.Any()).Return([]tools.Descriptor{addTool}, nil).AnyTimes()
	prov.EXPECT().CallTool(gomock.Any(), "add", gomock.Any()).
		DoAndReturn(func(context.Context, string, map[string]any) (*tools.Result, error) {
			cancel()
			return &tools.Result{Content: []tools.Content{tools.TextContent("5")}}, nil
		})
	client.EXPECT().Chat(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&llms.ContentResponse{ToolCalls: []llms.ToolCall{llms.NewToolCall("", "add", nil)}})

	c, err := chat.New(client, tools.NewRegistry().MustRegister("calc", prov))
	require.NoError(t, err)

	_, err = c.Run(ctx, "What is 2+3?")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Contains(t, err.Error(), "chat cancelled after 1 turns")
}

func TestRun_CancelledDuringModel(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := newClient(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client.EXPECT().Chat(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, []llms.Message, string, []llms.Tool) *llms.ContentResponse {
			cancel()
			return llms.NewTextResponse("Error calling model: context canceled")
		})

	c, err := chat.New(client, nil)
	require.NoError(t, err)

	answer, err := c.Run(ctx, "hello")
	require.Error(t, err)
	assert.Empty(t, answer)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Contains(t, err.Error(), "chat cancelled after 1 turns")

	h := c.History()
	require.Len(t, h, 1)
	assert.Equal(t, llms.RoleHuman, h[0].Role)
}

func TestRun_NilResponse(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := newClient(ctrl)
	client.EXPECT().Chat(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	c, err := chat.New(client, nil)
	require.NoError(t, err)

	answer, err := c.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, chat.MsgNoResponse, answer)
	assert.Len(t, c.History(), 2)
}

func TestRun_Serialized(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := newClient(ctrl)

	var (
		mu      sync.Mutex
		lengths []int
	)
	client.EXPECT().Chat(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, h []llms.Message, _ string, _ []llms.Tool) *llms.ContentResponse {
			mu.Lock()
			lengths = append(lengths, len(h))
			mu.Unlock()
			return llms.NewTextResponse("ok")
		}).Times(4)

	c, err := chat.New(client, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			answer, err := c.Run(context.Background(), "ping")
			assert.NoError(t, err)
			assert.Equal(t, "ok", answer)
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{1, 3, 5, 7}, lengths)
	assert.Len(t, c.History(), 8)
}

func TestNew_SystemTemplate(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := newClient(ctrl)

	c, err := chat.New(client, nil,
		chat.WithSystemInstruction("ignored"),
		chat.WithSystemTemplate("You are {{ .role | lower }}.", map[string]any{"role": "A Calculator"}))
	require.NoError(t, err)
	assert.Equal(t, "You are a calculator.", c.SystemInstruction())

	_, err = chat.New(client, nil, chat.WithSystemTemplate("You are {{ .role", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid system instruction")

	_, err = chat.New(client, nil, chat.WithMaxTurns(-1))
	require.Error(t, err)
	assert.Equal(t, "invalid max turns: -1", err.Error())
}

func TestRun_ContextCarriesID(t *testing.T) {
	t.Parallel()

	assert.Empty(t, chat.IDFromContext(context.Background()))

	ctrl := gomock.NewController(t)
	client := newClient(ctrl)

	var got string
	client.EXPECT().Chat(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ []llms.Message, _ string, _ []llms.Tool) *llms.ContentResponse {
			got = chat.IDFromContext(ctx)
			return llms.NewTextResponse("ok")
		})

	c, err := chat.New(client, nil, chat.WithChatID("chat-42"))
	require.NoError(t, err)
	_, err = c.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "chat-42", got)
}

func TestRun_ResumesHistory(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := newClient(ctrl)
	client.EXPECT().Chat(gomock.Any(), gomock.Len(3), gomock.Any(), gomock.Any()).
		Return(llms.NewTextResponse("6"))

	prior := []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "What is 2+2?"),
		llms.MessageFromTextParts(llms.RoleAI, "4"),
	}
	c, err := chat.New(client, nil, chat.WithHistory(prior))
	require.NoError(t, err)
	assert.Len(t, c.History(), 2)

	answer, err := c.Run(context.Background(), "And 3+3?")
	require.NoError(t, err)
	assert.Equal(t, "6", answer)
	assert.Len(t, c.History(), 4)
	assert.Len(t, prior, 2)
}

func TestRun_GoogleAIEnumTool(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	var request map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &request)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "4"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 5, "candidatesTokenCount": 1, "totalTokenCount": 6}
		}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	model, err := googleai.New(ctx,
		googleai.WithAPIKey("test"),
		googleai.WithBaseURL(srv.URL),
		googleai.WithModel("gemini-test"),
		googleai.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	levels := mocktools.NewMockProvider(ctrl)
	levels.EXPECT().ListTools(gomock.Any()).Return([]tools.Descriptor{
		{
			Name: "set_level",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"level": map[string]any{"type": "integer", "enum": []any{1.0, 2.0}},
					"raw":   "string",
				},
			},
		},
		addTool,
	}, nil).AnyTimes()

	c, err := chat.New(chat.NewClient(model), tools.NewRegistry().MustRegister("levels", levels))
	require.NoError(t, err)

	answer, err := c.Run(ctx, "What is 2+2?")
	require.NoError(t, err)
	assert.Equal(t, "4", answer)
	assert.Equal(t, int32(1), hits.Load())

	require.NotNil(t, request)
	js, _ := json.Marshal(request["tools"])
	assert.Contains(t, string(js), `"set_level"`)
	assert.Contains(t, string(js), `"add"`)
}
