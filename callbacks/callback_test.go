package callbacks_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/callbacks"
	"github.com/effective-security/mcpchat/mocks/mockchat"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

var (
	testCall = llms.NewToolCall("call_1", "add", map[string]any{"a": 2, "b": 3})
	testResp = llms.ToolCallResponse{ToolCallID: "call_1", Name: "add", Result: `["5"]`}
)

func emitAll(ctx context.Context, cb interface {
	OnChatStart(context.Context, string, string)
	OnModelResponse(context.Context, string, int, *llms.ContentResponse)
	OnInterimText(context.Context, string, string)
	OnChatEnd(context.Context, string, string, error)
	OnToolStart(context.Context, string, llms.ToolCall)
	OnToolEnd(context.Context, string, llms.ToolCall, llms.ToolCallResponse)
	OnToolError(context.Context, string, llms.ToolCall, error)
	OnToolNotFound(context.Context, llms.ToolCall)
}) {
	cb.OnChatStart(ctx, "chat1", "What is 2+3?")
	cb.OnModelResponse(ctx, "chat1", 1, &llms.ContentResponse{
		Content:   "Let me compute that.",
		ToolCalls: []llms.ToolCall{testCall},
	})
	cb.OnInterimText(ctx, "chat1", "Let me compute that.")
	cb.OnToolStart(ctx, "calc", testCall)
	cb.OnToolEnd(ctx, "calc", testCall, testResp)
	cb.OnToolError(ctx, "calc", testCall, errors.New("division by zero"))
	cb.OnToolNotFound(ctx, llms.NewToolCall("call_2", "missing", nil))
	cb.OnChatEnd(ctx, "chat1", "2 + 3 = 5", nil)
	cb.OnChatEnd(ctx, "chat1", "", errors.New("max turns exceeded"))
}

func TestPrinter(t *testing.T) {
	t.Parallel()

	t.Run("default", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		emitAll(context.Background(), callbacks.NewPrinter(&buf, callbacks.ModeDefault))

		res := buf.String()
		assert.Contains(t, res, "Let me compute that.\n")
		assert.Contains(t, res, "Tool Start: add (calc)\n")
		assert.Contains(t, res, "Tool End: add (calc)\n")
		assert.Contains(t, res, "Tool Error: add (calc): division by zero\n")
		assert.Contains(t, res, "Tool Not Found: missing\n")
		assert.Contains(t, res, "Chat Error: max turns exceeded\n")
		assert.NotContains(t, res, "Chat Start")
		assert.NotContains(t, res, "Output:")
		assert.NotContains(t, res, "Input:")
	})

	t.Run("verbose", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		emitAll(context.Background(), callbacks.NewPrinter(&buf, callbacks.ModeVerbose))

		res := buf.String()
		assert.Contains(t, res, "Chat Start: chat1\nInput: What is 2+3?\n")
		assert.Contains(t, res, "Model Turn: 1, 1 tool calls\n")
		assert.Contains(t, res, `Input: {"a":2,"b":3}`)
		assert.Contains(t, res, `Output: ["5"]`)
		assert.Contains(t, res, "Chat End: chat1\n")
	})
}

func TestPackageLogger(t *testing.T) {
	t.Parallel()
	// must not panic on any event
	logger := xlog.NewPackageLogger("github.com/effective-security/mcpchat", "callbacks_test")
	emitAll(context.Background(), callbacks.NewPackageLogger(logger))
}

func TestNoop(t *testing.T) {
	t.Parallel()
	emitAll(context.Background(), callbacks.NewNoop())
}

func TestFanout(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	m1 := mockchat.NewMockCallback(ctrl)
	m2 := mockchat.NewMockCallback(ctrl)

	for _, m := range []*mockchat.MockCallback{m1, m2} {
		m.EXPECT().OnChatStart(gomock.Any(), "chat1", "What is 2+3?")
		m.EXPECT().OnModelResponse(gomock.Any(), "chat1", 1, gomock.Any())
		m.EXPECT().OnInterimText(gomock.Any(), "chat1", "Let me compute that.")
		m.EXPECT().OnToolStart(gomock.Any(), "calc", testCall)
		m.EXPECT().OnToolEnd(gomock.Any(), "calc", testCall, testResp)
		m.EXPECT().OnToolError(gomock.Any(), "calc", testCall, gomock.Any())
		m.EXPECT().OnToolNotFound(gomock.Any(), gomock.Any())
		m.EXPECT().OnChatEnd(gomock.Any(), "chat1", gomock.Any(), gomock.Any()).Times(2)
	}

	f := callbacks.NewFanout(m1)
	f.Add(m2)
	emitAll(context.Background(), f)
}
