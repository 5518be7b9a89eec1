package llmutils_test

import (
	"bytes"
	"testing"

	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/llmutils"
	"github.com/stretchr/testify/assert"
)

func Test_ToJSONIndent(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "{\n\t\"a\": 1\n}", llmutils.ToJSONIndent(map[string]int{"a": 1}))
}

func Test_ToYAML(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "a: 1\n", llmutils.ToYAML(map[string]int{"a": 1}))
}

func Test_EnsureNewline(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", llmutils.EnsureEndsWithNewline("  "))
	assert.Equal(t, "a\n", llmutils.EnsureEndsWithNewline(" a "))
	assert.Equal(t, "a\n", llmutils.EnsureEndsWithNewline("a\n\n"))
}

func Test_CountResponseContentSize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, uint64(0), llmutils.CountResponseContentSize(nil))
	assert.Equal(t, uint64(11), llmutils.CountResponseContentSize(llms.NewTextResponse("Hello world")))

	resp := &llms.ContentResponse{Message: llms.MessageFromParts(llms.RoleAI,
		llms.TextPart("ok"),
		llms.ToolCall{ID: "1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "add", Arguments: "{}"}},
	)}
	// ok(2) + 1 + function(8) + add(3) + {}(2)
	assert.Equal(t, uint64(16), llmutils.CountResponseContentSize(resp))
}

func Test_CountTokens(t *testing.T) {
	t.Parallel()
	in, out, total := llmutils.CountTokens(&llms.ContentResponse{Usage: llms.Usage{InputTokens: 3, OutputTokens: 4}})
	assert.Equal(t, []int64{3, 4, 7}, []int64{in, out, total})

	in, out, total = llmutils.CountTokens(&llms.ContentResponse{Usage: llms.Usage{InputTokens: 3, OutputTokens: 4, TotalTokens: 10}})
	assert.Equal(t, []int64{3, 4, 10}, []int64{in, out, total})
}

func TestPrintMessages(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		messages []llms.Message
		expected string
	}{
		{
			name:     "No messages",
			messages: []llms.Message{},
			expected: "",
		},
		{
			name:     "No parts",
			messages: []llms.Message{{Role: llms.RoleAI}},
			expected: "AI: \n",
		},
		{
			name: "Mixed messages",
			messages: []llms.Message{
				llms.MessageFromTextParts(llms.RoleHuman, "What is 2+2?"),
				llms.MessageFromParts(llms.RoleAI,
					llms.TextPart("Let me add."),
					llms.ToolCall{ID: "1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "add", Arguments: `{"a":2,"b":2}`}}),
				llms.MessageFromToolResponses(
					llms.ToolCallResponse{ToolCallID: "1", Name: "add", Result: `["4"]`},
					llms.ToolCallResponse{ToolCallID: "2", Name: "sub", Error: "Could not find that tool"}),
				llms.MessageFromTextParts(llms.RoleAI, "It is 4."),
			},
			expected: `HUMAN: What is 2+2?
AI: Let me add.
  ToolCall ID=1, Func=add({"a":2,"b":2})
TOOL: ToolCallResponse ID=1, Name=add, Result=["4"]
  ToolCallResponse ID=2, Name=sub, Error=Could not find that tool
AI: It is 4.
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			llmutils.PrintMessages(&buf, tc.messages)
			assert.Equal(t, tc.expected, buf.String())
		})
	}
}
