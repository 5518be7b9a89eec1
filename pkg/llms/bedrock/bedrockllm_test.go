package bedrock_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/llms/bedrock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverse struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (f *fakeConverse) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.input = params
	return f.out, f.err
}

func TestProcessMessages(t *testing.T) {
	t.Parallel()

	raw := types.Message{
		Role:    types.ConversationRoleAssistant,
		Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: "original"}},
	}
	msgs, system, err := bedrock.ProcessMessages([]llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "be brief"),
		llms.MessageFromTextParts(llms.RoleHuman, "2+2?"),
		llms.MessageFromParts(llms.RoleAI, llms.NewToolCall("t1", "add", map[string]any{"a": 2, "b": 2})),
		llms.MessageFromToolResponses(
			llms.ToolCallResponse{ToolCallID: "t1", Name: "add", Result: `["4"]`},
			llms.ToolCallResponse{ToolCallID: "t2", Name: "div", Error: "division by zero"},
		),
		{Role: llms.RoleAI, Parts: []llms.ContentPart{llms.TextPart("rebuilt")}, Raw: raw},
	})
	require.NoError(t, err)
	assert.Equal(t, "be brief", system)
	require.Len(t, msgs, 4)

	assert.Equal(t, types.ConversationRoleUser, msgs[0].Role)
	assert.Equal(t, &types.ContentBlockMemberText{Value: "2+2?"}, msgs[0].Content[0])

	assert.Equal(t, types.ConversationRoleAssistant, msgs[1].Role)
	use, ok := msgs[1].Content[0].(*types.ContentBlockMemberToolUse)
	require.True(t, ok)
	assert.Equal(t, "t1", aws.ToString(use.Value.ToolUseId))
	assert.Equal(t, "add", aws.ToString(use.Value.Name))

	assert.Equal(t, types.ConversationRoleUser, msgs[2].Role)
	require.Len(t, msgs[2].Content, 2)
	okResult := msgs[2].Content[0].(*types.ContentBlockMemberToolResult)
	assert.Equal(t, types.ToolResultStatusSuccess, okResult.Value.Status)
	assert.Equal(t, "t1", aws.ToString(okResult.Value.ToolUseId))
	failed := msgs[2].Content[1].(*types.ContentBlockMemberToolResult)
	assert.Equal(t, types.ToolResultStatusError, failed.Value.Status)
	assert.Equal(t, &types.ToolResultContentBlockMemberText{Value: "division by zero"}, failed.Value.Content[0])

	assert.Equal(t, raw, msgs[3])

	_, _, err = bedrock.ProcessMessages([]llms.Message{llms.MessageFromTextParts("bogus", "x")})
	assert.EqualError(t, err, "bedrock: message 0: \"bogus\": unexpected role")
}

func TestBuildInput(t *testing.T) {
	t.Parallel()

	opts := llms.NewCallOptions(llms.CallOptions{Model: "m1"},
		llms.WithSystemInstruction("calc"),
		llms.WithTemperature(0.5),
		llms.WithToolChoice(llms.FunctionCallBehaviorAny),
		llms.WithTools([]llms.Tool{
			{Type: "function", Function: &llms.FunctionDefinition{Name: "add", Parameters: map[string]any{"type": "object"}}},
			{Type: "function", Function: &llms.FunctionDefinition{Name: "now"}},
		}),
	)
	input, err := bedrock.BuildInput(nil, &opts)
	require.NoError(t, err)
	assert.Equal(t, "m1", aws.ToString(input.ModelId))
	assert.Equal(t, int32(bedrock.DefaultMaxTokens), aws.ToInt32(input.InferenceConfig.MaxTokens))
	assert.Equal(t, float32(0.5), aws.ToFloat32(input.InferenceConfig.Temperature))
	assert.Equal(t, []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: "calc"}}, input.System)
	require.NotNil(t, input.ToolConfig)
	require.Len(t, input.ToolConfig.Tools, 2)
	spec := input.ToolConfig.Tools[1].(*types.ToolMemberToolSpec)
	assert.Equal(t, "now", aws.ToString(spec.Value.Name))
	assert.IsType(t, &types.ToolChoiceMemberAny{}, input.ToolConfig.ToolChoice)

	opts = llms.NewCallOptions(llms.CallOptions{Model: "m1"}, llms.WithTools([]llms.Tool{{Type: "retrieval"}}))
	_, err = bedrock.BuildInput(nil, &opts)
	assert.EqualError(t, err, "bedrock: tool type retrieval not supported")
}

func TestGenerateContent(t *testing.T) {
	t.Parallel()

	fake := &fakeConverse{
		out: &bedrockruntime.ConverseOutput{
			StopReason: types.StopReasonToolUse,
			Usage: &types.TokenUsage{
				InputTokens:  aws.Int32(11),
				OutputTokens: aws.Int32(4),
				TotalTokens:  aws.Int32(15),
			},
			Output: &types.ConverseOutputMemberMessage{
				Value: types.Message{
					Role: types.ConversationRoleAssistant,
					Content: []types.ContentBlock{
						&types.ContentBlockMemberText{Value: "Adding."},
						&types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
							ToolUseId: aws.String("tooluse_1"),
							Name:      aws.String("add"),
							Input:     document.NewLazyDocument(map[string]any{"a": 2, "b": 2}),
						}},
					},
				},
			},
		},
	}

	ctx := context.Background()
	llm, err := bedrock.New(ctx, bedrock.WithClient(fake), bedrock.WithModel("m1"))
	require.NoError(t, err)
	assert.Equal(t, "m1", llm.GetName())
	assert.Equal(t, llms.ProviderBedrock, llm.GetProviderType())

	resp, err := llm.GenerateContent(ctx, []llms.Message{llms.MessageFromTextParts(llms.RoleHuman, "2+2?")})
	require.NoError(t, err)
	assert.Equal(t, "Adding.", resp.Content)
	assert.Equal(t, "tool_use", resp.StopReason)
	assert.Equal(t, llms.Usage{InputTokens: 11, OutputTokens: 4, TotalTokens: 15}, resp.Usage)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "tooluse_1", resp.ToolCalls[0].ID)
	assert.JSONEq(t, `{"a":2,"b":2}`, resp.ToolCalls[0].FunctionCall.Arguments)
	assert.IsType(t, types.Message{}, resp.Message.Raw)
	assert.Equal(t, "m1", aws.ToString(fake.input.ModelId))

	fake.err = errors.New("throttled")
	_, err = llm.GenerateContent(ctx, nil)
	assert.EqualError(t, err, "bedrock: converse failed: throttled")

	fake.err = nil
	fake.out = &bedrockruntime.ConverseOutput{}
	_, err = llm.GenerateContent(ctx, nil)
	assert.ErrorIs(t, err, llms.ErrEmptyResponse)
}
