// Package bedrock implements the llms.Model for models hosted on Amazon
// Bedrock, using the Converse API.
package bedrock

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/x/values"
)

const (
	DefaultModel     = "us.anthropic.claude-sonnet-4-20250514-v1:0"
	DefaultMaxTokens = 4096
)

// LLM is a Bedrock LLM implementation.
type LLM struct {
	modelID   string
	maxTokens int
	client    ConverseAPI
}

var _ llms.Model = (*LLM)(nil)

// New creates a new Bedrock LLM implementation.
func New(ctx context.Context, opts ...Option) (*LLM, error) {
	o := &options{
		modelID:   DefaultModel,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.client == nil {
		var loadOpts []func(*config.LoadOptions) error
		if o.region != "" {
			loadOpts = append(loadOpts, config.WithRegion(o.region))
		}
		if o.accessKeyID != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(o.accessKeyID, o.secretAccessKey, o.sessionToken),
			))
		}
		cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, errors.Wrap(err, "bedrock: failed to load AWS config")
		}
		o.client = bedrockruntime.NewFromConfig(cfg)
	}

	return &LLM{
		modelID:   o.modelID,
		maxTokens: o.maxTokens,
		client:    o.client,
	}, nil
}

// GetName implements the Model interface.
func (l *LLM) GetName() string {
	return l.modelID
}

// GetProviderType implements the Model interface.
func (l *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderBedrock
}

// GenerateContent implements llms.Model.
func (l *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(llms.CallOptions{
		Model:     l.modelID,
		MaxTokens: l.maxTokens,
	}, options...)

	input, err := BuildInput(messages, &opts)
	if err != nil {
		return nil, err
	}

	out, err := l.client.Converse(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, "bedrock: converse failed")
	}
	return ConvertOutput(out)
}

// BuildInput converts the history and call options to the Converse input.
func BuildInput(messages []llms.Message, opts *llms.CallOptions) (*bedrockruntime.ConverseInput, error) {
	msgs, system, err := ProcessMessages(messages)
	if err != nil {
		return nil, err
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(opts.Model),
		Messages: msgs,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens: aws.Int32(int32(values.NumbersCoalesce(opts.MaxTokens, DefaultMaxTokens))),
		},
	}

	if system = values.StringsCoalesce(opts.SystemInstruction, system); system != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: system},
		}
	}
	if opts.Temperature > 0 {
		input.InferenceConfig.Temperature = aws.Float32(float32(opts.Temperature))
	}
	if opts.TopP > 0 {
		input.InferenceConfig.TopP = aws.Float32(float32(opts.TopP))
	}
	if len(opts.StopWords) > 0 {
		input.InferenceConfig.StopSequences = opts.StopWords
	}

	if len(opts.Tools) > 0 {
		tc := &types.ToolConfiguration{}
		for _, tool := range opts.Tools {
			if tool.Type != "function" || tool.Function == nil {
				return nil, errors.Errorf("bedrock: tool type %v not supported", tool.Type)
			}
			schema := tool.Function.Parameters
			if schema == nil {
				schema = map[string]any{"type": "object", "properties": map[string]any{}}
			}
			tc.Tools = append(tc.Tools, &types.ToolMemberToolSpec{
				Value: types.ToolSpecification{
					Name:        aws.String(tool.Function.Name),
					Description: aws.String(tool.Function.Description),
					InputSchema: &types.ToolInputSchemaMemberJson{
						Value: document.NewLazyDocument(schema),
					},
				},
			})
		}
		// Converse has no "none" choice, the model decides
		switch opts.ToolChoice {
		case llms.FunctionCallBehaviorAny:
			tc.ToolChoice = &types.ToolChoiceMemberAny{Value: types.AnyToolChoice{}}
		case llms.FunctionCallBehaviorAuto:
			tc.ToolChoice = &types.ToolChoiceMemberAuto{Value: types.AutoToolChoice{}}
		}
		input.ToolConfig = tc
	}
	return input, nil
}

// ProcessMessages converts the history to Converse messages.
// System messages are returned separately, joined by new lines.
func ProcessMessages(messages []llms.Message) ([]types.Message, string, error) {
	msgs := make([]types.Message, 0, len(messages))
	var system []string
	for i, m := range messages {
		if raw, ok := m.Raw.(types.Message); ok && m.Role == llms.RoleAI {
			msgs = append(msgs, raw)
			continue
		}

		msg := types.Message{}
		switch m.Role {
		case llms.RoleSystem:
			system = append(system, m.Text())
			continue
		case llms.RoleAI:
			msg.Role = types.ConversationRoleAssistant
		case llms.RoleHuman, llms.RoleTool:
			msg.Role = types.ConversationRoleUser
		default:
			return nil, "", errors.Wrapf(llms.ErrUnexpectedRole, "bedrock: message %d: %q", i, m.Role)
		}

		for _, part := range m.Parts {
			switch p := part.(type) {
			case llms.TextContent:
				if p.Text != "" {
					msg.Content = append(msg.Content, &types.ContentBlockMemberText{Value: p.Text})
				}
			case llms.ToolCall:
				args, err := p.Args()
				if err != nil {
					return nil, "", err
				}
				msg.Content = append(msg.Content, &types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String(p.ID),
						Name:      aws.String(p.Name()),
						Input:     document.NewLazyDocument(args),
					},
				})
			case llms.ToolCallResponse:
				status := types.ToolResultStatusSuccess
				if p.IsError() {
					status = types.ToolResultStatusError
				}
				msg.Content = append(msg.Content, &types.ContentBlockMemberToolResult{
					Value: types.ToolResultBlock{
						ToolUseId: aws.String(p.ToolCallID),
						Status:    status,
						Content: []types.ToolResultContentBlock{
							&types.ToolResultContentBlockMemberText{Value: p.Content()},
						},
					},
				})
			default:
				return nil, "", errors.Errorf("bedrock: message %d: unsupported part type %T", i, part)
			}
		}
		if len(msg.Content) > 0 {
			msgs = append(msgs, msg)
		}
	}
	return msgs, strings.Join(system, "\n"), nil
}

// ConvertOutput converts the Converse output to a ContentResponse.
// The assistant message is kept as types.Message in Message.Raw.
func ConvertOutput(out *bedrockruntime.ConverseOutput) (*llms.ContentResponse, error) {
	if out == nil {
		return nil, llms.ErrEmptyResponse
	}
	member, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, llms.ErrEmptyResponse
	}

	resp := &llms.ContentResponse{
		StopReason: string(out.StopReason),
	}
	if out.Usage != nil {
		resp.Usage = llms.Usage{
			InputTokens:  int64(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int64(aws.ToInt32(out.Usage.OutputTokens)),
			TotalTokens:  int64(aws.ToInt32(out.Usage.TotalTokens)),
		}
	}

	var text strings.Builder
	msg := llms.Message{Role: llms.RoleAI, Raw: member.Value}
	for _, block := range member.Value.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			text.WriteString(b.Value)
			msg.Parts = append(msg.Parts, llms.TextPart(b.Value))
		case *types.ContentBlockMemberToolUse:
			args := map[string]any{}
			if b.Value.Input != nil {
				if err := b.Value.Input.UnmarshalSmithyDocument(&args); err != nil {
					return nil, errors.Wrapf(err, "bedrock: invalid tool input for %q", aws.ToString(b.Value.Name))
				}
			}
			call := llms.NewToolCall(aws.ToString(b.Value.ToolUseId), aws.ToString(b.Value.Name), args)
			resp.ToolCalls = append(resp.ToolCalls, call)
			msg.Parts = append(msg.Parts, call)
		}
	}
	resp.Content = text.String()
	resp.Message = msg
	return resp, nil
}
