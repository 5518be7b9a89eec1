// Package openai implements the llms.Model for OpenAI compatible
// Chat Completions APIs, including Azure OpenAI.
package openai

import (
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/x/values"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// LLM is a Chat Completions client.
type LLM struct {
	Options Options
	client  *openai.Client
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	options := Options{
		Provider:       ProviderOpenAI,
		MaxTokens:      DefaultMaxTokens,
		MaxRetries:     DefaultMaxRetries,
		RequestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}

	options.Token = values.StringsCoalesce(options.Token, os.Getenv(TokenEnvVarName))
	options.Model = values.StringsCoalesce(options.Model, os.Getenv(ModelEnvVarName), DefaultChatModel)
	options.BaseURL = values.StringsCoalesce(options.BaseURL, os.Getenv(BaseURLEnvVarName))
	options.Organization = values.StringsCoalesce(options.Organization, os.Getenv(OrganizationEnvVarName))

	sdkOpts := []option.RequestOption{
		option.WithMaxRetries(options.MaxRetries),
	}
	if options.RequestTimeout > 0 {
		sdkOpts = append(sdkOpts, option.WithRequestTimeout(options.RequestTimeout))
	}

	switch options.Provider {
	case ProviderAzure:
		if options.BaseURL == "" {
			return nil, errors.New("openai: base URL is required for Azure")
		}
		options.APIVersion = values.StringsCoalesce(options.APIVersion, DefaultAPIVersion)
		sdkOpts = append(sdkOpts,
			azure.WithEndpoint(options.BaseURL, options.APIVersion),
			azure.WithAPIKey(options.Token),
		)
	case ProviderOpenAI, ProviderPerplexity:
		if options.Token == "" {
			return nil, errors.Newf("openai: missing API key, set it in the %s environment variable", TokenEnvVarName)
		}
		if options.Provider == ProviderPerplexity {
			options.BaseURL = values.StringsCoalesce(options.BaseURL, PerplexityBaseURL)
		}
		sdkOpts = append(sdkOpts, option.WithAPIKey(options.Token))
		if options.BaseURL != "" {
			sdkOpts = append(sdkOpts, option.WithBaseURL(options.BaseURL))
		}
		if options.Organization != "" {
			sdkOpts = append(sdkOpts, option.WithOrganization(options.Organization))
		}
	default:
		return nil, errors.Newf("openai: unsupported provider %q", options.Provider)
	}
	if options.HTTPClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(options.HTTPClient))
	}

	client := openai.NewClient(sdkOpts...)
	return &LLM{
		Options: options,
		client:  &client,
	}, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.Options.Model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderOpenAI
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(llms.CallOptions{
		Model:     o.Options.Model,
		MaxTokens: o.Options.MaxTokens,
	}, options...)

	params, err := BuildParams(messages, &opts)
	if err != nil {
		return nil, err
	}

	result, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "openai: failed to create chat completion")
	}
	return ConvertCompletion(result)
}

// BuildParams converts the history and call options to the request parameters.
func BuildParams(messages []llms.Message, opts *llms.CallOptions) (openai.ChatCompletionNewParams, error) {
	chatMsgs, err := ConvertMessages(messages, opts.SystemInstruction)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}

	params := openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(opts.Model),
		Messages:            chatMsgs,
		MaxCompletionTokens: openai.Int(int64(values.NumbersCoalesce(opts.MaxTokens, DefaultMaxTokens))),
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if opts.TopP > 0 {
		params.TopP = openai.Float(opts.TopP)
	}
	if len(opts.StopWords) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: opts.StopWords}
	}
	if len(opts.Metadata) > 0 {
		params.Metadata = shared.Metadata{}
		for k, v := range opts.Metadata {
			if s, ok := v.(string); ok {
				params.Metadata[k] = s
			}
		}
	}

	for _, tool := range opts.Tools {
		if tool.Type != "function" || tool.Function == nil {
			return openai.ChatCompletionNewParams{}, errors.Errorf("openai: tool type %v not supported", tool.Type)
		}
		def := shared.FunctionDefinitionParam{
			Name:        tool.Function.Name,
			Description: openai.String(tool.Function.Description),
			Parameters:  shared.FunctionParameters(tool.Function.Parameters),
		}
		params.Tools = append(params.Tools, openai.ChatCompletionFunctionTool(def))
	}
	if len(params.Tools) > 0 {
		switch opts.ToolChoice {
		case llms.FunctionCallBehaviorNone:
			params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("none")}
		case llms.FunctionCallBehaviorAny:
			params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("required")}
		case llms.FunctionCallBehaviorAuto:
			params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("auto")}
		}
	}
	return params, nil
}

// ConvertMessages converts the history to chat messages.
// The system instruction, if any, goes first.
// Each tool result becomes its own tool message.
func ConvertMessages(messages []llms.Message, system string) ([]openai.ChatCompletionMessageParamUnion, error) {
	chatMsgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if system != "" {
		chatMsgs = append(chatMsgs, openai.SystemMessage(system))
	}

	for i, mc := range messages {
		if raw, ok := mc.Raw.(openai.ChatCompletionMessageParamUnion); ok && mc.Role == llms.RoleAI {
			chatMsgs = append(chatMsgs, raw)
			continue
		}

		switch mc.Role {
		case llms.RoleSystem:
			chatMsgs = append(chatMsgs, openai.SystemMessage(mc.Text()))
		case llms.RoleHuman:
			chatMsgs = append(chatMsgs, openai.UserMessage(mc.Text()))
		case llms.RoleAI:
			chatMsgs = append(chatMsgs, assistantMessage(mc))
		case llms.RoleTool:
			for _, part := range mc.Parts {
				resp, ok := part.(llms.ToolCallResponse)
				if !ok {
					return nil, errors.Errorf("openai: message %d: expected part of type ToolCallResponse, got %T", i, part)
				}
				chatMsgs = append(chatMsgs, openai.ToolMessage(resp.Content(), resp.ToolCallID))
			}
		default:
			return nil, errors.Wrapf(llms.ErrUnexpectedRole, "openai: message %d: %q", i, mc.Role)
		}
	}
	return chatMsgs, nil
}

// assistantMessage rebuilds an assistant turn from its parts.
func assistantMessage(mc llms.Message) openai.ChatCompletionMessageParamUnion {
	asst := openai.ChatCompletionAssistantMessageParam{}
	if text := mc.Text(); text != "" {
		asst.Content.OfString = openai.String(text)
	}
	for _, tc := range mc.ToolCalls() {
		args := "{}"
		if tc.FunctionCall != nil && strings.TrimSpace(tc.FunctionCall.Arguments) != "" {
			args = tc.FunctionCall.Arguments
		}
		asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Name(),
					Arguments: args,
				},
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}
}

// ConvertCompletion converts the first choice of the completion to a
// ContentResponse. The assistant turn is kept in Message.Raw.
func ConvertCompletion(result *openai.ChatCompletion) (*llms.ContentResponse, error) {
	if result == nil || len(result.Choices) == 0 {
		return nil, llms.ErrEmptyResponse
	}
	c := result.Choices[0]

	resp := &llms.ContentResponse{
		Content:    c.Message.Content,
		StopReason: c.FinishReason,
		Usage: llms.Usage{
			InputTokens:  result.Usage.PromptTokens,
			OutputTokens: result.Usage.CompletionTokens,
			TotalTokens:  result.Usage.TotalTokens,
		},
		GenerationInfo: map[string]any{
			"ReasoningTokens": result.Usage.CompletionTokensDetails.ReasoningTokens,
		},
	}

	msg := llms.Message{Role: llms.RoleAI, Raw: c.Message.ToParam()}
	if c.Message.Content != "" {
		msg.Parts = append(msg.Parts, llms.TextPart(c.Message.Content))
	}
	for _, tool := range c.Message.ToolCalls {
		call := llms.ToolCall{
			ID:   values.StringsCoalesce(tool.ID, llms.NewToolCallID()),
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      tool.Function.Name,
				Arguments: tool.Function.Arguments,
			},
		}
		resp.ToolCalls = append(resp.ToolCalls, call)
		msg.Parts = append(msg.Parts, call)
	}
	resp.Message = msg
	return resp, nil
}
