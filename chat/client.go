package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/llmutils"
	"github.com/effective-security/mcpchat/pkg/metricskey"
	"github.com/effective-security/xlog"
)

//go:generate mockgen -source=client.go -destination=../mocks/mockchat/client_mock.gen.go -package mockchat
//go:generate mockgen -source=callback.go -destination=../mocks/mockchat/callback_mock.gen.go -package mockchat

// Texts of degraded responses.
const (
	MsgNoModel    = "Model client is not initialized."
	MsgNoResponse = "No response from model."
	MsgModelError = "Error calling model: %s"
)

// ModelClient is the model boundary used by the conversation loop.
type ModelClient interface {
	// Name returns the model name.
	Name() string
	// Chat asks the model for the next turn. It never fails: errors are
	// returned as a response with an explanatory text and no tool calls.
	Chat(ctx context.Context, history []llms.Message, system string, tools []llms.Tool) *llms.ContentResponse
}

// Client adapts an llms.Model to ModelClient.
type Client struct {
	model llms.Model
	opts  []llms.CallOption
}

var _ ModelClient = (*Client)(nil)

// NewClient returns a Client over the model.
// The options are applied on every call.
func NewClient(model llms.Model, opts ...llms.CallOption) *Client {
	return &Client{
		model: model,
		opts:  opts,
	}
}

// Name returns the model name.
func (c *Client) Name() string {
	if c.model == nil {
		return "none"
	}
	return c.model.GetName()
}

// Chat implements ModelClient.
func (c *Client) Chat(ctx context.Context, history []llms.Message, system string, tools []llms.Tool) *llms.ContentResponse {
	if c.model == nil {
		return llms.NewTextResponse(MsgNoModel)
	}

	name := c.model.GetName()
	opts := append([]llms.CallOption{}, c.opts...)
	if system != "" {
		opts = append(opts, llms.WithSystemInstruction(system))
	}
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools))
	}

	started := time.Now()
	resp, err := c.model.GenerateContent(ctx, history, opts...)
	metricskey.PerfLLMCall.MeasureSince(started, name)

	if err != nil {
		metricskey.StatsLLMCallsFailed.IncrCounter(1, name)
		logger.ContextKV(ctx, xlog.ERROR,
			"reason", "generate_content",
			"model", name,
			"messages", len(history),
			"err", err.Error())
		return llms.NewTextResponse(fmt.Sprintf(MsgModelError, err.Error()))
	}
	if resp == nil || (resp.Content == "" && !resp.HasToolCalls()) {
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "empty_response",
			"model", name)
		return llms.NewTextResponse(MsgNoResponse)
	}

	in, out, _ := llmutils.CountTokens(resp)
	metricskey.StatsLLMInputTokens.IncrCounter(float64(in), name)
	metricskey.StatsLLMOutputTokens.IncrCounter(float64(out), name)

	return resp
}

// AddAssistantMessage appends the model turn of the response to the history.
func AddAssistantMessage(history []llms.Message, resp *llms.ContentResponse) []llms.Message {
	if resp == nil {
		return history
	}
	msg := resp.Message
	if len(msg.Parts) == 0 && msg.Raw == nil {
		// response built without a message
		parts := []llms.ContentPart{}
		if resp.Content != "" {
			parts = append(parts, llms.TextPart(resp.Content))
		}
		for _, tc := range resp.ToolCalls {
			parts = append(parts, tc)
		}
		msg = llms.MessageFromParts(llms.RoleAI, parts...)
	}
	if msg.Role == "" {
		msg.Role = llms.RoleAI
	}
	return append(history, msg)
}

// AddToolResults appends the tool results as a single message.
func AddToolResults(history []llms.Message, results []llms.ToolCallResponse) []llms.Message {
	return append(history, llms.MessageFromToolResponses(results...))
}

// TextFromResponse returns the text of the response.
func TextFromResponse(resp *llms.ContentResponse) string {
	if resp == nil {
		return ""
	}
	if resp.Content != "" {
		return resp.Content
	}
	return resp.Message.Text()
}
