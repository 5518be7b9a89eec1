package tools

import (
	"context"

	"github.com/effective-security/mcpchat/pkg/llms"
)

//go:generate mockgen -source=tools.go -destination=../mocks/mocktools/tools_mock.gen.go -package mocktools

// Descriptor is the provider-agnostic description of a tool.
type Descriptor struct {
	// Name of the tool, unique within a provider.
	Name string `json:"name" yaml:"name"`
	// Description of the tool, to be used in the prompt.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// InputSchema is the JSON-Schema of the tool arguments.
	InputSchema map[string]any `json:"input_schema,omitempty" yaml:"input_schema,omitempty"`
}

// ContentTypeText is the type of text content items.
const ContentTypeText = "text"

// Content is one item of a tool result.
// Only items of ContentTypeText carry Text.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// TextContent returns a text content item.
func TextContent(text string) Content {
	return Content{Type: ContentTypeText, Text: text}
}

// Result is the result of a tool invocation.
type Result struct {
	Content []Content `json:"content"`
	// IsError is set when the tool reports a failure in its own output.
	IsError bool `json:"is_error,omitempty"`
}

// Texts returns the text items of the result, in order.
// Items of other types are skipped.
func (r *Result) Texts() []string {
	texts := []string{}
	if r == nil {
		return texts
	}
	for _, c := range r.Content {
		if c.Type == ContentTypeText {
			texts = append(texts, c.Text)
		}
	}
	return texts
}

// Provider is a tool provider client.
// Implementations are not required to be safe for concurrent use.
type Provider interface {
	// ListTools returns the tools currently offered by the provider.
	ListTools(ctx context.Context) ([]Descriptor, error)
	// CallTool invokes the named tool with the arguments.
	CallTool(ctx context.Context, name string, args map[string]any) (*Result, error)
}

// Callback receives tool dispatch events.
type Callback interface {
	OnToolStart(ctx context.Context, provider string, call llms.ToolCall)
	OnToolEnd(ctx context.Context, provider string, call llms.ToolCall, resp llms.ToolCallResponse)
	OnToolError(ctx context.Context, provider string, call llms.ToolCall, err error)
	OnToolNotFound(ctx context.Context, call llms.ToolCall)
}
