package chat

import (
	"context"

	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/tools"
)

// Callback receives the events of a chat run.
type Callback interface {
	tools.Callback

	// OnChatStart is called when Run receives a query.
	OnChatStart(ctx context.Context, chatID, query string)
	// OnModelResponse is called after each model turn.
	OnModelResponse(ctx context.Context, chatID string, turn int, resp *llms.ContentResponse)
	// OnInterimText is called with the text the model emits
	// along with tool calls.
	OnInterimText(ctx context.Context, chatID, text string)
	// OnChatEnd is called when Run returns.
	OnChatEnd(ctx context.Context, chatID, answer string, err error)
}

type nopCallback struct{}

func (nopCallback) OnChatStart(context.Context, string, string)                             {}
func (nopCallback) OnModelResponse(context.Context, string, int, *llms.ContentResponse)     {}
func (nopCallback) OnInterimText(context.Context, string, string)                           {}
func (nopCallback) OnChatEnd(context.Context, string, string, error)                        {}
func (nopCallback) OnToolStart(context.Context, string, llms.ToolCall)                      {}
func (nopCallback) OnToolEnd(context.Context, string, llms.ToolCall, llms.ToolCallResponse) {}
func (nopCallback) OnToolError(context.Context, string, llms.ToolCall, error)               {}
func (nopCallback) OnToolNotFound(context.Context, llms.ToolCall)                           {}
