package callbacks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/effective-security/mcpchat/chat"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/xlog"
)

// ensure that the callbacks implement the correct interfaces
var (
	_ chat.Callback  = (*Noop)(nil)
	_ tools.Callback = (*Noop)(nil)
	_ chat.Callback  = (*Printer)(nil)
	_ chat.Callback  = (*PackageLogger)(nil)
	_ chat.Callback  = (*Fanout)(nil)
	_ chat.Callback  = (*Scratchpad)(nil)
)

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault is the default mode for callback printing
	ModeDefault Mode = iota
	// ModeVerbose is the verbose mode for callback printing
	ModeVerbose
)

// Fanout is a callback handler that forwards the events to multiple callbacks.
type Fanout struct {
	callbacks []chat.Callback
}

func NewFanout(callbacks ...chat.Callback) *Fanout {
	return &Fanout{callbacks: callbacks}
}

func (l *Fanout) Add(callback chat.Callback) {
	l.callbacks = append(l.callbacks, callback)
}

func (l *Fanout) each(fn func(chat.Callback)) {
	for _, callback := range l.callbacks {
		fn(callback)
	}
}

func (l *Fanout) OnChatStart(ctx context.Context, chatID, query string) {
	l.each(func(c chat.Callback) { c.OnChatStart(ctx, chatID, query) })
}

func (l *Fanout) OnModelResponse(ctx context.Context, chatID string, turn int, resp *llms.ContentResponse) {
	l.each(func(c chat.Callback) { c.OnModelResponse(ctx, chatID, turn, resp) })
}

func (l *Fanout) OnInterimText(ctx context.Context, chatID, text string) {
	l.each(func(c chat.Callback) { c.OnInterimText(ctx, chatID, text) })
}

func (l *Fanout) OnChatEnd(ctx context.Context, chatID, answer string, err error) {
	l.each(func(c chat.Callback) { c.OnChatEnd(ctx, chatID, answer, err) })
}

func (l *Fanout) OnToolStart(ctx context.Context, provider string, call llms.ToolCall) {
	l.each(func(c chat.Callback) { c.OnToolStart(ctx, provider, call) })
}

func (l *Fanout) OnToolEnd(ctx context.Context, provider string, call llms.ToolCall, resp llms.ToolCallResponse) {
	l.each(func(c chat.Callback) { c.OnToolEnd(ctx, provider, call, resp) })
}

func (l *Fanout) OnToolError(ctx context.Context, provider string, call llms.ToolCall, err error) {
	l.each(func(c chat.Callback) { c.OnToolError(ctx, provider, call, err) })
}

func (l *Fanout) OnToolNotFound(ctx context.Context, call llms.ToolCall) {
	l.each(func(c chat.Callback) { c.OnToolNotFound(ctx, call) })
}

// Noop does nothing.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (l *Noop) OnChatStart(ctx context.Context, chatID, query string) {}
func (l *Noop) OnModelResponse(ctx context.Context, chatID string, turn int, resp *llms.ContentResponse) {
}
func (l *Noop) OnInterimText(ctx context.Context, chatID, text string)               {}
func (l *Noop) OnChatEnd(ctx context.Context, chatID, answer string, err error)      {}
func (l *Noop) OnToolStart(ctx context.Context, provider string, call llms.ToolCall) {}
func (l *Noop) OnToolEnd(ctx context.Context, provider string, call llms.ToolCall, resp llms.ToolCallResponse) {
}
func (l *Noop) OnToolError(ctx context.Context, provider string, call llms.ToolCall, err error) {
}
func (l *Noop) OnToolNotFound(ctx context.Context, call llms.ToolCall) {}

// Printer is a callback handler that prints to the Writer.
// Interim text is always printed, as it is part of the conversation.
type Printer struct {
	Out  io.Writer
	Mode Mode

	lock sync.Mutex
}

func NewPrinter(out io.Writer, mode Mode) *Printer {
	return &Printer{Out: out, Mode: mode}
}

// printf writes a line, serialized with the concurrent tool calls.
func (l *Printer) printf(format string, args ...any) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, format+"\n", args...)
}

func (l *Printer) verbose() bool {
	return l.Mode == ModeVerbose
}

func (l *Printer) OnChatStart(ctx context.Context, chatID, query string) {
	if l.verbose() {
		l.printf("Chat Start: %s\nInput: %s", chatID, query)
	}
}

func (l *Printer) OnModelResponse(ctx context.Context, chatID string, turn int, resp *llms.ContentResponse) {
	if l.verbose() {
		l.printf("Model Turn: %d, %d tool calls", turn, len(resp.ToolCalls))
	}
}

func (l *Printer) OnInterimText(ctx context.Context, chatID, text string) {
	l.printf("%s", text)
}

func (l *Printer) OnChatEnd(ctx context.Context, chatID, answer string, err error) {
	switch {
	case err != nil:
		l.printf("Chat Error: %s", err.Error())
	case l.verbose():
		l.printf("Chat End: %s", chatID)
	}
}

func (l *Printer) OnToolStart(ctx context.Context, provider string, call llms.ToolCall) {
	if l.verbose() && call.FunctionCall != nil {
		l.printf("Tool Start: %s (%s)\nInput: %s", call.Name(), provider, call.FunctionCall.Arguments)
		return
	}
	l.printf("Tool Start: %s (%s)", call.Name(), provider)
}

func (l *Printer) OnToolEnd(ctx context.Context, provider string, call llms.ToolCall, resp llms.ToolCallResponse) {
	if l.verbose() {
		l.printf("Tool End: %s (%s)\nOutput: %s", call.Name(), provider, resp.Content())
		return
	}
	l.printf("Tool End: %s (%s)", call.Name(), provider)
}

func (l *Printer) OnToolError(ctx context.Context, provider string, call llms.ToolCall, err error) {
	l.printf("Tool Error: %s (%s): %s", call.Name(), provider, err.Error())
}

func (l *Printer) OnToolNotFound(ctx context.Context, call llms.ToolCall) {
	l.printf("Tool Not Found: %s", call.Name())
}

// PackageLogger is a callback handler that prints to the logger.
type PackageLogger struct {
	logger *xlog.PackageLogger
}

func NewPackageLogger(logger *xlog.PackageLogger) *PackageLogger {
	return &PackageLogger{logger: logger}
}

func (l *PackageLogger) OnChatStart(ctx context.Context, chatID, query string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "chat_start",
		"chat_id", chatID,
		"input", query,
	)
}

func (l *PackageLogger) OnModelResponse(ctx context.Context, chatID string, turn int, resp *llms.ContentResponse) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "model_response",
		"chat_id", chatID,
		"turn", turn,
		"tool_calls", len(resp.ToolCalls),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
}

func (l *PackageLogger) OnInterimText(ctx context.Context, chatID, text string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "interim_text",
		"chat_id", chatID,
		"text", text,
	)
}

func (l *PackageLogger) OnChatEnd(ctx context.Context, chatID, answer string, err error) {
	if err != nil {
		l.logger.ContextKV(ctx, xlog.ERROR,
			"event", "chat_error",
			"chat_id", chatID,
			"err", err.Error(),
		)
		return
	}
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "chat_end",
		"chat_id", chatID,
		"result", answer,
	)
}

func (l *PackageLogger) OnToolStart(ctx context.Context, provider string, call llms.ToolCall) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"provider", provider,
		"tool", call.Name(),
		"tool_call_id", call.ID,
	)
}

func (l *PackageLogger) OnToolEnd(ctx context.Context, provider string, call llms.ToolCall, resp llms.ToolCallResponse) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"provider", provider,
		"tool", call.Name(),
		"output", resp.Content(),
	)
}

func (l *PackageLogger) OnToolError(ctx context.Context, provider string, call llms.ToolCall, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"provider", provider,
		"tool", call.Name(),
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnToolNotFound(ctx context.Context, call llms.ToolCall) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_not_found",
		"tool", call.Name(),
	)
}
