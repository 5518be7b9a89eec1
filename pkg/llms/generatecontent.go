package llms

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

var (
	// ErrUnexpectedRole is returned when a message role is of an unexpected type.
	ErrUnexpectedRole = errors.New("unexpected role")
	// ErrEmptyResponse is returned when the model returns no candidates.
	ErrEmptyResponse = errors.New("no content in response")
)

// Role is the type of chat message.
type Role string

const (
	// RoleAI is a message sent by the model.
	RoleAI Role = "ai"
	// RoleHuman is a message sent by a human.
	RoleHuman Role = "human"
	// RoleSystem is a message sent by the system.
	RoleSystem Role = "system"
	// RoleTool is a message carrying tool results back to the model.
	// Vendors that have no tool role send it on the user side.
	RoleTool Role = "tool"
)

// Message is one turn in the conversation history. It has a role and a
// sequence of parts.
//
// Raw holds the vendor representation of a model turn, as returned by the
// backend that produced it. A backend that recognizes its own Raw value sends
// it back unchanged, so vendor continuation state (call IDs, thought
// signatures) survives the round trip. Other backends rebuild the turn from
// Parts.
type Message struct {
	Role  Role          `json:"role"`
	Parts []ContentPart `json:"parts"`
	Raw   any           `json:"-"`
}

// TextPart creates TextContent from a given string.
func TextPart(s string) TextContent {
	return TextContent{Text: s}
}

// ContentPart is an interface all parts of content have to implement.
type ContentPart interface {
	isPart()
}

// TextContent is content with some text.
type TextContent struct {
	Text string `json:"text"`
}

func (tc TextContent) String() string {
	return tc.Text
}

func (TextContent) isPart() {}

// FunctionCall is the name and arguments of a function call.
type FunctionCall struct {
	// The name of the function to call.
	Name string `json:"name"`
	// The arguments to pass to the function, as a JSON string.
	Arguments string `json:"arguments"`
}

// ToolCall is a call to a tool (as requested by the model) that should be executed.
type ToolCall struct {
	// ID is the unique identifier of the tool call.
	ID string `json:"id"`
	// Type is the type of the tool call. Typically, this would be "function".
	Type string `json:"type"`
	// FunctionCall is the function call to be executed.
	FunctionCall *FunctionCall `json:"function,omitempty"`
}

// NewToolCall returns a function ToolCall with args encoded as JSON.
// An empty id is replaced with a generated one.
func NewToolCall(id, name string, args map[string]any) ToolCall {
	if id == "" {
		id = NewToolCallID()
	}
	if args == nil {
		args = map[string]any{}
	}
	js, _ := json.Marshal(args)
	return ToolCall{
		ID:   id,
		Type: "function",
		FunctionCall: &FunctionCall{
			Name:      name,
			Arguments: string(js),
		},
	}
}

// NewToolCallID returns a new identifier for tool calls,
// for vendors that do not assign one.
func NewToolCallID() string {
	return "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Name returns the name of the called function.
func (tc ToolCall) Name() string {
	if tc.FunctionCall == nil {
		return ""
	}
	return tc.FunctionCall.Name
}

// Args decodes the JSON arguments of the call.
// Empty arguments decode to an empty map.
func (tc ToolCall) Args() (map[string]any, error) {
	args := map[string]any{}
	if tc.FunctionCall == nil {
		return args, nil
	}
	raw := strings.TrimSpace(tc.FunctionCall.Arguments)
	if raw == "" || raw == "null" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, errors.Wrapf(err, "invalid arguments for %q", tc.Name())
	}
	return args, nil
}

func (tc ToolCall) String() string {
	return fmt.Sprintf("ToolCall: %s (%s), input: %s", tc.ID, tc.Name(), tc.arguments())
}

func (tc ToolCall) arguments() string {
	if tc.FunctionCall == nil {
		return ""
	}
	return tc.FunctionCall.Arguments
}

func (ToolCall) isPart() {}

// ToolCallResponse is the result of a tool call, correlated to the call
// by ToolCallID and Name. Exactly one of Result or Error is meaningful:
// a non-empty Error marks a failed call.
type ToolCallResponse struct {
	// ToolCallID is the ID of the tool call this response is for.
	ToolCallID string `json:"tool_call_id"`
	// Name is the name of the tool that was called.
	Name string `json:"name"`
	// Result is the serialized output of the tool.
	Result string `json:"result,omitempty"`
	// Error is the failure message, if the call failed.
	Error string `json:"error,omitempty"`
}

// IsError returns true if the call failed.
func (tc ToolCallResponse) IsError() bool {
	return tc.Error != ""
}

// Response returns the result payload in the shape sent to function-calling
// APIs: {"result": ...} on success or {"error": ...} on failure.
func (tc ToolCallResponse) Response() map[string]any {
	if tc.IsError() {
		return map[string]any{"error": tc.Error}
	}
	return map[string]any{"result": tc.Result}
}

// Content returns the payload as text, for vendors that accept tool
// results as plain strings.
func (tc ToolCallResponse) Content() string {
	if tc.IsError() {
		return tc.Error
	}
	return tc.Result
}

func (tc ToolCallResponse) String() string {
	return fmt.Sprintf("ToolCallResponse: %s (%s), error: %t, response size: %d",
		tc.ToolCallID, tc.Name, tc.IsError(), len(tc.Content()))
}

func (ToolCallResponse) isPart() {}

// Usage is the token accounting reported by the model.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// ContentResponse is the response returned by a GenerateContent call.
type ContentResponse struct {
	// Content is the concatenated text of the response, possibly empty.
	Content string `json:"content"`

	// ToolCalls is a list of tool calls the model asks to invoke, in order.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// StopReason is the reason the model stopped generating output.
	StopReason string `json:"stop_reason,omitempty"`

	// Message is the model turn to append to the history.
	// It carries the vendor continuation state in Raw.
	Message Message `json:"message"`

	// Usage is the token usage, if reported.
	Usage Usage `json:"usage"`

	// GenerationInfo is arbitrary information the model adds to the response.
	GenerationInfo map[string]any `json:"generation_info,omitempty"`
}

// HasToolCalls returns true if the model requested tool use.
func (r *ContentResponse) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// NewTextResponse returns a response with text only, and no tool calls.
func NewTextResponse(text string) *ContentResponse {
	return &ContentResponse{
		Content: text,
		Message: MessageFromTextParts(RoleAI, text),
	}
}

// MessageFromParts is a helper function to create a Message with a role and a
// list of parts.
func MessageFromParts(role Role, parts ...ContentPart) Message {
	return Message{
		Role:  role,
		Parts: parts,
	}
}

// MessageFromTextParts is a helper function to create a Message with a role and a
// list of text parts.
func MessageFromTextParts(role Role, parts ...string) Message {
	result := Message{
		Role:  role,
		Parts: make([]ContentPart, 0, len(parts)),
	}
	for _, part := range parts {
		result.Parts = append(result.Parts, TextPart(part))
	}
	return result
}

// MessageFromToolResponses is a helper function to create a tool results
// Message, with parts in the order of the responses.
func MessageFromToolResponses(responses ...ToolCallResponse) Message {
	result := Message{
		Role:  RoleTool,
		Parts: make([]ContentPart, 0, len(responses)),
	}
	for _, r := range responses {
		result.Parts = append(result.Parts, r)
	}
	return result
}

// Text returns the concatenated text parts of the message.
func (m Message) Text() string {
	var buf strings.Builder
	for _, p := range m.Parts {
		if tc, ok := p.(TextContent); ok {
			buf.WriteString(tc.Text)
		}
	}
	return buf.String()
}

// ToolCalls returns the tool call parts of the message.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, p := range m.Parts {
		if tc, ok := p.(ToolCall); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// GetContent returns a printable representation of the message.
func (m Message) GetContent() string {
	var buf strings.Builder
	lastNewLine := true
	for _, p := range m.Parts {
		if !lastNewLine {
			buf.WriteString("\n")
		}
		switch typ := p.(type) {
		case TextContent:
			buf.WriteString(typ.Text)
			lastNewLine = strings.HasSuffix(typ.Text, "\n")
		case ToolCall:
			buf.WriteString("Tool Call: ")
			js, _ := json.Marshal(typ)
			buf.Write(js)
			buf.WriteString("\n")
			lastNewLine = true
		case ToolCallResponse:
			buf.WriteString("Response: ")
			js, _ := json.Marshal(typ)
			buf.Write(js)
			buf.WriteString("\n")
			lastNewLine = true
		}
	}
	if !lastNewLine {
		buf.WriteString("\n")
	}
	return buf.String()
}
