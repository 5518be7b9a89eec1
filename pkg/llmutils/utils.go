// Package llmutils has printing and accounting helpers for chat histories.
package llmutils

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/x/values"
	"gopkg.in/yaml.v3"
)

// ToJSONIndent returns val as tab indented JSON, or an empty string.
func ToJSONIndent(val any) string {
	js, _ := json.MarshalIndent(val, "", "\t")
	return string(js)
}

// ToYAML returns val as YAML, or an empty string.
func ToYAML(val any) string {
	js, _ := yaml.Marshal(val)
	return string(js)
}

// PrintMessages writes the history one message per line, prefixed by the
// upper case role. Additional parts of a message go on indented lines.
func PrintMessages(w io.Writer, msgs []llms.Message) {
	for _, msg := range msgs {
		lines := make([]string, 0, len(msg.Parts))
		for _, p := range msg.Parts {
			if line, ok := formatPart(p); ok {
				lines = append(lines, line)
			}
		}
		fmt.Fprintf(w, "%s: %s\n", strings.ToUpper(string(msg.Role)), strings.Join(lines, "\n  "))
	}
}

func formatPart(p llms.ContentPart) (string, bool) {
	switch pp := p.(type) {
	case llms.TextContent:
		return pp.Text, true
	case llms.ToolCall:
		args := ""
		if pp.FunctionCall != nil {
			args = pp.FunctionCall.Arguments
		}
		return fmt.Sprintf("ToolCall ID=%s, Func=%s(%s)", pp.ID, pp.Name(), args), true
	case llms.ToolCallResponse:
		if pp.IsError() {
			return fmt.Sprintf("ToolCallResponse ID=%s, Name=%s, Error=%s", pp.ToolCallID, pp.Name, pp.Error), true
		}
		return fmt.Sprintf("ToolCallResponse ID=%s, Name=%s, Result=%s", pp.ToolCallID, pp.Name, pp.Result), true
	}
	return "", false
}

// CountResponseContentSize returns the number of bytes of text, tool call
// and tool response content in the model turn.
func CountResponseContentSize(resp *llms.ContentResponse) uint64 {
	if resp == nil {
		return 0
	}
	var size int
	for _, p := range resp.Message.Parts {
		switch pp := p.(type) {
		case llms.TextContent:
			size += len(pp.Text)
		case llms.ToolCall:
			size += len(pp.ID) + len(pp.Type)
			if pp.FunctionCall != nil {
				size += len(pp.FunctionCall.Name) + len(pp.FunctionCall.Arguments)
			}
		case llms.ToolCallResponse:
			size += len(pp.ToolCallID) + len(pp.Name) + len(pp.Content())
		}
	}
	return uint64(size)
}

// CountTokens returns the token usage of the response.
// Total falls back to in+out when the provider does not report it.
func CountTokens(resp *llms.ContentResponse) (in, out, total int64) {
	if resp == nil {
		return
	}
	in = resp.Usage.InputTokens
	out = resp.Usage.OutputTokens
	total = values.NumbersCoalesce(resp.Usage.TotalTokens, in+out)
	return
}

// EnsureEndsWithNewline trims the spaces around s and terminates a
// non-empty result with a newline.
func EnsureEndsWithNewline(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return s + "\n"
}
