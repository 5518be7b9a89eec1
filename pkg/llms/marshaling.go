package llms

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Parts are encoded with a "type" discriminator so that a history can be
// dumped and loaded back. Message.Raw is never encoded.

const (
	partTypeText         = "text"
	partTypeToolCall     = "tool_call"
	partTypeToolResponse = "tool_response"
)

// contentPartJSON represents the JSON structure for content parts
type contentPartJSON struct {
	Type         string            `json:"type"`
	Text         string            `json:"text,omitempty"`
	ToolCall     *toolCallJSON     `json:"tool_call,omitempty"`
	ToolResponse *toolResponseJSON `json:"tool_response,omitempty"`
}

type toolCallJSON struct {
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	FunctionCall *FunctionCall `json:"function"`
}

type toolResponseJSON struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Result     string `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
}

type messageJSON struct {
	Role  Role              `json:"role"`
	Parts []json.RawMessage `json:"parts"`
}

// MarshalJSON implements json.Marshaler for TextContent
func (tc TextContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(contentPartJSON{
		Type: partTypeText,
		Text: tc.Text,
	})
}

// MarshalJSON implements json.Marshaler for ToolCall
func (tc ToolCall) MarshalJSON() ([]byte, error) {
	return json.Marshal(contentPartJSON{
		Type: partTypeToolCall,
		ToolCall: &toolCallJSON{
			ID:           tc.ID,
			Type:         tc.Type,
			FunctionCall: tc.FunctionCall,
		},
	})
}

// MarshalJSON implements json.Marshaler for ToolCallResponse
func (tc ToolCallResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(contentPartJSON{
		Type: partTypeToolResponse,
		ToolResponse: &toolResponseJSON{
			ToolCallID: tc.ToolCallID,
			Name:       tc.Name,
			Result:     tc.Result,
			Error:      tc.Error,
		},
	})
}

// UnmarshalJSON implements json.Unmarshaler for Message
func (m *Message) UnmarshalJSON(data []byte) error {
	var mj messageJSON
	if err := json.Unmarshal(data, &mj); err != nil {
		return errors.WithStack(err)
	}

	m.Role = mj.Role
	m.Raw = nil
	m.Parts = make([]ContentPart, 0, len(mj.Parts))
	for i, raw := range mj.Parts {
		part, err := unmarshalContentPart(raw)
		if err != nil {
			return errors.WithMessagef(err, "part %d", i)
		}
		m.Parts = append(m.Parts, part)
	}
	return nil
}

func unmarshalContentPart(data []byte) (ContentPart, error) {
	var pj contentPartJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return nil, errors.WithStack(err)
	}

	switch pj.Type {
	case partTypeText:
		return TextContent{Text: pj.Text}, nil
	case partTypeToolCall:
		if pj.ToolCall == nil {
			return nil, errors.New("missing tool_call")
		}
		return ToolCall{
			ID:           pj.ToolCall.ID,
			Type:         pj.ToolCall.Type,
			FunctionCall: pj.ToolCall.FunctionCall,
		}, nil
	case partTypeToolResponse:
		if pj.ToolResponse == nil {
			return nil, errors.New("missing tool_response")
		}
		return ToolCallResponse{
			ToolCallID: pj.ToolResponse.ToolCallID,
			Name:       pj.ToolResponse.Name,
			Result:     pj.ToolResponse.Result,
			Error:      pj.ToolResponse.Error,
		}, nil
	default:
		return nil, errors.Newf("unknown content part type: %q", pj.Type)
	}
}
