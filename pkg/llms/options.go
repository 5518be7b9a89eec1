package llms

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// CallOptions are the settings of a GenerateContent call.
// Zero values leave the choice to the backend, and not every backend
// honors every field.
type CallOptions struct {
	Model             string
	SystemInstruction string
	MaxTokens         int

	// Temperature and TopP are ignored when not positive.
	Temperature float64
	TopP        float64
	StopWords   []string

	// Tools is the catalog offered to the model. A nil or empty list means
	// no tools block is sent at all.
	Tools []Tool
	// ToolChoice defaults to FunctionCallBehaviorAuto.
	ToolChoice FunctionCallBehavior

	// Metadata is passed through to backends that accept request metadata.
	Metadata map[string]any
}

// CallOption configures CallOptions.
type CallOption func(*CallOptions)

// NewCallOptions applies the options over the defaults.
func NewCallOptions(defaults CallOptions, options ...CallOption) CallOptions {
	opts := defaults
	for _, opt := range options {
		opt(&opts)
	}
	return opts
}

// Tool is a tool offered to the model.
type Tool struct {
	// Type is "function" for the tools the model can call.
	Type     string              `json:"type"`
	Function *FunctionDefinition `json:"function,omitempty"`
}

// FunctionDefinition is a function the model can call.
type FunctionDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// Parameters is the JSON-Schema of the function input,
	// reduced to the keywords function-calling APIs understand.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// FunctionCallBehavior controls whether the model calls tools.
type FunctionCallBehavior string

const (
	// FunctionCallBehaviorNone will not call any functions.
	FunctionCallBehaviorNone FunctionCallBehavior = "none"
	// FunctionCallBehaviorAuto lets the model decide.
	FunctionCallBehaviorAuto FunctionCallBehavior = "auto"
	// FunctionCallBehaviorAny forces the model to call a function.
	FunctionCallBehaviorAny FunctionCallBehavior = "any"
)

// ParseFunctionCallBehavior returns the behavior named by s, case insensitive.
// An empty s is FunctionCallBehaviorAuto.
func ParseFunctionCallBehavior(s string) (FunctionCallBehavior, error) {
	switch b := FunctionCallBehavior(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return FunctionCallBehaviorAuto, nil
	case FunctionCallBehaviorNone, FunctionCallBehaviorAuto, FunctionCallBehaviorAny:
		return b, nil
	}
	return "", errors.Newf("invalid tool choice %q", s)
}

// WithModel overrides the model of the backend.
func WithModel(model string) CallOption {
	return func(o *CallOptions) {
		o.Model = model
	}
}

// WithSystemInstruction sets the system prompt.
func WithSystemInstruction(system string) CallOption {
	return func(o *CallOptions) {
		o.SystemInstruction = system
	}
}

// WithMaxTokens limits the number of generated tokens.
func WithMaxTokens(maxTokens int) CallOption {
	return func(o *CallOptions) {
		o.MaxTokens = maxTokens
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) CallOption {
	return func(o *CallOptions) {
		o.Temperature = temperature
	}
}

// WithTopP sets the cumulative probability for top-p sampling.
func WithTopP(topP float64) CallOption {
	return func(o *CallOptions) {
		o.TopP = topP
	}
}

// WithStopWords stops the generation on any of the words.
func WithStopWords(words ...string) CallOption {
	return func(o *CallOptions) {
		o.StopWords = words
	}
}

// WithTools offers the tools to the model.
func WithTools(tools []Tool) CallOption {
	return func(o *CallOptions) {
		o.Tools = tools
	}
}

// WithToolChoice sets whether the model calls tools.
func WithToolChoice(choice FunctionCallBehavior) CallOption {
	return func(o *CallOptions) {
		o.ToolChoice = choice
	}
}

// WithMetadata sets the request metadata.
func WithMetadata(metadata map[string]any) CallOption {
	return func(o *CallOptions) {
		o.Metadata = metadata
	}
}
