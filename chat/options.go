package chat

import (
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/prompts"
)

// Option is a function that can be used to modify the behavior of the Chat.
type Option func(*Config)

// Config holds the Chat settings.
type Config struct {
	// SystemInstruction is sent with every model call.
	SystemInstruction string
	// SystemPrompt, when its template is set, is rendered
	// into SystemInstruction by New.
	SystemPrompt prompts.SystemPrompt
	// MaxTurns caps the model turns of a single Run; zero means no cap.
	MaxTurns int
	// Callback receives the chat and tool events.
	Callback Callback
	// ChatID identifies the conversation in logs and callbacks.
	ChatID string
	// History is the conversation to resume.
	History []llms.Message
}

// NewConfig returns the Config with the options applied.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithSystemInstruction sets the system instruction.
func WithSystemInstruction(system string) Option {
	return func(o *Config) {
		o.SystemInstruction = system
	}
}

// WithSystemTemplate sets the system instruction template and its inputs.
func WithSystemTemplate(tmpl string, vars map[string]any) Option {
	return func(o *Config) {
		o.SystemPrompt = prompts.SystemPrompt{
			Template: tmpl,
			Vars:     vars,
		}
	}
}

// WithMaxTurns caps the number of model turns in a single Run.
func WithMaxTurns(n int) Option {
	return func(o *Config) {
		o.MaxTurns = n
	}
}

// WithCallback sets the callback for chat and tool events.
func WithCallback(cb Callback) Option {
	return func(o *Config) {
		o.Callback = cb
	}
}

// WithChatID sets the conversation ID.
func WithChatID(id string) Option {
	return func(o *Config) {
		o.ChatID = id
	}
}

// WithHistory sets the conversation to resume.
func WithHistory(history []llms.Message) Option {
	return func(o *Config) {
		o.History = history
	}
}
