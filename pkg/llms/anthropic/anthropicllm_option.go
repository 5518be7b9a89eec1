package anthropic

import (
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
)

// TokenEnvVarName is the environment variable read when no token is set.
const TokenEnvVarName = "ANTHROPIC_API_KEY" //nolint:gosec

// Client defaults.
const (
	DefaultBaseURL        = "https://api.anthropic.com"
	DefaultMaxRetries     = 2
	DefaultRequestTimeout = 5 * time.Minute
)

// Options are the client settings.
type Options struct {
	Token      string
	Model      string
	BaseURL    string
	HTTPClient option.HTTPClient

	// MaxTokens is used when a call does not set one.
	MaxTokens      int
	MaxRetries     int
	RequestTimeout time.Duration

	// BetaHeader, when set, is sent as the 'anthropic-beta' header.
	BetaHeader string
}

// Option configures the client.
type Option func(*Options)

// WithToken sets the API key. If not set, the key is read from the
// ANTHROPIC_API_KEY environment variable.
func WithToken(token string) Option {
	return func(opts *Options) {
		opts.Token = token
	}
}

// WithModel sets the model, it is required.
func WithModel(model string) Option {
	return func(opts *Options) {
		opts.Model = model
	}
}

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client, http.DefaultClient if not set.
func WithHTTPClient(client option.HTTPClient) Option {
	return func(opts *Options) {
		opts.HTTPClient = client
	}
}

// WithDefaultMaxTokens sets the max tokens of calls that do not set one.
func WithDefaultMaxTokens(maxTokens int) Option {
	return func(opts *Options) {
		opts.MaxTokens = maxTokens
	}
}

// WithMaxRetries sets the retries of failed requests.
func WithMaxRetries(retries int) Option {
	return func(opts *Options) {
		opts.MaxRetries = retries
	}
}

// WithRequestTimeout sets the timeout of a request, retries included.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.RequestTimeout = timeout
	}
}

// WithAnthropicBetaHeader enables beta features, such as a larger output
// for some models.
func WithAnthropicBetaHeader(value string) Option {
	return func(opts *Options) {
		opts.BetaHeader = value
	}
}
