package openai

import (
	"net/http"
	"time"
)

// Environment variables read when the matching option is not set.
const (
	TokenEnvVarName        = "OPENAI_API_KEY" //nolint:gosec
	ModelEnvVarName        = "OPENAI_MODEL"
	BaseURLEnvVarName      = "OPENAI_BASE_URL"
	OrganizationEnvVarName = "OPENAI_ORGANIZATION"
)

// ProviderType selects the flavor of the Chat Completions endpoint.
type ProviderType string

// Supported endpoint flavors.
const (
	ProviderOpenAI     ProviderType = "OPENAI"
	ProviderAzure      ProviderType = "AZURE"
	ProviderPerplexity ProviderType = "PERPLEXITY"
)

// Client defaults.
const (
	DefaultAPIVersion     = "2024-10-21"
	DefaultChatModel      = "gpt-5-mini"
	DefaultMaxTokens      = 32768
	DefaultMaxRetries     = 2
	DefaultRequestTimeout = 5 * time.Minute

	// PerplexityBaseURL is used for ProviderPerplexity when no base URL is set.
	PerplexityBaseURL = "https://api.perplexity.ai"
)

// Options are the client settings.
type Options struct {
	Token        string
	Model        string
	BaseURL      string
	Organization string
	Provider     ProviderType
	HTTPClient   *http.Client

	// APIVersion is used only with ProviderAzure.
	APIVersion string

	// MaxTokens is used when a call does not set one.
	MaxTokens      int
	MaxRetries     int
	RequestTimeout time.Duration
}

// Option configures the client.
type Option func(*Options)

// WithToken sets the API key. If not set, the key is read from the
// OPENAI_API_KEY environment variable.
func WithToken(token string) Option {
	return func(o *Options) {
		o.Token = token
	}
}

// WithModel sets the model name, or the deployment name on Azure.
// If not set, the model is read from the OPENAI_MODEL environment variable.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithBaseURL sets the endpoint, falling back to OPENAI_BASE_URL and then
// to the vendor default.
func WithBaseURL(baseURL string) Option {
	return func(o *Options) {
		o.BaseURL = baseURL
	}
}

// WithOrganization sets the organization header.
func WithOrganization(organization string) Option {
	return func(o *Options) {
		o.Organization = organization
	}
}

// WithProvider sets the endpoint flavor, ProviderOpenAI by default.
func WithProvider(provider ProviderType) Option {
	return func(o *Options) {
		o.Provider = provider
	}
}

// WithAPIVersion sets the Azure API version, DefaultAPIVersion by default.
func WithAPIVersion(apiVersion string) Option {
	return func(o *Options) {
		o.APIVersion = apiVersion
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = client
	}
}

// WithDefaultMaxTokens sets the completion limit for calls that do not set one.
func WithDefaultMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// WithMaxRetries sets how many times a failed request is retried.
func WithMaxRetries(n int) Option {
	return func(o *Options) {
		o.MaxRetries = n
	}
}

// WithRequestTimeout sets the timeout of a single request attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.RequestTimeout = d
	}
}
