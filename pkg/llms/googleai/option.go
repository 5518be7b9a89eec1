package googleai

import (
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/auth"
	"google.golang.org/genai"
)

// Environment variables consulted by New when the matching option is not set.
var (
	APIKeyEnvVarNames  = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	LocationEnvVarName = "GOOGLE_CLOUD_LOCATION"
)

// Client defaults.
const (
	DefaultModel          = "gemini-2.5-flash"
	DefaultMaxTokens      = 8192
	DefaultTemperature    = 0.5
	DefaultTopP           = 0.95
	DefaultLocation       = "us-central1"
	DefaultRequestTimeout = 5 * time.Minute
)

// Options are the client settings. Setting Project selects the
// Vertex AI backend, otherwise the Gemini API is used with APIKey.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64

	// HarmThreshold is applied to every harm category, when set.
	HarmThreshold genai.HarmBlockThreshold

	APIKey         string
	BaseURL        string
	Project        string
	Location       string
	Credentials    *auth.Credentials
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

// DefaultOptions returns the settings New starts from.
func DefaultOptions() Options {
	return Options{
		Model:          DefaultModel,
		MaxTokens:      DefaultMaxTokens,
		Temperature:    DefaultTemperature,
		TopP:           DefaultTopP,
		HarmThreshold:  genai.HarmBlockThresholdBlockOnlyHigh,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// VertexAI returns true if the options select the Vertex AI backend.
func (o *Options) VertexAI() bool {
	return o.Project != ""
}

// applyEnv fills the unset authentication fields from the environment.
func (o *Options) applyEnv() {
	if o.VertexAI() {
		if o.Location == "" {
			o.Location = os.Getenv(LocationEnvVarName)
		}
		if o.Location == "" {
			o.Location = DefaultLocation
		}
		return
	}
	if o.Credentials != nil || o.APIKey != "" {
		return
	}
	for _, env := range APIKeyEnvVarNames {
		if key := os.Getenv(env); key != "" {
			o.APIKey = key
			return
		}
	}
}

// Option configures the client.
type Option func(*Options)

// WithAPIKey sets the Gemini API key.
func WithAPIKey(apiKey string) Option {
	return func(o *Options) {
		o.APIKey = apiKey
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(o *Options) {
		o.BaseURL = baseURL
	}
}

// WithCredentials authenticates calls with the given credentials.
// A nil value is ignored.
func WithCredentials(credentials *auth.Credentials) Option {
	return func(o *Options) {
		if credentials != nil {
			o.Credentials = credentials
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = httpClient
	}
}

// WithVertexAI selects the Vertex AI backend in the given project and region.
// An empty location falls back to GOOGLE_CLOUD_LOCATION, then DefaultLocation.
func WithVertexAI(project, location string) Option {
	return func(o *Options) {
		o.Project = project
		o.Location = location
	}
}

// WithModel sets the model used when a call does not name one.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithDefaultMaxTokens sets the output limit for calls that do not set one.
func WithDefaultMaxTokens(maxTokens int) Option {
	return func(o *Options) {
		o.MaxTokens = maxTokens
	}
}

// WithDefaultSampling sets the temperature and TopP for calls that do not set them.
func WithDefaultSampling(temperature, topP float64) Option {
	return func(o *Options) {
		o.Temperature = temperature
		o.TopP = topP
	}
}

// WithHarmThreshold sets the blocking threshold for harmful content.
func WithHarmThreshold(ht genai.HarmBlockThreshold) Option {
	return func(o *Options) {
		o.HarmThreshold = ht
	}
}

// WithRequestTimeout sets the timeout of a single request.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.RequestTimeout = d
	}
}
