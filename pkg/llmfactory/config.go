package llmfactory

import (
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
)

// Config lists the model providers.
type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers" toml:"providers" validate:"dive"`
	// DefaultProvider specifies the name of the default provider,
	// the first one is used if not set
	DefaultProvider string `json:"default_provider" yaml:"default_provider" toml:"default_provider"`
}

// ProviderConfig for a model provider
type ProviderConfig struct {
	Name            string       `json:"name" yaml:"name" toml:"name" validate:"required"`
	Token           string       `json:"token,omitempty" yaml:"token,omitempty" toml:"token,omitempty"`
	DefaultModel    string       `json:"default_model,omitempty" yaml:"default_model,omitempty" toml:"default_model,omitempty"`
	AvailableModels []string     `json:"available_models,omitempty" yaml:"available_models,omitempty" toml:"available_models,omitempty"`
	OpenAI          OpenAIConfig `json:"open_ai" yaml:"open_ai" toml:"open_ai"`
	AWS             AWSConfig    `json:"aws" yaml:"aws" toml:"aws"`
	Google          GoogleConfig `json:"google" yaml:"google" toml:"google"`
	Limits          LimitsConfig `json:"limits" yaml:"limits" toml:"limits"`
}

// OpenAIConfig specifies the endpoint and the provider type
type OpenAIConfig struct {
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty" toml:"base_url,omitempty" validate:"omitempty,url"`
	APIVersion string `json:"api_version,omitempty" yaml:"api_version,omitempty" toml:"api_version,omitempty"`
	// APIType specifies the type of API to use:
	// OPENAI|AZURE|ANTHROPIC|GOOGLEAI|BEDROCK|PERPLEXITY
	APIType string `json:"api_type,omitempty" yaml:"api_type,omitempty" toml:"api_type,omitempty" validate:"required"`
	// OrgID specifies which organization's quota and billing should be used when making API requests.
	OrgID string `json:"org_id,omitempty" yaml:"org_id,omitempty" toml:"org_id,omitempty"`
}

// AWSConfig specifies the Bedrock access.
// Empty keys use the default AWS credentials chain.
type AWSConfig struct {
	Region          string `json:"region,omitempty" yaml:"region,omitempty" toml:"region,omitempty"`
	AccessKeyID     string `json:"access_key_id,omitempty" yaml:"access_key_id,omitempty" toml:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty" yaml:"secret_access_key,omitempty" toml:"secret_access_key,omitempty" validate:"required_with=AccessKeyID"`
	SessionToken    string `json:"session_token,omitempty" yaml:"session_token,omitempty" toml:"session_token,omitempty"`
}

// GoogleConfig specifies the Vertex AI project.
// Empty project uses the Gemini API with the token.
type GoogleConfig struct {
	Project  string `json:"project,omitempty" yaml:"project,omitempty" toml:"project,omitempty"`
	Location string `json:"location,omitempty" yaml:"location,omitempty" toml:"location,omitempty"`
}

// LimitsConfig bounds the requests sent to a provider.
// Zero values keep the backend defaults.
type LimitsConfig struct {
	// MaxTokens is the output limit for a model turn
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" toml:"max_tokens,omitempty" validate:"gte=0"`
	// MaxRetries is the number of retries of a failed request
	MaxRetries *int `json:"max_retries,omitempty" yaml:"max_retries,omitempty" toml:"max_retries,omitempty" validate:"omitempty,gte=0"`
	// Timeout is the duration of a single request, as "90s" or "5m"
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty"`
}

// RequestTimeout returns the parsed Timeout, or zero when not set.
func (l *LimitsConfig) RequestTimeout() (time.Duration, error) {
	if l.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(l.Timeout)
	if err != nil || d < 0 {
		return 0, errors.Newf("invalid timeout %q", l.Timeout)
	}
	return d, nil
}

var typeAliases = map[string]string{
	"OPEN_AI":  TypeOpenAI,
	"AZURE_AD": TypeAzure,
	"GEMINI":   TypeGoogleAI,
}

// Type returns the upper case provider type, with aliases resolved.
func (c *ProviderConfig) Type() string {
	return normalizeType(c.OpenAI.APIType)
}

func normalizeType(typ string) string {
	typ = strings.ToUpper(strings.TrimSpace(typ))
	if alias, ok := typeAliases[typ]; ok {
		return alias
	}
	return typ
}

// FindModel returns the first of models that the provider offers,
// or its default model.
func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
