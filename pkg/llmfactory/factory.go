package llmfactory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/llms/anthropic"
	"github.com/effective-security/mcpchat/pkg/llms/bedrock"
	"github.com/effective-security/mcpchat/pkg/llms/googleai"
	"github.com/effective-security/mcpchat/pkg/llms/openai"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "llmfactory")

// Provider types
const (
	TypeOpenAI     = "OPENAI"
	TypeAzure      = "AZURE"
	TypePerplexity = "PERPLEXITY"
	TypeAnthropic  = "ANTHROPIC"
	TypeGoogleAI   = "GOOGLEAI"
	TypeBedrock    = "BEDROCK"
)

// Settings are the resolved values passed to a Constructor.
type Settings struct {
	Model          string
	MaxTokens      int
	MaxRetries     *int
	RequestTimeout time.Duration
}

// Constructor creates the model client of a provider type.
type Constructor func(cfg *ProviderConfig, s Settings) (llms.Model, error)

var constructors = map[string]Constructor{
	TypeOpenAI:     openAIConstructor(openai.ProviderOpenAI),
	TypeAzure:      openAIConstructor(openai.ProviderAzure),
	TypePerplexity: openAIConstructor(openai.ProviderPerplexity),
	TypeAnthropic:  newAnthropic,
	TypeGoogleAI:   newGoogleAI,
	TypeBedrock:    newBedrock,
}

// NewLLM is a wrapper for CreateLLM to allow for overriding the default implementation.
var NewLLM = CreateLLM

// Factory is the interface for creating and managing LLM models.
type Factory interface {
	// DefaultModel returns the default LLM model.
	DefaultModel() (llms.Model, error)
	// ModelByType returns an LLM model by its type, e.g.
	// OPENAI, AZURE, ANTHROPIC, GOOGLEAI, BEDROCK, PERPLEXITY
	ModelByType(providerType string) (llms.Model, error)
	// ModelByName returns an LLM model by its name,
	// if the model is not found, it will return the default model.
	ModelByName(preferredModels ...string) (llms.Model, error)
}

// Load returns the factory for the configuration file
func Load(location string) (Factory, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

type factory struct {
	cfg             *Config
	defaultProvider *ProviderConfig

	lock   sync.Mutex
	byType map[string]llms.Model
	byName map[string]llms.Model
}

// New creates a new LLM factory
func New(cfg *Config) Factory {
	f := &factory{
		cfg:    cfg,
		byType: make(map[string]llms.Model),
		byName: make(map[string]llms.Model),
	}

	idx := slices.IndexFunc(cfg.Providers, func(p *ProviderConfig) bool {
		return cfg.DefaultProvider != "" && p.Name == cfg.DefaultProvider
	})
	switch {
	case idx >= 0:
		f.defaultProvider = cfg.Providers[idx]
	case len(cfg.Providers) > 0:
		f.defaultProvider = cfg.Providers[0]
	}
	return f
}

// CreateLLM creates the model client for the provider, using the first of
// preferredModels it offers, or its default model.
func CreateLLM(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	create, ok := constructors[cfg.Type()]
	if !ok {
		return nil, errors.Errorf("unsupported provider type: %s", cfg.Type())
	}

	timeout, err := cfg.Limits.RequestTimeout()
	if err != nil {
		return nil, errors.WithMessagef(err, "provider %q", cfg.Name)
	}

	return create(cfg, Settings{
		Model:          cfg.FindModel(preferredModels...),
		MaxTokens:      cfg.Limits.MaxTokens,
		MaxRetries:     cfg.Limits.MaxRetries,
		RequestTimeout: timeout,
	})
}

func openAIConstructor(provider openai.ProviderType) Constructor {
	return func(cfg *ProviderConfig, s Settings) (llms.Model, error) {
		opts := []openai.Option{
			openai.WithProvider(provider),
			openai.WithModel(s.Model),
		}
		if cfg.Token != "" {
			opts = append(opts, openai.WithToken(cfg.Token))
		}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		if cfg.OpenAI.APIVersion != "" {
			opts = append(opts, openai.WithAPIVersion(cfg.OpenAI.APIVersion))
		}
		if cfg.OpenAI.OrgID != "" {
			opts = append(opts, openai.WithOrganization(cfg.OpenAI.OrgID))
		}
		if s.MaxTokens > 0 {
			opts = append(opts, openai.WithDefaultMaxTokens(s.MaxTokens))
		}
		if s.MaxRetries != nil {
			opts = append(opts, openai.WithMaxRetries(*s.MaxRetries))
		}
		if s.RequestTimeout > 0 {
			opts = append(opts, openai.WithRequestTimeout(s.RequestTimeout))
		}
		return openai.New(opts...)
	}
}

func newAnthropic(cfg *ProviderConfig, s Settings) (llms.Model, error) {
	opts := []anthropic.Option{
		anthropic.WithModel(s.Model),
	}
	if cfg.Token != "" {
		opts = append(opts, anthropic.WithToken(cfg.Token))
	}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	if s.MaxTokens > 0 {
		opts = append(opts, anthropic.WithDefaultMaxTokens(s.MaxTokens))
	}
	if s.MaxRetries != nil {
		opts = append(opts, anthropic.WithMaxRetries(*s.MaxRetries))
	}
	if s.RequestTimeout > 0 {
		opts = append(opts, anthropic.WithRequestTimeout(s.RequestTimeout))
	}
	return anthropic.New(opts...)
}

func newGoogleAI(cfg *ProviderConfig, s Settings) (llms.Model, error) {
	var opts []googleai.Option
	if s.Model != "" {
		opts = append(opts, googleai.WithModel(s.Model))
	}
	if cfg.Token != "" {
		opts = append(opts, googleai.WithAPIKey(cfg.Token))
	}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, googleai.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	if cfg.Google.Project != "" {
		opts = append(opts, googleai.WithVertexAI(cfg.Google.Project, cfg.Google.Location))
	}
	if s.MaxTokens > 0 {
		opts = append(opts, googleai.WithDefaultMaxTokens(s.MaxTokens))
	}
	if s.RequestTimeout > 0 {
		opts = append(opts, googleai.WithRequestTimeout(s.RequestTimeout))
	}
	return googleai.New(context.Background(), opts...)
}

func newBedrock(cfg *ProviderConfig, s Settings) (llms.Model, error) {
	var opts []bedrock.Option
	if s.Model != "" {
		opts = append(opts, bedrock.WithModel(s.Model))
	}
	if cfg.AWS.Region != "" {
		opts = append(opts, bedrock.WithRegion(cfg.AWS.Region))
	}
	if cfg.AWS.AccessKeyID != "" {
		opts = append(opts, bedrock.WithStaticCredentials(cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, cfg.AWS.SessionToken))
	}
	if s.MaxTokens > 0 {
		opts = append(opts, bedrock.WithDefaultMaxTokens(s.MaxTokens))
	}
	return bedrock.New(context.Background(), opts...)
}

// DefaultModel returns the model of the default provider
func (f *factory) DefaultModel() (llms.Model, error) {
	if f.defaultProvider == nil {
		return nil, errors.New("no providers configured")
	}
	return NewLLM(f.defaultProvider, f.defaultProvider.DefaultModel)
}

func (f *factory) ModelByType(providerType string) (llms.Model, error) {
	typ := normalizeType(providerType)

	f.lock.Lock()
	defer f.lock.Unlock()

	if model, ok := f.byType[typ]; ok {
		return model, nil
	}

	idx := slices.IndexFunc(f.cfg.Providers, func(p *ProviderConfig) bool {
		return p.Type() == typ
	})
	if idx < 0 {
		return nil, errors.Errorf("provider not found for type: %s", providerType)
	}

	cfg := f.cfg.Providers[idx]
	model, err := NewLLM(cfg)
	if err != nil {
		return nil, err
	}
	logCreated(cfg, model)

	f.byType[typ] = model
	return model, nil
}

func (f *factory) ModelByName(modelNames ...string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, modelName := range modelNames {
		if model, ok := f.byName[modelName]; ok {
			return model, nil
		}

		for _, cfg := range f.cfg.Providers {
			if !slices.Contains(cfg.AvailableModels, modelName) {
				continue
			}
			model, err := NewLLM(cfg, modelNames...)
			if err != nil {
				logger.KV(xlog.ERROR,
					"reason", "create_llm",
					"provider", cfg.Name,
					"type", cfg.Type(),
					"models", modelNames,
					"err", err.Error(),
				)
				continue
			}
			logCreated(cfg, model)

			f.byName[modelName] = model
			return model, nil
		}
	}
	return f.DefaultModel()
}

func logCreated(cfg *ProviderConfig, model llms.Model) {
	logger.KV(xlog.DEBUG,
		"status", "created_llm",
		"provider", cfg.Name,
		"type", cfg.Type(),
		"model", model.GetName(),
	)
}
